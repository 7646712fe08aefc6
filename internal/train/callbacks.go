package train

import (
	"fmt"
	"log"
	"math"
	"path/filepath"

	"github.com/FlavioCFOliveira/chainnet/internal/dataset"
	"github.com/FlavioCFOliveira/chainnet/internal/opt"
)

// Callback observes a training run.
type Callback interface {
	OnTrainBegin(t *Trainer)
	OnTrainEnd(r Result, t *Trainer)
	OnIterationEnd(i int, loss float64, t *Trainer)
	OnEvaluate(i int, r Result, t *Trainer)
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (BaseCallback) OnTrainBegin(*Trainer)                 {}
func (BaseCallback) OnTrainEnd(Result, *Trainer)           {}
func (BaseCallback) OnIterationEnd(int, float64, *Trainer) {}
func (BaseCallback) OnEvaluate(int, Result, *Trainer)      {}

// SchedulerCallback advances a learning-rate scheduler: Step after every
// iteration and StepWithLoss with the evaluation loss.
type SchedulerCallback struct {
	BaseCallback
	scheduler opt.Scheduler
}

func NewSchedulerCallback(scheduler opt.Scheduler) *SchedulerCallback {
	return &SchedulerCallback{scheduler: scheduler}
}

func (c *SchedulerCallback) OnIterationEnd(int, float64, *Trainer) {
	c.scheduler.Step()
}

func (c *SchedulerCallback) OnEvaluate(_ int, r Result, _ *Trainer) {
	c.scheduler.StepWithLoss(r.Loss)
}

// EarlyStopping stops training when the evaluation loss has stopped improving
// for Patience evaluations.
type EarlyStopping struct {
	BaseCallback
	Patience  int
	Threshold float64

	bestLoss    float64
	numBadEvals int
	Stopped     bool
	Out         *log.Logger
}

func NewEarlyStopping(patience int, threshold float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:  patience,
		Threshold: threshold,
		bestLoss:  math.MaxFloat64,
	}
}

func (c *EarlyStopping) OnEvaluate(i int, r Result, t *Trainer) {
	if r.Loss < c.bestLoss-c.Threshold {
		c.bestLoss = r.Loss
		c.numBadEvals = 0
	} else {
		c.numBadEvals++
	}

	if c.numBadEvals >= c.Patience {
		if c.Out != nil {
			c.Out.Printf("run %s: early stopping at i=%d: loss %.6f did not improve for %d evaluations", t.RunID(), i, r.Loss, c.Patience)
		}
		c.Stopped = true
		t.Stop()
	}
}

// Logger logs training progress.
type Logger struct {
	BaseCallback
	Out *log.Logger
	// Interval is the number of iterations between loss lines; 0 logs only evaluations.
	Interval int
}

func (c Logger) OnTrainBegin(t *Trainer) {
	c.Out.Printf("run %s: %s, %d layers, %d parameters\n%s", t.RunID(), t.Mode(), t.Chain().Len(), t.Chain().ParamCount(), t.Chain().Describe())
}

func (c Logger) OnIterationEnd(i int, loss float64, t *Trainer) {
	if c.Interval > 0 && i%c.Interval == 0 {
		c.Out.Printf("run %s: i=%d loss=%.6f lr=%g", t.RunID(), i, loss, t.LR())
	}
}

func (c Logger) OnEvaluate(i int, r Result, t *Trainer) {
	c.Out.Printf("run %s: i=%d %s", t.RunID(), i, r)
}

func (c Logger) OnTrainEnd(r Result, t *Trainer) {
	c.Out.Printf("run %s: finished after %d iterations: %s", t.RunID(), t.Iteration(), r)
}

// ImageSaver writes the reconstruction of each sample as a PNG on every
// evaluation, named test<i>_<j>.png in Dir.
type ImageSaver struct {
	BaseCallback
	Dir     string
	Samples [][]float64
	Height  int
	Width   int
	Out     *log.Logger
}

func (c ImageSaver) OnEvaluate(i int, _ Result, t *Trainer) {
	for j, x := range c.Samples {
		y, err := t.Reconstruct(x)
		if err == nil {
			path := filepath.Join(c.Dir, fmt.Sprintf("test%d_%d.png", i, j))
			err = dataset.SaveImage(path, y, c.Height, c.Width)
		}
		if err != nil && c.Out != nil {
			c.Out.Printf("ImageSaver: %v", err)
		}
	}
}
