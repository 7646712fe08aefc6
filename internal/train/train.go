// Package train drives a layer chain over a labeled corpus: per-class
// sampling, one example per step, periodic evaluation and callbacks.
package train

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/FlavioCFOliveira/chainnet/internal/dataset"
	"github.com/FlavioCFOliveira/chainnet/internal/layer"
	"github.com/FlavioCFOliveira/chainnet/internal/loss"
	"github.com/FlavioCFOliveira/chainnet/internal/opt"
)

// ErrMismatch is returned when a corpus does not fit the chain's input or output.
var ErrMismatch = errors.New("train: corpus does not fit chain")

// Mode selects what the chain is trained towards.
type Mode int

const (
	// Classify trains towards the one-hot label and evaluates accuracy.
	// The terminal layer must be a softmax layer.
	Classify Mode = iota
	// Autoencode trains towards the input itself and evaluates reconstruction error.
	Autoencode
)

func (m Mode) String() string {
	switch m {
	case Classify:
		return "classify"
	case Autoencode:
		return "autoencode"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Result summarizes one evaluation pass.
type Result struct {
	Total   int
	Correct int
	// Loss is the mean per-example loss: cross-entropy when classifying,
	// Σ 0.5·(y - x)² when autoencoding.
	Loss float64
}

// Rate returns Correct/Total, or 0 for an empty pass.
func (r Result) Rate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

func (r Result) String() string {
	return fmt.Sprintf("total test data size = %d, correct answer = %d, rate = %.4f, loss = %.6f",
		r.Total, r.Correct, r.Rate(), r.Loss)
}

// Trainer runs training iterations over a Chain.
type Trainer struct {
	chain     *layer.Chain
	mode      Mode
	scheduler opt.Scheduler
	momentum  float64
	rng       *rand.Rand
	callbacks []Callback
	loss      loss.Loss
	runID     uuid.UUID

	iteration int
	stopped   bool
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithScheduler makes the trainer take its learning rate from s and
// advances s once per iteration and once per evaluation.
func WithScheduler(s opt.Scheduler) Option {
	return func(t *Trainer) {
		t.scheduler = s
		t.callbacks = append(t.callbacks, NewSchedulerCallback(s))
	}
}

// WithRate sets a constant learning rate.
func WithRate(rate float64) Option {
	return func(t *Trainer) {
		t.scheduler = opt.Constant{Rate: rate}
	}
}

// WithMomentum sets the momentum passed to every gradient-descent call.
func WithMomentum(m float64) Option {
	return func(t *Trainer) {
		t.momentum = m
	}
}

// WithRand sets the source used for sampling training examples.
func WithRand(r *rand.Rand) Option {
	return func(t *Trainer) {
		t.rng = r
	}
}

// WithCallbacks registers callbacks, called in order.
func WithCallbacks(cbs ...Callback) Option {
	return func(t *Trainer) {
		t.callbacks = append(t.callbacks, cbs...)
	}
}

// New returns a Trainer for chain. The defaults are a constant rate of 0.01
// and momentum 0.5.
func New(chain *layer.Chain, mode Mode, opts ...Option) *Trainer {
	t := &Trainer{
		chain:     chain,
		mode:      mode,
		scheduler: opt.Constant{Rate: 0.01},
		momentum:  0.5,
		loss:      loss.CrossEntropy{},
		runID:     uuid.New(),
	}
	if mode == Autoencode {
		t.loss = loss.HalfSquared{}
	}
	for _, o := range opts {
		o(t)
	}
	if t.rng == nil {
		t.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return t
}

// Chain returns the trained chain.
func (t *Trainer) Chain() *layer.Chain { return t.chain }

// Mode returns the training mode.
func (t *Trainer) Mode() Mode { return t.mode }

// RunID identifies this trainer's run in logs.
func (t *Trainer) RunID() uuid.UUID { return t.runID }

// LR returns the learning rate the next step will use.
func (t *Trainer) LR() float64 { return t.scheduler.LR() }

// Iteration returns the number of completed iterations.
func (t *Trainer) Iteration() int { return t.iteration }

// Stop makes Run return after the current iteration.
func (t *Trainer) Stop() { t.stopped = true }

// Stopped reports whether Stop was called.
func (t *Trainer) Stopped() bool { return t.stopped }

// Check reports whether c fits the chain for the trainer's mode.
func (t *Trainer) Check(c *dataset.Corpus) error {
	in := t.chain.Input().Units()
	out := t.chain.Terminal().Units()
	if c.Len() > 0 && c.Dim() != in {
		return fmt.Errorf("samples have %d values, input layer has %d units: %w", c.Dim(), in, ErrMismatch)
	}
	switch t.mode {
	case Classify:
		if t.chain.Terminal().Kind() != layer.KindSoftmax {
			return fmt.Errorf("classifier ends with %s, not softmax: %w", t.chain.Terminal().Kind(), ErrMismatch)
		}
		if c.Classes() != out {
			return fmt.Errorf("corpus has %d classes, softmax has %d units: %w", c.Classes(), out, ErrMismatch)
		}
	case Autoencode:
		if in != out {
			return fmt.Errorf("autoencoder input has %d units, output %d: %w", in, out, ErrMismatch)
		}
	}
	return nil
}

func (t *Trainer) target(label int, x []float64) []float64 {
	if t.mode == Autoencode {
		return x
	}
	return dataset.OneHot(t.chain.Terminal().Units(), label)
}

// Iterate runs one training iteration: for each class in label order it
// draws one example uniformly and takes one step towards its target. Empty
// classes are skipped. It returns the mean loss of the forward passes.
func (t *Trainer) Iterate(train *dataset.Corpus) (float64, error) {
	rate := t.scheduler.LR()
	total, n := 0.0, 0
	for label := 0; label < train.Classes(); label++ {
		x := train.Sample(t.rng, label)
		if x == nil {
			continue
		}
		target := t.target(label, x)
		if err := t.chain.Step(x, target, rate, t.momentum); err != nil {
			return 0, fmt.Errorf("iteration %d, label %d: %w", t.iteration, label, err)
		}
		// Output still holds the forward pass the step descended from.
		total += t.loss.Forward(t.chain.Output(), target)
		n++
	}
	t.iteration++
	if n == 0 {
		return 0, nil
	}
	return total / float64(n), nil
}

// Evaluate propagates every sample of test and scores it without training.
func (t *Trainer) Evaluate(test *dataset.Corpus) (Result, error) {
	var r Result
	err := test.Each(func(label int, x []float64) error {
		if err := t.chain.Propagate(x); err != nil {
			return err
		}
		r.Total++
		r.Loss += t.loss.Forward(t.chain.Output(), t.target(label, x))
		if t.mode != Classify {
			return nil
		}
		class, err := t.chain.Class()
		if err != nil {
			return err
		}
		if class == label {
			r.Correct++
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("evaluate: %w", err)
	}
	if r.Total > 0 {
		r.Loss /= float64(r.Total)
	}
	return r, nil
}

// Reconstruct propagates x and returns a copy of the chain's output.
func (t *Trainer) Reconstruct(x []float64) ([]float64, error) {
	if err := t.chain.Propagate(x); err != nil {
		return nil, err
	}
	return append([]float64(nil), t.chain.Output()...), nil
}

// Run trains for the given number of iterations, evaluating on test before
// every iteration whose index is a multiple of evalEvery (0 disables periodic
// evaluation) and once more at the end. It stops early when a callback calls
// Stop and returns the final evaluation.
func (t *Trainer) Run(train, test *dataset.Corpus, iterations, evalEvery int) (Result, error) {
	if err := t.Check(train); err != nil {
		return Result{}, fmt.Errorf("train corpus: %w", err)
	}
	if err := t.Check(test); err != nil {
		return Result{}, fmt.Errorf("test corpus: %w", err)
	}

	for _, cb := range t.callbacks {
		cb.OnTrainBegin(t)
	}
	for i := 0; i < iterations && !t.stopped; i++ {
		if evalEvery > 0 && i%evalEvery == 0 {
			r, err := t.Evaluate(test)
			if err != nil {
				return Result{}, err
			}
			for _, cb := range t.callbacks {
				cb.OnEvaluate(i, r, t)
			}
			if t.stopped {
				break
			}
		}

		l, err := t.Iterate(train)
		if err != nil {
			return Result{}, err
		}
		for _, cb := range t.callbacks {
			cb.OnIterationEnd(i, l, t)
		}
	}

	r, err := t.Evaluate(test)
	if err != nil {
		return Result{}, err
	}
	for _, cb := range t.callbacks {
		cb.OnTrainEnd(r, t)
	}
	return r, nil
}
