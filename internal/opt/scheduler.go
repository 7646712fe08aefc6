package opt

import "math"

// Scheduler yields the learning rate for the next gradient-descent call.
type Scheduler interface {
	Step()
	StepWithLoss(loss float64)
	LR() float64
}

// BaseScheduler provides default implementations for Scheduler.
type BaseScheduler struct{}

func (s BaseScheduler) Step()                     {}
func (s BaseScheduler) StepWithLoss(loss float64) {}

// Constant keeps the learning rate fixed.
type Constant struct {
	BaseScheduler
	Rate float64
}

// LR returns the fixed rate.
func (c Constant) LR() float64 {
	return c.Rate
}

// StepLR decays the learning rate by gamma every stepSize steps.
type StepLR struct {
	BaseScheduler
	stepSize  int
	gamma     float64
	lastEpoch int
	lr        float64
}

func NewStepLR(initialLR float64, stepSize int, gamma float64) *StepLR {
	return &StepLR{
		stepSize: stepSize,
		gamma:    gamma,
		lr:       initialLR,
	}
}

func (s *StepLR) Step() {
	s.lastEpoch++
	if s.stepSize > 0 && s.lastEpoch%s.stepSize == 0 {
		s.lr *= s.gamma
	}
}

func (s *StepLR) LR() float64 {
	return s.lr
}

// ExponentialLR decays the learning rate by gamma every step.
type ExponentialLR struct {
	BaseScheduler
	gamma float64
	lr    float64
}

func NewExponentialLR(initialLR float64, gamma float64) *ExponentialLR {
	return &ExponentialLR{
		gamma: gamma,
		lr:    initialLR,
	}
}

func (s *ExponentialLR) Step() {
	s.lr *= s.gamma
}

func (s *ExponentialLR) LR() float64 {
	return s.lr
}

// ReduceLROnPlateau reduces the learning rate when a metric has stopped improving.
type ReduceLROnPlateau struct {
	BaseScheduler
	factor    float64
	patience  int
	threshold float64
	cooldown  int
	minLR     float64
	lr        float64

	bestLoss        float64
	numBadEpochs    int
	cooldownCounter int
}

func NewReduceLROnPlateau(initialLR, factor float64, patience int, threshold, minLR float64) *ReduceLROnPlateau {
	return &ReduceLROnPlateau{
		factor:    factor,
		patience:  patience,
		threshold: threshold,
		minLR:     minLR,
		lr:        initialLR,
		bestLoss:  math.MaxFloat64,
	}
}

func (s *ReduceLROnPlateau) StepWithLoss(currentLoss float64) {
	if s.cooldownCounter > 0 {
		s.cooldownCounter--
		return
	}

	if currentLoss < s.bestLoss-s.threshold {
		s.bestLoss = currentLoss
		s.numBadEpochs = 0
	} else {
		s.numBadEpochs++
	}

	if s.numBadEpochs >= s.patience {
		newLR := s.lr * s.factor
		if newLR < s.minLR {
			newLR = s.minLR
		}
		s.lr = newLR
		s.numBadEpochs = 0
		s.cooldownCounter = s.cooldown
	}
}

func (s *ReduceLROnPlateau) LR() float64 {
	return s.lr
}
