package layer

import "github.com/FlavioCFOliveira/chainnet/internal/activations"

// Input injects an external feature vector as the chain's first activations.
// It originates forward propagation and terminates back-propagation.
type Input struct {
	base
}

func newInput(shape Shape, name string) *Input {
	return &Input{base: newBase(KindInput, name, shape, shape, activations.Identity{})}
}

// load copies x into both output buffers.
func (l *Input) load(x []float64) {
	copy(l.unitOutput, x)
	copy(l.activated, x)
}

func (l *Input) ParamCount() int { return 0 }

func (l *Input) propagate(*base)                         {}
func (l *Input) backPropagate(*base)                     {}
func (l *Input) gradientDescent(*base, float64, float64) {}
