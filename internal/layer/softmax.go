package layer

import (
	"github.com/FlavioCFOliveira/chainnet/internal/activations"
	"github.com/FlavioCFOliveira/chainnet/internal/linalg"
)

// Softmax is the terminal classification layer: a fully connected transform
// normalized by the exponential over the whole output vector.
// Its delta is computed directly from the target as activated - target.
type Softmax struct {
	FullyConnected
}

func newSoftmax(units int, in Shape, name string, init initializer) *Softmax {
	return &Softmax{FullyConnected: *newFullyConnected(KindSoftmax, units, in, activations.Softmax{}, name, init)}
}

func (l *Softmax) propagate(prev *base) {
	l.affine(prev)
	activations.Softmax{}.ActivateBatch(l.activated, l.unitOutput)
}

// Class returns the index of the largest output; ties go to the lowest index.
func (l *Softmax) Class() int {
	return linalg.Argmax(l.activated)
}
