package layer

import (
	"math"

	"github.com/FlavioCFOliveira/chainnet/internal/activations"
	"github.com/FlavioCFOliveira/chainnet/internal/linalg"
)

// MaxPooling downsamples each channel by taking the maximum over a window.
// It stores the (row, col) of the maximum for each output cell so the
// gradient is routed back to exactly that input cell.
//
// Output size is prevH/stride × prevW/stride. The window for output (h, w)
// covers input rows h*stride + s - poolingSize/2 for s in [0, poolingSize),
// and likewise for columns; out-of-range taps are skipped.
type MaxPooling struct {
	base

	poolingSize int
	stride      int

	// Recorded argmax coordinates per output cell; -1 when no tap was in range.
	maxRow []int
	maxCol []int
}

func poolingOutputShape(stride int, in Shape) Shape {
	return Shape{Channels: in.Channels, Height: in.Height / stride, Width: in.Width / stride}
}

func newMaxPooling(poolingSize, stride int, in Shape, act activations.Activation, name string) *MaxPooling {
	out := poolingOutputShape(stride, in)
	return &MaxPooling{
		base:        newBase(KindMaxPooling, name, out, in, act),
		poolingSize: poolingSize,
		stride:      stride,
		maxRow:      make([]int, out.Size()),
		maxCol:      make([]int, out.Size()),
	}
}

func (l *MaxPooling) propagate(prev *base) {
	in, out := l.inShape, l.shape
	z := prev.activated
	half := l.poolingSize / 2

	for c := 0; c < out.Channels; c++ {
		for h := 0; h < out.Height; h++ {
			for w := 0; w < out.Width; w++ {
				mph, mpw := -1, -1
				mv := math.Inf(-1)
				for s := 0; s < l.poolingSize; s++ {
					ph := h*l.stride + s - half
					for t := 0; t < l.poolingSize; t++ {
						pw := w*l.stride + t - half
						if !in.Contains(ph, pw) {
							continue
						}
						if v := z[in.Index(c, ph, pw)]; mv < v {
							mv = v
							mph, mpw = ph, pw
						}
					}
				}

				idx := out.Index(c, h, w)
				l.maxRow[idx] = mph
				l.maxCol[idx] = mpw
				if mph < 0 {
					mv = 0
				}
				l.unitOutput[idx] = mv
				l.activated[idx] = l.act.Activate(mv)
			}
		}
	}
}

// backPropagate routes delta[c, h, w] to the recorded maximum input cell only.
// Overlapping windows accumulate.
func (l *MaxPooling) backPropagate(prev *base) {
	in, out := l.inShape, l.shape
	prevDelta := prev.delta
	linalg.Zero(prevDelta)

	for c := 0; c < out.Channels; c++ {
		for h := 0; h < out.Height; h++ {
			for w := 0; w < out.Width; w++ {
				idx := out.Index(c, h, w)
				ph, pw := l.maxRow[idx], l.maxCol[idx]
				if ph < 0 {
					continue
				}
				pidx := in.Index(c, ph, pw)
				prevDelta[pidx] += l.delta[idx] * prev.act.Derivative(prev.unitOutput[pidx])
			}
		}
	}
}

// gradientDescent is a no-op: max pooling has no parameters.
func (l *MaxPooling) gradientDescent(*base, float64, float64) {}

func (l *MaxPooling) ParamCount() int { return 0 }

// PoolingSize returns the window side length.
func (l *MaxPooling) PoolingSize() int {
	return l.poolingSize
}

// Stride returns the window stride.
func (l *MaxPooling) Stride() int {
	return l.stride
}

// MaxCoord returns the input (row, col) recorded for output cell idx
// during the last propagation, or (-1, -1) if its window was empty.
func (l *MaxPooling) MaxCoord(idx int) (row, col int) {
	return l.maxRow[idx], l.maxCol[idx]
}
