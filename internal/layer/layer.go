// Package layer provides the layer chain: input, fully connected, softmax,
// convolution and max-pooling layers sharing a three-phase protocol of
// propagation, back-propagation and gradient descent.
package layer

import (
	"fmt"
	"strings"

	"github.com/FlavioCFOliveira/chainnet/internal/activations"
)

// Kind identifies a layer variant.
type Kind int

const (
	KindInput Kind = iota
	KindFullyConnected
	KindSoftmax
	KindConvolution
	KindConvolutionZeroPadding
	KindMaxPooling
)

var kindNames = [...]string{
	KindInput:                  "input",
	KindFullyConnected:         "fully connected",
	KindSoftmax:                "softmax",
	KindConvolution:            "convolution",
	KindConvolutionZeroPadding: "convolution zero padding",
	KindMaxPooling:             "max pooling",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Shape is a channel × height × width tensor shape.
// Tensors are flattened channel-major, then row-major.
type Shape struct {
	Channels int
	Height   int
	Width    int
}

// Flat returns the shape of a plain vector of n units.
func Flat(n int) Shape {
	return Shape{Channels: 1, Height: 1, Width: n}
}

// Size returns Channels*Height*Width.
func (s Shape) Size() int {
	return s.Channels * s.Height * s.Width
}

// Index returns the flat offset of (c, h, w).
func (s Shape) Index(c, h, w int) int {
	return c*s.Height*s.Width + h*s.Width + w
}

// Contains reports whether (h, w) lies inside the spatial extent.
func (s Shape) Contains(h, w int) bool {
	return h >= 0 && h < s.Height && w >= 0 && w < s.Width
}

func (s Shape) String() string {
	return fmt.Sprintf("[channel=%d, h=%d, w=%d]", s.Channels, s.Height, s.Width)
}

// Layer is one stage of a Chain. The set of implementations is closed:
// only this package can construct layers, through a Builder.
type Layer interface {
	Kind() Kind
	Name() string

	// Index, Prev and Next address layers in the owning Chain; -1 marks an end.
	Index() int
	Prev() int
	Next() int

	Units() int
	Inputs() int
	Shape() Shape
	InputShape() Shape
	Activation() activations.Activation

	// UnitOutput is the pre-activation value per unit.
	UnitOutput() []float64
	// Output is the activated value per unit, consumed by the next layer.
	Output() []float64
	// Delta is the loss gradient with respect to UnitOutput.
	Delta() []float64

	// ParamCount returns the number of trainable scalars.
	ParamCount() int

	String() string

	core() *base
	propagate(prev *base)
	backPropagate(prev *base)
	gradientDescent(prev *base, rate, momentum float64)
}

// base holds the buffers and chain links every layer shares.
type base struct {
	kind  Kind
	name  string
	index int
	prev  int
	next  int

	shape   Shape
	inShape Shape
	act     activations.Activation

	unitOutput []float64
	activated  []float64
	delta      []float64
}

func newBase(kind Kind, name string, shape, inShape Shape, act activations.Activation) base {
	units := shape.Size()
	return base{
		kind:       kind,
		name:       name,
		index:      -1,
		prev:       -1,
		next:       -1,
		shape:      shape,
		inShape:    inShape,
		act:        act,
		unitOutput: make([]float64, units),
		activated:  make([]float64, units),
		delta:      make([]float64, units),
	}
}

func (b *base) core() *base                        { return b }
func (b *base) Kind() Kind                         { return b.kind }
func (b *base) Name() string                       { return b.name }
func (b *base) Index() int                         { return b.index }
func (b *base) Prev() int                          { return b.prev }
func (b *base) Next() int                          { return b.next }
func (b *base) Units() int                         { return len(b.unitOutput) }
func (b *base) Inputs() int                        { return b.inShape.Size() }
func (b *base) Shape() Shape                       { return b.shape }
func (b *base) InputShape() Shape                  { return b.inShape }
func (b *base) Activation() activations.Activation { return b.act }
func (b *base) UnitOutput() []float64              { return b.unitOutput }
func (b *base) Output() []float64                  { return b.activated }
func (b *base) Delta() []float64                   { return b.delta }

// terminalDelta writes the combined output-activation/cross-entropy gradient
// activated - target into delta.
func (b *base) terminalDelta(target []float64) {
	for i := range b.delta {
		b.delta[i] = b.activated[i] - target[i]
	}
}

// String renders the layer the way Chain.Describe lists it.
func (b *base) String() string {
	var sb strings.Builder
	label := "[" + b.kind.String() + "]"
	if b.name != "" {
		label += " " + b.name
	}
	sb.WriteString(label)
	sb.WriteString("\n")
	spatial := b.kind == KindConvolution || b.kind == KindConvolutionZeroPadding || b.kind == KindMaxPooling
	switch {
	case b.kind == KindInput:
		fmt.Fprintf(&sb, "  units = %s\n", b.shape)
	case spatial:
		fmt.Fprintf(&sb, "  inputs = %s\n", b.inShape)
		fmt.Fprintf(&sb, "  units = %s\n", b.shape)
	default:
		fmt.Fprintf(&sb, "  inputs = %d\n", b.inShape.Size())
		fmt.Fprintf(&sb, "  units = %d\n", b.shape.Size())
	}
	fmt.Fprintf(&sb, "  activation function = %s\n", b.act.Name())
	return sb.String()
}
