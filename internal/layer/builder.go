package layer

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/FlavioCFOliveira/chainnet/internal/activations"
)

// DefaultStdDev is the standard deviation of the normal distribution
// weights and filters are drawn from.
const DefaultStdDev = 0.1

// initializer draws initial weights from N(0, σ²).
type initializer struct {
	dist distuv.Normal
}

func (i initializer) fill(v []float64) {
	for k := range v {
		v[k] = i.dist.Rand()
	}
}

// Option configures a Builder.
type Option func(*Builder)

// WithSource sets the random source used for weight initialization.
func WithSource(src rand.Source) Option {
	return func(b *Builder) {
		b.src = src
	}
}

// WithStdDev sets the standard deviation of the initial weights.
func WithStdDev(stddev float64) Option {
	return func(b *Builder) {
		b.stddev = stddev
	}
}

// Builder constructs a Chain layer by layer. Each call attaches a layer to the
// previous one. The first failing call records a *ConstructionError; later
// calls are ignored and Build returns that error.
//
//	chain, err := layer.NewBuilder().
//		Input2D(1, 28, 28).
//		ConvolutionZeroPadding(20, 5, activations.ReLU{}, "conv1").
//		MaxPooling(3, 2, activations.ReLU{}, "maxpool1").
//		FullyConnected(500, activations.ReLU{}, "full1").
//		Softmax(10, "").
//		Build()
type Builder struct {
	layers []Layer
	err    error
	built  bool

	src    rand.Source
	stddev float64
}

// NewBuilder returns an empty Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{stddev: DefaultStdDev}
	for _, o := range opts {
		o(b)
	}
	if b.src == nil {
		b.src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return b
}

func (b *Builder) init() initializer {
	return initializer{dist: distuv.Normal{Mu: 0, Sigma: b.stddev, Src: b.src}}
}

// Err returns the first construction error, if any.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(kind Kind, name string, sentinel error, format string, args ...any) *Builder {
	if b.err == nil {
		label := kind.String()
		if name != "" {
			label += " " + name
		}
		b.err = &ConstructionError{
			Index:  len(b.layers),
			Layer:  label,
			Reason: fmt.Sprintf(format, args...),
			Err:    sentinel,
		}
	}
	return b
}

// last returns the layer new layers attach to, or nil after recording an error.
func (b *Builder) last(kind Kind, name string) Layer {
	if b.err != nil {
		return nil
	}
	if b.built {
		b.fail(kind, name, ErrTopology, "builder already built a chain")
		return nil
	}
	if len(b.layers) == 0 {
		b.fail(kind, name, ErrTopology, "chain must start with an input layer")
		return nil
	}
	prev := b.layers[len(b.layers)-1]
	if prev.Kind() == KindSoftmax {
		b.fail(kind, name, ErrTopology, "softmax layer %q must be terminal", prev.Name())
		return nil
	}
	return prev
}

func (b *Builder) attach(l Layer) *Builder {
	c := l.core()
	c.index = len(b.layers)
	if c.index > 0 {
		prev := b.layers[c.index-1].core()
		c.prev = prev.index
		prev.next = c.index
	}
	b.layers = append(b.layers, l)
	return b
}

// Input adds a flat input layer of n units.
func (b *Builder) Input(n int) *Builder {
	return b.Input2D(1, 1, n)
}

// Input2D adds an input layer of shape channels × h × w.
func (b *Builder) Input2D(channels, h, w int) *Builder {
	if b.err != nil {
		return b
	}
	if len(b.layers) > 0 || b.built {
		return b.fail(KindInput, "", ErrTopology, "input layer must be first")
	}
	shape := Shape{Channels: channels, Height: h, Width: w}
	if channels <= 0 || h <= 0 || w <= 0 {
		return b.fail(KindInput, "", ErrInvalidArgument, "non-positive shape %s", shape)
	}
	return b.attach(newInput(shape, ""))
}

func checkActivation(act activations.Activation) (string, bool) {
	if act == nil {
		return "nil activation", false
	}
	if _, ok := act.(activations.Softmax); ok {
		return "softmax is only valid on a softmax layer", false
	}
	return "", true
}

// FullyConnected adds a dense layer of units outputs.
func (b *Builder) FullyConnected(units int, act activations.Activation, name string) *Builder {
	prev := b.last(KindFullyConnected, name)
	if prev == nil {
		return b
	}
	if units <= 0 {
		return b.fail(KindFullyConnected, name, ErrInvalidArgument, "units = %d", units)
	}
	if reason, ok := checkActivation(act); !ok {
		return b.fail(KindFullyConnected, name, ErrInvalidArgument, "%s", reason)
	}
	return b.attach(newFullyConnected(KindFullyConnected, units, Flat(prev.Units()), act, name, b.init()))
}

// Softmax adds the terminal softmax classification layer.
func (b *Builder) Softmax(units int, name string) *Builder {
	prev := b.last(KindSoftmax, name)
	if prev == nil {
		return b
	}
	if units <= 0 {
		return b.fail(KindSoftmax, name, ErrInvalidArgument, "units = %d", units)
	}
	return b.attach(newSoftmax(units, Flat(prev.Units()), name, b.init()))
}

// Convolution adds a valid (unpadded) convolution over the previous layer's shape.
func (b *Builder) Convolution(channels, filterSize int, act activations.Activation, name string) *Builder {
	return b.convolution(channels, filterSize, nil, false, act, name)
}

// ConvolutionFrom adds a valid convolution reading the previous layer's output
// as the given shape, which must hold exactly as many units.
func (b *Builder) ConvolutionFrom(channels, filterSize int, in Shape, act activations.Activation, name string) *Builder {
	return b.convolution(channels, filterSize, &in, false, act, name)
}

// ConvolutionZeroPadding adds a size-preserving convolution over the previous layer's shape.
func (b *Builder) ConvolutionZeroPadding(channels, filterSize int, act activations.Activation, name string) *Builder {
	return b.convolution(channels, filterSize, nil, true, act, name)
}

// ConvolutionZeroPaddingFrom is ConvolutionFrom for the zero-padding variant.
func (b *Builder) ConvolutionZeroPaddingFrom(channels, filterSize int, in Shape, act activations.Activation, name string) *Builder {
	return b.convolution(channels, filterSize, &in, true, act, name)
}

func (b *Builder) convolution(channels, filterSize int, declared *Shape, zeroPadding bool, act activations.Activation, name string) *Builder {
	kind := KindConvolution
	if zeroPadding {
		kind = KindConvolutionZeroPadding
	}
	prev := b.last(kind, name)
	if prev == nil {
		return b
	}
	in := prev.Shape()
	if declared != nil {
		in = *declared
		if in.Channels <= 0 || in.Height <= 0 || in.Width <= 0 {
			return b.fail(kind, name, ErrInvalidArgument, "non-positive input shape %s", in)
		}
		if in.Size() != prev.Units() {
			return b.fail(kind, name, ErrShapeMismatch,
				"input shape %s holds %d units, previous layer has %d", in, in.Size(), prev.Units())
		}
	}
	if channels <= 0 || filterSize <= 0 {
		return b.fail(kind, name, ErrInvalidArgument, "channels = %d, filter size = %d", channels, filterSize)
	}
	if reason, ok := checkActivation(act); !ok {
		return b.fail(kind, name, ErrInvalidArgument, "%s", reason)
	}
	out := convOutputShape(channels, filterSize, in, zeroPadding)
	if out.Height <= 0 || out.Width <= 0 {
		return b.fail(kind, name, ErrShapeMismatch, "filter size %d does not fit input %s", filterSize, in)
	}
	return b.attach(newConvolution(channels, filterSize, in, zeroPadding, act, name, b.init()))
}

// MaxPooling adds a max-pooling layer over the previous layer's shape.
func (b *Builder) MaxPooling(poolingSize, stride int, act activations.Activation, name string) *Builder {
	prev := b.last(KindMaxPooling, name)
	if prev == nil {
		return b
	}
	if poolingSize <= 0 || stride <= 0 {
		return b.fail(KindMaxPooling, name, ErrInvalidArgument, "pooling size = %d, stride = %d", poolingSize, stride)
	}
	if reason, ok := checkActivation(act); !ok {
		return b.fail(KindMaxPooling, name, ErrInvalidArgument, "%s", reason)
	}
	in := prev.Shape()
	out := poolingOutputShape(stride, in)
	if out.Height <= 0 || out.Width <= 0 {
		return b.fail(KindMaxPooling, name, ErrShapeMismatch, "stride %d does not fit input %s", stride, in)
	}
	return b.attach(newMaxPooling(poolingSize, stride, in, act, name))
}

// Build returns the finished chain. It needs an input layer and at least one
// more layer after it.
func (b *Builder) Build() (*Chain, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.built {
		return nil, &ConstructionError{Index: len(b.layers), Layer: "chain", Reason: "builder already built a chain", Err: ErrTopology}
	}
	if len(b.layers) < 2 {
		return nil, &ConstructionError{Index: len(b.layers), Layer: "chain", Reason: "need an input layer and at least one layer after it", Err: ErrTopology}
	}
	b.built = true
	return newChain(b.layers), nil
}
