package layer

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/chainnet/internal/activations"
)

func buildCNN(t *testing.T) *Chain {
	t.Helper()
	c, err := NewBuilder(WithSource(testSource())).
		Input2D(1, 12, 12).
		ConvolutionZeroPadding(3, 5, activations.ReLU{}, "conv1").
		MaxPooling(3, 2, activations.ReLU{}, "maxpool1").
		Convolution(4, 3, activations.ReLU{}, "conv2").
		FullyConnected(8, activations.Sigmoid{}, "full1").
		Softmax(3, "out").
		Build()
	require.NoError(t, err)
	return c
}

func assertShapes(t *testing.T, c *Chain) {
	t.Helper()
	for _, l := range c.Layers() {
		n := l.Shape().Size()
		assert.Equal(t, n, l.Units(), l.Name())
		assert.Len(t, l.UnitOutput(), n, l.Name())
		assert.Len(t, l.Output(), n, l.Name())
		assert.Len(t, l.Delta(), n, l.Name())
	}
}

func TestBuilderShapes(t *testing.T) {
	c := buildCNN(t)
	require.Equal(t, 6, c.Len())

	assert.Equal(t, Shape{1, 12, 12}, c.Layer(0).Shape())
	assert.Equal(t, Shape{3, 12, 12}, c.Layer(1).Shape())
	assert.Equal(t, Shape{3, 6, 6}, c.Layer(2).Shape())
	assert.Equal(t, Shape{4, 4, 4}, c.Layer(3).Shape())
	assert.Equal(t, 64, c.Layer(4).Inputs())
	assert.Equal(t, 8, c.Layer(4).Units())
	assert.Equal(t, 3, c.Layer(5).Units())

	assert.Equal(t, 3*1*5*5+3, c.Layer(1).ParamCount())
	assert.Equal(t, 0, c.Layer(2).ParamCount())
	assert.Equal(t, 4*3*3*3+4, c.Layer(3).ParamCount())
	assert.Equal(t, 64*8+8, c.Layer(4).ParamCount())
	assert.Equal(t, 8*3+3, c.Layer(5).ParamCount())
	assert.Equal(t, 78+112+520+27, c.ParamCount())
}

// TestChainLinks checks that prev/next indices are mutually consistent.
func TestChainLinks(t *testing.T) {
	c := buildCNN(t)
	for i, l := range c.Layers() {
		assert.Equal(t, i, l.Index())
		if i == 0 {
			assert.Equal(t, -1, l.Prev())
		} else {
			assert.Equal(t, i-1, l.Prev())
			assert.Equal(t, i, c.Layer(l.Prev()).Next())
		}
		if i == c.Len()-1 {
			assert.Equal(t, -1, l.Next())
		} else {
			assert.Equal(t, i, c.Layer(l.Next()).Prev())
		}
	}
	assert.Same(t, c.Input(), c.Layer(0))
	assert.Same(t, c.Terminal(), c.Layer(5))
}

func TestShapeInvariantAcrossPhases(t *testing.T) {
	c := buildCNN(t)
	r := rand.New(rand.NewPCG(1, 2))
	assertShapes(t, c)

	x := randomVector(r, 144)
	require.NoError(t, c.Propagate(x))
	assertShapes(t, c)
	require.NoError(t, c.SetTarget(oneHot(3, 1)))
	require.NoError(t, c.BackPropagate())
	assertShapes(t, c)
	require.NoError(t, c.GradientDescent(0.01, 0.5))
	assertShapes(t, c)
}

func TestForwardDeterminism(t *testing.T) {
	c := buildCNN(t)
	r := rand.New(rand.NewPCG(3, 4))
	x := randomVector(r, 144)

	require.NoError(t, c.Propagate(x))
	first := append([]float64(nil), c.Output()...)
	require.NoError(t, c.Propagate(x))
	assert.Equal(t, first, c.Output())
}

func TestSameSourceSameWeights(t *testing.T) {
	build := func() *Chain {
		c, err := NewBuilder(WithSource(rand.NewPCG(5, 5))).
			Input(4).
			FullyConnected(3, activations.ReLU{}, "").
			Softmax(2, "").
			Build()
		require.NoError(t, err)
		return c
	}
	a, b := build(), build()
	x := []float64{0.1, 0.2, 0.3, 0.4}
	require.NoError(t, a.Propagate(x))
	require.NoError(t, b.Propagate(x))
	assert.Equal(t, a.Output(), b.Output())
}

func TestWithStdDev(t *testing.T) {
	c, err := NewBuilder(WithSource(testSource()), WithStdDev(0)).
		Input(3).
		FullyConnected(2, activations.Identity{}, "").
		Build()
	require.NoError(t, err)
	fc := c.Layer(1).(*FullyConnected)
	for u := 0; u < 2; u++ {
		for j := 0; j < 3; j++ {
			assert.Zero(t, fc.Weight(u, j))
		}
		assert.Zero(t, fc.Bias(u))
	}
}

func TestConstructionErrors(t *testing.T) {
	relu := activations.ReLU{}
	tests := []struct {
		name  string
		build func() (*Chain, error)
		want  error
		index int
	}{
		{
			name: "no input layer",
			build: func() (*Chain, error) {
				return NewBuilder().FullyConnected(3, relu, "a").Build()
			},
			want: ErrTopology,
		},
		{
			name: "input only",
			build: func() (*Chain, error) {
				return NewBuilder().Input(3).Build()
			},
			want:  ErrTopology,
			index: 1,
		},
		{
			name: "second input",
			build: func() (*Chain, error) {
				return NewBuilder().Input(3).Input(3).Build()
			},
			want:  ErrTopology,
			index: 1,
		},
		{
			name: "layer after softmax",
			build: func() (*Chain, error) {
				return NewBuilder().Input(3).Softmax(2, "").FullyConnected(2, relu, "x").Build()
			},
			want:  ErrTopology,
			index: 2,
		},
		{
			name: "declared conv input does not match previous units",
			build: func() (*Chain, error) {
				return NewBuilder().Input(784).ConvolutionFrom(4, 3, Shape{1, 28, 27}, relu, "c").Softmax(2, "").Build()
			},
			want:  ErrShapeMismatch,
			index: 1,
		},
		{
			name: "declared zero padding conv input does not match",
			build: func() (*Chain, error) {
				return NewBuilder().Input(100).ConvolutionZeroPaddingFrom(4, 3, Shape{2, 5, 5}, relu, "c").Build()
			},
			want:  ErrShapeMismatch,
			index: 1,
		},
		{
			name: "filter larger than input",
			build: func() (*Chain, error) {
				return NewBuilder().Input2D(1, 4, 4).Convolution(2, 5, relu, "c").Build()
			},
			want:  ErrShapeMismatch,
			index: 1,
		},
		{
			name: "pooling stride larger than input",
			build: func() (*Chain, error) {
				return NewBuilder().Input2D(1, 4, 4).MaxPooling(2, 5, relu, "p").Build()
			},
			want:  ErrShapeMismatch,
			index: 1,
		},
		{
			name: "zero units",
			build: func() (*Chain, error) {
				return NewBuilder().Input(3).FullyConnected(0, relu, "z").Build()
			},
			want:  ErrInvalidArgument,
			index: 1,
		},
		{
			name: "nil activation",
			build: func() (*Chain, error) {
				return NewBuilder().Input(3).FullyConnected(2, nil, "n").Build()
			},
			want:  ErrInvalidArgument,
			index: 1,
		},
		{
			name: "softmax activation on a dense layer",
			build: func() (*Chain, error) {
				return NewBuilder().Input(3).FullyConnected(2, activations.Softmax{}, "s").Build()
			},
			want:  ErrInvalidArgument,
			index: 1,
		},
		{
			name: "negative input shape",
			build: func() (*Chain, error) {
				return NewBuilder().Input2D(1, -2, 3).Softmax(2, "").Build()
			},
			want: ErrInvalidArgument,
		},
		{
			name: "zero pooling size",
			build: func() (*Chain, error) {
				return NewBuilder().Input2D(1, 4, 4).MaxPooling(0, 2, relu, "p").Build()
			},
			want:  ErrInvalidArgument,
			index: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.build()
			require.Error(t, err)
			assert.Nil(t, c)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var ce *ConstructionError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.index, ce.Index)
		})
	}
}

// TestBuilderStopsAtFirstError checks that later calls do not replace the first error.
func TestBuilderStopsAtFirstError(t *testing.T) {
	b := NewBuilder().Input(10).ConvolutionFrom(1, 3, Shape{1, 3, 3}, activations.ReLU{}, "bad")
	first := b.Err()
	require.Error(t, first)

	b.FullyConnected(0, nil, "worse").Softmax(2, "")
	assert.Same(t, first, b.Err())
	_, err := b.Build()
	assert.Same(t, first, err)
}

func TestBuilderSingleUse(t *testing.T) {
	b := NewBuilder().Input(2).Softmax(2, "")
	_, err := b.Build()
	require.NoError(t, err)
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrTopology)
}

func TestConvolutionFromFlatInput(t *testing.T) {
	c, err := NewBuilder(WithSource(testSource())).
		Input(2*6*6).
		ConvolutionFrom(3, 3, Shape{2, 6, 6}, activations.ReLU{}, "c").
		Softmax(2, "").
		Build()
	require.NoError(t, err)
	assert.Equal(t, Shape{3, 4, 4}, c.Layer(1).Shape())
	assert.Equal(t, Shape{2, 6, 6}, c.Layer(1).InputShape())
}

func TestPhaseOrder(t *testing.T) {
	c, err := NewBuilder(WithSource(testSource())).
		Input(2).
		FullyConnected(3, activations.ReLU{}, "").
		Softmax(2, "").
		Build()
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, c.Phase())

	assert.ErrorIs(t, c.BackPropagate(), ErrPhase)
	assert.ErrorIs(t, c.GradientDescent(0.1, 0), ErrPhase)
	_, err = c.Class()
	assert.ErrorIs(t, err, ErrPhase)

	require.NoError(t, c.Propagate([]float64{1, 0}))
	assert.Equal(t, PhaseForwarded, c.Phase())

	// No target yet.
	assert.ErrorIs(t, c.BackPropagate(), ErrPhase)
	assert.ErrorIs(t, c.GradientDescent(0.1, 0), ErrPhase)

	require.NoError(t, c.SetTarget([]float64{0, 1}))
	require.NoError(t, c.BackPropagate())
	assert.Equal(t, PhaseBackward, c.Phase())
	assert.ErrorIs(t, c.BackPropagate(), ErrPhase)

	require.NoError(t, c.GradientDescent(0.1, 0))
	assert.Equal(t, PhaseUpdated, c.Phase())
	assert.ErrorIs(t, c.GradientDescent(0.1, 0), ErrPhase)

	// The target survives until replaced.
	require.NoError(t, c.Propagate([]float64{0, 1}))
	require.NoError(t, c.BackPropagate())
}

func TestLengthChecks(t *testing.T) {
	c, err := NewBuilder().Input(3).Softmax(2, "").Build()
	require.NoError(t, err)

	assert.ErrorIs(t, c.Propagate([]float64{1, 2}), ErrLength)
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.ErrorIs(t, c.SetTarget([]float64{1, 0, 0}), ErrLength)
	assert.ErrorIs(t, c.Step([]float64{1, 2, 3}, []float64{1}, 0.1, 0), ErrLength)
}

func TestClassRequiresSoftmax(t *testing.T) {
	c, err := NewBuilder().Input(3).FullyConnected(2, activations.Sigmoid{}, "").Build()
	require.NoError(t, err)
	require.NoError(t, c.Propagate([]float64{1, 2, 3}))
	_, err = c.Class()
	assert.ErrorIs(t, err, ErrTopology)
}

func TestDescribe(t *testing.T) {
	c := buildCNN(t)
	d := c.Describe()
	assert.True(t, strings.HasPrefix(d, "[input]\n  units = [channel=1, h=12, w=12]"))
	assert.Contains(t, d, "[convolution zero padding] conv1\n  inputs = [channel=1, h=12, w=12]\n  units = [channel=3, h=12, w=12]\n  activation function = relu")
	assert.Contains(t, d, "[max pooling] maxpool1")
	assert.Contains(t, d, "[fully connected] full1\n  inputs = 64\n  units = 8\n  activation function = sigmoid")
	assert.Contains(t, d, "[softmax] out\n  inputs = 8\n  units = 3\n  activation function = softmax")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "max pooling", KindMaxPooling.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
	assert.Equal(t, "backward-done", PhaseBackward.String())
}
