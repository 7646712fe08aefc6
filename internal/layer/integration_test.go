package layer

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/chainnet/internal/activations"
)

// clusters draws n points per class around (0.2, 0.2) and (0.8, 0.8).
func clusters(r *rand.Rand, n int) (xs, ts [][]float64) {
	centers := [][2]float64{{0.2, 0.2}, {0.8, 0.8}}
	for i := 0; i < n; i++ {
		for k, ctr := range centers {
			xs = append(xs, []float64{
				ctr[0] + 0.3*(r.Float64()-0.5),
				ctr[1] + 0.3*(r.Float64()-0.5),
			})
			ts = append(ts, oneHot(2, k))
		}
	}
	return xs, ts
}

func TestTrainingConverges(t *testing.T) {
	c, err := NewBuilder(WithSource(testSource())).
		Input(2).
		FullyConnected(4, activations.Sigmoid{}, "hidden").
		Softmax(2, "out").
		Build()
	require.NoError(t, err)

	r := rand.New(rand.NewPCG(21, 42))
	trainX, trainT := clusters(r, 100)
	testX, testT := clusters(r, 100)

	for step := 0; step < 3000; step++ {
		i := step % len(trainX)
		require.NoError(t, c.Step(trainX[i], trainT[i], 0.1, 0.5))
	}

	wrong := 0
	for i := range testX {
		require.NoError(t, c.Propagate(testX[i]))
		class, err := c.Class()
		require.NoError(t, err)
		if testT[i][class] != 1 {
			wrong++
		}
	}
	assert.Less(t, float64(wrong)/float64(len(testX)), 0.1)
}

func TestCNNLossDecreasesOnRepeatedExample(t *testing.T) {
	c := buildCNN(t)
	x := randomVector(rand.New(rand.NewPCG(8, 8)), 144)
	target := oneHot(3, 1)

	require.NoError(t, c.Propagate(x))
	before := crossEntropy(c.Output(), target)

	for i := 0; i < 50; i++ {
		require.NoError(t, c.Step(x, target, 0.01, 0.5))
		assertShapes(t, c)
	}
	require.NoError(t, c.Propagate(x))
	after := crossEntropy(c.Output(), target)

	assert.False(t, math.IsNaN(after))
	assert.Less(t, after, before)
}

// TestPoolingGradientCheck checks filter gradients through a max-pooling stage.
func TestPoolingGradientCheck(t *testing.T) {
	c, err := NewBuilder(WithSource(testSource()), WithStdDev(0.4)).
		Input2D(1, 6, 6).
		ConvolutionZeroPadding(2, 3, activations.Tanh{}, "conv").
		MaxPooling(2, 2, activations.Tanh{}, "pool").
		Softmax(2, "out").
		Build()
	require.NoError(t, err)
	conv := c.Layer(1).(*Convolution)

	x := randomVector(rand.New(rand.NewPCG(13, 17)), 36)
	target := oneHot(2, 1)
	computeGradients(t, c, x, target)
	grad := append([]float64(nil), conv.gradFilter...)

	for ch := 0; ch < 2; ch++ {
		for s := 0; s < 3; s++ {
			for q := 0; q < 3; q++ {
				checkGradient(t, c, x, target, grad[conv.filterIndex(ch, 0, s, q)],
					func() float64 { return conv.Filter(ch, 0, s, q) },
					func(v float64) { conv.SetFilter(ch, 0, s, q, v) })
			}
		}
	}
}
