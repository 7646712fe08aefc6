package layer

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/chainnet/internal/linalg"
)

// newFixedSoftmax returns input(2) -> softmax(3) whose outputs are the given
// probabilities regardless of input.
func newFixedSoftmax(t *testing.T, probs ...float64) (*Chain, *Softmax) {
	t.Helper()
	c, err := NewBuilder(WithSource(testSource())).Input(2).Softmax(len(probs), "out").Build()
	require.NoError(t, err)
	sm := c.Terminal().(*Softmax)
	for u, p := range probs {
		for j := 0; j < 2; j++ {
			sm.SetWeight(u, j, 0)
		}
		sm.SetBias(u, math.Log(p))
	}
	return c, sm
}

func TestSoftmaxNormalizes(t *testing.T) {
	c, err := NewBuilder(WithSource(testSource()), WithStdDev(1)).Input(5).Softmax(4, "").Build()
	require.NoError(t, err)

	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		require.NoError(t, c.Propagate(randomVector(r, 5)))
		for _, v := range c.Output() {
			assert.Greater(t, v, 0.0)
			assert.Less(t, v, 1.0)
		}
		assert.InDelta(t, 1.0, linalg.Sum(c.Output()), 1e-12)
	}
}

func TestSoftmaxLargeInputsStayFinite(t *testing.T) {
	c, sm := newFixedSoftmax(t, 0.5, 0.25, 0.25)
	sm.SetBias(0, 800)
	sm.SetBias(1, 799)
	require.NoError(t, c.Propagate([]float64{0, 0}))
	for _, v := range c.Output() {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
	assert.InDelta(t, 1/(1+math.Exp(-1)), c.Output()[0], 1e-12)
}

// TestSoftmaxDeltaShortcut checks delta = activated - target at the terminal layer.
func TestSoftmaxDeltaShortcut(t *testing.T) {
	c, sm := newFixedSoftmax(t, 0.7, 0.2, 0.1)
	require.NoError(t, c.Propagate([]float64{0.3, -0.9}))
	assert.InDeltaSlice(t, []float64{0.7, 0.2, 0.1}, c.Output(), 1e-12)

	require.NoError(t, c.SetTarget([]float64{1, 0, 0}))
	require.NoError(t, c.BackPropagate())
	assert.InDeltaSlice(t, []float64{-0.3, 0.2, 0.1}, sm.Delta(), 1e-12)
}

func TestSoftmaxClass(t *testing.T) {
	c, _ := newFixedSoftmax(t, 0.2, 0.5, 0.3)
	require.NoError(t, c.Propagate([]float64{1, 1}))
	class, err := c.Class()
	require.NoError(t, err)
	assert.Equal(t, 1, class)
}

func TestSoftmaxClassTieGoesToLowestIndex(t *testing.T) {
	c, _ := newFixedSoftmax(t, 0.1, 0.45, 0.45)
	require.NoError(t, c.Propagate([]float64{1, 1}))
	class, err := c.Class()
	require.NoError(t, err)
	assert.Equal(t, 1, class)
}

func TestSoftmaxGradientCheck(t *testing.T) {
	c, err := NewBuilder(WithSource(testSource()), WithStdDev(0.5)).Input(4).Softmax(3, "").Build()
	require.NoError(t, err)
	sm := c.Terminal().(*Softmax)

	x := randomVector(rand.New(rand.NewPCG(3, 4)), 4)
	target := oneHot(3, 2)
	computeGradients(t, c, x, target)
	grad := append([]float64(nil), sm.gradW...)
	bias := append([]float64(nil), sm.Delta()...)

	for u := 0; u < 3; u++ {
		for j := 0; j < 4; j++ {
			checkGradient(t, c, x, target, grad[u*4+j],
				func() float64 { return sm.Weight(u, j) },
				func(v float64) { sm.SetWeight(u, j, v) })
		}
		checkGradient(t, c, x, target, bias[u],
			func() float64 { return sm.Bias(u) },
			func(v float64) { sm.SetBias(u, v) })
	}
}
