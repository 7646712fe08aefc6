package layer

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
)

func testSource() rand.Source {
	return rand.NewPCG(7, 11)
}

func randomVector(r *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = r.Float64()
	}
	return v
}

func oneHot(n, k int) []float64 {
	v := make([]float64, n)
	v[k] = 1
	return v
}

// crossEntropy is the loss whose gradient through a softmax output is activated - target.
func crossEntropy(y, t []float64) float64 {
	l := 0.0
	for i := range y {
		if t[i] != 0 {
			l -= t[i] * math.Log(y[i])
		}
	}
	return l
}

// checkGradient compares an analytic derivative with a central finite
// difference of the loss while param is perturbed through get/set.
func checkGradient(t *testing.T, c *Chain, x, target []float64, analytic float64, get func() float64, set func(float64)) {
	t.Helper()
	orig := get()
	loss := func(w float64) float64 {
		set(w)
		require.NoError(t, c.Propagate(x))
		return crossEntropy(c.Output(), target)
	}
	numeric := fd.Derivative(loss, orig, &fd.Settings{Formula: fd.Central, Step: 1e-5})
	set(orig)

	tol := 1e-3*math.Max(math.Abs(numeric), math.Abs(analytic)) + 1e-7
	require.InDelta(t, numeric, analytic, tol, "analytic %v numeric %v", analytic, numeric)
}

// computeGradients runs one forward/backward pass and fills each layer's
// gradient buffers without moving any parameter.
func computeGradients(t *testing.T, c *Chain, x, target []float64) {
	t.Helper()
	require.NoError(t, c.Propagate(x))
	require.NoError(t, c.SetTarget(target))
	require.NoError(t, c.BackPropagate())
	for i := 1; i < c.Len(); i++ {
		switch l := c.Layer(i).(type) {
		case *FullyConnected:
			l.gradientDescent(c.Layer(i-1).core(), 0, 0)
		case *Softmax:
			l.gradientDescent(c.Layer(i-1).core(), 0, 0)
		case *Convolution:
			l.gradientDescent(c.Layer(i-1).core(), 0, 0)
		}
	}
}
