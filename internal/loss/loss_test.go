package loss

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMSEForward(t *testing.T) {
	tests := []struct {
		name     string
		yPred    []float64
		yTrue    []float64
		expected float64
	}{
		{"Perfect prediction", []float64{1.0, 2.0, 3.0}, []float64{1.0, 2.0, 3.0}, 0.0},
		{"Single error", []float64{1.0, 2.0}, []float64{1.5, 2.0}, 0.125},
		{"Multiple errors", []float64{1.0, 2.0, 3.0}, []float64{0.0, 1.0, 2.0}, 1.0},
		{"Large errors", []float64{10.0}, []float64{0.0}, 100.0},
		{"Empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, MSE{}.Forward(tt.yPred, tt.yTrue), 1e-12)
		})
	}
}

func TestHalfSquaredForward(t *testing.T) {
	assert.Equal(t, 0.0, HalfSquared{}.Forward([]float64{1, 2}, []float64{1, 2}))
	assert.InDelta(t, 0.5*(0.25+4), HalfSquared{}.Forward([]float64{0.5, 3}, []float64{1, 1}), 1e-12)
}

func TestCrossEntropyForward(t *testing.T) {
	assert.InDelta(t, -math.Log(0.7), CrossEntropy{}.Forward([]float64{0.7, 0.2, 0.1}, []float64{1, 0, 0}), 1e-12)
	assert.InDelta(t, 0, CrossEntropy{}.Forward([]float64{1, 0}, []float64{1, 0}), 1e-12)

	// A zero prediction for the true class is clipped, not infinite.
	got := CrossEntropy{}.Forward([]float64{0, 1}, []float64{1, 0})
	assert.InDelta(t, -math.Log(Eps), got, 1e-9)
}

func TestLengthMismatchPanics(t *testing.T) {
	for _, l := range []Loss{MSE{}, HalfSquared{}, CrossEntropy{}} {
		assert.Panics(t, func() { l.Forward([]float64{1, 2}, []float64{1}) }, l.Name())
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"cross_entropy", "half_squared", "mse"} {
		l, err := ByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, l.Name())
	}
	_, err := ByName("huber")
	assert.Error(t, err)
}
