// Package loss provides the error measures reported while training.
// They are not used for gradients: every terminal layer back-propagates
// activated - target.
package loss

import (
	"fmt"
	"math"
)

// Loss measures the error of one prediction.
type Loss interface {
	// Forward computes the loss between predicted and true values.
	Forward(yPred, yTrue []float64) float64
	Name() string
}

func checkLen(name string, yPred, yTrue []float64) {
	if len(yPred) != len(yTrue) {
		panic(fmt.Sprintf("%s: prediction has %d values, target %d", name, len(yPred), len(yTrue)))
	}
}

// CrossEntropy is -Σ y_true·log(y_pred), the loss whose gradient through a
// softmax output is y_pred - y_true.
type CrossEntropy struct{}

// Eps clips predictions away from zero before the logarithm.
const Eps = 1e-10

func (CrossEntropy) Forward(yPred, yTrue []float64) float64 {
	checkLen("CrossEntropy", yPred, yTrue)
	var sum float64
	for i, t := range yTrue {
		if t == 0 {
			continue
		}
		sum -= t * math.Log(math.Max(yPred[i], Eps))
	}
	return sum
}

func (CrossEntropy) Name() string { return "cross_entropy" }

// HalfSquared is Σ 0.5·(y_pred - y_true)², the reconstruction error of an autoencoder.
type HalfSquared struct{}

func (HalfSquared) Forward(yPred, yTrue []float64) float64 {
	checkLen("HalfSquared", yPred, yTrue)
	var sum float64
	for i := range yPred {
		d := yPred[i] - yTrue[i]
		sum += 0.5 * d * d
	}
	return sum
}

func (HalfSquared) Name() string { return "half_squared" }

// MSE is the mean squared error (1/n)·Σ(y_pred - y_true)².
type MSE struct{}

func (MSE) Forward(yPred, yTrue []float64) float64 {
	checkLen("MSE", yPred, yTrue)
	if len(yPred) == 0 {
		return 0
	}
	return 2 * HalfSquared{}.Forward(yPred, yTrue) / float64(len(yPred))
}

func (MSE) Name() string { return "mse" }

// ByName returns the loss with the given name.
func ByName(name string) (Loss, error) {
	switch name {
	case "cross_entropy":
		return CrossEntropy{}, nil
	case "half_squared":
		return HalfSquared{}, nil
	case "mse":
		return MSE{}, nil
	}
	return nil, fmt.Errorf("unknown loss %q", name)
}
