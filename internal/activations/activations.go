// Package activations provides the scalar activation functions applied by layers.
package activations

import (
	"fmt"
	"math"
	"strings"
)

// Activation is an activation function with derivative.
// Derivative is evaluated at the pre-activation value, not at Activate(x).
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x)
	Derivative(x float64) float64

	// Name returns the identifier used in configuration files and layer descriptions.
	Name() string
}

// Identity passes its input through unchanged.
type Identity struct{}

// Activate returns x.
func (Identity) Activate(x float64) float64 { return x }

// Derivative returns 1.
func (Identity) Derivative(x float64) float64 { return 1 }

// Name returns "identity".
func (Identity) Name() string { return "identity" }

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (r ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if x >= 0, else 0.
// The value at exactly zero is 1.
func (r ReLU) Derivative(x float64) float64 {
	if x < 0 {
		return 0
	}
	return 1
}

// Name returns "relu".
func (r ReLU) Name() string { return "relu" }

// Sigmoid activation function.
type Sigmoid struct{}

// sigmoid computes the sigmoid function
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Activate computes sigmoid(x)
func (s Sigmoid) Activate(x float64) float64 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (s Sigmoid) Derivative(x float64) float64 {
	sigma := sigmoid(x)
	return sigma * (1 - sigma)
}

// Name returns "sigmoid".
func (s Sigmoid) Name() string { return "sigmoid" }

// Tanh activation function.
type Tanh struct{}

// Activate computes tanh(x)
func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2
func (t Tanh) Derivative(x float64) float64 {
	tanhX := math.Tanh(x)
	return 1 - tanhX*tanhX
}

// Name returns "tanh".
func (t Tanh) Name() string { return "tanh" }

// Softmax marks a layer whose output is normalized over the whole vector.
// Its scalar methods are placeholders returning 0; the softmax layer
// computes the normalization itself and never calls them.
type Softmax struct{}

// Activate returns 0.
func (s Softmax) Activate(x float64) float64 { return 0 }

// Derivative returns 0.
func (s Softmax) Derivative(x float64) float64 { return 0 }

// Name returns "softmax".
func (s Softmax) Name() string { return "softmax" }

// ActivateBatch writes softmax(src) into dst. The maximum is subtracted
// before exponentiation so large inputs do not overflow.
func (s Softmax) ActivateBatch(dst, src []float64) {
	maxVal := src[0]
	for i := 1; i < len(src); i++ {
		if src[i] > maxVal {
			maxVal = src[i]
		}
	}

	sum := 0.0
	for i := range src {
		dst[i] = math.Exp(src[i] - maxVal)
		sum += dst[i]
	}

	for i := range dst {
		dst[i] /= sum
	}
}

// ByName resolves a configuration name to an activation.
// The empty string maps to Identity.
func ByName(name string) (Activation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "identity", "linear":
		return Identity{}, nil
	case "relu":
		return ReLU{}, nil
	case "sigmoid":
		return Sigmoid{}, nil
	case "tanh":
		return Tanh{}, nil
	case "softmax":
		return Softmax{}, nil
	}
	return nil, fmt.Errorf("unknown activation %q", name)
}
