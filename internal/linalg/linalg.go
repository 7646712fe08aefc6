// Package linalg holds the dense vector and matrix helpers used by the layers.
// Matrices are row-major slices; the helpers wrap them in gonum views without copying.
package linalg

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/chainnet/internal/activations"
)

// MatVec computes dst = W·x where W is rows×cols.
func MatVec(dst, w []float64, rows, cols int, x []float64) {
	m := mat.NewDense(rows, cols, w)
	out := mat.NewVecDense(rows, dst)
	out.MulVec(m, mat.NewVecDense(cols, x))
}

// MatTVec computes dst = Wᵀ·x where W is rows×cols, so dst has length cols.
func MatTVec(dst, w []float64, rows, cols int, x []float64) {
	m := mat.NewDense(rows, cols, w)
	out := mat.NewVecDense(cols, dst)
	out.MulVec(m.T(), mat.NewVecDense(rows, x))
}

// Outer computes dst = u·vᵀ, a len(u)×len(v) row-major matrix.
func Outer(dst, u, v []float64) {
	m := mat.NewDense(len(u), len(v), dst)
	m.Outer(1, mat.NewVecDense(len(u), u), mat.NewVecDense(len(v), v))
}

// VecAdd computes dst = a + b.
func VecAdd(dst, a, b []float64) {
	floats.AddTo(dst, a, b)
}

// Apply writes act.Activate(src[i]) into dst[i].
func Apply(act activations.Activation, dst, src []float64) {
	for i, v := range src {
		dst[i] = act.Activate(v)
	}
}

// ApplyDerivative multiplies dst[i] by act.Derivative(at[i]) in place.
func ApplyDerivative(act activations.Activation, dst, at []float64) {
	for i, v := range at {
		dst[i] *= act.Derivative(v)
	}
}

// Argmax returns the index of the largest element; ties go to the first occurrence.
func Argmax(v []float64) int {
	return floats.MaxIdx(v)
}

// Sum returns the sum of v.
func Sum(v []float64) float64 {
	return floats.Sum(v)
}

// Zero sets every element of v to 0.
func Zero(v []float64) {
	for i := range v {
		v[i] = 0
	}
}
