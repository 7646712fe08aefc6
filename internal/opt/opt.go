// Package opt provides optimization algorithms.
package opt

import "math"

// DenominatorFloor is the lower bound applied to the accumulated squared
// gradient before taking its square root.
const DenominatorFloor = 1.0

// AdaGrad holds per-parameter AdaGrad-with-momentum state for one parameter group.
// Each slot keeps the previous step and the running sum of squared gradients.
type AdaGrad struct {
	prevStep []float64
	sumSq    []float64
}

// NewAdaGrad allocates optimizer state for n parameters.
func NewAdaGrad(n int) *AdaGrad {
	return &AdaGrad{
		prevStep: make([]float64, n),
		sumSq:    make([]float64, n),
	}
}

// Len returns the number of parameters tracked.
func (a *AdaGrad) Len() int {
	return len(a.sumSq)
}

// StepAt accumulates grad for parameter i and returns the step to add to it:
//
//	sumSq += grad²
//	step = -rate*grad/sqrt(max(sumSq, 1)) + momentum*prevStep
func (a *AdaGrad) StepAt(i int, grad, rate, momentum float64) float64 {
	a.sumSq[i] += grad * grad
	step := -rate*grad/math.Sqrt(math.Max(a.sumSq[i], DenominatorFloor)) + momentum*a.prevStep[i]
	a.prevStep[i] = step
	return step
}

// Update applies one step to every parameter in place.
// params, grads and the optimizer state must have equal length.
func (a *AdaGrad) Update(params, grads []float64, rate, momentum float64) {
	for i := range params {
		params[i] += a.StepAt(i, grads[i], rate, momentum)
	}
}

// PrevStep returns the last step taken for parameter i.
func (a *AdaGrad) PrevStep(i int) float64 {
	return a.prevStep[i]
}

// SumSquared returns the accumulated squared gradient for parameter i.
func (a *AdaGrad) SumSquared(i int) float64 {
	return a.sumSq[i]
}

// Reset clears the accumulated state.
func (a *AdaGrad) Reset() {
	for i := range a.sumSq {
		a.sumSq[i] = 0
		a.prevStep[i] = 0
	}
}
