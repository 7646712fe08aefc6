package layer

import (
	"github.com/FlavioCFOliveira/chainnet/internal/activations"
	"github.com/FlavioCFOliveira/chainnet/internal/linalg"
	"github.com/FlavioCFOliveira/chainnet/internal/opt"
)

// FullyConnected is a dense affine transform followed by an elementwise activation.
type FullyConnected struct {
	base

	// Weights stored row-major: weight for unit u, input j is at weight[u*inputs + j].
	weight []float64
	bias   []float64

	gradW []float64

	weightOpt *opt.AdaGrad
	biasOpt   *opt.AdaGrad
}

func newFullyConnected(kind Kind, units int, in Shape, act activations.Activation, name string, init initializer) *FullyConnected {
	inputs := in.Size()
	l := &FullyConnected{
		base:      newBase(kind, name, Flat(units), in, act),
		weight:    make([]float64, units*inputs),
		bias:      make([]float64, units),
		gradW:     make([]float64, units*inputs),
		weightOpt: opt.NewAdaGrad(units * inputs),
		biasOpt:   opt.NewAdaGrad(units),
	}
	init.fill(l.weight)
	return l
}

// propagate computes unit_output = W·z + b and applies the activation.
func (l *FullyConnected) propagate(prev *base) {
	l.affine(prev)
	linalg.Apply(l.act, l.activated, l.unitOutput)
}

func (l *FullyConnected) affine(prev *base) {
	linalg.MatVec(l.unitOutput, l.weight, l.Units(), l.Inputs(), prev.activated)
	linalg.VecAdd(l.unitOutput, l.unitOutput, l.bias)
}

// backPropagate writes prev.delta[j] = Σ_u delta[u]·W[u][j]·prev.df(prev.unit_output[j]).
func (l *FullyConnected) backPropagate(prev *base) {
	linalg.MatTVec(prev.delta, l.weight, l.Units(), l.Inputs(), l.delta)
	linalg.ApplyDerivative(prev.act, prev.delta, prev.unitOutput)
}

// gradientDescent applies AdaGrad with momentum to every weight and bias.
func (l *FullyConnected) gradientDescent(prev *base, rate, momentum float64) {
	linalg.Outer(l.gradW, l.delta, prev.activated)
	l.weightOpt.Update(l.weight, l.gradW, rate, momentum)
	l.biasOpt.Update(l.bias, l.delta, rate, momentum)
}

// ParamCount returns units*inputs + units.
func (l *FullyConnected) ParamCount() int {
	return len(l.weight) + len(l.bias)
}

// Weight gets the weight from input j to unit u.
func (l *FullyConnected) Weight(u, j int) float64 {
	return l.weight[u*l.Inputs()+j]
}

// SetWeight sets the weight from input j to unit u.
func (l *FullyConnected) SetWeight(u, j int, val float64) {
	l.weight[u*l.Inputs()+j] = val
}

// Bias gets the bias of unit u.
func (l *FullyConnected) Bias(u int) float64 {
	return l.bias[u]
}

// SetBias sets the bias of unit u.
func (l *FullyConnected) SetBias(u int, val float64) {
	l.bias[u] = val
}
