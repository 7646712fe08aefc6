package layer

import (
	"github.com/FlavioCFOliveira/chainnet/internal/activations"
	"github.com/FlavioCFOliveira/chainnet/internal/linalg"
	"github.com/FlavioCFOliveira/chainnet/internal/opt"
)

// Convolution is a stride-1 spatial filter bank over a channel × height × width input.
//
// The valid variant (KindConvolution) shrinks each spatial axis by
// 2*(filterSize/2). The zero-padding variant (KindConvolutionZeroPadding)
// keeps the input's spatial size by centering the filter on each output cell
// and skipping taps that fall outside the input; padding is never materialized.
type Convolution struct {
	base

	filterSize int
	// offset is subtracted from a filter tap to get the input displacement:
	// 0 for valid convolution, filterSize/2 for zero padding.
	offset int

	// Filters: [channel, prevChannel, filterSize, filterSize], flattened.
	filter []float64
	bias   []float64

	gradFilter []float64
	gradBias   []float64

	filterOpt *opt.AdaGrad
	biasOpt   *opt.AdaGrad
}

// convOutputShape returns the output shape for a stride-1 convolution.
func convOutputShape(channels, filterSize int, in Shape, zeroPadding bool) Shape {
	if zeroPadding {
		return Shape{Channels: channels, Height: in.Height, Width: in.Width}
	}
	shrink := 2 * (filterSize / 2)
	return Shape{Channels: channels, Height: in.Height - shrink, Width: in.Width - shrink}
}

func newConvolution(channels, filterSize int, in Shape, zeroPadding bool, act activations.Activation, name string, init initializer) *Convolution {
	kind := KindConvolution
	offset := 0
	if zeroPadding {
		kind = KindConvolutionZeroPadding
		offset = filterSize / 2
	}
	out := convOutputShape(channels, filterSize, in, zeroPadding)
	filterTotal := channels * in.Channels * filterSize * filterSize

	l := &Convolution{
		base:       newBase(kind, name, out, in, act),
		filterSize: filterSize,
		offset:     offset,
		filter:     make([]float64, filterTotal),
		bias:       make([]float64, channels),
		gradFilter: make([]float64, filterTotal),
		gradBias:   make([]float64, channels),
		filterOpt:  opt.NewAdaGrad(filterTotal),
		biasOpt:    opt.NewAdaGrad(channels),
	}
	init.fill(l.filter)
	return l
}

// filterIndex returns the flat offset of filter[ch][pch][s][t].
func (l *Convolution) filterIndex(ch, pch, s, t int) int {
	fs := l.filterSize
	return ch*l.inShape.Channels*fs*fs + pch*fs*fs + s*fs + t
}

// propagate computes, for every output (ch, h, w),
// bias[ch] + Σ input[pch, h+p, w+q]·filter[ch, pch, s, t] with p = s-offset, q = t-offset.
func (l *Convolution) propagate(prev *base) {
	in, out := l.inShape, l.shape
	z := prev.activated
	outSize := out.Height * out.Width

	for ch := 0; ch < out.Channels; ch++ {
		chBase := ch * outSize
		for i := chBase; i < chBase+outSize; i++ {
			l.unitOutput[i] = l.bias[ch]
		}

		for pch := 0; pch < in.Channels; pch++ {
			for s := 0; s < l.filterSize; s++ {
				p := s - l.offset
				for t := 0; t < l.filterSize; t++ {
					q := t - l.offset
					wVal := l.filter[l.filterIndex(ch, pch, s, t)]

					for h := 0; h < out.Height; h++ {
						ph := h + p
						if ph < 0 || ph >= in.Height {
							continue
						}
						rowOut := chBase + h*out.Width
						rowIn := in.Index(pch, ph, 0)
						for w := 0; w < out.Width; w++ {
							pw := w + q
							if pw < 0 || pw >= in.Width {
								continue
							}
							l.unitOutput[rowOut+w] += wVal * z[rowIn+pw]
						}
					}
				}
			}
		}
	}

	linalg.Apply(l.act, l.activated, l.unitOutput)
}

// backPropagate scatters delta back through every in-range filter tap:
// prev.delta[pch, h+p, w+q] += delta[ch, h, w]·filter[ch, pch, s, t],
// then scales by the previous layer's activation derivative.
func (l *Convolution) backPropagate(prev *base) {
	in, out := l.inShape, l.shape
	prevDelta := prev.delta
	linalg.Zero(prevDelta)

	for ch := 0; ch < out.Channels; ch++ {
		for pch := 0; pch < in.Channels; pch++ {
			for s := 0; s < l.filterSize; s++ {
				p := s - l.offset
				for t := 0; t < l.filterSize; t++ {
					q := t - l.offset
					wVal := l.filter[l.filterIndex(ch, pch, s, t)]

					for h := 0; h < out.Height; h++ {
						ph := h + p
						if ph < 0 || ph >= in.Height {
							continue
						}
						rowOut := out.Index(ch, h, 0)
						rowIn := in.Index(pch, ph, 0)
						for w := 0; w < out.Width; w++ {
							pw := w + q
							if pw < 0 || pw >= in.Width {
								continue
							}
							prevDelta[rowIn+pw] += l.delta[rowOut+w] * wVal
						}
					}
				}
			}
		}
	}

	linalg.ApplyDerivative(prev.act, prevDelta, prev.unitOutput)
}

// gradientDescent updates every filter tap with the cross-correlation of delta
// and the previous activations, and every bias with the channel's summed delta.
func (l *Convolution) gradientDescent(prev *base, rate, momentum float64) {
	in, out := l.inShape, l.shape
	z := prev.activated
	outSize := out.Height * out.Width

	for ch := 0; ch < out.Channels; ch++ {
		for pch := 0; pch < in.Channels; pch++ {
			for s := 0; s < l.filterSize; s++ {
				p := s - l.offset
				for t := 0; t < l.filterSize; t++ {
					q := t - l.offset
					grad := 0.0
					for h := 0; h < out.Height; h++ {
						ph := h + p
						if ph < 0 || ph >= in.Height {
							continue
						}
						rowOut := out.Index(ch, h, 0)
						rowIn := in.Index(pch, ph, 0)
						for w := 0; w < out.Width; w++ {
							pw := w + q
							if pw < 0 || pw >= in.Width {
								continue
							}
							grad += l.delta[rowOut+w] * z[rowIn+pw]
						}
					}
					l.gradFilter[l.filterIndex(ch, pch, s, t)] = grad
				}
			}
		}
		l.gradBias[ch] = linalg.Sum(l.delta[ch*outSize : (ch+1)*outSize])
	}

	l.filterOpt.Update(l.filter, l.gradFilter, rate, momentum)
	l.biasOpt.Update(l.bias, l.gradBias, rate, momentum)
}

// ParamCount returns the filter count plus one bias per channel.
func (l *Convolution) ParamCount() int {
	return len(l.filter) + len(l.bias)
}

// FilterSize returns the side length of the square filter.
func (l *Convolution) FilterSize() int {
	return l.filterSize
}

// ZeroPadding reports whether the layer preserves the input's spatial size.
func (l *Convolution) ZeroPadding() bool {
	return l.kind == KindConvolutionZeroPadding
}

// Filter gets filter[ch][pch][s][t].
func (l *Convolution) Filter(ch, pch, s, t int) float64 {
	return l.filter[l.filterIndex(ch, pch, s, t)]
}

// SetFilter sets filter[ch][pch][s][t].
func (l *Convolution) SetFilter(ch, pch, s, t int, val float64) {
	l.filter[l.filterIndex(ch, pch, s, t)] = val
}

// Bias gets the bias of output channel ch.
func (l *Convolution) Bias(ch int) float64 {
	return l.bias[ch]
}

// SetBias sets the bias of output channel ch.
func (l *Convolution) SetBias(ch int, val float64) {
	l.bias[ch] = val
}
