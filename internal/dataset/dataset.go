// Package dataset holds labeled corpora of feature vectors and the loaders
// and writers around them.
package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrDimension is returned when a sample's length differs from the corpus dimension.
var ErrDimension = errors.New("dataset: sample dimension mismatch")

// Corpus is a collection of fixed-length feature vectors grouped by class label.
// Labels run from 0 to Classes()-1.
type Corpus struct {
	byLabel [][][]float64
	dim     int
}

// NewCorpus returns an empty corpus with the given number of classes.
// The dimension is fixed by the first sample added.
func NewCorpus(classes int) *Corpus {
	return &Corpus{byLabel: make([][][]float64, classes)}
}

// Add appends x to class label.
func (c *Corpus) Add(label int, x []float64) error {
	if label < 0 || label >= len(c.byLabel) {
		return fmt.Errorf("dataset: label %d out of range [0, %d)", label, len(c.byLabel))
	}
	if c.dim == 0 {
		c.dim = len(x)
	} else if len(x) != c.dim {
		return fmt.Errorf("label %d: sample has %d values, want %d: %w", label, len(x), c.dim, ErrDimension)
	}
	c.byLabel[label] = append(c.byLabel[label], x)
	return nil
}

// Classes returns the number of class labels.
func (c *Corpus) Classes() int {
	return len(c.byLabel)
}

// Dim returns the length of every sample, or 0 for an empty corpus.
func (c *Corpus) Dim() int {
	return c.dim
}

// Len returns the total number of samples.
func (c *Corpus) Len() int {
	n := 0
	for _, s := range c.byLabel {
		n += len(s)
	}
	return n
}

// Class returns the samples of one label.
func (c *Corpus) Class(label int) [][]float64 {
	return c.byLabel[label]
}

// Sample draws one sample of the given label uniformly, or nil if the class is empty.
func (c *Corpus) Sample(r *rand.Rand, label int) []float64 {
	s := c.byLabel[label]
	if len(s) == 0 {
		return nil
	}
	return s[r.IntN(len(s))]
}

// Each calls fn for every sample in label order, stopping at the first error.
func (c *Corpus) Each(fn func(label int, x []float64) error) error {
	for label, s := range c.byLabel {
		for _, x := range s {
			if err := fn(label, x); err != nil {
				return err
			}
		}
	}
	return nil
}

// Normalize performs min-max normalization per feature over the whole corpus.
// Constant features become 0.
func (c *Corpus) Normalize() {
	if c.Len() == 0 {
		return
	}
	lo := make([]float64, c.dim)
	hi := make([]float64, c.dim)
	first := true
	c.Each(func(_ int, x []float64) error {
		for i, v := range x {
			if first || v < lo[i] {
				lo[i] = v
			}
			if first || v > hi[i] {
				hi[i] = v
			}
		}
		first = false
		return nil
	})
	c.Each(func(_ int, x []float64) error {
		for i := range x {
			if diff := hi[i] - lo[i]; diff != 0 {
				x[i] = (x[i] - lo[i]) / diff
			} else {
				x[i] = 0
			}
		}
		return nil
	})
}

// Split divides every class at the given ratio (0.0 to 1.0) and returns
// the leading part as train and the rest as test. Samples are shared, not copied.
func (c *Corpus) Split(ratio float64) (train, test *Corpus) {
	train = &Corpus{byLabel: make([][][]float64, len(c.byLabel)), dim: c.dim}
	test = &Corpus{byLabel: make([][][]float64, len(c.byLabel)), dim: c.dim}
	for label, s := range c.byLabel {
		idx := int(float64(len(s)) * ratio)
		idx = max(0, min(idx, len(s)))
		train.byLabel[label] = s[:idx:idx]
		test.byLabel[label] = s[idx:]
	}
	return train, test
}

// OneHot returns a vector of n zeros with a 1 at index k.
func OneHot(n, k int) []float64 {
	v := make([]float64, n)
	v[k] = 1
	return v
}

// Blobs generates perClass samples for each of classes labels. Class k is
// centered on 0.1 + 0.8·e_k and jittered uniformly by ±spread/2 per feature,
// so the classes are linearly separable while spread < 0.8. dim must be at
// least classes.
func Blobs(r *rand.Rand, classes, dim, perClass int, spread float64) (*Corpus, error) {
	if classes <= 0 || perClass <= 0 || dim < classes {
		return nil, fmt.Errorf("dataset: blobs need classes > 0, perClass > 0 and dim >= classes, got %d, %d, %d", classes, perClass, dim)
	}
	c := NewCorpus(classes)
	for k := 0; k < classes; k++ {
		for i := 0; i < perClass; i++ {
			x := make([]float64, dim)
			for j := range x {
				x[j] = 0.1 + spread*(r.Float64()-0.5)
			}
			x[k] += 0.8
			if err := c.Add(k, x); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}
