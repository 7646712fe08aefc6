// Package chainnet is the public entry point: it re-exports the layer chain,
// its builder, activations, datasets, configuration and the training driver.
package chainnet

import (
	"github.com/FlavioCFOliveira/chainnet/internal/activations"
	"github.com/FlavioCFOliveira/chainnet/internal/config"
	"github.com/FlavioCFOliveira/chainnet/internal/dataset"
	"github.com/FlavioCFOliveira/chainnet/internal/layer"
	"github.com/FlavioCFOliveira/chainnet/internal/opt"
	"github.com/FlavioCFOliveira/chainnet/internal/train"
)

// Re-export common types for easier access.
type (
	Chain             = layer.Chain
	Builder           = layer.Builder
	Layer             = layer.Layer
	Shape             = layer.Shape
	Kind              = layer.Kind
	Phase             = layer.Phase
	ConstructionError = layer.ConstructionError
	Activation        = activations.Activation
	Corpus            = dataset.Corpus
	Config            = config.Config
	Trainer           = train.Trainer
	Callback          = train.Callback
	Result            = train.Result
	Scheduler         = opt.Scheduler
	Mode              = train.Mode
)

// Sentinel errors.
var (
	ErrShapeMismatch   = layer.ErrShapeMismatch
	ErrInvalidArgument = layer.ErrInvalidArgument
	ErrTopology        = layer.ErrTopology
	ErrPhase           = layer.ErrPhase
	ErrLength          = layer.ErrLength
)

// Activations
var (
	Identity = activations.Identity{}
	ReLU     = activations.ReLU{}
	Sigmoid  = activations.Sigmoid{}
	Tanh     = activations.Tanh{}
)

// Training modes
const (
	Classify   = train.Classify
	Autoencode = train.Autoencode
)

// NewBuilder starts a chain.
func NewBuilder(opts ...layer.Option) *Builder {
	return layer.NewBuilder(opts...)
}

var (
	WithSource = layer.WithSource
	WithStdDev = layer.WithStdDev
)

// NewTrainer returns a training driver for c.
func NewTrainer(c *Chain, mode Mode, opts ...train.Option) *Trainer {
	return train.New(c, mode, opts...)
}

var (
	WithRate      = train.WithRate
	WithMomentum  = train.WithMomentum
	WithScheduler = train.WithScheduler
	WithRand      = train.WithRand
	WithCallbacks = train.WithCallbacks
)

// LoadConfig reads a YAML network description.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// LoadImageDir reads a class-directory PNG corpus.
func LoadImageDir(root string, classes, limit int) (*Corpus, error) {
	return dataset.LoadImageDir(root, classes, limit)
}

// LoadCSV reads a CSV corpus with one integer label column.
func LoadCSV(filename string, labelCol int, hasHeader bool) (*Corpus, error) {
	return dataset.LoadCSV(filename, labelCol, hasHeader)
}

// SaveImage writes a vector as a grayscale PNG.
func SaveImage(path string, v []float64, h, w int) error {
	return dataset.SaveImage(path, v, h, w)
}
