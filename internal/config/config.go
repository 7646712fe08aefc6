// Package config reads a network topology and training settings from YAML
// and turns them into a layer chain.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/FlavioCFOliveira/chainnet/internal/activations"
	"github.com/FlavioCFOliveira/chainnet/internal/layer"
	"github.com/FlavioCFOliveira/chainnet/internal/opt"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

// Layer type names accepted in the layers list.
const (
	TypeFullyConnected         = "fully_connected"
	TypeSoftmax                = "softmax"
	TypeConvolution            = "convolution"
	TypeConvolutionZeroPadding = "convolution_zero_padding"
	TypeMaxPooling             = "max_pooling"
)

// Shape is a channel × height × width shape.
type Shape struct {
	Channels int `yaml:"channels"`
	Height   int `yaml:"height"`
	Width    int `yaml:"width"`
}

func (s Shape) layerShape() layer.Shape {
	return layer.Shape{Channels: s.Channels, Height: s.Height, Width: s.Width}
}

// Layer describes one layer after the input.
type Layer struct {
	Type       string `yaml:"type"`
	Name       string `yaml:"name,omitempty"`
	Activation string `yaml:"activation,omitempty"`

	// fully_connected, softmax
	Units int `yaml:"units,omitempty"`

	// convolution, convolution_zero_padding
	Channels   int `yaml:"channels,omitempty"`
	FilterSize int `yaml:"filter_size,omitempty"`
	// InputShape reinterprets the previous layer's output; optional.
	InputShape *Shape `yaml:"input_shape,omitempty"`

	// max_pooling
	PoolingSize int `yaml:"pooling_size,omitempty"`
	Stride      int `yaml:"stride,omitempty"`
}

// Schedule selects a learning-rate schedule.
type Schedule struct {
	// Kind is one of "constant" (default), "step", "exponential" or "plateau".
	Kind  string  `yaml:"kind,omitempty"`
	Gamma float64 `yaml:"gamma,omitempty"`
	// Every is the step size for "step" and the patience for "plateau".
	Every   int     `yaml:"every,omitempty"`
	MinRate float64 `yaml:"min_rate,omitempty"`
}

// Training holds the driver settings.
type Training struct {
	Rate      float64  `yaml:"rate"`
	Momentum  float64  `yaml:"momentum"`
	Steps     int      `yaml:"steps"`
	EvalEvery int      `yaml:"eval_every"`
	Seed      uint64   `yaml:"seed"`
	StdDev    float64  `yaml:"stddev,omitempty"`
	Schedule  Schedule `yaml:"schedule,omitempty"`
}

// Config is the top-level document.
type Config struct {
	Input    Shape    `yaml:"input"`
	Layers   []Layer  `yaml:"layers"`
	Training Training `yaml:"training"`
}

// DefaultTraining returns the settings used for fields the document leaves out.
func DefaultTraining() Training {
	return Training{
		Rate:      0.01,
		Momentum:  0.5,
		Steps:     10000,
		EvalEvery: 1000,
		StdDev:    layer.DefaultStdDev,
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML document. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{Training: DefaultTraining()}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks the fields that the layer builder cannot check itself.
// Shape compatibility between layers is left to Build.
func (c *Config) Validate() error {
	if c.Input.Channels == 0 && c.Input.Height == 0 {
		c.Input.Channels, c.Input.Height = 1, 1
	}
	if c.Input.Channels <= 0 || c.Input.Height <= 0 || c.Input.Width <= 0 {
		return invalid("input shape %+v must be positive", c.Input)
	}
	if len(c.Layers) == 0 {
		return invalid("no layers after the input")
	}
	for i, l := range c.Layers {
		if _, err := activations.ByName(l.Activation); err != nil {
			return invalid("layer %d: %v", i, err)
		}
		switch l.Type {
		case TypeFullyConnected, TypeSoftmax:
			if l.Units <= 0 {
				return invalid("layer %d (%s): units must be positive", i, l.Type)
			}
		case TypeConvolution, TypeConvolutionZeroPadding:
			if l.Channels <= 0 || l.FilterSize <= 0 {
				return invalid("layer %d (%s): channels and filter_size must be positive", i, l.Type)
			}
		case TypeMaxPooling:
			if l.PoolingSize <= 0 || l.Stride <= 0 {
				return invalid("layer %d (%s): pooling_size and stride must be positive", i, l.Type)
			}
		default:
			return invalid("layer %d: unknown type %q", i, l.Type)
		}
	}

	t := c.Training
	if t.Rate <= 0 {
		return invalid("training rate must be positive")
	}
	if t.Momentum < 0 || t.Momentum >= 1 {
		return invalid("training momentum %v outside [0, 1)", t.Momentum)
	}
	if t.Steps < 0 || t.EvalEvery < 0 {
		return invalid("training steps and eval_every must not be negative")
	}
	if t.StdDev < 0 {
		return invalid("training stddev must not be negative")
	}
	switch t.Schedule.Kind {
	case "", "constant":
	case "step", "plateau":
		if t.Schedule.Every <= 0 {
			return invalid("schedule %s: every must be positive", t.Schedule.Kind)
		}
		fallthrough
	case "exponential":
		if t.Schedule.Gamma <= 0 || t.Schedule.Gamma > 1 {
			return invalid("schedule %s: gamma %v outside (0, 1]", t.Schedule.Kind, t.Schedule.Gamma)
		}
	default:
		return invalid("unknown schedule kind %q", t.Schedule.Kind)
	}
	return nil
}

// Build constructs the chain the layers list describes. Options are passed to
// layer.NewBuilder after the configured standard deviation.
func (c *Config) Build(opts ...layer.Option) (*layer.Chain, error) {
	opts = append([]layer.Option{layer.WithStdDev(c.Training.StdDev)}, opts...)
	b := layer.NewBuilder(opts...).Input2D(c.Input.Channels, c.Input.Height, c.Input.Width)
	for i, l := range c.Layers {
		act, err := activations.ByName(l.Activation)
		if err != nil {
			return nil, invalid("layer %d: %v", i, err)
		}
		switch l.Type {
		case TypeFullyConnected:
			b.FullyConnected(l.Units, act, l.Name)
		case TypeSoftmax:
			b.Softmax(l.Units, l.Name)
		case TypeConvolution:
			if l.InputShape != nil {
				b.ConvolutionFrom(l.Channels, l.FilterSize, l.InputShape.layerShape(), act, l.Name)
			} else {
				b.Convolution(l.Channels, l.FilterSize, act, l.Name)
			}
		case TypeConvolutionZeroPadding:
			if l.InputShape != nil {
				b.ConvolutionZeroPaddingFrom(l.Channels, l.FilterSize, l.InputShape.layerShape(), act, l.Name)
			} else {
				b.ConvolutionZeroPadding(l.Channels, l.FilterSize, act, l.Name)
			}
		case TypeMaxPooling:
			b.MaxPooling(l.PoolingSize, l.Stride, act, l.Name)
		default:
			return nil, invalid("layer %d: unknown type %q", i, l.Type)
		}
	}
	return b.Build()
}

// Scheduler returns the learning-rate schedule starting at Rate.
func (t Training) Scheduler() opt.Scheduler {
	s := t.Schedule
	switch s.Kind {
	case "step":
		return opt.NewStepLR(t.Rate, s.Every, s.Gamma)
	case "exponential":
		return opt.NewExponentialLR(t.Rate, s.Gamma)
	case "plateau":
		return opt.NewReduceLROnPlateau(t.Rate, s.Gamma, s.Every, 0, s.MinRate)
	}
	return opt.Constant{Rate: t.Rate}
}
