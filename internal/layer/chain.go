package layer

import (
	"fmt"
	"strings"
)

// Phase is the position of a Chain in the per-example training cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseForwarded
	PhaseBackward
	PhaseUpdated
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseForwarded:
		return "forwarded"
	case PhaseBackward:
		return "backward-done"
	case PhaseUpdated:
		return "updated"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Chain is a built network: an arena of layers addressed by index, each
// linked to its predecessor and successor. It is not safe for concurrent use;
// every phase reads buffers written by the one before it.
type Chain struct {
	layers []Layer
	input  *Input

	phase     Phase
	target    []float64
	hasTarget bool
}

func newChain(layers []Layer) *Chain {
	return &Chain{
		layers: layers,
		input:  layers[0].(*Input),
		target: make([]float64, layers[len(layers)-1].Units()),
	}
}

// Len returns the number of layers, input included.
func (c *Chain) Len() int {
	return len(c.layers)
}

// Layer returns the layer at index i.
func (c *Chain) Layer(i int) Layer {
	return c.layers[i]
}

// Layers returns the chain's layers in order.
func (c *Chain) Layers() []Layer {
	return c.layers
}

// Input returns the input layer.
func (c *Chain) Input() Layer {
	return c.input
}

// Terminal returns the last layer.
func (c *Chain) Terminal() Layer {
	return c.layers[len(c.layers)-1]
}

// Output returns the terminal layer's activated output.
func (c *Chain) Output() []float64 {
	return c.Terminal().Output()
}

// Phase returns the current training phase.
func (c *Chain) Phase() Phase {
	return c.phase
}

// ParamCount returns the number of trainable scalars over all layers.
func (c *Chain) ParamCount() int {
	n := 0
	for _, l := range c.layers {
		n += l.ParamCount()
	}
	return n
}

// Propagate loads x into the input layer and runs the forward pass to the terminal layer.
func (c *Chain) Propagate(x []float64) error {
	if len(x) != c.input.Units() {
		return fmt.Errorf("propagate: input has %d values, want %d: %w", len(x), c.input.Units(), ErrLength)
	}
	c.input.load(x)
	for l := c.layers[c.input.next]; ; l = c.layers[l.Next()] {
		l.propagate(c.layers[l.Prev()].core())
		if l.Next() < 0 {
			break
		}
	}
	c.phase = PhaseForwarded
	return nil
}

// SetTarget sets the vector the terminal layer is trained towards.
func (c *Chain) SetTarget(t []float64) error {
	if len(t) != len(c.target) {
		return fmt.Errorf("set target: target has %d values, want %d: %w", len(t), len(c.target), ErrLength)
	}
	copy(c.target, t)
	c.hasTarget = true
	return nil
}

// BackPropagate computes every layer's delta, starting at the terminal layer
// with activated - target and ending at the input layer.
// It requires a Propagate since the last update and a target.
func (c *Chain) BackPropagate() error {
	if c.phase != PhaseForwarded {
		return fmt.Errorf("back propagate in phase %s: %w", c.phase, ErrPhase)
	}
	if !c.hasTarget {
		return fmt.Errorf("back propagate without target: %w", ErrPhase)
	}
	terminal := c.Terminal()
	terminal.core().terminalDelta(c.target)
	for l := terminal; l.Prev() >= 0; l = c.layers[l.Prev()] {
		l.backPropagate(c.layers[l.Prev()].core())
	}
	c.phase = PhaseBackward
	return nil
}

// GradientDescent updates every layer's parameters from the input layer
// forward, using AdaGrad with momentum. It requires a completed BackPropagate.
func (c *Chain) GradientDescent(rate, momentum float64) error {
	if c.phase != PhaseBackward {
		return fmt.Errorf("gradient descent in phase %s: %w", c.phase, ErrPhase)
	}
	for l := c.layers[c.input.next]; ; l = c.layers[l.Next()] {
		l.gradientDescent(c.layers[l.Prev()].core(), rate, momentum)
		if l.Next() < 0 {
			break
		}
	}
	c.phase = PhaseUpdated
	return nil
}

// Step trains on one example: propagate x, back-propagate towards target,
// then descend with the given rate and momentum.
func (c *Chain) Step(x, target []float64, rate, momentum float64) error {
	if err := c.Propagate(x); err != nil {
		return err
	}
	if err := c.SetTarget(target); err != nil {
		return err
	}
	if err := c.BackPropagate(); err != nil {
		return err
	}
	return c.GradientDescent(rate, momentum)
}

// Class returns the index of the terminal softmax layer's largest output.
func (c *Chain) Class() (int, error) {
	sm, ok := c.Terminal().(*Softmax)
	if !ok {
		return 0, fmt.Errorf("class: terminal layer is %s, not softmax: %w", c.Terminal().Kind(), ErrTopology)
	}
	if c.phase == PhaseIdle {
		return 0, fmt.Errorf("class before propagate: %w", ErrPhase)
	}
	return sm.Class(), nil
}

// Describe lists every layer's kind, name, shapes and activation.
func (c *Chain) Describe() string {
	var sb strings.Builder
	for _, l := range c.layers {
		sb.WriteString(l.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
