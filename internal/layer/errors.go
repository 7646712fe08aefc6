package layer

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when a layer's declared input shape does not
	// match the unit count of the layer it is attached to.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidArgument is returned for non-positive sizes and similar misuse.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTopology is returned when layers are chained in an unsupported order.
	ErrTopology = errors.New("invalid topology")

	// ErrPhase is returned when a chain operation is called out of order.
	ErrPhase = errors.New("operation out of order")

	// ErrLength is returned when an input or target vector has the wrong length.
	ErrLength = errors.New("vector length mismatch")
)

// ConstructionError reports a layer that could not be attached to a chain.
// Construction stops at the first ConstructionError.
type ConstructionError struct {
	Index  int    // position the layer would have taken in the chain
	Layer  string // layer kind and name
	Reason string
	Err    error // one of ErrShapeMismatch, ErrInvalidArgument, ErrTopology
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("layer %d %s: %v: %s", e.Index, e.Layer, e.Err, e.Reason)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}
