package transform

import "errors"

var (
	// ErrInvalidParameter is returned when a transform is built with a
	// malformed axis order, unknown kind, or wrong parameter set.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrShapeMismatch is returned when paired coordinate arrays disagree in shape.
	ErrShapeMismatch = errors.New("shape mismatch")
)
