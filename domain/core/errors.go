package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Shape and data errors
	ErrShapeMismatch    = errors.New("sequence lengths differ")
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrUnsortedAges     = errors.New("ages are not strictly increasing")
	ErrNonFinite        = errors.New("non-finite value in series")

	// Parameter errors
	ErrInvalidParameter = errors.New("invalid model parameter")
	ErrUnknownParameter = errors.New("unknown model parameter")
	ErrUnknownTail      = errors.New("unknown poisson tail strategy")

	// Source errors
	ErrMissingColumn     = errors.New("required column missing")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Error constructors with context
func NewShapeError(what string, left, right int) error {
	return fmt.Errorf("%w: %s has %d vs %d elements", ErrShapeMismatch, what, left, right)
}

func NewParameterError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidParameter, field, reason)
}

func NewMissingColumnError(column string) error {
	return fmt.Errorf("%w: %s", ErrMissingColumn, column)
}

// Error checking helpers
func IsShapeError(err error) bool {
	return errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrUnsortedAges) ||
		errors.Is(err, ErrNonFinite)
}

func IsParameterError(err error) bool {
	return errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrUnknownParameter) ||
		errors.Is(err, ErrUnknownTail)
}
