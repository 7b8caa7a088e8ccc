package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Check them with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrFlightNotAvailable = errors.New("flight not available")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidState       = errors.New("invalid state")
	ErrAlreadyPaid        = errors.New("already paid")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInternal           = errors.New("internal error")
)

// ErrDuplicateCode is returned by storage when a generated booking reference
// or receipt number collides with an existing one. The unit is rolled back
// and may be retried with a fresh code.
var ErrDuplicateCode = errors.New("duplicate generated code")

// Kind returns the error kind name for err, "internal" for anything
// unclassified.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrFlightNotAvailable):
		return "flight_not_available"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrAlreadyPaid):
		return "already_paid"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "internal"
	}
}

// IsKnown reports whether err already carries one of the caller-facing kinds.
func IsKnown(err error) bool {
	return Kind(err) != "internal" || errors.Is(err, ErrInternal)
}

// Classify returns err unchanged when it already carries a kind and wraps it
// into ErrInternal otherwise.
func Classify(err error) error {
	if err == nil || IsKnown(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}
