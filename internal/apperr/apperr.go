// Package apperr defines the error taxonomy shared by every layer of the
// event-hosting core. Callers wrap one of the sentinels with context and
// test the kind with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced event, request or user does not
// exist, or exists but is not owned by the caller.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned for malformed input.
var ErrValidation = errors.New("validation failed")

// ErrConflict is returned for state-machine and capacity violations.
var ErrConflict = errors.New("conflict")

// ErrCapacityExhausted is returned when an event has no seats left.
var ErrCapacityExhausted = fmt.Errorf("%w: participant limit reached", ErrConflict)

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Validation wraps ErrValidation with a formatted message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Conflict wraps ErrConflict with a formatted message.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Kind reports which sentinel err wraps, or nil for unclassified errors.
func Kind(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrValidation):
		return ErrValidation
	case errors.Is(err, ErrConflict):
		return ErrConflict
	default:
		return nil
	}
}
