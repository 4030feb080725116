package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidInput indicates channel input that yields no identifier.
	ErrInvalidInput = errors.New("invalid channel input")
	// ErrKidNotFound indicates an unknown kid id.
	ErrKidNotFound = errors.New("kid not found")
	// ErrChannelNotFound indicates an unknown approved-channel record id.
	ErrChannelNotFound = errors.New("approved channel not found")
)

// ValidationError reports rejected user input. The caller is expected to
// re-prompt.
type ValidationError struct {
	Field  string
	Reason string
	// Err optionally narrows the failure, e.g. ErrInvalidInput.
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is reports ErrValidation for every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalidInput(reason string) error {
	return &ValidationError{Field: "channel", Reason: reason, Err: ErrInvalidInput}
}
