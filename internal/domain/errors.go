package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrProviderOutOfCredits = errors.New("provider out of credits")
	ErrValidation           = errors.New("validation failed")
	ErrTransientNetwork     = errors.New("transient network error")
	ErrProviderFailure      = errors.New("provider failure")
	ErrNoRoute              = errors.New("no adapter route")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrSubmitInFlight       = errors.New("submit already in flight")
	ErrUnknownProvider      = errors.New("unknown provider")
)

// ValidationError reports a missing or malformed field for the chosen generation mode.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ProviderError carries the vendor's own rejection message. It unwraps to
// ErrProviderFailure.
type ProviderError struct {
	Message string
}

// NewProviderError builds a ProviderError for msg.
func NewProviderError(msg string) *ProviderError {
	return &ProviderError{Message: msg}
}

func (e *ProviderError) Error() string { return "provider: " + e.Message }

func (e *ProviderError) Unwrap() error { return ErrProviderFailure }
