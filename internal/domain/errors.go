package domain

import (
	"errors"
	"fmt"
)

// Error kinds shared by every layer. Callers wrap them with context and
// match with errors.Is.
var (
	// ErrValidation marks a bad or missing input field.
	ErrValidation = errors.New("validation failed")
	// ErrExtraction marks text from which no quantity could be parsed.
	ErrExtraction = errors.New("could not extract a value")
	// ErrNetwork marks a failed call to an upstream service.
	ErrNetwork = errors.New("network error")
	// ErrProvider marks a failed, cancelled, expired or timed-out LLM run.
	ErrProvider = errors.New("assistant provider error")
	// ErrAuth marks a missing or invalid credential.
	ErrAuth = errors.New("unauthorized")
	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a request that collides with in-flight work.
	ErrConflict = errors.New("conflict")
)

// Validationf returns an ErrValidation with a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
