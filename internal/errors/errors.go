// Package errors holds the sentinel errors shared across the assistant and
// the typed error returned by model providers.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("authentication required")
	ErrNotConfigured = errors.New("AI assistant is not configured")
	ErrMaxRounds     = errors.New("tool-calling round limit reached")
	// ErrTimeout marks a model call that hit its deadline.
	ErrTimeout = errors.New("model call timed out")
)

// ProviderError is a failed call to a model provider. Kind carries the
// provider's own error classification (e.g. "overloaded_error") when known.
type ProviderError struct {
	Provider   string
	StatusCode int
	Kind       string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: status %d", e.Provider, e.StatusCode)
	if e.Kind != "" {
		b.WriteString(" ")
		b.WriteString(e.Kind)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError builds a ProviderError.
func NewProviderError(provider string, statusCode int, kind, message string) *ProviderError {
	return &ProviderError{Provider: provider, StatusCode: statusCode, Kind: kind, Message: message}
}

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Kind {
	case "overloaded_error", "rate_limit_error", "api_error":
		return true
	}
	switch pe.StatusCode {
	case 408, 429, 500, 502, 503, 504, 529:
		return true
	}
	return false
}

// Invalid wraps ErrInvalidInput with a caller-facing message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
