package provider

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for provider calls.
type ErrorCategory string

const (
	// ErrorTimeout indicates the provider took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorInvalidRequest indicates the provider rejected our input (bad number)
	ErrorInvalidRequest ErrorCategory = "invalid_request"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the provider is unavailable
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorRateLimited indicates the provider throttled us
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected failure
	ErrorInternal ErrorCategory = "internal"
)

// Error wraps a provider failure with a normalized category.
type Error struct {
	Category   ErrorCategory
	Provider   string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.Provider, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.Provider, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError builds a normalized error. Timeouts, outages and throttling are
// marked retryable; nothing in this service retries automatically.
func NewError(category ErrorCategory, provider, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Provider:   provider,
		Message:    message,
		Underlying: underlying,
		Retryable: category == ErrorTimeout ||
			category == ErrorProviderOutage ||
			category == ErrorRateLimited,
	}
}

// IsRetryable reports whether err is a retryable provider error.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// CategoryOf extracts the category, defaulting to ErrorInternal.
func CategoryOf(err error) ErrorCategory {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}
