package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrInvalidRequest indicates a malformed chat request (missing message)
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoCredentials indicates the API key pool is empty
	ErrNoCredentials = errors.New("no api keys configured")

	// ErrRateLimited indicates the remote provider rejected the call with 429
	ErrRateLimited = errors.New("rate limited by provider")

	// ErrQuotaExceeded indicates the credential's quota is exhausted
	ErrQuotaExceeded = errors.New("provider quota exceeded")

	// ErrTimeout indicates the remote call exceeded its deadline
	ErrTimeout = errors.New("remote call timed out")

	// ErrUpstream indicates an unexpected remote response shape or status
	ErrUpstream = errors.New("upstream error")

	// ErrAllModelsExhausted indicates every candidate model failed
	ErrAllModelsExhausted = errors.New("all models exhausted")
)

// WrapError wraps an error with context message and stack
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsQuotaShaped reports whether the error means "rotate the key and try again":
// a 429 or an exhausted quota, as opposed to a transport failure.
func IsQuotaShaped(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrQuotaExceeded)
}

// IsNoCredentials checks if error is a missing credentials error
func IsNoCredentials(err error) bool {
	return errors.Is(err, ErrNoCredentials)
}

// IsTimeout checks if error is a remote timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
