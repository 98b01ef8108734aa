package cpfl

import (
	"errors"
	"fmt"
)

// Common collector errors
var (
	// ErrUnauthorized is returned when the API rejects the current access
	// token with a 401 or 403.
	ErrUnauthorized = errors.New("token not authorized")

	// ErrMissingKey is returned when a consumer unit has no integration key
	// configured; the key must be captured via the bookmarklet first.
	ErrMissingKey = errors.New("consumer unit has no integration key")

	// ErrNoRefreshToken is returned when token renewal is attempted for a
	// consumer unit that has no refresh token on file.
	ErrNoRefreshToken = errors.New("consumer unit has no refresh token")

	// ErrNoTokens is returned when neither a valid token, a refresh, nor
	// the bookmarklet produced usable credentials.
	ErrNoTokens = errors.New("no usable credentials for consumer unit")
)

// APIError wraps failures of API calls with the operation and the HTTP
// status the server answered with.
type APIError struct {
	// Op is the operation that failed (e.g., "FetchPaidHistory").
	Op string

	// StatusCode is the HTTP status returned by the API, 0 for transport
	// failures.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("cpfl: %s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("cpfl: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *APIError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newAPIError(op string, status int, err error) *APIError {
	return &APIError{Op: op, StatusCode: status, Err: err}
}
