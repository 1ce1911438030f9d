package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means the API credentials are missing or malformed.
	// Fail fast, never retry.
	ErrNotConfigured = errors.New("gateway credentials not configured")

	// ErrUnreachable wraps timeouts and connection failures. Safe to retry
	// idempotently.
	ErrUnreachable = errors.New("gateway unreachable")
)

// APIError is a non-2xx provider response other than a 409 conflict.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// ConflictError is the provider's 409 response carrying the order state that
// made the request invalid. It is a business conflict, not a transient
// failure, and must not be blindly retried.
type ConflictError struct {
	OldState OrderStatus
	Message  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("gateway conflict: order is %s: %s", e.OldState, e.Message)
}
