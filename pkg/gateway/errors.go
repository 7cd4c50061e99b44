package gateway

import (
	"errors"
	"fmt"
)

// Sentinel errors for the gateway package.
var (
	// ErrMissingToken indicates no auth token was configured.
	ErrMissingToken = errors.New("gateway: auth token is required")

	// ErrNotConnected indicates the client has no live connection.
	ErrNotConnected = errors.New("gateway: not connected")

	// ErrAuthFailed indicates the gateway rejected the connect handshake.
	// Fatal to the session; callers should not retry with the same token.
	ErrAuthFailed = errors.New("gateway: authentication failed")

	// ErrTimeout indicates a handshake or stream read exceeded its bound.
	ErrTimeout = errors.New("gateway: operation timed out")
)

// ConnectionError represents a transport-level failure. The current
// turn is lost and the connection is re-established on the next one.
type ConnectionError struct {
	// Reason describes what the client was doing when it failed.
	Reason string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gateway: connection error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("gateway: connection error: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(reason string, cause error) *ConnectionError {
	return &ConnectionError{Reason: reason, Cause: cause}
}

// RemoteError carries an explicit failure state from the gateway:
// a rejected chat request, or a run that ended aborted or errored.
type RemoteError struct {
	// State is the terminal state reported by the gateway
	// ("aborted", "error", or "rejected" for a failed request ack).
	State string

	// Message is the errorMessage carried on the wire, if any.
	Message string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway: remote %s: %s", e.State, e.Message)
	}
	return fmt.Sprintf("gateway: remote %s", e.State)
}

// IsFatal returns true for errors that should not be retried on the
// same session (currently only auth rejection).
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuthFailed)
}
