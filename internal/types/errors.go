// Package types provides shared types, interfaces, and errors for the application.
package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for consistent error handling across the application.
// These errors can be checked with errors.Is() for type-safe error handling.
var (
	// Session state-machine errors
	ErrSessionNotStarted     = errors.New("session not started")
	ErrSessionAlreadyStarted = errors.New("session already started")
	ErrSessionClosed         = errors.New("session is closed")

	// Pool errors
	ErrPoolExhausted = errors.New("session pool capacity reached")

	// Remote automation daemon errors
	ErrRemoteUnavailable = errors.New("automation daemon unavailable")
	ErrRemoteApplication = errors.New("automation daemon rejected request")
)

// RemoteError provides detailed information about automation daemon failures.
// It implements the error interface and supports error unwrapping.
//
// Two classes exist: transport-level failures that exhausted all retries
// (Err == ErrRemoteUnavailable, StatusCode == 0) and non-2xx application
// responses that are never retried (Err == ErrRemoteApplication).
type RemoteError struct {
	Endpoint   string // The daemon endpoint that failed, e.g. "POST /tabs"
	StatusCode int    // HTTP status for application errors, 0 for transport failures
	Attempts   int    // Number of attempts made before giving up
	Message    string // Human-readable error message
	Err        error  // Underlying sentinel (for unwrapping)
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return e.Message
}

// Unwrap returns the underlying sentinel for errors.Is/As support.
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteUnavailableError creates an error for transport failures that
// exhausted all retry attempts.
func NewRemoteUnavailableError(endpoint string, attempts int, cause error) *RemoteError {
	return &RemoteError{
		Endpoint: endpoint,
		Attempts: attempts,
		Message:  fmt.Sprintf("%s failed after %d attempts: %v", endpoint, attempts, cause),
		Err:      ErrRemoteUnavailable,
	}
}

// NewRemoteApplicationError creates an error for non-2xx daemon responses.
// These are permanent and must never be retried.
func NewRemoteApplicationError(endpoint string, status int, body string) *RemoteError {
	return &RemoteError{
		Endpoint:   endpoint,
		StatusCode: status,
		Attempts:   1,
		Message:    fmt.Sprintf("%s returned status %d: %s", endpoint, status, body),
		Err:        ErrRemoteApplication,
	}
}

// ProvisionError reports a failure to provision a remote tab during
// Session.Start. The session remains unstarted when this is returned.
type ProvisionError struct {
	SessionKey string
	Err        error
}

// Error implements the error interface.
func (e *ProvisionError) Error() string {
	return fmt.Sprintf("failed to provision session %q: %v", e.SessionKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProvisionError) Unwrap() error {
	return e.Err
}
