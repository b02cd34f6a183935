package models

import (
	"fmt"
)

// InvalidFieldError reports user input that failed local validation.
// It never reaches the network.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewInvalidField builds an InvalidFieldError with a formatted reason.
func NewInvalidField(field, format string, args ...any) *InvalidFieldError {
	return &InvalidFieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// AuthUnavailableError means the identity provider could not be reached or timed out.
type AuthUnavailableError struct {
	Op  string
	Err error
}

func (e *AuthUnavailableError) Error() string {
	return fmt.Sprintf("authentication unavailable during %s: %v", e.Op, e.Err)
}

func (e *AuthUnavailableError) Unwrap() error { return e.Err }

// UserCancelledError means the human aborted (or never completed) the consent flow.
type UserCancelledError struct {
	Reason string
}

func (e *UserCancelledError) Error() string {
	return "login cancelled: " + e.Reason
}

// RefreshRejectedError means the refresh token is no longer accepted by the provider.
// Callers fall back to a full login.
type RefreshRejectedError struct {
	Err error
}

func (e *RefreshRejectedError) Error() string {
	return fmt.Sprintf("refresh token rejected: %v", e.Err)
}

func (e *RefreshRejectedError) Unwrap() error { return e.Err }

// CorruptStoreError means the persisted credential file could not be decoded.
type CorruptStoreError struct {
	Path string
	Err  error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("credential file %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() error { return e.Err }

// RemoteError is a failed calendar RPC made with a valid token.
// Status is the HTTP status code, or 0 when no response was received.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return "calendar service error: " + e.Message
	}
	return fmt.Sprintf("calendar service error (status %d): %s", e.Status, e.Message)
}
