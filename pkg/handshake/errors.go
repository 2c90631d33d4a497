package handshake

import (
	"errors"
	"fmt"
)

// ErrMalformedCallback is wrapped by every MalformedCallback
var ErrMalformedCallback = errors.New("malformed auth callback")

// ErrCodeReplayed marks an authorization code that was already claimed
var ErrCodeReplayed = errors.New("authorization code has already been used")

// MalformedCallback means the callback URL carried no usable credential
type MalformedCallback struct {
	Reason string
}

func (e *MalformedCallback) Error() string {
	return e.Reason
}

func (e *MalformedCallback) Unwrap() error {
	return ErrMalformedCallback
}

// AuthExchangeFailed means the identity provider rejected the credential.
// Message is safe to show to the user.
type AuthExchangeFailed struct {
	Message string
	Err     error
}

func (e *AuthExchangeFailed) Error() string {
	return e.Message
}

func (e *AuthExchangeFailed) Unwrap() error {
	return e.Err
}

// SessionSyncDegraded means the server-side session could not be
// established. The handshake continues without it.
type SessionSyncDegraded struct {
	Err error
}

func (e *SessionSyncDegraded) Error() string {
	return fmt.Sprintf("session sync degraded: %v", e.Err)
}

func (e *SessionSyncDegraded) Unwrap() error {
	return e.Err
}
