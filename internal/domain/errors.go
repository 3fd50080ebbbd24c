package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedUser is returned when the stored user record cannot be decoded.
	ErrMalformedUser = errors.New("stored user profile is malformed")
	// ErrSessionSuperseded is returned when a login finishes after a logout was observed.
	ErrSessionSuperseded = errors.New("session superseded by logout")
)

// NetworkError means the request never produced a backend response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthenticationError means the backend rejected the supplied credentials.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return e.Message
}

// AuthorizationError is raised for HTTP 401 on an authenticated call.
// The session has already been cleared when a caller sees it.
type AuthorizationError struct {
	Path    string
	Message string
}

func (e *AuthorizationError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unauthorized"
	}
	return fmt.Sprintf("%s: %s", e.Path, msg)
}

// PermissionResolutionError wraps a failure while computing menu permissions at login.
type PermissionResolutionError struct {
	Step string
	Err  error
}

func (e *PermissionResolutionError) Error() string {
	return fmt.Sprintf("resolve permissions (%s): %v", e.Step, e.Err)
}

func (e *PermissionResolutionError) Unwrap() error { return e.Err }
