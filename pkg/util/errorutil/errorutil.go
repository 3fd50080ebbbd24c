// Package errorutil maps domain and upstream errors to HTTP responses.
package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/admin-console/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewTooManyRequests(message string) error {
	return NewDomainError("RATE_LIMITED", message, http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// statusCoder is implemented by upstream HTTP errors.
type statusCoder interface {
	HTTPStatusCode() int
}

// ToDomainError converts errors to DomainError. loginPath is advertised in
// the details of a forced sign-out.
func ToDomainError(err error, loginPath string) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var authzErr *domain.AuthorizationError
	if errors.As(err, &authzErr) {
		return &DomainError{
			Code:       "UNAUTHORIZED",
			Message:    "session expired, sign in again",
			HTTPStatus: http.StatusUnauthorized,
			Details:    map[string]any{"redirect": loginPath},
			Err:        err,
		}
	}
	var authnErr *domain.AuthenticationError
	if errors.As(err, &authnErr) {
		return &DomainError{
			Code:       "AUTHENTICATION_FAILED",
			Message:    authnErr.Error(),
			HTTPStatus: http.StatusUnauthorized,
			Err:        err,
		}
	}
	var netErr *domain.NetworkError
	if errors.As(err, &netErr) {
		return &DomainError{
			Code:       "NETWORK_ERROR",
			Message:    "backend unreachable",
			HTTPStatus: http.StatusBadGateway,
			Err:        err,
		}
	}
	if errors.Is(err, domain.ErrSessionSuperseded) {
		return &DomainError{
			Code:       "SESSION_SUPERSEDED",
			Message:    err.Error(),
			HTTPStatus: http.StatusConflict,
			Err:        err,
		}
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make(map[string]any, len(validationErrs))
		for _, fe := range validationErrs {
			fields[fe.Field()] = fe.Tag()
		}
		return &DomainError{
			Code:       "VALIDATION_FAILED",
			Message:    "invalid input",
			HTTPStatus: http.StatusBadRequest,
			Details:    fields,
			Err:        err,
		}
	}
	var upstream statusCoder
	if errors.As(err, &upstream) {
		status := upstream.HTTPStatusCode()
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return &DomainError{
			Code:       "UPSTREAM_ERROR",
			Message:    err.Error(),
			HTTPStatus: status,
			Err:        err,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &DomainError{
			Code:       "TIMEOUT",
			Message:    "request timed out",
			HTTPStatus: http.StatusGatewayTimeout,
			Err:        err,
		}
	}
	return NewInternalError(err).(*DomainError)
}
