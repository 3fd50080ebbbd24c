package apiclient

import (
	"errors"
	"fmt"
)

// HTTPError represents a non-2xx backend response other than 401.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// HTTPStatusCode exposes the upstream status to error mappers.
func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}
