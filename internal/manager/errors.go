package manager

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteFailure is wrapped by every failed management call.
	ErrRemoteFailure = errors.New("remote management call failed")

	// ErrServiceTimeout is returned when the service does not become reachable
	// within the requested bound.
	ErrServiceTimeout = errors.New("timed out waiting for management service")
)

// RemoteError is returned when the service answered with a non-success code
type RemoteError struct {
	Action string
	Param  string
	Code   int
}

// Error returns the error message
func (e *RemoteError) Error() string {
	return fmt.Sprintf("management action %s(%q) returned code %d", e.Action, e.Param, e.Code)
}

// Unwrap returns ErrRemoteFailure
func (*RemoteError) Unwrap() error {
	return ErrRemoteFailure
}

// HTTPError represents an HTTP error
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
}

// Error returns the error message
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}
