package jsm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies gateway failures so callers can pick between halting,
// backing off, or reporting inline.
type ErrorKind string

const (
	ErrorKindAuth        ErrorKind = "auth"
	ErrorKindRateLimited ErrorKind = "rate_limited"
	ErrorKindNetwork     ErrorKind = "network"
	ErrorKindServer      ErrorKind = "server"
	ErrorKindConflict    ErrorKind = "conflict"
	ErrorKindNotFound    ErrorKind = "not_found"
	ErrorKindProtocol    ErrorKind = "protocol"
)

// APIError is the failure type returned by every gateway call
type APIError struct {
	Kind       ErrorKind
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s failed with %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Method, e.Path, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of a gateway error, or "" for errors
// that did not come from the gateway.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsAuth reports whether the error is fatal to the session
func IsAuth(err error) bool {
	return KindOf(err) == ErrorKindAuth
}

// IsConflict reports whether the server rejected the action because the
// alert already moved past it.
func IsConflict(err error) bool {
	return KindOf(err) == ErrorKindConflict
}

// IsTransient reports whether the error should trigger backoff rather than
// halting the refresh loop.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case ErrorKindRateLimited, ErrorKindNetwork, ErrorKindServer, ErrorKindProtocol:
		return true
	}
	return false
}

func kindForStatus(statusCode int) ErrorKind {
	switch {
	case statusCode == 401 || statusCode == 403:
		return ErrorKindAuth
	case statusCode == 404:
		return ErrorKindNotFound
	case statusCode == 409:
		return ErrorKindConflict
	case statusCode == 429:
		return ErrorKindRateLimited
	case statusCode >= 500:
		return ErrorKindServer
	default:
		return ErrorKindProtocol
	}
}
