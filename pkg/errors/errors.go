package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so wrapped clones still compare equal to the sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNoData      = New("NO_DATA", http.StatusServiceUnavailable, "No data to return, try again later")
	ErrNotFound    = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation  = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal    = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss   = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrRateLimited = New("RATE_LIMITED", http.StatusTooManyRequests, "Intra API rate limit exceeded")
	ErrUpstream    = New("UPSTREAM_ERROR", http.StatusBadGateway, "Intra API error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithCause returns a copy of err wrapping cause.
func WithCause(err *Error, cause error) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Err = cause
	return &clone
}
