// Package errors provides standardized error definitions for the Encore engine.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error represents a structured application error.
type Error struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	HTTPStatus int         `json:"-"`
	Details    interface{} `json:"details,omitempty"`
	Err        error       `json:"-"` // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details interface{}) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// WithError returns a copy of the error wrapping another error.
func (e *Error) WithError(err error) *Error {
	clone := *e
	clone.Err = err
	return &clone
}

// New creates a new Error.
func New(code, message string, httpStatus int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code, message string, httpStatus int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Error codes. The four classes mirror how failures are handled: constraint
// rejections recover locally, network failures are retried then surfaced,
// validation failures never reach the store, invariant violations perform no
// partial mutation.
const (
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConstraintViolation = "CONSTRAINT_VIOLATION"
	ErrCodeNetworkFailure      = "NETWORK_FAILURE"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeInvariantViolation  = "INVARIANT_VIOLATION"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeTooManyRequests     = "TOO_MANY_REQUESTS"
)

// Predefined errors.
var (
	ErrInternal            = New(ErrCodeInternal, "Internal server error", http.StatusInternalServerError)
	ErrNotFound            = New(ErrCodeNotFound, "Resource not found", http.StatusNotFound)
	ErrConstraintViolation = New(ErrCodeConstraintViolation, "Constraint violation", http.StatusConflict)
	ErrNetworkFailure      = New(ErrCodeNetworkFailure, "Upstream store unreachable", http.StatusBadGateway)
	ErrValidationFailed    = New(ErrCodeValidationFailed, "Validation failed", http.StatusBadRequest)
	ErrInvariantViolation  = New(ErrCodeInvariantViolation, "Operation violates an engine invariant", http.StatusConflict)
	ErrUnauthorized        = New(ErrCodeUnauthorized, "Unauthorized", http.StatusUnauthorized)
	ErrTooManyRequests     = New(ErrCodeTooManyRequests, "Too many requests", http.StatusTooManyRequests)
)

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	var appErr *Error
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == target.Code
}

// HTTPStatus returns the HTTP status code for an error.
// Unknown error types map to 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var appErr *Error
	if !stderrors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	return appErr.HTTPStatus
}

// Code returns the error code for an error.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if !stderrors.As(err, &appErr) {
		return ErrCodeInternal
	}
	return appErr.Code
}
