// Package errors provides the coded domain errors shared by the capture pipeline,
// the listing engine and the share intake.
//
// Usage:
//
//	// In services - return typed errors
//	if normalized == nil {
//	    return errors.InvalidInput("enter a valid URL that includes http or https")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrUnauthenticated) {
//	    ui.OpenSignIn()
//	    return
//	}
//
//	// Or switch on the code
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeInvalidInput:
//	        ui.Notice(domainErr.Message)
//	    case errors.CodeStore:
//	        ui.Error(domainErr)
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeStore            Code = "STORE_ERROR"
	CodeUnsupportedShare Code = "UNSUPPORTED_SHARE"
	CodeNotFound         Code = "NOT_FOUND"
	CodeInternal         Code = "INTERNAL"
)

// Recoverable reports whether errors with this code are handled locally
// (validation messages, redirects) rather than surfaced as failures.
func (c Code) Recoverable() bool {
	switch c {
	case CodeInvalidInput, CodeUnauthenticated, CodeUnsupportedShare:
		return true
	default:
		return false
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrInvalidInput     = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrUnauthenticated  = &Error{Code: CodeUnauthenticated, Message: "not authenticated"}
	ErrStore            = &Error{Code: CodeStore, Message: "store error"}
	ErrUnsupportedShare = &Error{Code: CodeUnsupportedShare, Message: "unsupported share"}
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInternal         = &Error{Code: CodeInternal, Message: "internal error"}
)

// InvalidInput creates an invalid input error.
func InvalidInput(msg string) *Error {
	return &Error{Code: CodeInvalidInput, Message: msg}
}

// InvalidInputf creates an invalid input error with formatted message.
func InvalidInputf(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// InvalidInputWithDetails creates an invalid input error with per-field details.
func InvalidInputWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeInvalidInput, Message: msg, Details: details}
}

// Unauthenticated creates an unauthenticated error.
func Unauthenticated(msg string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: msg}
}

// UnsupportedShare creates an unsupported share error.
func UnsupportedShare(msg string) *Error {
	return &Error{Code: CodeUnsupportedShare, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Store wraps a persistence failure. The underlying message is kept
// so callers can display it.
func Store(err error, msg string) *Error {
	return &Error{Code: CodeStore, Message: msg, cause: err}
}

// Storef wraps a persistence failure with formatted message.
func Storef(err error, format string, args ...any) *Error {
	return &Error{Code: CodeStore, Message: fmt.Sprintf(format, args...), cause: err}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf returns the code of the first *Error in err's chain,
// or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// Message returns the text to show a user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
