package store

import (
	"errors"
	"fmt"
)

// Error is a store failure with a stable code.
type Error struct {
	Code    string // machine-readable, e.g. "not_found"
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so derived errors still
// satisfy errors.Is(err, ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithMessage returns a new error with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{
		Code:    e.Code,
		Message: msg,
		Err:     e.Err,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    "not_found",
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    "already_exists",
		Message: "resource already exists",
	}

	ErrInvalidInput = &Error{
		Code:    "invalid_input",
		Message: "invalid input",
	}
)
