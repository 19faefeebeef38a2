// Package octoerr defines the error type shared across octoweave's core
// packages and collaborators.
package octoerr

import (
	"errors"
	"fmt"
)

// Code classifies an Error into one of the kinds the pipeline distinguishes.
type Code string

// Error codes for the octoweave pipeline.
const (
	CodeUnknown          Code = "UNKNOWN_ERROR"
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeCapacityExceeded Code = "CAPACITY_EXCEEDED"
	CodeBackendFailure   Code = "BACKEND_FAILURE"
	CodeIOFailure        Code = "IO_FAILURE"
)

// Error represents a pipeline error with a code, a message, and an optional
// wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap wraps an existing error with the given code and message.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Invalid wraps err (or creates a fresh error if err is nil) as InvalidInput.
func Invalid(message string, err error) *Error {
	return &Error{Code: CodeInvalidInput, Message: message, Err: err}
}

// Capacity wraps err as CapacityExceeded.
func Capacity(message string, err error) *Error {
	return &Error{Code: CodeCapacityExceeded, Message: message, Err: err}
}

// Backend wraps err as BackendFailure.
func Backend(message string, err error) *Error {
	return &Error{Code: CodeBackendFailure, Message: message, Err: err}
}

// IO wraps err as IOFailure.
func IO(message string, err error) *Error {
	return &Error{Code: CodeIOFailure, Message: message, Err: err}
}

// Common sentinel instances, comparable via errors.Is on Code alone.
var (
	ErrInvalidInput     = New(CodeInvalidInput, "invalid input")
	ErrCapacityExceeded = New(CodeCapacityExceeded, "capacity exceeded")
	ErrBackendFailure   = New(CodeBackendFailure, "backend failure")
	ErrIOFailure        = New(CodeIOFailure, "io failure")
)

// IsInvalidInput reports whether err is (or wraps) an InvalidInput error.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsCapacityExceeded reports whether err is (or wraps) a CapacityExceeded error.
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// IsBackendFailure reports whether err is (or wraps) a BackendFailure error.
func IsBackendFailure(err error) bool {
	return errors.Is(err, ErrBackendFailure)
}

// IsIOFailure reports whether err is (or wraps) an IOFailure error.
func IsIOFailure(err error) bool {
	return errors.Is(err, ErrIOFailure)
}

// GetCode extracts the Code from err, or CodeUnknown if err is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// GetMessage extracts the Message from err, falling back to err.Error().
func GetMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
