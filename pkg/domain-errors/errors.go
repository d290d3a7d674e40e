// Package domainerrors provides a coded error type shared across services.
// Stores and infrastructure return sentinel errors; services wrap them with a
// code here so transport layers can map errors to responses without string
// matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for transport mapping and per-item batch reporting.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
	CodeInvariantViolation Code = "invariant_violation"

	// Issuance pipeline codes. These stay distinct from CodeInternal so a
	// batch summary can say which stage an item died in.
	CodeClassification Code = "classification"
	CodeRender         Code = "render"
	CodePersistence    Code = "persistence"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err returns nil
// so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var coded *Error
	if !errors.As(err, &coded) {
		return false
	}
	if coded.Code == code {
		return true
	}
	return HasCode(coded.Err, code)
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the error
// carries none.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// Is delegates to errors.Is; re-exported so call sites importing this package
// under an alias don't also need the stdlib errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
