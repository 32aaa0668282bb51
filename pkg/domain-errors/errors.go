// Package domainerrors provides code-tagged errors for the medledger core.
//
// Services attach a Code when translating store or validation failures so the
// HTTP boundary can map errors to statuses without string matching. Stores
// return sentinel errors (pkg/platform/sentinel); services wrap them here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for boundary handling.
type Code string

const (
	// CodeValidation marks caller-correctable input problems: missing or
	// malformed required fields, counts below zero, empty audit lines.
	CodeValidation Code = "validation_error"
	// CodeBadRequest marks transport-level request problems (unparseable
	// body, bad query parameter) before domain validation runs.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks a missing resident, staff member, medication,
	// audit session, or alert.
	CodeNotFound Code = "not_found"
	// CodeInvalidState marks operations that are not legal in the entity's
	// current lifecycle state: re-deciding a terminal audit session,
	// mutating a discontinued medication, resolving a resolved alert.
	CodeInvalidState Code = "invalid_state"
	// CodeConflict marks uniqueness collisions, e.g. a second pending audit
	// for the same program, date, and shift.
	CodeConflict Code = "conflict"
	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks authenticated callers without the required role.
	CodeForbidden Code = "forbidden"
	// CodeInternal marks everything the caller cannot fix.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a caller-safe message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a code-tagged error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a code-tagged error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err returns
// nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode at call sites that test one code.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code carried by err, or CodeInternal when err is untagged.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the caller-safe message, or an empty string when untagged.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
