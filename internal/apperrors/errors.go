// Package apperrors provides structured application errors with HTTP status mapping.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification via errors.Is().
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrInternal   = errors.New("internal error")

	// Automation error kinds. A session-fatal error invalidates the whole
	// browser session and aborts the run; a row failure is isolated to a
	// single dataset row and must never stop the batch.
	ErrSessionFatal = errors.New("session fatal")
	ErrRowFailure   = errors.New("row failure")
)

// Error provides structured error with context.
type Error struct {
	Sentinel   error  // Wrapped sentinel for errors.Is() classification
	Message    string // Human-readable message
	Field      string // For validation errors (e.g., "id", "datasetPath")
	Resource   string // For not found/conflict (e.g., "job")
	Op         string // Operation that failed (e.g., "script.login", "browser.open")
	RowIndex   int    // Dataset row for row failures (-1 when not row-scoped)
	Screenshot string // Failure screenshot path, if one was captured
	Cause      error  // Underlying error
}

// Error returns the human-readable error message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel error for errors.Is() classification.
func (e *Error) Unwrap() error {
	return e.Sentinel
}

// Validation creates a validation error for a specific field.
func Validation(field, message string) error {
	return &Error{
		Sentinel: ErrValidation,
		Message:  message,
		Field:    field,
		RowIndex: -1,
	}
}

// NotFound creates a not found error for a resource.
func NotFound(resource, id string) error {
	return &Error{
		Sentinel: ErrNotFound,
		Message:  fmt.Sprintf("%s %s not found", resource, id),
		Resource: resource,
		RowIndex: -1,
	}
}

// Conflict creates a conflict error for a resource.
func Conflict(resource, id, reason string) error {
	return &Error{
		Sentinel: ErrConflict,
		Message:  reason,
		Resource: resource,
		RowIndex: -1,
	}
}

// Internal creates an internal error wrapping an underlying cause.
func Internal(op string, cause error) error {
	return &Error{
		Sentinel: ErrInternal,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Op:       op,
		Cause:    cause,
		RowIndex: -1,
	}
}

// SessionFatal creates a session-fatal error. The run must abort.
func SessionFatal(op string, cause error) error {
	return &Error{
		Sentinel: ErrSessionFatal,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Op:       op,
		Cause:    cause,
		RowIndex: -1,
	}
}

// SessionFatalMsg creates a session-fatal error with a literal message.
func SessionFatalMsg(op, message string) error {
	return &Error{
		Sentinel: ErrSessionFatal,
		Message:  message,
		Op:       op,
		RowIndex: -1,
	}
}

// RowFailure creates an error scoped to a single dataset row.
func RowFailure(row int, op string, cause error) error {
	return &Error{
		Sentinel: ErrRowFailure,
		Message:  fmt.Sprintf("row %d: %s: %v", row, op, cause),
		Op:       op,
		Cause:    cause,
		RowIndex: row,
	}
}

// RowFailureMsg creates a row-scoped error with a literal message.
func RowFailureMsg(row int, op, message string) error {
	return &Error{
		Sentinel: ErrRowFailure,
		Message:  message,
		Op:       op,
		RowIndex: row,
	}
}

// IsSessionFatal reports whether err aborts the whole run.
func IsSessionFatal(err error) bool {
	return errors.Is(err, ErrSessionFatal)
}
