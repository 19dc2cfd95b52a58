// Package domain defines core types, interfaces, and errors for the report engine.
package domain

import "fmt"

// NotFoundError indicates a resource was not found. Visibility failures are
// reported with the same type so callers cannot distinguish "hidden" from
// "absent".
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions on an owned resource.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input the caller can fix.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// SecurityViolationError indicates a denylisted construct or a missing tenant
// context. Always fatal, never retried.
type SecurityViolationError struct {
	Message string
}

func (e *SecurityViolationError) Error() string { return e.Message }

// ExecutionError indicates a storage round-trip failure. The raw driver error
// is kept for logging but never shown to callers. DurationMs carries the
// measured time of the failed attempt so the ledger records real timing.
type ExecutionError struct {
	Message    string
	Cause      error
	DurationMs int64
}

func (e *ExecutionError) Error() string { return e.Message }

func (e *ExecutionError) Unwrap() error { return e.Cause }

// TimeoutError indicates the storage collaborator gave up before completing.
// Surfaced distinctly so callers can tell "slow" from "failed"; DurationMs is
// how long the attempt ran before the deadline cut it off.
type TimeoutError struct {
	Message    string
	DurationMs int64
}

func (e *TimeoutError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrSecurityViolation creates a SecurityViolationError with a formatted message.
func ErrSecurityViolation(format string, args ...interface{}) *SecurityViolationError {
	return &SecurityViolationError{Message: fmt.Sprintf(format, args...)}
}

// ErrTimeout creates a TimeoutError with a formatted message.
func ErrTimeout(format string, args ...interface{}) *TimeoutError {
	return &TimeoutError{Message: fmt.Sprintf(format, args...)}
}
