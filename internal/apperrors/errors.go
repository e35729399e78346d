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

	// Reconciliation taxonomy. Store and driver errors are record-local
	// unless they occur while listing (store) or at loop startup (driver);
	// protocol errors mark records whose persisted status is unrecognized.
	ErrStore    = errors.New("store error")
	ErrDriver   = errors.New("runtime driver error")
	ErrProtocol = errors.New("protocol error")
)

// Error provides structured error with context.
type Error struct {
	Sentinel error  // Wrapped sentinel for errors.Is() classification
	Message  string // Human-readable message
	Field    string // For validation errors (e.g., "name", "image")
	Resource string // For not found/conflict (e.g., "container")
	Op       string // Operation that failed (e.g., "driver.createWorkload")
	Cause    error  // Underlying error
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
	}
}

// NotFound creates a not found error for a resource.
func NotFound(resource, id string) error {
	return &Error{
		Sentinel: ErrNotFound,
		Message:  fmt.Sprintf("%s %s not found", resource, id),
		Resource: resource,
	}
}

// Conflict creates a conflict error for a resource.
func Conflict(resource, id, reason string) error {
	return &Error{
		Sentinel: ErrConflict,
		Message:  reason,
		Resource: resource,
	}
}

// Internal creates an internal error wrapping an underlying cause.
func Internal(op string, cause error) error {
	return &Error{
		Sentinel: ErrInternal,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Op:       op,
		Cause:    cause,
	}
}

// Store creates a record store error wrapping an underlying cause.
func Store(op string, cause error) error {
	return &Error{
		Sentinel: ErrStore,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Op:       op,
		Cause:    cause,
	}
}

// Driver creates a runtime driver error wrapping an underlying cause.
func Driver(op string, cause error) error {
	return &Error{
		Sentinel: ErrDriver,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Op:       op,
		Cause:    cause,
	}
}

// Protocol creates an error for data that violates the persisted contract,
// such as a status value outside the known enumeration.
func Protocol(message string) error {
	return &Error{
		Sentinel: ErrProtocol,
		Message:  message,
	}
}
