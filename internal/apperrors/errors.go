// Package apperrors provides structured application errors classified from
// remote RPC failures.
package apperrors

import (
	"errors"
	"fmt"
)

// VersionConflictMessage is the literal detail message the service attaches
// to a mutation rejected because the supplied entity version is stale.
const VersionConflictMessage = "unexpected entity version"

// Sentinel errors for classification via errors.Is().
var (
	ErrVersionConflict = errors.New("entity version conflict")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnavailable     = errors.New("unavailable")
	ErrInternal        = errors.New("internal error")
)

// Error provides structured error with context.
type Error struct {
	Sentinel error  // Wrapped sentinel for errors.Is() classification
	Message  string // Human-readable message
	Resource string // Resource the failure concerns (e.g., "job", "pod")
	Op       string // Operation that failed (e.g., "StartJob")
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

// VersionConflict creates a conflict error for a stale entity version.
func VersionConflict(resource, op string) error {
	return &Error{
		Sentinel: ErrVersionConflict,
		Message:  VersionConflictMessage,
		Resource: resource,
		Op:       op,
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

// InvalidArgument creates an invalid argument error.
func InvalidArgument(op, message string) error {
	return &Error{
		Sentinel: ErrInvalidArgument,
		Message:  message,
		Op:       op,
	}
}

// Unavailable creates a transient error wrapping an underlying cause.
// Polling loops treat these as a missed observation, not a failed wait.
func Unavailable(op string, cause error) error {
	return &Error{
		Sentinel: ErrUnavailable,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Op:       op,
		Cause:    cause,
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

// IsVersionConflict reports whether err is a stale entity version rejection.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsTransient reports whether retrying the same call later may succeed.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
