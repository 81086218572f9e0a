package repositories

import "fmt"

// ErrorCode enumerates repository failure causes shared across entities.
type ErrorCode string

const (
	// ErrorUnknown represents an unspecified persistence failure.
	ErrorUnknown ErrorCode = "storage_unknown"
	// ErrorNotFound indicates the requested record does not exist.
	ErrorNotFound ErrorCode = "storage_not_found"
	// ErrorConflict indicates the write collided with existing state.
	ErrorConflict ErrorCode = "storage_conflict"
	// ErrorUnavailable indicates the backing store could not be reached; the
	// whole logical transaction aborts rather than partially applying.
	ErrorUnavailable ErrorCode = "storage_unavailable"
)

// Error wraps persistence failures with machine readable codes for services.
type Error struct {
	Op      string
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound reports whether the error marks a missing record.
func (e *Error) IsNotFound() bool { return e != nil && e.Code == ErrorNotFound }

// IsConflict reports whether the error marks a write collision.
func (e *Error) IsConflict() bool { return e != nil && e.Code == ErrorConflict }

// IsUnavailable reports whether the backing store was unreachable.
func (e *Error) IsUnavailable() bool { return e != nil && e.Code == ErrorUnavailable }

// NewError constructs a typed repository error.
func NewError(code ErrorCode, message string, err error) *Error {
	if message == "" {
		message = string(code)
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
