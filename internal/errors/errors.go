package errors

import "fmt"

// ErrorCode represents a deskwatch error code.
type ErrorCode string

const (
	ErrInvalidConfig       ErrorCode = "INVALID_CONFIG"       // bad capture configuration, fatal at startup
	ErrStoreUnavailable    ErrorCode = "STORE_UNAVAILABLE"    // database could not be opened or migrated
	ErrNotFound            ErrorCode = "NOT_FOUND"            // lookup miss on a dimension row
	ErrWriterStopped       ErrorCode = "WRITER_STOPPED"       // put after the writer intake closed
	ErrShutdownTimeout     ErrorCode = "SHUTDOWN_TIMEOUT"     // writer failed to flush within the bound
	ErrUnsupportedPlatform ErrorCode = "UNSUPPORTED_PLATFORM" // no input hook implementation for this OS
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"      // malformed tool-call arguments
	ErrInternal            ErrorCode = "INTERNAL"
)

// Error is a structured error with a stable code for callers to branch on.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidConfig creates an error for invalid capture configuration.
func NewInvalidConfig(msg string) *Error {
	return &Error{
		Code:    ErrInvalidConfig,
		Message: msg,
	}
}

// NewStoreUnavailable wraps a storage open/migrate failure.
func NewStoreUnavailable(err error) *Error {
	msg := "store unavailable"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrStoreUnavailable,
		Message: msg,
	}
}

// NewNotFound creates an error for a missing row.
func NewNotFound(identifier string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewWriterStopped creates an error for a put against a stopped writer.
func NewWriterStopped() *Error {
	return &Error{
		Code:    ErrWriterStopped,
		Message: "writer intake is closed",
	}
}

// NewShutdownTimeout creates an error for a writer flush that exceeded its bound.
// Pending is the number of events abandoned in the intake.
func NewShutdownTimeout(pending int) *Error {
	return &Error{
		Code:    ErrShutdownTimeout,
		Message: fmt.Sprintf("writer did not flush in time; %d events lost", pending),
		Details: map[string]any{"pending": pending},
	}
}

// NewUnsupportedPlatform creates an error for a missing OS hook implementation.
func NewUnsupportedPlatform(what string) *Error {
	return &Error{
		Code:    ErrUnsupportedPlatform,
		Message: fmt.Sprintf("%s is not supported on this platform", what),
	}
}

// NewInvalidRequest creates an error for malformed tool-call arguments.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Message: msg,
	}
}

// NewInternal wraps an unexpected error.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Message: msg,
	}
}

// Is checks if an error is a deskwatch Error with the given code.
func Is(err error, code ErrorCode) bool {
	if dErr, ok := err.(*Error); ok {
		return dErr.Code == code
	}
	return false
}
