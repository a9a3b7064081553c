package vectra

import (
	"errors"
	"fmt"
)

// Code is a machine readable error category.
type Code string

// Error codes used across the conversion pipeline.
const (
	// ErrCodeInvalidInput marks unusable source data (zero dimensions,
	// undecodable buffer). These abort the conversion.
	ErrCodeInvalidInput Code = "INVALID_INPUT"

	// ErrCodeStage marks a recoverable failure inside one pipeline stage.
	// The engine absorbs these through its fallback chain.
	ErrCodeStage Code = "STAGE_ERROR"

	// ErrCodeNotFound marks a layer id lookup miss. Text mutations treat
	// this as a no-op rather than a failure.
	ErrCodeNotFound Code = "NOT_FOUND"

	// ErrCodeBusy is returned when a conversion is requested while another
	// one is still in flight.
	ErrCodeBusy Code = "BUSY"

	// ErrCodeUnsupported marks unknown dialect or option names.
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error carrying a code and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an Error with the given code and formatted message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError creates an Error wrapping an existing error.
func WrapError(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsCode reports whether err carries the given error code anywhere in its chain.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from err, or the empty string if err is
// not a structured Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
