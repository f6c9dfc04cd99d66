// Package errors provides coded errors for the engine.
//
// Codes are grouped by fault class:
//   - General errors (1-99)
//   - Validation and configuration errors (100-199)
//   - Data faults (200-299): malformed or out-of-order feed input, fatal for a run
//   - Computation faults (300-399): numeric failures inside a node, recovered per tick
//   - Strategy and intent errors (400-499)
//   - Graph faults (600-699): cycles or missing bindings, detected before any tick
//   - Callback errors (800-899)
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodeOutOfOrderData, "feed %s went back in time", name)
//	if errors.IsDataFault(err) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps cause with a code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps cause with a code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return Wrap(code, fmt.Sprintf(format, args...), cause)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode of the outermost *Error in the chain.
// Returns ErrCodeUnknown if there is none.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if any *Error in the chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}

		if e.Code == code {
			return true
		}

		err = e.Cause
	}

	return false
}

func inRange(err error, lo, hi ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}

		if e.Code >= lo && e.Code <= hi {
			return true
		}

		err = e.Cause
	}

	return false
}

// IsDataFault reports whether err carries a data fault code.
func IsDataFault(err error) bool {
	return inRange(err, ErrCodeDataFault, 299)
}

// IsComputationFault reports whether err carries a computation fault code.
func IsComputationFault(err error) bool {
	return inRange(err, ErrCodeComputationFault, 399)
}

// IsGraphFault reports whether err carries a graph fault code.
func IsGraphFault(err error) bool {
	return inRange(err, ErrCodeGraphFault, 699)
}
