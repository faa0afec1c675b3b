// Package apperr defines the error taxonomy shared by the pipeline stages.
//
// Every failure that aborts a run (or a stage) is an *Error carrying a Code,
// so callers can branch with IsCode instead of matching on message text.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error category.
type Code string

const (
	// CodeExternalTool marks a non-zero exit from a wrapped external program.
	CodeExternalTool Code = "EXTERNAL_TOOL"
	// CodeConfiguration marks a missing credential or invalid setting for a requested feature.
	CodeConfiguration Code = "CONFIGURATION"
	// CodeExternalService marks a failed call to a remote service.
	CodeExternalService Code = "EXTERNAL_SERVICE"
	// CodeInput marks a missing or malformed input.
	CodeInput Code = "INPUT"
)

// Error is the application error type.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Cause   error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// ExternalTool reports a failed external command. command identifies the
// program that failed, e.g. "ffmpeg" or "uvx whisperx".
func ExternalTool(command string, cause error) *Error {
	e := &Error{
		Code:    CodeExternalTool,
		Message: fmt.Sprintf("%s failed", command),
		Cause:   cause,
	}
	return e.WithDetail("command", command)
}

// Configuration reports a setting or credential problem with actionable guidance.
func Configuration(format string, args ...any) *Error {
	return &Error{Code: CodeConfiguration, Message: fmt.Sprintf(format, args...)}
}

// ExternalService reports a failed call to a remote service.
func ExternalService(service string, cause error) *Error {
	return &Error{
		Code:    CodeExternalService,
		Message: fmt.Sprintf("%s request failed", service),
		Cause:   cause,
	}
}

// Input reports a missing or malformed input.
func Input(format string, args ...any) *Error {
	return &Error{Code: CodeInput, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether any error in err's chain is an *Error with the given code.
func IsCode(err error, code Code) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
