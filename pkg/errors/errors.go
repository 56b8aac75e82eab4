// Package errors provides structured error types for entitygraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library and the CLI
//   - Machine-readable error codes for programmatic handling
//   - Diagnostic context (meta-class, property, raw value) on failures
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow the taxonomy of the serialization subsystem:
//   - INVALID_METADATA: caller/schema mismatch (unresolved meta-class,
//     missing primary key, bad schema file)
//   - SERIALIZATION_FAILED / DESERIALIZATION_FAILED: fatal to the current call
//   - UNSUPPORTED: a declared shape the codec cannot handle (e.g. map collections)
//   - INVALID_INPUT: malformed JSON or bad arguments
//
// None of these are retryable; a failing call returns no partial result.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDeserialization, "unknown enum constant").
//	    WithEntity("Order").WithProperty("status").WithValue("NOT_A_STATUS")
//	if errors.Is(err, errors.ErrCodeDeserialization) {
//	    // Handle malformed input
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeDeserialization, parseErr, "parse %s", field)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidMetadata Code = "INVALID_METADATA"
	ErrCodeInvalidName     Code = "INVALID_NAME"

	// Codec errors
	ErrCodeSerialization   Code = "SERIALIZATION_FAILED"
	ErrCodeDeserialization Code = "DESERIALIZATION_FAILED"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Feature errors
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code, optional cause and the
// diagnostic context of the failing entity attribute.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)

	Entity   string // Meta-class name, if known
	Property string // Attribute name, if known
	Value    any    // Offending raw value, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)

	if ctx := e.context(); ctx != "" {
		b.WriteString(" [")
		b.WriteString(ctx)
		b.WriteString("]")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) context() string {
	var parts []string
	if e.Entity != "" {
		parts = append(parts, "entity="+e.Entity)
	}
	if e.Property != "" {
		parts = append(parts, "property="+e.Property)
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithEntity records the meta-class name the error relates to.
func (e *Error) WithEntity(name string) *Error {
	e.Entity = name
	return e
}

// WithProperty records the attribute name the error relates to.
func (e *Error) WithProperty(name string) *Error {
	e.Property = name
	return e
}

// WithValue records the offending raw value.
func (e *Error) WithValue(v any) *Error {
	e.Value = v
	return e
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
