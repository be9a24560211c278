// Package errors provides structured error types for storyweave.
//
// Every failure that can reach a user carries a machine-readable [Code].
// The story taxonomy is:
//   - MALFORMED_INPUT: the input is not parseable as the expected structure
//   - SCHEMA_VIOLATION: a required field is missing or has the wrong type
//   - DANGLING_REFERENCE: the start node or an option target does not resolve
//   - SIZE_LIMIT_EXCEEDED: the graph is over the node cap
//   - INVARIANT_VIOLATION: an edit would break a graph invariant
//
// Import, export and validation failures never leave partial state behind;
// callers can rely on the error alone to decide what to show.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeSchemaViolation, "Node %s is missing text.", id)
//	if errors.Is(err, errors.ErrCodeSchemaViolation) {
//	    // reject the import
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "fetch manifest %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the story taxonomy.
const (
	ErrCodeMalformedInput     Code = "MALFORMED_INPUT"
	ErrCodeSchemaViolation    Code = "SCHEMA_VIOLATION"
	ErrCodeDanglingReference  Code = "DANGLING_REFERENCE"
	ErrCodeSizeLimitExceeded  Code = "SIZE_LIMIT_EXCEEDED"
	ErrCodeInvariantViolation Code = "INVARIANT_VIOLATION"
)

// Error codes used by the surrounding tooling (CLI, server, stores).
const (
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeNetwork      Code = "NETWORK_ERROR"
	ErrCodeInternal     Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
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

// UserMessage returns the message without the code prefix for *Error values
// and the plain error string otherwise.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsTaxonomy reports whether code belongs to the story validation taxonomy.
func IsTaxonomy(code Code) bool {
	switch code {
	case ErrCodeMalformedInput, ErrCodeSchemaViolation, ErrCodeDanglingReference,
		ErrCodeSizeLimitExceeded, ErrCodeInvariantViolation:
		return true
	}
	return false
}
