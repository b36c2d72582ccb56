// Package errors provides error handling for bufkit.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints
//
// Usage:
//
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Classify a tool failure
//	return errors.Mark(errors.Newf("buf exited: %s", stderr), errors.ErrToolReportedError)
//
//	if errors.Is(err, errors.ErrToolNotFound) {
//	    // prompt the user to install buf
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint       = crdb.WithHint
	WithHintf      = crdb.WithHintf
	WithDetail     = crdb.WithDetail
	WithDetailf    = crdb.WithDetailf
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Sentinels for the three ways a tool invocation can fail, plus the
// general-purpose ones used across bufkit. Match with errors.Is; attach to a
// concrete error with errors.Mark so the original message survives.
var (
	// ErrToolNotFound indicates no buf installation was detected
	ErrToolNotFound = New("buf is not installed")

	// ErrExecutionFailed indicates the buf process could not be launched or died abnormally
	ErrExecutionFailed = New("buf execution failed")

	// ErrToolReportedError indicates buf ran but wrote to stderr
	ErrToolReportedError = New("buf reported an error")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")

	// ErrConflict indicates a resource conflict (e.g., duplicate command name)
	ErrConflict = New("resource conflict")
)

// IsToolNotFound checks if an error is or wraps ErrToolNotFound
func IsToolNotFound(err error) bool {
	return err != nil && Is(err, ErrToolNotFound)
}

// IsExecutionFailed checks if an error is or wraps ErrExecutionFailed
func IsExecutionFailed(err error) bool {
	return err != nil && Is(err, ErrExecutionFailed)
}

// IsToolReportedError checks if an error is or wraps ErrToolReportedError
func IsToolReportedError(err error) bool {
	return err != nil && Is(err, ErrToolReportedError)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrNotFound)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrInvalidRequest)
}

// NewConflictError creates a conflict error with a formatted message
func NewConflictError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrConflict)
}

// IsConflictError checks if an error is or wraps ErrConflict
func IsConflictError(err error) bool {
	return err != nil && Is(err, ErrConflict)
}
