// Package errors provides error handling for smrt.
//
// It re-exports github.com/cockroachdb/errors so callers get stack traces,
// wrapping and user-facing hints from a single import:
//
//	if err := src.Fetch(ctx); err != nil {
//	    return errors.Wrap(err, "fetch tables")
//	}
//
//	return errors.WithHint(err, "set data.dir in smrt.toml")
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Creation and wrapping
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
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Inspection
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapAll     = crdb.UnwrapAll
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
	FlattenHints  = crdb.FlattenHints
)

// AssertionFailedf reports a broken internal invariant.
var AssertionFailedf = crdb.AssertionFailedf

// Sentinel errors. Wrap them with context and test with errors.Is.
var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or empty
	ErrInvalidRequest = New("invalid request")

	// ErrServiceUnavailable indicates a collaborator (LLM, source) is unreachable
	ErrServiceUnavailable = New("service unavailable")

	// ErrTimeout indicates an external call exceeded its deadline
	ErrTimeout = New("operation timed out")

	// ErrTableMissing indicates a source table was absent from the load
	ErrTableMissing = New("table missing")

	// ErrNotConfigured indicates an optional component has no configuration
	ErrNotConfigured = New("not configured")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsServiceUnavailableError checks if an error is or wraps ErrServiceUnavailable
func IsServiceUnavailableError(err error) bool {
	return err != nil && Is(err, ErrServiceUnavailable)
}

// IsTimeoutError checks if an error is or wraps ErrTimeout
func IsTimeoutError(err error) bool {
	return err != nil && Is(err, ErrTimeout)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrapf(ErrNotFound, format, args...)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrapf(ErrInvalidRequest, format, args...)
}
