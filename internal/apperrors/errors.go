// Package apperrors defines the error taxonomy shared across the
// analysis pipeline, the model router and the retrieval layer so that
// callers can classify a failure without depending on its origin.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindNotFound           Kind = "not_found"
	KindTransient          Kind = "transient"
	KindTimeout            Kind = "timeout"
	KindServiceUnavailable Kind = "service_unavailable"
	KindIntegrity          Kind = "integrity"
	KindFatal              Kind = "fatal"
)

// Error wraps an underlying error with a Kind and the operation that
// produced it, following the same Op/Err shape as the stdlib's own
// fs.PathError.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for the given operation and kind.
func New(op string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to KindFatal when err
// isn't an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}

// Retryable reports whether an error of this kind is worth retrying.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindTimeout, KindServiceUnavailable:
		return true
	default:
		return false
	}
}
