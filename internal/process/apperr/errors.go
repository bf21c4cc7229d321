// Package apperr defines the error kinds surfaced by the engine. Callers
// distinguish kinds with errors.Is so the presentation layer can map them to
// transport-level responses without parsing messages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind sentinels. Every error returned by the engine wraps exactly one of
// these.
var (
	// ErrValidation marks a malformed or incomplete definition, or a
	// violated domain precondition. Never auto-corrected.
	ErrValidation = errors.New("validation error")

	// ErrAuthorization marks a request whose actor lacks permission.
	ErrAuthorization = errors.New("authorization error")

	// ErrConflict marks a concurrent-mutation failure (lock timeout,
	// identifier collision after retry exhaustion). Retryable by the caller.
	ErrConflict = errors.New("conflict error")

	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStorage marks an unreachable persistent store. Not retried.
	ErrStorage = errors.New("storage unavailable")
)

// Error pairs a kind sentinel with a message.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Unwrap exposes the kind so errors.Is(err, apperr.ErrValidation) works.
func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Validation returns a validation-kind error.
func Validation(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

// Authorization returns an authorization-kind error.
func Authorization(format string, args ...any) error {
	return newError(ErrAuthorization, format, args...)
}

// Conflict returns a conflict-kind error.
func Conflict(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}

// NotFound returns a not-found-kind error.
func NotFound(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

// Storage wraps a store failure as a storage-kind error, preserving the
// cause in the message.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	return newError(ErrStorage, "storage failure: %v", err)
}
