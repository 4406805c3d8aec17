// Package apperr holds the error taxonomy shared by the storage engines,
// the services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrConflict        = errors.New("conflict")
	ErrUnavailable     = errors.New("storage unavailable")
)

// Error carries a kind (one of the sentinels above), a message that is safe
// to show to API clients and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) error  { return newf(ErrInvalidInput, format, args...) }
func NotFound(format string, args ...any) error { return newf(ErrNotFound, format, args...) }
func Forbidden(format string, args ...any) error {
	return newf(ErrForbidden, format, args...)
}
func Unauthenticated(format string, args ...any) error {
	return newf(ErrUnauthenticated, format, args...)
}
func Conflict(format string, args ...any) error { return newf(ErrConflict, format, args...) }

// Unavailable wraps an infrastructure failure so the cause stays in the chain.
func Unavailable(cause error, format string, args ...any) error {
	return &Error{Kind: ErrUnavailable, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Code returns the machine-checkable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnavailable):
		return "storage_unavailable"
	default:
		return "internal"
	}
}

// Message returns the client-facing message of err. Unclassified errors get a
// generic text so driver details never leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	switch Code(err) {
	case "internal", "":
		return "internal server error"
	case "storage_unavailable":
		return "storage temporarily unavailable"
	default:
		for _, kind := range []error{ErrInvalidInput, ErrNotFound, ErrForbidden, ErrUnauthenticated, ErrConflict} {
			if errors.Is(err, kind) {
				return kind.Error()
			}
		}
		return err.Error()
	}
}
