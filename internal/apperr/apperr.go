// Package apperr defines the error taxonomy shared by services and handlers.
// Services return *Error values; handlers map the Kind to an HTTP status.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	// KindValidation marks malformed or missing input (HTTP 400).
	KindValidation Kind = iota + 1
	// KindNotFound marks a missing order/payment/serial/promo (HTTP 404).
	KindNotFound
	// KindConflict marks a state conflict: serial already consumed, promo
	// limits exceeded, below minimum order amount (HTTP 409).
	KindConflict
	// KindAuthorization marks insufficient role (HTTP 403, generic body).
	KindAuthorization
	// KindStorage marks a persistence failure (HTTP 500, generic body).
	KindStorage
)

// Error is a classified domain error with a human-readable reason.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Msg: msg} }

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Msg: msg} }

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Msg: msg} }

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Forbidden() *Error { return &Error{Kind: KindAuthorization, Msg: "forbidden"} }

// Storage wraps a persistence failure. The wrapped error is logged server-side;
// clients only ever see a generic message.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Msg: op, Err: err}
}

// KindOf returns the Kind of err, or 0 when err carries no *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }
