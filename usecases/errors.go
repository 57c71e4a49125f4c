package usecases

import (
	"errors"
	"fmt"

	"projector-server/repositories"
)

// Kind classifies a domain error.
type Kind string

const (
	NotFound        Kind = "NOT_FOUND"
	InvalidArgument Kind = "INVALID_ARGUMENT"
	InvalidState    Kind = "INVALID_STATE"
	Conflict        Kind = "CONFLICT"
)

// Numeric error ids reported to clients.
const (
	CodeNotFound            = 494
	CodeUnknownResponseCode = 404
	CodeInvalidState        = 499
	CodeInvalidArgument     = 505
	CodeConflict            = 409
)

// Error is the error type returned by every use case for expected failures.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, code int, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func notFound(format string, args ...any) *Error {
	return newError(NotFound, CodeNotFound, nil, format, args...)
}

func invalidArgument(format string, args ...any) *Error {
	return newError(InvalidArgument, CodeInvalidArgument, nil, format, args...)
}

func invalidState(format string, args ...any) *Error {
	return newError(InvalidState, CodeInvalidState, nil, format, args...)
}

func conflict(cause error, format string, args ...any) *Error {
	return newError(Conflict, CodeConflict, cause, format, args...)
}

// AsError extracts the domain error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is a domain error of kind k.
func IsKind(err error, k Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == k
}

// lookup turns a repository miss into a NotFound error and passes every
// other error through unchanged.
func lookup(err error, format string, args ...any) error {
	if errors.Is(err, repositories.ErrNotFound) {
		e := notFound(format, args...)
		e.Cause = err
		return e
	}
	return err
}

// stored translates write errors of the storage layer.
func stored(err error, format string, args ...any) error {
	if errors.Is(err, repositories.ErrDuplicate) {
		return conflict(err, format, args...)
	}
	return err
}

// InvalidArgumentf builds an InvalidArgument error for input rejected
// before it reaches a use case, such as a malformed request body.
func InvalidArgumentf(format string, args ...any) *Error {
	return invalidArgument(format, args...)
}
