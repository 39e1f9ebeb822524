package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// Common error types for the meeting service client
var (
	// Configuration errors
	ErrUnknownService  = stderrors.New("unknown service")
	ErrUnknownEndpoint = stderrors.New("unknown endpoint")
	ErrInvalidSegment  = stderrors.New("invalid path segment")

	// Transport errors
	ErrNetwork = stderrors.New("network error")
	ErrTimeout = fmt.Errorf("request timed out: %w", ErrNetwork)

	// Session errors
	ErrUnauthenticated = stderrors.New("unauthenticated")
	ErrSessionExpired  = stderrors.New("session expired")

	// Response errors
	ErrNotFound        = stderrors.New("not found")
	ErrInvalidResponse = stderrors.New("invalid response")
)

// ResponseError is a non-2xx reply from one of the backend services.
type ResponseError struct {
	Service string
	Status  int
	Message string
	Body    []byte

	// AuthRejection is set by the transport when Status is in the configured
	// authentication rejection set.
	AuthRejection bool
}

func (e *ResponseError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s: %d %s", e.Service, e.Status, msg)
}

// Is lets errors.Is match ResponseError against the sentinel errors.
func (e *ResponseError) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.AuthRejection
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// New returns a plain sentinel error
func New(message string) error {
	return stderrors.New(message)
}

// Wrap annotates err with a stack trace and message
func Wrap(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

// Wrapf wraps an error with context and a stack trace
func Wrapf(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrapf(err, format, args...)
}

// WithStack annotates err with a stack trace at the call site
func WithStack(err error) error {
	return pkgerrors.WithStack(err)
}

// Errorf formats a new error with a stack trace
func Errorf(format string, args ...interface{}) error {
	return pkgerrors.Errorf(format, args...)
}

// Mark returns an error that matches both sentinel and cause with errors.Is.
func Mark(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return pkgerrors.WithStack(&marked{sentinel: sentinel, cause: cause})
}

type marked struct {
	sentinel error
	cause    error
}

func (m *marked) Error() string   { return m.sentinel.Error() + ": " + m.cause.Error() }
func (m *marked) Unwrap() []error { return []error{m.sentinel, m.cause} }

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// AsResponse returns the ResponseError in err's chain, if any.
func AsResponse(err error) (*ResponseError, bool) {
	var re *ResponseError
	if stderrors.As(err, &re) {
		return re, true
	}
	return nil, false
}
