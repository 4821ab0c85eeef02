// Package apperr defines the error taxonomy shared by all HTTP handlers.
// Errors carry a kind that maps to an HTTP status; anything unrecognized
// is treated as internal.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping.
type Kind int

const (
	// Validation means the request carried missing or invalid fields. Never mutates.
	Validation Kind = iota + 1
	// NotFound means an unknown position or account id.
	NotFound
	// AdmissionRejected means a sync guard refused the incoming snapshot.
	AdmissionRejected
	// Upstream means the external parser is unreachable or misconfigured.
	Upstream
	// Internal is any unexpected failure.
	Internal
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a Validation error.
func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: Validation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf(format, args...)}
}

// Admission builds an AdmissionRejected error carrying the guard's reason
// verbatim so the caller can decide whether to override via the
// non-guarded path.
func Admission(reason string) *Error {
	return &Error{Kind: AdmissionRejected, Message: reason}
}

// Upstreamf builds an Upstream error.
func Upstreamf(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: Upstream, Message: fmt.Sprintf(format, args...), Err: err}
}

// Internalf builds an Internal error.
func Internalf(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: Internal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind of an error; unclassified errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case AdmissionRejected:
		return http.StatusConflict
	case Upstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message for an error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
