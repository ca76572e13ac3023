package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies service failures so handlers can map them to an
// HTTP status without inspecting message text.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindBadPayload
	KindNotFound
	KindForbidden
	KindNotVerified
	KindConflict
)

type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func badPayload(format string, args ...interface{}) *Error {
	return &Error{Kind: KindBadPayload, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func notVerified(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotVerified, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf returns the kind of a service error, or KindInternal for
// anything else (store failures included).
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// HTTPStatus maps a service error to the status code handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindBadPayload:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden, KindNotVerified:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
