// Package apperr carries an HTTP status alongside an error message so
// services can decide the response code and handlers only need to render it.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Error is a client-facing failure. Message is safe to show to callers;
// Err, when set, is the underlying cause and is only logged.
type Error struct {
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on status and message so sentinel *Error values work with
// errors.Is even after wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Status == t.Status && e.Message == t.Message
}

// New builds an *Error with a formatted message.
func New(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause that is logged but never rendered.
func Wrap(status int, err error, message string) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

func BadRequest(format string, args ...any) *Error {
	return New(http.StatusBadRequest, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(http.StatusForbidden, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(http.StatusConflict, format, args...)
}

// Validation reports per-field failures. Message is the first field's
// message so clients that only read "error" still get something useful.
func Validation(fields map[string]string) *Error {
	msg := "validation failed"
	for _, k := range sortedKeys(fields) {
		msg = fields[k]
		break
	}
	return &Error{Status: http.StatusBadRequest, Message: msg, Fields: fields}
}

// Internal hides err behind a generic message.
func Internal(err error) *Error {
	return Wrap(http.StatusInternalServerError, err, "internal server error")
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// StatusOf returns the HTTP status for err: the carried status, or 500.
func StatusOf(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// From normalises any error into an *Error; unknown errors become Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	return Internal(err)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
