package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a request-scoped fault carrying the HTTP status the transport
// should answer with and a structured detail: either a string token
// ("session_not_found") or a map keyed on the failure reason
// ({"invalid_answer": "q1", "exclusive": true}).
type Error struct {
	Status int
	Detail any
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("status %d: %v (%v)", e.Status, e.Detail, e.Err)
	}
	return fmt.Sprintf("status %d: %v", e.Status, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with the given status and detail.
func NewError(status int, detail any) *Error {
	return &Error{Status: status, Detail: detail}
}

// BadRequest creates a 400 error.
func BadRequest(detail any) *Error {
	return &Error{Status: http.StatusBadRequest, Detail: detail}
}

// NotFound creates a 404 error.
func NotFound(detail any) *Error {
	return &Error{Status: http.StatusNotFound, Detail: detail}
}

// Internal creates a 500 error.
func Internal(detail any) *Error {
	return &Error{Status: http.StatusInternalServerError, Detail: detail}
}

// AsError extracts an *Error from err, wrapping anything else as a 500 so
// the transport always has a status and a detail to render.
func AsError(err error) *Error {
	var reqErr *Error
	if errors.As(err, &reqErr) {
		return reqErr
	}
	return &Error{Status: http.StatusInternalServerError, Detail: err.Error(), Err: err}
}
