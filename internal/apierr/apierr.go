package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced by the engine. Callers translate Status to their own
// transport; nothing in this package depends on an HTTP stack.
const (
	CodeNotFound    = "not_found"
	CodeValidation  = "validation"
	CodeUnavailable = "capability_unavailable"
	CodeInternal    = "internal"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func Validation(format string, args ...interface{}) *Error {
	return New(http.StatusUnprocessableEntity, CodeValidation, fmt.Errorf(format, args...))
}

func Unavailable(format string, args ...interface{}) *Error {
	return New(http.StatusServiceUnavailable, CodeUnavailable, fmt.Errorf(format, args...))
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
}

func IsNotFound(err error) bool    { return hasCode(err, CodeNotFound) }
func IsValidation(err error) bool  { return hasCode(err, CodeValidation) }
func IsUnavailable(err error) bool { return hasCode(err, CodeUnavailable) }

func hasCode(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
