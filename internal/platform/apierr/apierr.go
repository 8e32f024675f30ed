package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an error with the HTTP status and machine-readable code the API
// responds with.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	case e.Status != 0:
		if text := http.StatusText(e.Status); text != "" {
			return text
		}
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Newf builds an Error whose message is formatted from args.
func Newf(status int, code, format string, args ...any) *Error {
	return New(status, code, fmt.Errorf(format, args...))
}

func BadRequest(code, format string, args ...any) *Error {
	return Newf(http.StatusBadRequest, code, format, args...)
}

// From returns the Error carried by err, or one with the fallback code and a
// 500 status when err carries none. A nil err gives nil.
func From(err error, fallbackCode string) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, fallbackCode, err)
}
