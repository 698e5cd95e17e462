package response

import (
	"errors"
	"fmt"
)

type Error struct {
	Code   int
	Err    error
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

// Is matches on code and base message; Detail is ignored.
func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{Code: code, Err: errors.New(err)}
}

// WithDetail copies base and attaches a formatted detail message to it.
// If base is not an *Error the detail is wrapped around it instead.
func WithDetail(base error, format string, args ...interface{}) error {
	detail := fmt.Sprintf(format, args...)

	var e *Error
	if !errors.As(base, &e) {
		return fmt.Errorf("%w: %s", base, detail)
	}

	return &Error{Code: e.Code, Err: e.Err, Detail: detail}
}

// StatusCode returns the HTTP status carried by err, or fallback.
func StatusCode(err error, fallback int) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return fallback
}
