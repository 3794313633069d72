package apperrors

import (
	"errors"
	"strings"
)

type appError struct {
	msg        string
	base       error     // parent sentinel
	origin     *appError // identity kept across Suffix copies
	wrapped    []error
	statuscode int
	suffix     string
}

func (e *appError) Error() string {
	if e.suffix != "" {
		return e.msg + ": " + e.suffix
	}
	return e.msg
}

func (e *appError) ErrorAll() string {
	var b strings.Builder
	b.WriteString(e.Error())
	for _, err := range e.wrapped {
		if err == error(e.base) {
			continue
		}
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *appError) Unwrap() error {
	return e.base
}

func (e *appError) UnwrapAll() []error {
	return e.wrapped
}

func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		statuscode: e.statuscode,
	}
}

func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		wrapped:    append([]error{e}, e.wrapped...),
		statuscode: e.statuscode,
	}
}

func (e *appError) MsgErr(msg string, errs ...error) Error {
	return &appError{
		msg:        msg,
		base:       e,
		wrapped:    append([]error{e}, errs...),
		statuscode: e.statuscode,
	}
}

func (e *appError) Err(errs ...error) Error {
	return &appError{
		msg:        e.msg,
		base:       e,
		wrapped:    append([]error{e}, errs...),
		statuscode: e.statuscode,
	}
}

func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.origin = e.identity()
	cp.statuscode = code
	return &cp
}

func (e *appError) StatusCode() int {
	return e.statuscode
}

func (e *appError) Suffix(s string) Error {
	cp := *e
	cp.origin = e.identity()
	cp.suffix = s
	return &cp
}

func (e *appError) identity() *appError {
	if e.origin != nil {
		return e.origin
	}
	return e
}

// Is matches target against the identity of e, its parent sentinels and
// every wrapped error.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*appError); ok && t.identity() == e.identity() {
		return true
	}
	if e.base != nil && errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.wrapped {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// As lets errors.As find typed errors among the wrapped ones.
func (e *appError) As(target any) bool {
	for _, err := range e.wrapped {
		if err == error(e) {
			continue
		}
		if errors.As(err, target) {
			return true
		}
	}
	return false
}

// New creates a root sentinel error.
func New(msg string) Error {
	return &appError{msg: msg}
}
