// Package apperrors provides chained application errors. An Error can be
// derived from another one to form a hierarchy of sentinels, can wrap any
// number of underlying errors, and carries an optional status code used when
// the error originates from an HTTP exchange.
package apperrors

// Error is the interface implemented by application errors. Every method
// returns a new Error; the receiver is never mutated.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // derives a new sentinel from the current error
	Msg(msg string) Error                  // replaces the message, keeps identity of the current error
	MsgErr(msg string, err ...error) Error // like Msg, also wrapping errs
	Err(err ...error) Error                // keeps the message, wraps errs
	SetStatusCode(int) Error               // attaches a status code
	StatusCode() int                       // returns the status code, 0 if unset
	Suffix(string) Error                   // appends ": s" to the message, keeps identity
	ErrorAll() string                      // message followed by every wrapped error
	UnwrapAll() []error                    // wrapped errors in the order they were added
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field  string
	Value  any
	ErrStr string
}

func (fe FieldError) Error() string {
	if fe.Field == "" {
		return fe.ErrStr
	}
	return fe.Field + ": " + fe.ErrStr
}

// FieldErrors collects the errors found while validating one value.
type FieldErrors []FieldError

func (fes FieldErrors) Error() string {
	msg := ""
	for i, fe := range fes {
		if i > 0 {
			msg += "; "
		}
		msg += fe.Error()
	}
	return msg
}
