package core

import "github.com/pkg/errors"

// FieldError attaches a validation message to the offending input field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports rejected input, optionally broken down per field.
// The API layer renders it as a 400 response.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

// NewShutdownError marks a condition the server cannot recover from; the
// HTTP error handler turns it into a graceful process stop.
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err, at its cause, requests a graceful stop.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
