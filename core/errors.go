package core

import "github.com/pkg/errors"

// FieldError reports a validation failure on a single input field,
// keyed by the field's JSON name.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is returned by domain services when input fails cleaning
// or validation. The API layer renders Fields as a field-to-message map and
// falls back to Err's message when no fields are set.
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

// shutdown marks an integrity problem the process cannot serve through.
type shutdown struct {
	message string
}

// NewShutdownError wraps msg so the API stops gracefully once the
// in-flight response is written.
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err was produced by NewShutdownError.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
