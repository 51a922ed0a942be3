package schema

import (
	"errors"
	"fmt"
)

// ValidationError is a rejected input value. Message is written for the
// person who typed the value and is surfaced verbatim.
type ValidationError struct {
	Variable string
	Message  string
	Err      error // underlying decode error, if any
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(variable, format string, args ...any) *ValidationError {
	return &ValidationError{Variable: variable, Message: fmt.Sprintf(format, args...)}
}

func missing(variable string) *ValidationError {
	return &ValidationError{Variable: variable, Message: fmt.Sprintf("Please enter the %s.", variable)}
}
