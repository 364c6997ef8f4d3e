package models

import (
	"errors"
	"fmt"
)

// ValidationError signals rejected input: bad shape, failed constraint,
// unsupported file type, oversized payload. It is surfaced to the caller
// with its message and never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with a formatted message
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
