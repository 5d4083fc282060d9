package event

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every decoding failure
var ErrMalformed = errors.New("malformed notification")

// MissingFieldError reports a notification that lacks a field the worker relies on
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrMalformed, e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMalformed
}
