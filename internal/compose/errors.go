package compose

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField      = errors.New("missing required field")
	ErrInvalidDateFormat = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidTimeFormat = errors.New("time must be in HH:MM format")
	ErrInvalidValue      = errors.New("invalid value")
	ErrInvalidRecurrence = errors.New("invalid recurrence rule")
)

// FieldError pins a composition failure to the input field that caused it.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func fieldErr(field, value string, err error) error {
	return &FieldError{Field: field, Value: value, Err: err}
}

// RowError is a composition failure for one row of a batch. Row is 1-based
// and counts data rows only (the header is not a row).
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e RowError) Unwrap() error { return e.Err }
