package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// DecodeError means the uploaded buffer is not a readable workbook, or holds no data rows.
type DecodeError struct {
	Msg string
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}
func (e *DecodeError) Unwrap() error { return e.Err }

// MappingError means a decoded sheet could not be turned into records.
type MappingError struct {
	Msg string
	Err error
}

func (e *MappingError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}
func (e *MappingError) Unwrap() error { return e.Err }

// StoreWriteError wraps a failed insert. Rows is the number of rows in the failed write.
type StoreWriteError struct {
	Table string
	Rows  int
	Err   error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("insert %d row(s) into %s: %v", e.Rows, e.Table, e.Err)
}
func (e *StoreWriteError) Unwrap() error { return e.Err }

// StoreReadError wraps a failed query.
type StoreReadError struct {
	Query string
	Err   error
}

func (e *StoreReadError) Error() string { return fmt.Sprintf("query failed: %v", e.Err) }
func (e *StoreReadError) Unwrap() error { return e.Err }

// ValidationError is a malformed request parameter.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// NotFoundError is a lookup for an id that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrorRecordNotFound }

func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrorRecordNotFound)
}
