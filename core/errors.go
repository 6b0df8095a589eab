package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports malformed input or configuration.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// ConflictError reports a write that would break a uniqueness invariant.
type ConflictError struct {
	Err error
}

func NewConflictError(err error) error {
	return &ConflictError{Err: err}
}

func (err ConflictError) Error() string { return err.Err.Error() }
func (err ConflictError) Unwrap() error { return err.Err }

func IsConflict(err error) bool {
	var cErr *ConflictError
	return errors.As(err, &cErr)
}

// DataAccessError reports an unreachable store or a failed query.
type DataAccessError struct {
	Op  string
	Err error
}

func NewDataAccessError(err error, op string) error {
	if err == nil {
		return nil
	}
	return &DataAccessError{Op: op, Err: err}
}

func (err DataAccessError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err DataAccessError) Unwrap() error { return err.Err }

func IsDataAccess(err error) bool {
	var daErr *DataAccessError
	return errors.As(err, &daErr)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	var sErr *shutdown
	return errors.As(err, &sErr)
}
