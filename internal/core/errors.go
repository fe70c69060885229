package core

import (
	"errors"
	"fmt"
)

// Rejection reasons reported to clients.
const (
	ReasonMissingField  = "MissingField"
	ReasonInvalidAmount = "InvalidAmount"
	ReasonInvalidDate   = "InvalidDate"
	ReasonStorage       = "StorageError"
)

var (
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrStorage       = errors.New("storage error")
	ErrNotFound      = errors.New("expense not found")
)

// ValidationError reports why a creation request was rejected.
type ValidationError struct {
	Field   string
	Message string
	err     error
}

func newValidationError(reason error, field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message, err: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason(), e.Message)
}

func (e *ValidationError) Unwrap() error { return e.err }

// Reason returns the machine-readable rejection code.
func (e *ValidationError) Reason() string {
	switch {
	case errors.Is(e.err, ErrMissingField):
		return ReasonMissingField
	case errors.Is(e.err, ErrInvalidAmount):
		return ReasonInvalidAmount
	case errors.Is(e.err, ErrInvalidDate):
		return ReasonInvalidDate
	default:
		return "ValidationError"
	}
}

// StorageError wraps a record store fault that is not a uniqueness collision.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError wraps err unless it already is a StorageError.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
