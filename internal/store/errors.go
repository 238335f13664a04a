package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation targets a missing record.
var ErrNotFound = errors.New("record not found")

// ValidationError reports a required field missing or out of range. The
// mutation it rejects leaves the store untouched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Message)
}

// StorageError wraps a failure serializing the data image to disk.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
