package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a record with the same key already exists.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a CHECK or NOT NULL constraint fails.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced record is missing.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrBusy is returned when the store could not obtain a lock in time.
	ErrBusy = errors.New("persistence: store busy")
)

// StorageError wraps a storage failure the application does not interpret.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op == "" {
		return fmt.Sprintf("persistence: %v", e.Err)
	}
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying driver error.
func (e *StorageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WrapStorage wraps err in a StorageError unless it already carries a persistence sentinel.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrNotFound, ErrDuplicate, ErrConstraintViolation, ErrForeignKeyViolation, ErrBusy} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	var sErr *StorageError
	if errors.As(err, &sErr) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
