package store

import (
	"errors"
	"fmt"
)

// Sentinel errors carried inside PersistenceError. Match them with errors.Is.
var (
	// ErrNotFound indicates the record to update does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a uniqueness constraint rejected the write.
	ErrConflict = errors.New("uniqueness constraint violated")
	// ErrInvalidTransition indicates an update would move an upload's status backwards.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// PersistenceError is a storage collaborator failure. It is always surfaced and never retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Wrap returns err as a PersistenceError for op, leaving existing PersistenceErrors untouched.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
