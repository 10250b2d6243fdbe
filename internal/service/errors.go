package service

import (
	"errors"
	"fmt"
)

// Domain Errors
var (
	ErrCourseNotFound   = errors.New("course not found")
	ErrAliasNotFound    = errors.New("alias not found")
	ErrInvalidAlias     = errors.New("alias source code is empty")
	ErrInvalidGroup     = errors.New("cross-list group needs an id and at least one member")
	ErrEmptyQuery       = errors.New("search query is blank")
	ErrStoreUnavailable = errors.New("backing store unavailable")
)

// StoreError wraps a failure of the backing store. It matches
// ErrStoreUnavailable with errors.Is and unwraps to the driver error.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

func storeError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
