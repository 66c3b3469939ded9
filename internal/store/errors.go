package store

import (
	"errors"
	"fmt"
)

// ErrDuplicateKey is returned by a Persistence implementation when an insert
// hits a uniqueness conflict on the record's idempotency key. Add absorbs it
// as a successful no-op.
var ErrDuplicateKey = errors.New("duplicate idempotency key")

// ValidationError means the caller supplied insufficient input. It is always
// returned before any remote call, with no local state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError means the remote call for an add/update/bulk operation
// failed. For add, no local state was changed; for update and bulk status
// changes, the local copies were rolled back before this was returned.
type PersistenceError struct {
	Store string
	Op    string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Store, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
