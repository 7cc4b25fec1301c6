// Package errors declares the error taxonomy shared by every lstore
// component, following the teacher's per-package errors.go convention
// (sentinel vars plus a wrapping struct with Op/Err and Is-predicates)
// but centralized here because the kinds in spec.md §7 cross package
// boundaries (e.g. NoSuchKey is raised by table, checked by query).
package errors

import "errors"

var (
	// ErrNotOpen is returned by Database operations when the database
	// is not in the open state.
	ErrNotOpen = errors.New("database is not open")

	// ErrDuplicateTable / ErrNoSuchTable: table name collisions or absence.
	ErrDuplicateTable = errors.New("duplicate table")
	ErrNoSuchTable    = errors.New("no such table")

	// ErrDuplicateKey / ErrNoSuchKey: key-column violations.
	ErrDuplicateKey = errors.New("duplicate key")
	ErrNoSuchKey    = errors.New("no such key")

	// ErrPoolExhausted / ErrNoEvictable: every buffer-pool page is pinned.
	ErrPoolExhausted = errors.New("buffer pool exhausted")
	ErrNoEvictable   = errors.New("no evictable page in buffer pool")

	// ErrCapacityExceeded marks a non-fatal page/page-range capacity limit.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrLockConflict is returned by a non-blocking lock request that was denied.
	ErrLockConflict = errors.New("lock conflict")

	// ErrCorruption marks a persisted file that failed to parse.
	ErrCorruption = errors.New("corrupted page or metadata file")
)

// Error wraps a sentinel with the operation that produced it, the way
// buffer_pool.BufferPoolError does in the teacher tree.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": <nil>"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap builds an *Error tagging err with the operation name op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

func Is(err, target error) bool { return errors.Is(err, target) }

func IsNotOpen(err error) bool          { return errors.Is(err, ErrNotOpen) }
func IsDuplicateTable(err error) bool   { return errors.Is(err, ErrDuplicateTable) }
func IsNoSuchTable(err error) bool      { return errors.Is(err, ErrNoSuchTable) }
func IsDuplicateKey(err error) bool     { return errors.Is(err, ErrDuplicateKey) }
func IsNoSuchKey(err error) bool        { return errors.Is(err, ErrNoSuchKey) }
func IsPoolExhausted(err error) bool    { return errors.Is(err, ErrPoolExhausted) }
func IsNoEvictable(err error) bool      { return errors.Is(err, ErrNoEvictable) }
func IsCapacityExceeded(err error) bool { return errors.Is(err, ErrCapacityExceeded) }
func IsLockConflict(err error) bool     { return errors.Is(err, ErrLockConflict) }
func IsCorruption(err error) bool       { return errors.Is(err, ErrCorruption) }
