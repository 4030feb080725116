// Package storage persists the linvo state document.
//
// The whole application state lives in one JSON document (see AppState). A
// Store loads it once per session and overwrites it wholesale after every
// mutation. Where the bytes end up is decided by a Backend: a JSON file, a
// SQLite key/value table or plain memory.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// DefaultKey is the key the document is stored under.
const DefaultKey = "linvo_state_v1"

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates no document has been persisted yet.
	ErrNotFound = errors.New("storage: not found")
	// ErrStorageCorrupt indicates the persisted document failed validation.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrInvalidDocument indicates an in-memory document that fails the
	// structural rules and must not be written.
	ErrInvalidDocument = errors.New("storage: invalid document")
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
	// ErrPersistence indicates the document could not be written.
	ErrPersistence = errors.New("storage: persistence failed")
)

// PersistenceError wraps backend failures with operation context.
// Use errors.As() to extract it:
//
//	var perr *storage.PersistenceError
//	if errors.As(err, &perr) {
//		fmt.Printf("%s via %s failed: %v\n", perr.Op, perr.Backend, perr.Err)
//	}
type PersistenceError struct {
	// Op is the operation that failed ("read", "write", "encode", "lock").
	Op string
	// Backend names the backend ("file", "sqlite", "memory").
	Backend string
	// Err is the underlying error.
	Err error
}

// Error returns a string representation of the persistence error.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage: %s via %s: %v", e.Op, e.Backend, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *PersistenceError) Unwrap() error { return e.Err }

// Is reports ErrPersistence for every PersistenceError.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Backend reads and writes the raw serialized document.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Read returns the persisted bytes, or ErrNotFound when nothing was saved yet.
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the persisted bytes.
	Write(ctx context.Context, data []byte) error
	// Name identifies the backend in logs and errors.
	Name() string
	// Close releases any resources held by the backend.
	Close() error
}
