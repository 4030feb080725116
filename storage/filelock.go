package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// FileLock is an advisory cross-process lock held only for the duration of
// a single write. It does not merge concurrent writers: the last save wins.
// A FileLock is not safe for concurrent use; one holder at a time.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a lock guarding path. The lock file lives at path + ".lock".
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path + ".lock"}
}

// Lock acquires the lock, polling until timeout elapses or ctx is done.
// The lock file's directory is created when missing.
// Returns ErrLockTimeout when the lock stays held by someone else.
func (l *FileLock) Lock(ctx context.Context, timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return &PersistenceError{Op: "lock", Backend: "file", Err: err}
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return &PersistenceError{Op: "lock", Backend: "file", Err: err}
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := tryLock(f); err == nil {
			l.file = f
			return nil
		}
		if time.Now().After(deadline) {
			f.Close()
			return &PersistenceError{Op: "lock", Backend: "file", Err: ErrLockTimeout}
		}
		select {
		case <-ctx.Done():
			f.Close()
			return &PersistenceError{Op: "lock", Backend: "file", Err: ctx.Err()}
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Unlock releases the lock. It is a no-op when the lock is not held.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	err := unlock(l.file)
	l.file.Close()
	l.file = nil
	return err
}
