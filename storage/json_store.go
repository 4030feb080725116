package storage

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"
)

const lockTimeout = 5 * time.Second

// FileBackend keeps the document in a single JSON file.
//
// Writes within one process are serialized by mu, which also guards the
// lock handle; the file lock only arbitrates between processes.
type FileBackend struct {
	path string
	mu   sync.Mutex
	lock *FileLock
}

// NewFileBackend creates a backend writing to path. The file and its
// directory are created on the first write.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, lock: NewFileLock(path)}
}

// Path returns the document path.
func (b *FileBackend) Path() string { return b.path }

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "read", Backend: b.Name(), Err: err}
	}
	return data, nil
}

func (b *FileBackend) Write(ctx context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.lock.Lock(ctx, lockTimeout); err != nil {
		return err
	}
	defer b.lock.Unlock()

	w, err := newAtomicWriter(b.path)
	if err != nil {
		return &PersistenceError{Op: "write", Backend: b.Name(), Err: err}
	}
	if _, err := w.Write(data); err != nil {
		w.abort()
		return &PersistenceError{Op: "write", Backend: b.Name(), Err: err}
	}
	if err := w.commit(); err != nil {
		return &PersistenceError{Op: "write", Backend: b.Name(), Err: err}
	}
	return nil
}

func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lock.Unlock()
}
