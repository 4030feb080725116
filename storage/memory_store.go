package storage

import (
	"context"
	"sync"
)

// MemoryBackend keeps the document in memory. It backs tests and the
// "memory" backend setting.
type MemoryBackend struct {
	mu       sync.Mutex
	data     []byte
	writes   int
	writeErr error
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// NewMemoryBackendWith returns a backend pre-loaded with data.
func NewMemoryBackendWith(data []byte) *MemoryBackend {
	return &MemoryBackend{data: append([]byte(nil), data...)}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Read(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b.data...), nil
}

func (b *MemoryBackend) Write(ctx context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return &PersistenceError{Op: "write", Backend: b.Name(), Err: b.writeErr}
	}
	b.data = append([]byte(nil), data...)
	b.writes++
	return nil
}

// FailWrites makes every following Write fail with err. Pass nil to recover.
func (b *MemoryBackend) FailWrites(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeErr = err
}

// Writes returns the number of successful writes.
func (b *MemoryBackend) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

// Bytes returns a copy of the stored document.
func (b *MemoryBackend) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.data...)
}

func (b *MemoryBackend) Close() error { return nil }
