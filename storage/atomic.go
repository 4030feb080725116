package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// atomicWriter writes to a temp file in the target's directory and renames
// it over the target on commit, so readers never see a half-written document.
type atomicWriter struct {
	path    string
	tmpPath string
	file    *os.File
}

func newAtomicWriter(path string) (*atomicWriter, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".linvo-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &atomicWriter{path: path, tmpPath: tmp.Name(), file: tmp}, nil
}

func (w *atomicWriter) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

// commit syncs the temp file and renames it over the target.
func (w *atomicWriter) commit() error {
	if err := w.file.Sync(); err != nil {
		w.abort()
		return fmt.Errorf("sync: %w", err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (w *atomicWriter) abort() {
	w.file.Close()
	os.Remove(w.tmpPath)
}
