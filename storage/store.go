package storage

import (
	"context"
	"errors"

	"github.com/go-kratos/kratos/v2/log"
)

// Store loads and saves the state document through a Backend.
//
// Neither Load nor Save fails its caller: a missing or malformed document
// degrades to DefaultState, and a failed write is logged while the
// in-memory state stays authoritative for the rest of the session.
type Store struct {
	backend Backend
	log     *log.Helper
}

// NewStore creates a store on top of the given backend.
func NewStore(backend Backend, logger log.Logger) *Store {
	return &Store{
		backend: backend,
		log:     log.NewHelper(log.With(logger, "module", "storage")),
	}
}

// Load returns the persisted document, or a freshly seeded default when
// none exists or it cannot be decoded.
func (s *Store) Load(ctx context.Context) *AppState {
	data, err := s.backend.Read(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.Infow("msg", "no saved state, seeding default", "backend", s.backend.Name())
		} else {
			s.log.Warnw("msg", "failed to read saved state", "backend", s.backend.Name(), "err", err)
		}
		return DefaultState()
	}

	st, err := Decode(data)
	if err != nil {
		s.log.Warnw("msg", "discarding malformed saved state", "backend", s.backend.Name(), "err", err)
		return DefaultState()
	}
	return st
}

// Save serializes and persists the full document.
//
// The returned error is informational: it has already been logged, and no
// retry is attempted. Callers keep working with their in-memory state.
func (s *Store) Save(ctx context.Context, st *AppState) error {
	data, err := Encode(st)
	if err != nil {
		err = &PersistenceError{Op: "encode", Backend: s.backend.Name(), Err: err}
		s.log.Warnw("msg", "failed to save state", "err", err)
		return err
	}
	if err := s.backend.Write(ctx, data); err != nil {
		var perr *PersistenceError
		if !errors.As(err, &perr) {
			err = &PersistenceError{Op: "write", Backend: s.backend.Name(), Err: err}
		}
		s.log.Warnw("msg", "failed to save state", "err", err)
		return err
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
