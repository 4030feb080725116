// Package services implements the operations behind the kid and parent
// views: kid profiles, viewing settings, channel import and playback
// history. All services share one Session, the in-memory document handle.
package services

import (
	"context"
	"sync"

	"github.com/go-kratos/kratos/v2/log"

	"linvo/storage"
)

// Session holds the state document for the lifetime of the process and
// persists it after every mutation.
//
// The mutex covers one in-memory mutation plus its save. It is never held
// while the catalog is queried, so two imports may interleave between
// their steps.
type Session struct {
	mu      sync.Mutex
	state   *storage.AppState
	store   *storage.Store
	metrics *metrics
	log     *log.Helper
}

// NewSession loads the document from store. Loading never fails: a missing
// or malformed document yields the seeded default.
func NewSession(ctx context.Context, store *storage.Store, logger log.Logger) *Session {
	return &Session{
		state:   store.Load(ctx),
		store:   store,
		metrics: newMetrics(),
		log:     log.NewHelper(log.With(logger, "module", "services")),
	}
}

// Snapshot returns a deep copy of the current document.
func (s *Session) Snapshot() *storage.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// read runs fn against the live document under the lock. fn must not
// retain or modify st.
func (s *Session) read(fn func(st *storage.AppState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// update applies fn to a copy of the document. If fn fails, or the result
// breaks the document's structural rules, the document is left untouched;
// otherwise the copy replaces it and is saved. A failed save is logged by
// the store and otherwise ignored.
func (s *Session) update(ctx context.Context, fn func(st *storage.AppState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := storage.Validate(next); err != nil {
		s.log.Errorw("msg", "refusing invalid document", "err", err)
		return err
	}
	s.state = next
	s.persistLocked(ctx)
	return nil
}

// persist saves the document without changing it.
func (s *Session) persist(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked(ctx)
}

func (s *Session) persistLocked(ctx context.Context) {
	if err := s.store.Save(ctx, s.state); err != nil {
		s.metrics.recordPersistFailure(ctx)
	}
}
