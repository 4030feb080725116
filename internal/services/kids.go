package services

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"linvo/storage"
)

// KidService manages kid profiles and the active kid.
type KidService struct {
	session *Session
	newID   func() string
}

// NewKidService creates a KidService. Kid ids are time-ordered UUIDs.
func NewKidService(session *Session) *KidService {
	return &KidService{session: session, newID: newKidID}
}

func newKidID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "kid-" + uuid.NewString()
	}
	return "kid-" + id.String()
}

// AddKid appends a profile named name and makes it current if no kid is
// current yet.
func (s *KidService) AddKid(ctx context.Context, name string) (*storage.KidProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	first, _ := utf8.DecodeRuneInString(name)

	var kid storage.KidProfile
	err := s.session.update(ctx, func(st *storage.AppState) error {
		id := s.newID()
		for st.FindKid(id) != nil {
			id = s.newID()
		}
		kid = storage.KidProfile{
			ID:      id,
			Name:    name,
			Initial: string(unicode.ToUpper(first)),
		}
		st.Kids = append(st.Kids, kid)
		if st.CurrentKidID == "" {
			st.CurrentKidID = kid.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.session.log.Infow("msg", "kid added", "kid", kid.ID, "name", kid.Name)
	return &kid, nil
}

// SelectKid makes kidID the current kid.
func (s *KidService) SelectKid(ctx context.Context, kidID string) (*storage.KidProfile, error) {
	var kid storage.KidProfile
	err := s.session.update(ctx, func(st *storage.AppState) error {
		k := st.FindKid(kidID)
		if k == nil {
			return ErrKidNotFound
		}
		kid = *k
		st.CurrentKidID = kid.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &kid, nil
}

// ListKids returns the profiles in display order.
func (s *KidService) ListKids() []storage.KidProfile {
	var kids []storage.KidProfile
	s.session.read(func(st *storage.AppState) {
		kids = append([]storage.KidProfile{}, st.Kids...)
	})
	return kids
}

// CurrentKid resolves the active kid, falling back to the first one. It
// returns nil only when there are no kids.
func (s *KidService) CurrentKid() *storage.KidProfile {
	var kid *storage.KidProfile
	s.session.read(func(st *storage.AppState) {
		if k := st.CurrentKid(); k != nil {
			c := *k
			kid = &c
		}
	})
	return kid
}
