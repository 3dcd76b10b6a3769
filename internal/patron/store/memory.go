package store

import (
	"context"
	"sync"

	"biblio/internal/patron/models"
	"biblio/pkg/platform/sentinel"
)

// InMemory keeps patrons in a mutex-guarded map. Reads and writes copy
// records so callers never share state with the store.
type InMemory struct {
	mu      sync.RWMutex
	patrons map[string]*models.Patron
	order   []string
}

func NewInMemory() *InMemory {
	return &InMemory{patrons: make(map[string]*models.Patron)}
}

func (s *InMemory) Create(_ context.Context, patron *models.Patron) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patrons[patron.LibraryID]; ok {
		return sentinel.ErrConflict
	}
	s.patrons[patron.LibraryID] = patron.Clone()
	s.order = append(s.order, patron.LibraryID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, libraryID string) (*models.Patron, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if patron, ok := s.patrons[libraryID]; ok {
		return patron.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Update(_ context.Context, patron *models.Patron) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patrons[patron.LibraryID]; !ok {
		return sentinel.ErrNotFound
	}
	s.patrons[patron.LibraryID] = patron.Clone()
	return nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Patron, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Patron, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.patrons[id].Clone())
	}
	return out, nil
}

// Seed replaces the store contents with a loaded snapshot.
func (s *InMemory) Seed(patrons []*models.Patron) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patrons = make(map[string]*models.Patron, len(patrons))
	s.order = s.order[:0]
	for _, patron := range patrons {
		if _, ok := s.patrons[patron.LibraryID]; ok {
			continue
		}
		s.patrons[patron.LibraryID] = patron.Clone()
		s.order = append(s.order, patron.LibraryID)
	}
}

// Dump returns a stable copy of the store contents for snapshotting.
func (s *InMemory) Dump() []*models.Patron {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Patron, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.patrons[id].Clone())
	}
	return out
}
