package store

import (
	"context"
	"sync"

	"biblio/internal/catalog/models"
	"biblio/pkg/platform/sentinel"
)

// InMemory keeps the catalog in a mutex-guarded map. Reads and writes copy
// records so callers never share state with the store.
type InMemory struct {
	mu    sync.RWMutex
	items map[string]*models.Item
	order []string
}

func NewInMemory() *InMemory {
	return &InMemory{items: make(map[string]*models.Item)}
}

func (s *InMemory) Create(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ISBN]; ok {
		return sentinel.ErrConflict
	}
	s.items[item.ISBN] = item.Clone()
	s.order = append(s.order, item.ISBN)
	return nil
}

func (s *InMemory) FindByISBN(_ context.Context, isbn string) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if item, ok := s.items[isbn]; ok {
		return item.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Update(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ISBN]; !ok {
		return sentinel.ErrNotFound
	}
	s.items[item.ISBN] = item.Clone()
	return nil
}

// List returns all items in insertion order, including inactive ones;
// callers filter on Active as needed.
func (s *InMemory) List(_ context.Context) ([]*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Item, 0, len(s.order))
	for _, isbn := range s.order {
		out = append(out, s.items[isbn].Clone())
	}
	return out, nil
}

// Seed replaces the store contents with a loaded snapshot.
func (s *InMemory) Seed(items []*models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*models.Item, len(items))
	s.order = s.order[:0]
	for _, item := range items {
		if _, ok := s.items[item.ISBN]; ok {
			continue
		}
		s.items[item.ISBN] = item.Clone()
		s.order = append(s.order, item.ISBN)
	}
}

// Dump returns a stable copy of the store contents for snapshotting.
func (s *InMemory) Dump() []*models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Item, 0, len(s.order))
	for _, isbn := range s.order {
		out = append(out, s.items[isbn].Clone())
	}
	return out
}
