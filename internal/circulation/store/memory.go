package store

import (
	"context"
	"sync"

	"biblio/internal/circulation/models"
	"biblio/pkg/platform/sentinel"
)

// InMemory keeps loans in insertion order, which is the order query
// operations must preserve. A map indexes into the slice for id lookups.
type InMemory struct {
	mu    sync.RWMutex
	loans []*models.Loan
	byID  map[string]int
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[string]int)}
}

func (s *InMemory) Append(_ context.Context, loan *models.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[loan.ID]; ok {
		return sentinel.ErrConflict
	}
	s.byID[loan.ID] = len(s.loans)
	s.loans = append(s.loans, loan.Clone())
	return nil
}

func (s *InMemory) FindByID(_ context.Context, loanID string) (*models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.byID[loanID]; ok {
		return s.loans[idx].Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Update(_ context.Context, loan *models.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[loan.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.loans[idx] = loan.Clone()
	return nil
}

// ListByPatron returns the patron's loans, any status, in insertion order.
func (s *InMemory) ListByPatron(_ context.Context, libraryID string) ([]*models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Loan
	for _, loan := range s.loans {
		if loan.LibraryID == libraryID {
			out = append(out, loan.Clone())
		}
	}
	return out, nil
}

// ListAll returns every loan in insertion order.
func (s *InMemory) ListAll(_ context.Context) ([]*models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Loan, 0, len(s.loans))
	for _, loan := range s.loans {
		out = append(out, loan.Clone())
	}
	return out, nil
}

// Seed replaces the store contents with a loaded snapshot, keeping the
// snapshot's order.
func (s *InMemory) Seed(loans []*models.Loan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loans = s.loans[:0]
	s.byID = make(map[string]int, len(loans))
	for _, loan := range loans {
		if _, ok := s.byID[loan.ID]; ok {
			continue
		}
		s.byID[loan.ID] = len(s.loans)
		s.loans = append(s.loans, loan.Clone())
	}
}

// Dump returns a stable copy of the store contents for snapshotting.
func (s *InMemory) Dump() []*models.Loan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Loan, 0, len(s.loans))
	for _, loan := range s.loans {
		out = append(out, loan.Clone())
	}
	return out
}
