package service

import (
	"context"
	"errors"
	"log/slog"

	"biblio/internal/patron/models"
	dErrors "biblio/pkg/domain-errors"
	"biblio/pkg/platform/sentinel"
)

// PatronStore is the persistence surface the patron service needs.
type PatronStore interface {
	Create(ctx context.Context, patron *models.Patron) error
	FindByID(ctx context.Context, libraryID string) (*models.Patron, error)
	Update(ctx context.Context, patron *models.Patron) error
	List(ctx context.Context) ([]*models.Patron, error)
}

// RegisterParams carries the fields a patron supplies at registration.
// Loan state and fines always start empty.
type RegisterParams struct {
	LibraryID string `json:"library_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// Service manages borrower records. Circulation touches only loan state and
// fines; registration and contact info are managed here.
type Service struct {
	patrons PatronStore
	logger  *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(patrons PatronStore, opts ...Option) *Service {
	s := &Service{patrons: patrons, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a patron with the default loan limit and empty loan state.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.Patron, error) {
	patron, err := models.NewPatron(params.LibraryID, params.Name)
	if err != nil {
		return nil, err
	}
	patron.Email = params.Email
	patron.Phone = params.Phone
	patron.Address = params.Address

	if err := s.patrons.Create(ctx, patron); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "patron %s already exists", params.LibraryID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create patron")
	}
	s.logger.InfoContext(ctx, "patron registered", "library_id", patron.LibraryID)
	return patron, nil
}

func (s *Service) Get(ctx context.Context, libraryID string) (*models.Patron, error) {
	patron, err := s.patrons.FindByID(ctx, libraryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "patron not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load patron")
	}
	return patron, nil
}

// UpdateContact changes contact fields only; loan state, fines, and limits
// are not reachable through this path.
func (s *Service) UpdateContact(ctx context.Context, libraryID string, update models.ContactUpdate) (*models.Patron, error) {
	patron, err := s.Get(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	patron.ApplyContactUpdate(update)
	if err := s.patrons.Update(ctx, patron); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update patron")
	}
	return patron, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Patron, error) {
	patrons, err := s.patrons.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list patrons")
	}
	return patrons, nil
}
