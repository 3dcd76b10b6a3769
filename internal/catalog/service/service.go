package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"biblio/internal/catalog/models"
	dErrors "biblio/pkg/domain-errors"
	"biblio/pkg/platform/sentinel"
)

// ItemStore is the persistence surface the catalog service needs.
type ItemStore interface {
	Create(ctx context.Context, item *models.Item) error
	FindByISBN(ctx context.Context, isbn string) (*models.Item, error)
	Update(ctx context.Context, item *models.Item) error
	List(ctx context.Context) ([]*models.Item, error)
}

// Service manages catalog entries. Circulation touches only copy counts;
// everything else about an item is managed here.
type Service struct {
	items  ItemStore
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(items ItemStore, opts ...Option) *Service {
	s := &Service{items: items, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddItem registers a new item. A new item starts with all owned copies
// available.
func (s *Service) AddItem(ctx context.Context, isbn, title string, authors []string, genre string, year, copiesOwned int) (*models.Item, error) {
	item, err := models.NewItem(isbn, title, authors, genre, year, copiesOwned)
	if err != nil {
		return nil, err
	}
	if err := s.items.Create(ctx, item); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "item %s already exists", isbn)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create item")
	}
	s.logger.InfoContext(ctx, "item added", "isbn", item.ISBN, "copies_owned", item.CopiesOwned)
	return item, nil
}

func (s *Service) GetItem(ctx context.Context, isbn string) (*models.Item, error) {
	item, err := s.items.FindByISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "item not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load item")
	}
	return item, nil
}

// UpdateItem applies a partial update to descriptive fields or copy counts.
func (s *Service) UpdateItem(ctx context.Context, isbn string, update models.ItemUpdate) (*models.Item, error) {
	item, err := s.GetItem(ctx, isbn)
	if err != nil {
		return nil, err
	}
	if err := item.ApplyUpdate(update); err != nil {
		return nil, err
	}
	if err := s.items.Update(ctx, item); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update item")
	}
	return item, nil
}

// RemoveItem soft-deletes an item: it stops matching searches but stays on
// record because loans may still reference it.
func (s *Service) RemoveItem(ctx context.Context, isbn string) error {
	item, err := s.GetItem(ctx, isbn)
	if err != nil {
		return err
	}
	item.Active = false
	if err := s.items.Update(ctx, item); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update item")
	}
	s.logger.InfoContext(ctx, "item removed from catalog", "isbn", isbn)
	return nil
}

// ListItems returns every item, active or not.
func (s *Service) ListItems(ctx context.Context) ([]*models.Item, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list items")
	}
	return items, nil
}

// Search matches the keyword against title, genre, ISBN, and authors,
// case-insensitively. Inactive items are excluded.
func (s *Service) Search(ctx context.Context, keyword string) ([]*models.Item, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list items")
	}
	var out []*models.Item
	for _, item := range items {
		if item.Matches(keyword) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Filter narrows active items by exact genre (case-insensitive) and/or year.
func (s *Service) Filter(ctx context.Context, genre *string, year *int) ([]*models.Item, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list items")
	}
	var out []*models.Item
	for _, item := range items {
		if !item.Active {
			continue
		}
		if genre != nil && !strings.EqualFold(item.Genre, *genre) {
			continue
		}
		if year != nil && item.Year != *year {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}
