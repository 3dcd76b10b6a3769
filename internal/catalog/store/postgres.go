package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"biblio/internal/catalog/models"
	"biblio/pkg/platform/sentinel"
	txcontext "biblio/pkg/platform/tx"
)

// Postgres persists the catalog in an items table. Statements run against the
// transaction carried in context when one is present, so circulation can
// commit item, patron, and loan changes atomically.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// itemRow adapts Item for scanning; authors round-trip through a text array.
type itemRow struct {
	ISBN            string         `db:"isbn"`
	Title           string         `db:"title"`
	Authors         pq.StringArray `db:"authors"`
	Genre           string         `db:"genre"`
	Year            int            `db:"year"`
	CopiesOwned     int            `db:"copies_owned"`
	AvailableCopies int            `db:"available_copies"`
	Active          bool           `db:"active"`
}

func (r itemRow) toModel() *models.Item {
	return &models.Item{
		ISBN:            r.ISBN,
		Title:           r.Title,
		Authors:         append([]string(nil), r.Authors...),
		Genre:           r.Genre,
		Year:            r.Year,
		CopiesOwned:     r.CopiesOwned,
		AvailableCopies: r.AvailableCopies,
		Active:          r.Active,
	}
}

func (s *Postgres) Create(ctx context.Context, item *models.Item) error {
	const q = `INSERT INTO items (isbn, title, authors, genre, year, copies_owned, available_copies, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (isbn) DO NOTHING`
	res, err := s.ext(ctx).ExecContext(ctx, q,
		item.ISBN, item.Title, pq.Array(item.Authors), item.Genre, item.Year,
		item.CopiesOwned, item.AvailableCopies, item.Active)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) FindByISBN(ctx context.Context, isbn string) (*models.Item, error) {
	const q = `SELECT isbn, title, authors, genre, year, copies_owned, available_copies, active
		FROM items WHERE isbn = $1`
	var row itemRow
	if err := sqlx.GetContext(ctx, s.ext(ctx), &row, q, isbn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Postgres) Update(ctx context.Context, item *models.Item) error {
	const q = `UPDATE items
		SET title = $2, authors = $3, genre = $4, year = $5,
		    copies_owned = $6, available_copies = $7, active = $8
		WHERE isbn = $1`
	res, err := s.ext(ctx).ExecContext(ctx, q,
		item.ISBN, item.Title, pq.Array(item.Authors), item.Genre, item.Year,
		item.CopiesOwned, item.AvailableCopies, item.Active)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Item, error) {
	const q = `SELECT isbn, title, authors, genre, year, copies_owned, available_copies, active
		FROM items ORDER BY created_at, isbn`
	var rows []itemRow
	if err := sqlx.SelectContext(ctx, s.ext(ctx), &rows, q); err != nil {
		return nil, err
	}
	out := make([]*models.Item, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}
