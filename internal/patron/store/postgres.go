package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"biblio/internal/patron/models"
	"biblio/pkg/platform/sentinel"
	txcontext "biblio/pkg/platform/tx"
)

// Postgres persists patrons. Statements run against the transaction carried
// in context when one is present.
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

// patronRow adapts Patron for scanning; loan id lists round-trip through
// text arrays, which keeps their order.
type patronRow struct {
	LibraryID    string         `db:"library_id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	Phone        string         `db:"phone"`
	Address      string         `db:"address"`
	CurrentLoans pq.StringArray `db:"current_loans"`
	History      pq.StringArray `db:"history"`
	FinesOwed    float64        `db:"fines_owed"`
	MaxLimit     int            `db:"max_limit"`
}

func (r patronRow) toModel() *models.Patron {
	return &models.Patron{
		LibraryID:    r.LibraryID,
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		Address:      r.Address,
		CurrentLoans: append([]string{}, r.CurrentLoans...),
		History:      append([]string{}, r.History...),
		FinesOwed:    r.FinesOwed,
		MaxLimit:     r.MaxLimit,
	}
}

func (s *Postgres) Create(ctx context.Context, patron *models.Patron) error {
	const q = `INSERT INTO patrons (library_id, name, email, phone, address, current_loans, history, fines_owed, max_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (library_id) DO NOTHING`
	res, err := s.ext(ctx).ExecContext(ctx, q,
		patron.LibraryID, patron.Name, patron.Email, patron.Phone, patron.Address,
		pq.Array(patron.CurrentLoans), pq.Array(patron.History),
		patron.FinesOwed, patron.MaxLimit)
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

func (s *Postgres) FindByID(ctx context.Context, libraryID string) (*models.Patron, error) {
	const q = `SELECT library_id, name, email, phone, address, current_loans, history, fines_owed, max_limit
		FROM patrons WHERE library_id = $1`
	var row patronRow
	if err := sqlx.GetContext(ctx, s.ext(ctx), &row, q, libraryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Postgres) Update(ctx context.Context, patron *models.Patron) error {
	const q = `UPDATE patrons
		SET name = $2, email = $3, phone = $4, address = $5,
		    current_loans = $6, history = $7, fines_owed = $8, max_limit = $9
		WHERE library_id = $1`
	res, err := s.ext(ctx).ExecContext(ctx, q,
		patron.LibraryID, patron.Name, patron.Email, patron.Phone, patron.Address,
		pq.Array(patron.CurrentLoans), pq.Array(patron.History),
		patron.FinesOwed, patron.MaxLimit)
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

func (s *Postgres) List(ctx context.Context) ([]*models.Patron, error) {
	const q = `SELECT library_id, name, email, phone, address, current_loans, history, fines_owed, max_limit
		FROM patrons ORDER BY created_at, library_id`
	var rows []patronRow
	if err := sqlx.SelectContext(ctx, s.ext(ctx), &rows, q); err != nil {
		return nil, err
	}
	out := make([]*models.Patron, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}
