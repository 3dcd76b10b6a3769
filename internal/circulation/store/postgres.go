package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"biblio/internal/circulation/models"
	dErrors "biblio/pkg/domain-errors"
	"biblio/pkg/platform/sentinel"
	txcontext "biblio/pkg/platform/tx"
)

// Postgres persists loans. An insertion-ordered serial column backs the
// collection-order guarantee the query operations make.
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

const loanColumns = `loan_id, isbn, library_id, start_date, due_date, return_date, status`

func (s *Postgres) Append(ctx context.Context, loan *models.Loan) error {
	const q = `INSERT INTO loans (loan_id, isbn, library_id, start_date, due_date, return_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (loan_id) DO NOTHING`
	res, err := s.ext(ctx).ExecContext(ctx, q,
		loan.ID, loan.ISBN, loan.LibraryID,
		loan.StartDate, loan.DueDate, loan.ReturnDate, loan.Status)
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

func (s *Postgres) FindByID(ctx context.Context, loanID string) (*models.Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1`
	var loan models.Loan
	if err := sqlx.GetContext(ctx, s.ext(ctx), &loan, q, loanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return &loan, nil
}

func (s *Postgres) Update(ctx context.Context, loan *models.Loan) error {
	const q = `UPDATE loans SET return_date = $2, status = $3 WHERE loan_id = $1`
	res, err := s.ext(ctx).ExecContext(ctx, q, loan.ID, loan.ReturnDate, loan.Status)
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

func (s *Postgres) ListByPatron(ctx context.Context, libraryID string) ([]*models.Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans WHERE library_id = $1 ORDER BY seq`
	var loans []*models.Loan
	if err := sqlx.SelectContext(ctx, s.ext(ctx), &loans, q, libraryID); err != nil {
		return nil, err
	}
	return loans, nil
}

func (s *Postgres) ListAll(ctx context.Context) ([]*models.Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans ORDER BY seq`
	var loans []*models.Loan
	if err := sqlx.SelectContext(ctx, s.ext(ctx), &loans, q); err != nil {
		return nil, err
	}
	return loans, nil
}

// SQLTx runs circulation mutations inside a database transaction. Row locks
// taken by the UPDATE statements serialize concurrent operations on the same
// item or patron; the keys argument is unused here because the database does
// the serialization.
type SQLTx struct {
	db *sqlx.DB
}

func NewSQLTx(db *sqlx.DB) *SQLTx {
	return &SQLTx{db: db}
}

func (t *SQLTx) RunInTx(ctx context.Context, _ []string, fn func(ctx context.Context) error) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTxTimeout)
		defer cancel()
	}

	dbtx, err := t.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}

	if err := fn(txcontext.WithTx(ctx, dbtx)); err != nil {
		_ = dbtx.Rollback()
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}
