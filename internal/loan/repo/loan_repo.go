package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/pedrohonorio/biblioteca-virtual/internal/loan/entity"
	"github.com/pedrohonorio/biblioteca-virtual/pkg/database"
)

// LoanRepo provides data access for the loans and loan_books tables using
// sqlx. The loan_books join table carries the many-to-many relation between
// loans and books; its rows are written once at creation and never mutated.
type LoanRepo struct {
	db *sqlx.DB
}

func NewLoanRepo(db *sqlx.DB) *LoanRepo { return &LoanRepo{db: db} }

// EnsureTable creates the loans and loan_books tables if not exists
// (idempotent). Prefer migrations in production.
func (r *LoanRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS loans (
  id BIGSERIAL PRIMARY KEY,
  client_id BIGINT NOT NULL,
  loan_date TIMESTAMPTZ NOT NULL,
  due_date TIMESTAMPTZ NOT NULL,
  return_date TIMESTAMPTZ,
  active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_loans_client_id ON loans(client_id);
CREATE INDEX IF NOT EXISTS idx_loans_active ON loans(active);
CREATE TABLE IF NOT EXISTS loan_books (
  loan_id BIGINT NOT NULL,
  book_id BIGINT NOT NULL,
  PRIMARY KEY (loan_id, book_id)
);
CREATE INDEX IF NOT EXISTS idx_loan_books_book_id ON loan_books(book_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Save persists a loan. A loan without an ID is inserted together with its
// book references; a loan with an ID has its mutable lifecycle fields
// updated (active, return_date). Callers are expected to run Save inside a
// transaction when it follows availability flips.
func (r *LoanRepo) Save(ctx context.Context, l *entity.Loan) (*entity.Loan, error) {
	ext := database.Ext(ctx, r.db)
	if l.ID == 0 {
		const q = `INSERT INTO loans (client_id, loan_date, due_date, return_date, active)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`
		var id int64
		if err := sqlx.GetContext(ctx, ext, &id, q,
			l.ClientID, l.LoanDate, l.DueDate, l.ReturnDate, l.Active); err != nil {
			return nil, err
		}
		l.ID = id
		const qb = `INSERT INTO loan_books (loan_id, book_id) VALUES ($1, $2)`
		for _, bookID := range l.BookIDs {
			if _, err := ext.ExecContext(ctx, qb, id, bookID); err != nil {
				return nil, err
			}
		}
		return l, nil
	}
	const q = `UPDATE loans SET active=$2, return_date=$3, updated_at=NOW() WHERE id=$1`
	if _, err := ext.ExecContext(ctx, q, l.ID, l.Active, l.ReturnDate); err != nil {
		return nil, err
	}
	return l, nil
}

// ExistsByID reports whether a loan with the given id exists.
func (r *LoanRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM loans WHERE id=$1)`
	var exists bool
	if err := sqlx.GetContext(ctx, database.Ext(ctx, r.db), &exists, q, id); err != nil {
		return false, err
	}
	return exists, nil
}

// GetByID returns the canonical stored loan with its book references, or
// sql.ErrNoRows.
func (r *LoanRepo) GetByID(ctx context.Context, id int64) (*entity.Loan, error) {
	ext := database.Ext(ctx, r.db)
	const q = `SELECT id, client_id, loan_date, due_date, return_date, active
		FROM loans WHERE id=$1`
	var l entity.Loan
	if err := sqlx.GetContext(ctx, ext, &l, q, id); err != nil {
		return nil, err
	}
	const qb = `SELECT book_id FROM loan_books WHERE loan_id=$1 ORDER BY book_id`
	if err := sqlx.SelectContext(ctx, ext, &l.BookIDs, qb, id); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListByClientID returns every loan of a client in store-natural order.
// Unknown clients and clients without loans yield an empty slice.
func (r *LoanRepo) ListByClientID(ctx context.Context, clientID int64) ([]*entity.Loan, error) {
	ext := database.Ext(ctx, r.db)
	const q = `SELECT id, client_id, loan_date, due_date, return_date, active
		FROM loans WHERE client_id=$1 ORDER BY id`
	loans := []*entity.Loan{}
	if err := sqlx.SelectContext(ctx, ext, &loans, q, clientID); err != nil {
		return nil, err
	}
	const qb = `SELECT book_id FROM loan_books WHERE loan_id=$1 ORDER BY book_id`
	for _, l := range loans {
		if err := sqlx.SelectContext(ctx, ext, &l.BookIDs, qb, l.ID); err != nil {
			return nil, err
		}
	}
	return loans, nil
}

// ExistsActiveByBookID reports whether any active loan references the book.
func (r *LoanRepo) ExistsActiveByBookID(ctx context.Context, bookID int64) (bool, error) {
	const q = `SELECT EXISTS(
		SELECT 1 FROM loan_books lb JOIN loans l ON l.id = lb.loan_id
		WHERE lb.book_id=$1 AND l.active)`
	var exists bool
	if err := sqlx.GetContext(ctx, database.Ext(ctx, r.db), &exists, q, bookID); err != nil {
		return false, err
	}
	return exists, nil
}
