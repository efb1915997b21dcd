package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/pedrohonorio/biblioteca-virtual/internal/book/entity"
	"github.com/pedrohonorio/biblioteca-virtual/pkg/database"
)

// BookRepo provides data access for the books table using sqlx.
type BookRepo struct {
	db *sqlx.DB
}

func NewBookRepo(db *sqlx.DB) *BookRepo { return &BookRepo{db: db} }

// EnsureTable creates the books table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *BookRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS books (
  id BIGSERIAL PRIMARY KEY,
  title CITEXT NOT NULL UNIQUE,
  author TEXT NOT NULL DEFAULT '',
  publisher TEXT NOT NULL DEFAULT '',
  publication_year INT NOT NULL DEFAULT 0,
  available BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_books_available ON books(available);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new book row and returns its ID.
func (r *BookRepo) Create(ctx context.Context, b *entity.Book) (int64, error) {
	const q = `INSERT INTO books (title, author, publisher, publication_year, available)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var id int64
	if err := sqlx.GetContext(ctx, database.Ext(ctx, r.db), &id, q,
		b.Title, b.Author, b.Publisher, b.Year, b.Available); err != nil {
		return 0, err
	}
	b.ID = id
	return id, nil
}

// GetByID returns a book by id or sql.ErrNoRows.
func (r *BookRepo) GetByID(ctx context.Context, id int64) (*entity.Book, error) {
	const q = `SELECT id, title, author, publisher, publication_year, available
		FROM books WHERE id=$1`
	var b entity.Book
	if err := sqlx.GetContext(ctx, database.Ext(ctx, r.db), &b, q, id); err != nil {
		return nil, err
	}
	return &b, nil
}

// ExistsByID reports whether a book with the given id exists.
func (r *BookRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM books WHERE id=$1)`
	var exists bool
	if err := sqlx.GetContext(ctx, database.Ext(ctx, r.db), &exists, q, id); err != nil {
		return false, err
	}
	return exists, nil
}

// ExistsByTitle reports whether a book with the given title exists.
// Matching is case-insensitive via citext.
func (r *BookRepo) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM books WHERE title=$1)`
	var exists bool
	if err := sqlx.GetContext(ctx, database.Ext(ctx, r.db), &exists, q, title); err != nil {
		return false, err
	}
	return exists, nil
}

// SetAvailability flips the available flag and reports whether the row was
// actually flipped. The conditional update makes concurrent borrows of the
// same book resolve inside the database: only one caller sees flipped=true.
func (r *BookRepo) SetAvailability(ctx context.Context, id int64, available bool) (bool, error) {
	const q = `UPDATE books SET available=$2, updated_at=NOW()
		WHERE id=$1 AND available = NOT $2 RETURNING 1`
	var one int
	err := sqlx.GetContext(ctx, database.Ext(ctx, r.db), &one, q, id, available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns the whole catalog ordered by title.
func (r *BookRepo) List(ctx context.Context) ([]*entity.Book, error) {
	const q = `SELECT id, title, author, publisher, publication_year, available
		FROM books ORDER BY title`
	var books []*entity.Book
	if err := sqlx.SelectContext(ctx, database.Ext(ctx, r.db), &books, q); err != nil {
		return nil, err
	}
	return books, nil
}

// Delete removes a book row and returns the number of affected rows.
func (r *BookRepo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := database.Ext(ctx, r.db).ExecContext(ctx, `DELETE FROM books WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
