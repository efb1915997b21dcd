package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pedrohonorio/biblioteca-virtual/internal/client/entity"
	"github.com/pedrohonorio/biblioteca-virtual/pkg/database"
)

// ClientRepo provides data access for the clients and password_reset_tokens
// tables using sqlx.
type ClientRepo struct {
	db *sqlx.DB
}

func NewClientRepo(db *sqlx.DB) *ClientRepo { return &ClientRepo{db: db} }

// EnsureTable creates the clients and password_reset_tokens tables if not
// exists (idempotent). Prefer migrations in production.
func (r *ClientRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS clients (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  email CITEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  profile TEXT NOT NULL DEFAULT 'CLIENT',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS password_reset_tokens (
  token TEXT PRIMARY KEY,
  email CITEXT NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL,
  used_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_email ON password_reset_tokens(email);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new client row. Returns new ID.
func (r *ClientRepo) Create(ctx context.Context, c *entity.Client) (int64, error) {
	const q = `INSERT INTO clients (name, email, password_hash, profile)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	row := database.Ext(ctx, r.db).QueryRowxContext(ctx, q, c.Name, c.Email, c.PasswordHash, c.Profile)
	if err := row.Scan(&c.ID, &c.CreatedAt); err != nil {
		return 0, err
	}
	return c.ID, nil
}

// GetByEmail returns a client matched by email (case-insensitive due to
// citext) with the derived count of active loans, or sql.ErrNoRows.
func (r *ClientRepo) GetByEmail(ctx context.Context, email string) (*entity.Client, error) {
	const q = `SELECT c.id, c.name, c.email, c.password_hash, c.profile, c.created_at,
		(SELECT COUNT(*) FROM loans l WHERE l.client_id = c.id AND l.active) AS active_loans
	  FROM clients c WHERE c.email=$1`
	var c entity.Client
	if err := sqlx.GetContext(ctx, database.Ext(ctx, r.db), &c, q, email); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID returns a client by id or sql.ErrNoRows.
func (r *ClientRepo) GetByID(ctx context.Context, id int64) (*entity.Client, error) {
	const q = `SELECT c.id, c.name, c.email, c.password_hash, c.profile, c.created_at,
		(SELECT COUNT(*) FROM loans l WHERE l.client_id = c.id AND l.active) AS active_loans
	  FROM clients c WHERE c.id=$1`
	var c entity.Client
	if err := sqlx.GetContext(ctx, database.Ext(ctx, r.db), &c, q, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// ExistsByEmail reports whether a client with the given email exists.
func (r *ClientRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM clients WHERE email=$1)`
	var exists bool
	if err := sqlx.GetContext(ctx, database.Ext(ctx, r.db), &exists, q, email); err != nil {
		return false, err
	}
	return exists, nil
}

// ExistsByID reports whether a client with the given id exists.
func (r *ClientRepo) ExistsByID(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM clients WHERE id=$1)`
	var exists bool
	if err := sqlx.GetContext(ctx, database.Ext(ctx, r.db), &exists, q, id); err != nil {
		return false, err
	}
	return exists, nil
}

// UpdatePassword replaces the password hash for the given email.
func (r *ClientRepo) UpdatePassword(ctx context.Context, email, hash string) error {
	const q = `UPDATE clients SET password_hash=$2, updated_at=NOW() WHERE email=$1`
	_, err := database.Ext(ctx, r.db).ExecContext(ctx, q, email, hash)
	return err
}

// SaveResetToken stores a password reset token for the given email.
func (r *ClientRepo) SaveResetToken(ctx context.Context, t *entity.ResetToken) error {
	const q = `INSERT INTO password_reset_tokens (token, email, expires_at) VALUES ($1, $2, $3)`
	_, err := database.Ext(ctx, r.db).ExecContext(ctx, q, t.Token, t.Email, t.ExpiresAt)
	return err
}

// ConsumeResetToken marks the token used and reports whether it was still
// valid for the given email: unused and not expired. The conditional update
// makes a token single-use even under concurrent attempts.
func (r *ClientRepo) ConsumeResetToken(ctx context.Context, token, email string) (bool, error) {
	const q = `UPDATE password_reset_tokens SET used_at=NOW()
		WHERE token=$1 AND email=$2 AND used_at IS NULL AND expires_at > NOW() RETURNING 1`
	var one int
	err := sqlx.GetContext(ctx, database.Ext(ctx, r.db), &one, q, token, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PurgeExpiredResetTokens removes tokens past their expiry plus a grace
// window; callable from a maintenance cron.
func (r *ClientRepo) PurgeExpiredResetTokens(ctx context.Context, grace time.Duration) (int64, error) {
	const q = `DELETE FROM password_reset_tokens WHERE expires_at < NOW() - make_interval(secs => $1)`
	res, err := r.db.ExecContext(ctx, q, grace.Seconds())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
