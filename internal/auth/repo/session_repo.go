package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// SessionRepo persists opaque refresh sessions in Postgres.
type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo { return &SessionRepo{db: db} }

// EnsureTable creates the refresh_sessions table if not exists (idempotent).
func (r *SessionRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS refresh_sessions (
  token TEXT PRIMARY KEY,
  client_id BIGINT NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_refresh_sessions_client_id ON refresh_sessions(client_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *SessionRepo) Save(ctx context.Context, token string, clientID int64, expiresAt time.Time) error {
	const q = `INSERT INTO refresh_sessions (token, client_id, expires_at) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, q, token, clientID, expiresAt)
	return err
}

func (r *SessionRepo) Get(ctx context.Context, token string) (int64, time.Time, error) {
	const q = `SELECT client_id, expires_at FROM refresh_sessions WHERE token = $1`
	var clientID int64
	var expiresAt time.Time
	row := r.db.QueryRowxContext(ctx, q, token)
	if err := row.Scan(&clientID, &expiresAt); err != nil {
		return 0, time.Time{}, err
	}
	return clientID, expiresAt, nil
}

func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE token = $1`, token)
	return err
}
