package entity

import "time"

// Profile is the role of an account.
type Profile string

const (
	ProfileClient Profile = "CLIENT"
	ProfileAdmin  Profile = "ADMIN"
)

// Client represents a registered account. PasswordHash is never exposed
// over the API. ActiveLoans is derived from the loans table on read.
type Client struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Profile      Profile   `db:"profile" json:"profile"`
	ActiveLoans  int       `db:"active_loans" json:"active_loans"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ResetToken is a single-use, time-boxed password reset record keyed by
// the client's email.
type ResetToken struct {
	Token     string     `db:"token"`
	Email     string     `db:"email"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
}
