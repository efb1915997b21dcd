package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// Runner executes a function inside a single database transaction.
// The transaction is carried through the context so repositories joined
// by the same call share it transparently.
type Runner struct {
	db *sqlx.DB
}

func NewRunner(db *sqlx.DB) *Runner { return &Runner{db: db} }

// RunInTx begins a transaction, runs fn with it attached to the context,
// and commits. Any error from fn rolls the whole transaction back.
// A nested call joins the outer transaction instead of starting a new one.
func (r *Runner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFrom(ctx) != nil {
		return fn(ctx)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// TxFrom returns the transaction carried by ctx, or nil.
func TxFrom(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx
}

// Ext returns the executor repositories should use: the transaction carried
// by ctx when present, the plain connection pool otherwise.
func Ext(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx := TxFrom(ctx); tx != nil {
		return tx
	}
	return db
}
