// Package dbx provides the small database abstractions shared by
// repositories: DBTX, implemented by both *sql.DB and *sql.Tx, and a helper
// that runs a function inside a transaction, optionally replaying it after
// transient failures.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by the repositories.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Serializable is used for mutations that must observe a consistent view of
// several rows, such as recomputing every capture distance of a user.
var Serializable = &sql.TxOptions{Isolation: sql.LevelSerializable}

// WithTx begins a transaction, runs fn with the transactional handle and
// commits on success. It rolls back when fn returns an error or panics;
// panics are rethrown after the rollback.
//
//	err := dbx.WithTx(ctx, db, dbx.Serializable, func(ctx context.Context, tx dbx.DBTX) error {
//	    _, err := tx.ExecContext(ctx, "UPDATE ...")
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// RetryTx runs WithTx up to attempts times. A failed attempt is repeated only
// while retryable reports the error as transient, typically a serialization
// failure of a Serializable transaction. fn must not have side effects
// outside tx, since it may run more than once.
func RetryTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, attempts int, retryable func(error) bool, fn func(ctx context.Context, tx DBTX) error) error {
	var err error
	for i := 0; i < max(attempts, 1); i++ {
		err = WithTx(ctx, db, opts, fn)
		if err == nil || retryable == nil || !retryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}
