package repository

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ledger-service/models"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so a repository can run on the pool
// or inside an outer unit of work.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Isolation mode READ COMMITTED is used together with explicit row locks (FOR UPDATE).
// The locks serialize writers on the same rows without blocking unrelated transfers.
var defaultTxOptions = &sql.TxOptions{
	Isolation: sql.LevelReadCommitted,
	ReadOnly:  false,
}

// withTx runs fn in a fresh transaction when db is a pool, or inline when db is already a transaction.
func withTx(ctx context.Context, db DBTX, fn func(q DBTX) error) error {
	beginner, ok := db.(txBeginner)
	if !ok {
		return fn(db)
	}

	tx, err := beginner.BeginTx(ctx, defaultTxOptions)
	if err != nil {
		return storageError("failed to begin transaction", err)
	}

	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageError("failed to commit transaction", err)
	}

	return nil
}

// storageError keeps both the taxonomy sentinel and the driver cause reachable through errors.Is/As.
func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrStorageUnavailable, err)
}

func isUniqueViolation(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr, true
	}
	return nil, false
}

// LockOrder returns the two ids in the global order every unit of work locks or inserts rows in.
// Acquiring row locks in one order across callers prevents deadlocks.
func LockOrder(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(b[:], a[:]) < 0 {
		return b, a
	}
	return a, b
}
