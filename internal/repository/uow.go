package repository

import (
	"context"
	"database/sql"

	"ledger-service/internal/logger"
)

// Repositories groups repositories bound to the same session.
type Repositories struct {
	Accounts     AccountRepository
	Transactions TransactionRepository
	Users        UserRepository
}

func NewRepositories(db DBTX, log *logger.Logger) Repositories {
	return Repositories{
		Accounts:     NewAccountRepository(db, log),
		Transactions: NewTransactionRepository(db, log),
		Users:        NewUserRepository(db, log),
	}
}

// UnitOfWork runs fn with repositories bound to one database transaction.
// Everything fn does is committed together, or rolled back together when fn returns an error.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}

type sqlUnitOfWork struct {
	db     *sql.DB
	logger *logger.Logger
}

func NewUnitOfWork(db *sql.DB, log *logger.Logger) UnitOfWork {
	return &sqlUnitOfWork{
		db:     db,
		logger: log,
	}
}

func (u *sqlUnitOfWork) Do(ctx context.Context, fn func(repos Repositories) error) error {
	tx, err := u.db.BeginTx(ctx, defaultTxOptions)
	if err != nil {
		u.logger.Error("Failed to begin unit of work: %v", err)
		return storageError("failed to begin transaction", err)
	}

	defer tx.Rollback()

	if err := fn(NewRepositories(tx, u.logger)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		u.logger.Error("Failed to commit unit of work: %v", err)
		return storageError("failed to commit transaction", err)
	}

	return nil
}
