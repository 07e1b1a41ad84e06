package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ledger-service/internal/logger"
	"ledger-service/models"
)

type AccountRepository interface {
	Open(ctx context.Context, account *models.Account) error
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	EnsureExists(ctx context.Context, userID uuid.UUID) error
	Transfer(ctx context.Context, payerID, payeeID uuid.UUID, amount int64) error
}

type accountRepository struct {
	db     DBTX
	logger *logger.Logger
}

func NewAccountRepository(db DBTX, log *logger.Logger) AccountRepository {
	return &accountRepository{
		db:     db,
		logger: log,
	}
}

// Open credits the opening balance to the user's account. An account created
// lazily by an earlier confirm is adopted and keeps what it already holds.
func (r *accountRepository) Open(ctx context.Context, account *models.Account) error {
	entry := r.logger.WithFields(map[string]interface{}{
		"user_id":         account.UserID,
		"opening_balance": account.Balance,
	})

	if account.Balance < 0 {
		return fmt.Errorf("%w: initial balance cannot be negative", models.ErrValidation)
	}

	entry.Debug("Opening account")
	query := `
		INSERT INTO accounts (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
			SET balance = accounts.balance + EXCLUDED.balance,
			    updated_at = NOW()
		RETURNING id, balance, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, account.UserID, account.Balance).
		Scan(&account.ID, &account.Balance, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		entry.Error("Failed to open account: %v", err)
		return storageError("failed to open account", err)
	}

	entry.Debug("Account opened, DB_ID: %d, balance: %d", account.ID, account.Balance)
	return nil
}

// GetBalance returns 0 for a user that has no account row yet.
func (r *accountRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, storageError("failed to get balance", err)
	}

	return balance, nil
}

// EnsureExists creates a zero balance account when none exists; concurrent callers create at most one row.
func (r *accountRepository) EnsureExists(ctx context.Context, userID uuid.UUID) error {
	query := `
		INSERT INTO accounts (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		r.logger.WithFields(map[string]interface{}{"user_id": userID}).Error("Failed to ensure account: %v", err)
		return storageError("failed to ensure account", err)
	}

	return nil
}

// lockBalance reads the balance and locks the row until the surrounding transaction ends.
func (r *accountRepository) lockBalance(ctx context.Context, q DBTX, userID uuid.UUID) (int64, error) {
	query := `
		SELECT balance
		FROM accounts
		WHERE user_id = $1
		FOR UPDATE`

	var balance int64
	err := q.QueryRowContext(ctx, query, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("user %s: %w", userID, models.ErrAccountNotFound)
		}
		return 0, storageError("failed to lock account", err)
	}

	return balance, nil
}

// Transfer debits payer and credits payee atomically. The payer balance is re-read under lock
// so overlapping debits can never drive it negative; on insufficient funds nothing is written.
func (r *accountRepository) Transfer(ctx context.Context, payerID, payeeID uuid.UUID, amount int64) error {
	entry := r.logger.WithFields(map[string]interface{}{
		"payer_id": payerID,
		"payee_id": payeeID,
		"amount":   amount,
	})

	if amount <= 0 {
		return models.ErrInvalidAmount
	}
	if payerID == payeeID {
		return models.ErrSelfTransfer
	}

	entry.Debug("Starting balance transfer")

	return withTx(ctx, r.db, func(q DBTX) error {
		first, second := LockOrder(payerID, payeeID)
		balances := make(map[uuid.UUID]int64, 2)

		for _, id := range []uuid.UUID{first, second} {
			balance, err := r.lockBalance(ctx, q, id)
			if err != nil {
				entry.Error("Failed to lock account %s: %v", id, err)
				return err
			}
			balances[id] = balance
		}

		if balances[payerID] < amount {
			entry.Warn("Insufficient balance: payer_balance=%d, requested_amount=%d", balances[payerID], amount)
			return models.ErrInsufficientFunds
		}

		entry.Debug("Updating balances: payer_new_balance=%d, payee_new_balance=%d",
			balances[payerID]-amount, balances[payeeID]+amount)

		debit := `UPDATE accounts SET balance = balance - $1, updated_at = CURRENT_TIMESTAMP WHERE user_id = $2`
		if _, err := q.ExecContext(ctx, debit, amount, payerID); err != nil {
			entry.Error("Failed to update payer account: %v", err)
			return storageError("failed to update payer account", err)
		}

		credit := `UPDATE accounts SET balance = balance + $1, updated_at = CURRENT_TIMESTAMP WHERE user_id = $2`
		if _, err := q.ExecContext(ctx, credit, amount, payeeID); err != nil {
			entry.Error("Failed to update payee account: %v", err)
			return storageError("failed to update payee account", err)
		}

		entry.Debug("Balance transfer applied")
		return nil
	})
}
