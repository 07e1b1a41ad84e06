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

type TransactionRepository interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	GetByID(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error)
	GetByIDForUpdate(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error)
	Transition(ctx context.Context, transactionID uuid.UUID, expected, next models.TransactionStatus) (*models.Transaction, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
}

type transactionRepository struct {
	db     DBTX
	logger *logger.Logger
}

func NewTransactionRepository(db DBTX, log *logger.Logger) TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: log,
	}
}

const transactionColumns = `id, transaction_id, kind, initiator_id, counterparty_id, amount, description, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner, extra ...interface{}) (*models.Transaction, error) {
	t := &models.Transaction{}
	dest := []interface{}{
		&t.ID, &t.TransactionID, &t.Kind, &t.InitiatorID, &t.CounterpartyID,
		&t.Amount, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return t, nil
}

// Create stores a new pending transaction. Invalid records are refused before reaching the database.
func (r *transactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	if err := transaction.Validate(); err != nil {
		return err
	}

	if transaction.TransactionID == uuid.Nil {
		transaction.TransactionID = uuid.New()
	}
	transaction.Status = models.TransactionStatusPending

	query := `
		INSERT INTO transactions (transaction_id, kind, initiator_id, counterparty_id, amount, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		transaction.TransactionID,
		transaction.Kind,
		transaction.InitiatorID,
		transaction.CounterpartyID,
		transaction.Amount,
		transaction.Description,
		transaction.Status,
	).Scan(&transaction.ID, &transaction.CreatedAt, &transaction.UpdatedAt)
	if err != nil {
		r.logger.WithFields(map[string]interface{}{
			"transaction_id": transaction.TransactionID,
		}).Error("Failed to insert transaction: %v", err)
		return storageError("failed to create transaction", err)
	}

	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1`
	return r.get(ctx, query, transactionID)
}

// GetByIDForUpdate locks the transaction row until the surrounding transaction ends.
func (r *transactionRepository) GetByIDForUpdate(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1 FOR UPDATE`
	return r.get(ctx, query, transactionID)
}

func (r *transactionRepository) get(ctx context.Context, query string, transactionID uuid.UUID) (*models.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", transactionID, models.ErrNotFound)
		}
		return nil, storageError("failed to get transaction", err)
	}
	return t, nil
}

// Transition moves a transaction from expected to next only if its stored status is still expected.
// Losing that compare-and-swap yields ErrAlreadyProcessed.
func (r *transactionRepository) Transition(ctx context.Context, transactionID uuid.UUID, expected, next models.TransactionStatus) (*models.Transaction, error) {
	entry := r.logger.WithFields(map[string]interface{}{
		"transaction_id": transactionID,
		"expected":       expected,
		"next":           next,
	})

	if expected != models.TransactionStatusPending || !next.Terminal() {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, expected, next)
	}

	query := `
		UPDATE transactions
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE transaction_id = $2 AND status = $3
		RETURNING ` + transactionColumns

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, next, transactionID, expected))
	if err == nil {
		entry.Debug("Transaction status updated")
		return t, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		entry.Error("Failed to update transaction status: %v", err)
		return nil, storageError("failed to update transaction", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE transaction_id = $1)`, transactionID).Scan(&exists); err != nil {
		return nil, storageError("failed to check transaction existence", err)
	}

	if !exists {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, models.ErrNotFound)
	}

	entry.Warn("Transaction is no longer %s", expected)
	return nil, fmt.Errorf("transaction %s: %w", transactionID, models.ErrAlreadyProcessed)
}

// ListForUser returns every transaction the user is a party of, most recent first.
func (r *transactionRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	query := `
		SELECT t.id, t.transaction_id, t.kind, t.initiator_id, t.counterparty_id, t.amount,
			t.description, t.status, t.created_at, t.updated_at,
			COALESCE(i.username, ''), COALESCE(c.username, '')
		FROM transactions t
		LEFT JOIN profiles i ON i.id = t.initiator_id
		LEFT JOIN profiles c ON c.id = t.counterparty_id
		WHERE t.initiator_id = $1 OR t.counterparty_id = $1
		ORDER BY t.created_at DESC, t.id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storageError("failed to list transactions", err)
	}
	defer rows.Close()

	transactions := make([]*models.Transaction, 0)
	for rows.Next() {
		var initiatorName, counterpartyName string
		t, err := scanTransaction(rows, &initiatorName, &counterpartyName)
		if err != nil {
			return nil, storageError("failed to scan transaction", err)
		}
		t.InitiatorUsername = initiatorName
		t.CounterpartyUsername = counterpartyName
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("failed to iterate transactions", err)
	}

	return transactions, nil
}
