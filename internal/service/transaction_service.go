package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ledger-service/internal/logger"
	"ledger-service/internal/notify"
	"ledger-service/internal/repository"
	"ledger-service/models"
)

// IdentityResolver maps a username to the identity it belongs to.
type IdentityResolver interface {
	ResolveUsername(ctx context.Context, username string) (uuid.UUID, error)
}

type TransferService interface {
	RequestTransfer(ctx context.Context, kind models.TransactionKind, initiatorID uuid.UUID, counterpartyUsername string, amount int64, description string) (*models.Transaction, error)
	Confirm(ctx context.Context, transactionID, actingUserID uuid.UUID) (*models.Transaction, error)
	Reject(ctx context.Context, transactionID, actingUserID uuid.UUID) (*models.Transaction, error)
	GetTransaction(ctx context.Context, transactionID, actingUserID uuid.UUID) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
}

type transferService struct {
	transactionRepo repository.TransactionRepository
	identities      IdentityResolver
	uow             repository.UnitOfWork
	publisher       notify.Publisher
	logger          *logger.Logger
}

func NewTransferService(
	transactionRepo repository.TransactionRepository,
	identities IdentityResolver,
	uow repository.UnitOfWork,
	publisher notify.Publisher,
	log *logger.Logger,
) TransferService {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	return &transferService{
		transactionRepo: transactionRepo,
		identities:      identities,
		uow:             uow,
		publisher:       publisher,
		logger:          log,
	}
}

// RequestTransfer records intent only. No funds move until the counterparty confirms.
func (s *transferService) RequestTransfer(ctx context.Context, kind models.TransactionKind, initiatorID uuid.UUID, counterpartyUsername string, amount int64, description string) (*models.Transaction, error) {
	entry := s.logger.WithFields(map[string]interface{}{
		"kind":         kind,
		"initiator_id": initiatorID,
		"counterparty": counterpartyUsername,
		"amount":       amount,
	})

	counterpartyID, err := s.identities.ResolveUsername(ctx, counterpartyUsername)
	if err != nil {
		entry.Warn("Counterparty lookup failed: %v", err)
		return nil, err
	}

	if counterpartyID == initiatorID {
		return nil, models.ErrSelfTransfer
	}

	txn, err := models.NewTransaction(kind, initiatorID, counterpartyID, amount, description)
	if err != nil {
		return nil, err
	}

	if err := s.transactionRepo.Create(ctx, txn); err != nil {
		entry.Error("Failed to record transaction: %v", err)
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	entry.Info("Transaction %s created", txn.TransactionID)
	s.publish(ctx, notify.NewEvent(notify.EventTransactionCreated, txn.TransactionID, txn.InitiatorID, txn.CounterpartyID))

	return txn, nil
}

// Confirm moves the funds and completes the transaction in one unit of work.
// On insufficient funds nothing is written and the transaction stays pending.
func (s *transferService) Confirm(ctx context.Context, transactionID, actingUserID uuid.UUID) (*models.Transaction, error) {
	entry := s.logger.WithFields(map[string]interface{}{
		"transaction_id": transactionID,
		"acting_user_id": actingUserID,
	})

	var completed *models.Transaction
	err := s.uow.Do(ctx, func(repos repository.Repositories) error {
		txn, err := s.lockPending(ctx, repos, transactionID, actingUserID)
		if err != nil {
			return err
		}

		payerID, payeeID := txn.Parties()

		first, second := repository.LockOrder(payerID, payeeID)
		for _, id := range []uuid.UUID{first, second} {
			if err := repos.Accounts.EnsureExists(ctx, id); err != nil {
				return err
			}
		}

		if err := repos.Accounts.Transfer(ctx, payerID, payeeID, txn.Amount); err != nil {
			return err
		}

		completed, err = repos.Transactions.Transition(ctx, transactionID, models.TransactionStatusPending, models.TransactionStatusCompleted)
		return err
	})
	if err != nil {
		entry.Warn("Confirm failed: %v", err)
		return nil, err
	}

	entry.Info("Transaction completed")
	s.publish(ctx, notify.NewEvent(notify.EventTransactionCompleted, transactionID, completed.InitiatorID, completed.CounterpartyID))
	s.publish(ctx, notify.NewEvent(notify.EventBalanceChanged, transactionID, completed.InitiatorID, completed.CounterpartyID))

	return completed, nil
}

func (s *transferService) Reject(ctx context.Context, transactionID, actingUserID uuid.UUID) (*models.Transaction, error) {
	entry := s.logger.WithFields(map[string]interface{}{
		"transaction_id": transactionID,
		"acting_user_id": actingUserID,
	})

	var rejected *models.Transaction
	err := s.uow.Do(ctx, func(repos repository.Repositories) error {
		if _, err := s.lockPending(ctx, repos, transactionID, actingUserID); err != nil {
			return err
		}

		var err error
		rejected, err = repos.Transactions.Transition(ctx, transactionID, models.TransactionStatusPending, models.TransactionStatusRejected)
		return err
	})
	if err != nil {
		entry.Warn("Reject failed: %v", err)
		return nil, err
	}

	entry.Info("Transaction rejected")
	s.publish(ctx, notify.NewEvent(notify.EventTransactionRejected, transactionID, rejected.InitiatorID, rejected.CounterpartyID))

	return rejected, nil
}

// lockPending loads the transaction under its row lock and checks it can still be
// resolved by actingUserID. A lost race surfaces as ErrAlreadyProcessed.
func (s *transferService) lockPending(ctx context.Context, repos repository.Repositories, transactionID, actingUserID uuid.UUID) (*models.Transaction, error) {
	txn, err := repos.Transactions.GetByIDForUpdate(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if txn.Status != models.TransactionStatusPending {
		return nil, fmt.Errorf("transaction %s is %s: %w", transactionID, txn.Status, models.ErrAlreadyProcessed)
	}

	if txn.Approver() != actingUserID {
		return nil, fmt.Errorf("user %s cannot resolve transaction %s: %w", actingUserID, transactionID, models.ErrForbidden)
	}

	return txn, nil
}

// GetTransaction returns a transaction to one of its two parties.
func (s *transferService) GetTransaction(ctx context.Context, transactionID, actingUserID uuid.UUID) (*models.Transaction, error) {
	txn, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if !txn.Involves(actingUserID) {
		return nil, fmt.Errorf("user %s is not a party of %s: %w", actingUserID, transactionID, models.ErrForbidden)
	}

	return txn, nil
}

func (s *transferService) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	transactions, err := s.transactionRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return transactions, nil
}

// publish runs after commit. Delivery failures are logged and never surface to the caller.
func (s *transferService) publish(ctx context.Context, event notify.Event) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"kind":           event.Kind,
			"transaction_id": event.TransactionID,
		}).Warn("Failed to publish event: %v", err)
	}
}
