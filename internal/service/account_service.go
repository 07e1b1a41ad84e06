package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ledger-service/internal/logger"
	"ledger-service/internal/repository"
)

type AccountService interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
}

type accountService struct {
	accountRepo repository.AccountRepository
	logger      *logger.Logger
}

func NewAccountService(accountRepo repository.AccountRepository, log *logger.Logger) AccountService {
	return &accountService{
		accountRepo: accountRepo,
		logger:      log,
	}
}

// GetBalance returns the balance in minor units; a user without an account has 0.
func (s *accountService) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	balance, err := s.accountRepo.GetBalance(ctx, userID)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{"user_id": userID}).Error("Failed to read balance: %v", err)
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return balance, nil
}
