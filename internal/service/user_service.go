package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"ledger-service/internal/logger"
	"ledger-service/internal/repository"
	"ledger-service/models"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,31}$`)

type UserService interface {
	Register(ctx context.Context, userID uuid.UUID, username, fullName string) (*models.Profile, error)
	ResolveUsername(ctx context.Context, username string) (uuid.UUID, error)
}

type userService struct {
	userRepo       repository.UserRepository
	uow            repository.UnitOfWork
	initialBalance int64
	logger         *logger.Logger
}

func NewUserService(userRepo repository.UserRepository, uow repository.UnitOfWork, initialBalance int64, log *logger.Logger) UserService {
	return &userService{
		userRepo:       userRepo,
		uow:            uow,
		initialBalance: initialBalance,
		logger:         log,
	}
}

// Register creates the profile and credits the starting balance together. Funds
// received before registering stay on the account.
func (s *userService) Register(ctx context.Context, userID uuid.UUID, username, fullName string) (*models.Profile, error) {
	username = models.NormalizeUsername(username)
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidUsername, username)
	}

	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		fullName = username
	}

	profile := &models.Profile{
		ID:       userID,
		Username: username,
		FullName: fullName,
	}

	entry := s.logger.WithFields(map[string]interface{}{
		"user_id":  userID,
		"username": username,
	})

	err := s.uow.Do(ctx, func(repos repository.Repositories) error {
		if err := repos.Users.Create(ctx, profile); err != nil {
			return err
		}
		return repos.Accounts.Open(ctx, &models.Account{
			UserID:  userID,
			Balance: s.initialBalance,
		})
	})
	if err != nil {
		entry.Warn("Registration failed: %v", err)
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	entry.Info("User registered")
	return profile, nil
}

func (s *userService) ResolveUsername(ctx context.Context, username string) (uuid.UUID, error) {
	normalized := models.NormalizeUsername(username)
	if normalized == "" {
		return uuid.Nil, fmt.Errorf("%w: %q", models.ErrUserNotFound, username)
	}

	profile, err := s.userRepo.GetByUsername(ctx, normalized)
	if err != nil {
		return uuid.Nil, err
	}

	return profile.ID, nil
}
