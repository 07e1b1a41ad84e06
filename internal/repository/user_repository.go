package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ledger-service/internal/logger"
	"ledger-service/models"
)

type UserRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
}

type userRepository struct {
	db     DBTX
	logger *logger.Logger
}

func NewUserRepository(db DBTX, log *logger.Logger) UserRepository {
	return &userRepository{
		db:     db,
		logger: log,
	}
}

func (r *userRepository) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (id, username, full_name)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, profile.ID, profile.Username, profile.FullName).Scan(&profile.CreatedAt)
	if err == nil {
		return nil
	}

	if pqErr, ok := isUniqueViolation(err); ok {
		if pqErr.Constraint == "profiles_pkey" {
			return fmt.Errorf("profile %s: %w", profile.ID, models.ErrAccountExists)
		}
		return fmt.Errorf("username %q: %w", profile.Username, models.ErrUsernameTaken)
	}

	r.logger.WithFields(map[string]interface{}{
		"user_id":  profile.ID,
		"username": profile.Username,
	}).Error("Failed to insert profile: %v", err)
	return storageError("failed to create profile", err)
}

// GetByUsername expects an already normalized username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	query := `SELECT id, username, full_name, created_at FROM profiles WHERE username = $1`

	p := &models.Profile{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(&p.ID, &p.Username, &p.FullName, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%q: %w", username, models.ErrUserNotFound)
		}
		return nil, storageError("failed to get profile", err)
	}
	return p, nil
}
