package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/bankLoan/pkg/config"
	"github.com/mcclellann/bankLoan/pkg/models"
	"github.com/mcclellann/bankLoan/pkg/store"
	"go.uber.org/zap"
)

// Bootstrap creates the admin superuser unless a user with that name already
// exists. It is safe to call on every start.
func Bootstrap(ctx context.Context, s store.Storage, cfg config.BootstrapConfig, logger *zap.Logger) (*models.User, error) {
	existing, err := s.GetUserByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up admin user: %w", err)
	}

	hash, err := HashPassword(cfg.AdminPassword)
	if err != nil {
		return nil, err
	}
	admin := &models.User{
		ID:           uuid.New(),
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsSuperuser:  true,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.CreateUser(ctx, admin); err != nil {
		// Another instance won the race.
		if errors.Is(err, store.ErrConflict) {
			return s.GetUserByUsername(ctx, cfg.AdminUsername)
		}
		return nil, err
	}
	logger.Info("superuser created", zap.String("username", admin.Username))
	return admin, nil
}
