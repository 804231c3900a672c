package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/ledger"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// SeedAdmin creates the configured administrator unless a user with that
// email already exists.
func SeedAdmin(ctx context.Context, users UserStore, admin config.Admin, logger *slog.Logger) error {
	if admin.Email == "" {
		return nil
	}
	_, err := users.GetUserByEmail(ctx, admin.Email)
	if err == nil {
		logger.Info("admin user already exists", "email", admin.Email)
		return nil
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		return err
	}

	hash, err := HashPassword(admin.Password)
	if err != nil {
		return err
	}
	user := models.User{
		Username: admin.Username,
		Email:    admin.Email,
		Password: hash,
		IsAdmin:  true,
	}
	if err := users.CreateUser(ctx, &user); err != nil {
		return err
	}
	logger.Info("admin user created", "email", admin.Email, "user_id", user.ID)
	return nil
}
