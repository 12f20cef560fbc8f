package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/api/internal/config"
	"studio/api/internal/ids"
	"studio/api/internal/models"
	"studio/api/internal/repository"
	"studio/api/internal/security"
)

// SeedAdmin creates the configured admin account if no user holds its email.
// Running it again is a no-op.
func SeedAdmin(ctx context.Context, users UserStore, cfg config.SecurityConfig, log zerolog.Logger) error {
	email := strings.TrimSpace(strings.ToLower(cfg.SeedAdminEmail))
	if email == "" || cfg.SeedAdminPassword == "" {
		return nil
	}

	existing, err := users.FindByEmail(ctx, email)
	if err == nil {
		if !existing.IsAdmin() {
			log.Warn().Str("email", email).Msg("seed admin email belongs to a non-admin user")
		}
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("lookup seed admin: %w", err)
	}

	hash, err := security.HashPassword(cfg.SeedAdminPassword, cfg.BcryptCost)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(cfg.SeedAdminName)
	if name == "" {
		name = "Studio Admin"
	}

	now := time.Now().UTC()
	admin := models.User{
		ID:           ids.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.UserRoleAdmin,
		Verified:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil
		}
		return fmt.Errorf("create seed admin: %w", err)
	}

	log.Info().Str("user_id", admin.ID).Str("email", email).Msg("seed admin created")
	return nil
}
