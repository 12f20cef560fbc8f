package service

import (
	"context"
	"errors"
	"strings"

	"studio/api/internal/models"
	"studio/api/internal/repository"
)

type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

type ProfileInput struct {
	Name  string
	Phone string
}

// UpdateProfile marks the profile completed once both name and phone are set.
func (s *UserService) UpdateProfile(ctx context.Context, identity Identity, input ProfileInput) (models.User, error) {
	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.Phone)
	if name == "" {
		return models.User{}, invalidInput("name is required")
	}

	user, err := s.users.UpdateProfile(ctx, identity.UserID, name, phone, name != "" && phone != "")
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

func (s *UserService) List(ctx context.Context, identity Identity, role string) ([]models.User, error) {
	if !identity.IsAdmin() {
		return nil, ErrForbidden
	}
	filter := models.UserRole(strings.TrimSpace(strings.ToLower(role)))
	if filter != "" && !filter.Valid() {
		return nil, invalidInput("unknown role %q", role)
	}
	return s.users.List(ctx, filter)
}
