package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"flacroncv-backend-go/internal/db"
	"flacroncv-backend-go/internal/models"
)

// userService implements the UserService interface.
type userService struct {
	userRepo db.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new UserService instance.
func NewUserService(userRepo db.UserRepository, logger *zap.Logger) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userService{userRepo: userRepo, logger: logger}
}

// GetOrCreate retrieves a user by ID, provisioning a free account on first
// sight. The boolean reports whether the user was created.
func (s *userService) GetOrCreate(ctx context.Context, userID, email, displayName, photoURL string) (*models.User, bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, storeError(fmt.Sprintf("get user %s", userID), err)
	}

	username := displayName
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	newUser := &models.User{
		ID:           userID,
		Email:        email,
		Username:     username,
		DisplayName:  displayName,
		PhotoURL:     photoURL,
		Role:         models.RoleUser,
		Subscription: models.DefaultSubscription(),
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			// Lost a race with a concurrent first login.
			existing, getErr := s.userRepo.GetByID(ctx, userID)
			if getErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, storeError(fmt.Sprintf("create user %s", userID), err)
	}
	s.logger.Info("User provisioned", zap.String("userID", userID), zap.String("email", email))
	return newUser, true, nil
}

// GetByID retrieves a user by their ID.
func (s *userService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError(fmt.Sprintf("get user %s", userID), err)
	}
	return user, nil
}
