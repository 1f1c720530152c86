package core

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"flacroncv-backend-go/internal/db"
	"flacroncv-backend-go/internal/models"
)

// AuthResult is returned by every successful sign-in.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type authService struct {
	users    db.UserRepository
	profiles UserService
	tokens   TokenIssuer
	logger   *zap.Logger
}

// NewAuthService creates the sign-in service.
func NewAuthService(users db.UserRepository, profiles UserService, tokens TokenIssuer, logger *zap.Logger) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{users: users, profiles: profiles, tokens: tokens, logger: logger}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, ErrTokenIssue.withCause(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Login exchanges a Firebase identity for a service token, provisioning the
// profile on first login.
func (s *authService) Login(ctx context.Context, uid, email string) (*AuthResult, error) {
	if strings.TrimSpace(uid) == "" || strings.TrimSpace(email) == "" {
		return nil, validationError("User ID and email are required")
	}
	user, created, err := s.profiles.GetOrCreate(ctx, uid, email, "", "")
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("First login, profile created", zap.String("userID", uid))
	}
	return s.issue(user)
}

func (s *authService) PasswordLogin(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, validationError("Email and password are required")
	}
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeError("find user by email", err)
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *authService) Register(ctx context.Context, req models.RegisterRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	if strings.TrimSpace(req.Username) == "" || email == "" || len(req.Password) < 6 {
		return nil, validationError("Username, email and a password of at least 6 characters are required")
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, db.ErrNotFound):
		return nil, storeError("find user by email", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, newError(ErrExternalService, "Failed to secure password").withCause(err)
	}
	user := &models.User{
		Email:        email,
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		Subscription: models.DefaultSubscription(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeError("create user", err)
	}
	s.logger.Info("Credential account registered", zap.String("userID", user.ID))
	return s.issue(user)
}
