package auth

import (
	"context"
	"errors"
	"fmt"

	firebaseauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
)

// Identity is the authenticated caller.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// TokenVerifier turns a bearer token into an Identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// IDTokenVerifier is the part of the Firebase auth client used here.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseVerifier checks Firebase ID tokens.
type FirebaseVerifier struct {
	client IDTokenVerifier
}

// NewFirebaseVerifier wraps a Firebase auth client (*auth.Client satisfies IDTokenVerifier).
func NewFirebaseVerifier(client IDTokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	t, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id := &Identity{UID: t.UID}
	if email, ok := t.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := t.Claims["name"].(string); ok {
		id.DisplayName = name
	}
	if picture, ok := t.Claims["picture"].(string); ok {
		id.PhotoURL = picture
	}
	return id, nil
}

// JWTVerifier adapts a JWTIssuer to TokenVerifier.
type JWTVerifier struct {
	issuer *JWTIssuer
}

// NewJWTVerifier creates a verifier for tokens signed by issuer.
func NewJWTVerifier(issuer *JWTIssuer) *JWTVerifier {
	return &JWTVerifier{issuer: issuer}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	claims, err := v.issuer.Parse(token)
	if err != nil {
		return nil, err
	}
	return &Identity{UID: claims.UID, Email: claims.Email}, nil
}

// ChainVerifier tries each verifier in order and returns the first success.
type ChainVerifier struct {
	verifiers []TokenVerifier
	logger    *zap.Logger
}

// NewChainVerifier builds a chain, skipping nil verifiers.
func NewChainVerifier(logger *zap.Logger, verifiers ...TokenVerifier) *ChainVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &ChainVerifier{logger: logger}
	for _, v := range verifiers {
		if v != nil {
			c.verifiers = append(c.verifiers, v)
		}
	}
	return c
}

func (c *ChainVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	var errs []error
	for _, v := range c.verifiers {
		id, err := v.Verify(ctx, token)
		if err == nil {
			return id, nil
		}
		errs = append(errs, err)
	}
	c.logger.Debug("Bearer token rejected by all verifiers", zap.Error(errors.Join(errs...)))
	return nil, ErrInvalidToken
}
