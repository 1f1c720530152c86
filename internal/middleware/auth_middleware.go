package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flacroncv-backend-go/internal/auth"
	"flacroncv-backend-go/internal/core"
	"flacroncv-backend-go/internal/models"
)

// Gin context keys set by Authenticate.
const (
	ContextUserID          = "userID"
	ContextUserEmail       = "userEmail"
	ContextUserDisplayName = "userDisplayName"
	ContextUserPhotoURL    = "userPhotoURL"
)

// errorEnvelope mirrors the API envelope; defined here to avoid an import cycle with internal/api.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorEnvelope{Success: false, Message: msg})
}

// AuthMiddleware authenticates bearer tokens and gates admin routes.
type AuthMiddleware struct {
	verifier auth.TokenVerifier
	logger   *zap.Logger
}

// NewAuthMiddleware panics on a nil verifier; the server cannot serve
// authenticated routes without one.
func NewAuthMiddleware(verifier auth.TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	if verifier == nil {
		panic("AuthMiddleware requires a token verifier")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// Authenticate verifies "Authorization: Bearer <token>" and stores the caller's
// identity in the Gin context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, http.StatusUnauthorized, "No token, authorization denied")
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, "Authorization header format must be 'Bearer {token}'")
			return
		}

		id, err := m.verifier.Verify(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			m.logger.Debug("Token verification failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			abort(c, http.StatusUnauthorized, "Token is not valid")
			return
		}

		c.Set(ContextUserID, id.UID)
		c.Set(ContextUserEmail, id.Email)
		if id.DisplayName != "" {
			c.Set(ContextUserDisplayName, id.DisplayName)
		}
		if id.PhotoURL != "" {
			c.Set(ContextUserPhotoURL, id.PhotoURL)
		}
		c.Next()
	}
}

// UserLookup loads the persisted profile for the admin decision.
type UserLookup interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// RequireAdmin must run after Authenticate. The configured allow-list is
// checked against the token email first; otherwise the stored role decides.
// A failed profile lookup denies access.
func (m *AuthMiddleware) RequireAdmin(policy core.AuthorizationPolicy, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString(ContextUserID)
		email := c.GetString(ContextUserEmail)
		if uid == "" {
			abort(c, http.StatusUnauthorized, "No token, authorization denied")
			return
		}
		if policy.IsAdminEmail(email) {
			c.Next()
			return
		}

		user, err := users.GetByID(c.Request.Context(), uid)
		if err != nil {
			m.logger.Warn("Admin check: user lookup failed", zap.String("userID", uid), zap.Error(err))
			abort(c, http.StatusForbidden, core.ErrAdminRequired.Message())
			return
		}
		if !policy.IsAdmin(email, user) {
			abort(c, http.StatusForbidden, core.ErrAdminRequired.Message())
			return
		}
		c.Next()
	}
}
