package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flacroncv-backend-go/internal/core"
	"flacroncv-backend-go/internal/models"
)

// AuthHandler serves /auth.
type AuthHandler struct {
	responder
	authService core.AuthService
}

func NewAuthHandler(as core.AuthService, logger *zap.Logger, production bool) *AuthHandler {
	return &AuthHandler{responder: newResponder(logger, production), authService: as}
}

// Login handles POST /auth/login. A body with a password signs in a
// credential account; otherwise {uid, email} from the client's Firebase
// session is exchanged for a service token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	var (
		res *core.AuthResult
		err error
	)
	if req.Password != "" {
		res, err = h.authService.PasswordLogin(c.Request.Context(), req.Email, req.Password)
	} else {
		res, err = h.authService.Login(c.Request.Context(), strings.TrimSpace(req.UID), strings.TrimSpace(req.Email))
	}
	if err != nil {
		h.respondError(c, err, "Error during login")
		return
	}
	ok(c, TokenResponse{Token: res.Token, User: res.User})
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Username, email and a password of at least 6 characters are required")
		return
	}
	res, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, "Error during registration")
		return
	}
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: TokenResponse{Token: res.Token, User: res.User}})
}

// Logout handles POST /auth/logout. Tokens are stateless; the client discards its own.
func (h *AuthHandler) Logout(c *gin.Context) {
	message(c, http.StatusOK, "Logged out")
}
