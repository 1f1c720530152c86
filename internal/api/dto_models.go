package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flacroncv-backend-go/internal/core"
	"flacroncv-backend-go/internal/middleware"
)

// Envelope is the shape of every JSON response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Warning string      `json:"warning,omitempty"`
	Error   string      `json:"error,omitempty"` // cause detail, omitted in production
}

// TokenResponse is returned by login and register.
type TokenResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// URLResponse carries a redirect target such as a checkout URL.
type URLResponse struct {
	URL string `json:"url"`
}

// IdentityResponse is the body of GET /auth/user.
type IdentityResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// responder is embedded by every handler; it owns error translation.
type responder struct {
	logger     *zap.Logger
	production bool
}

func newResponder(logger *zap.Logger, production bool) responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return responder{logger: logger, production: production}
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func message(c *gin.Context, status int, msg string) {
	c.JSON(status, Envelope{Success: status < http.StatusBadRequest, Message: msg})
}

// statusFor maps the service error taxonomy to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope. Client errors carry the service's
// message; server errors carry fallback, plus the cause outside production.
func (r responder) respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		c.JSON(status, Envelope{Success: false, Message: core.ClientMessage(err, fallback)})
		return
	}

	_ = c.Error(err)
	r.logger.Error(fallback,
		zap.String("path", c.Request.URL.Path),
		zap.String("userID", c.GetString(middleware.ContextUserID)),
		zap.Error(err))
	env := Envelope{Success: false, Message: fallback}
	if !r.production {
		env.Error = err.Error()
	}
	c.JSON(status, env)
}

func badRequest(c *gin.Context, msg string) {
	message(c, http.StatusBadRequest, msg)
}
