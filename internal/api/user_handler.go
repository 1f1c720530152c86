package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flacroncv-backend-go/internal/middleware"
)

// callerID returns the authenticated user's ID, writing a 401 when absent.
func callerID(c *gin.Context) (string, bool) {
	uid := c.GetString(middleware.ContextUserID)
	if uid == "" {
		message(c, http.StatusUnauthorized, "No token, authorization denied")
		return "", false
	}
	return uid, true
}

// CurrentUser handles GET /auth/user.
func CurrentUser(c *gin.Context) {
	uid, found := callerID(c)
	if !found {
		return
	}
	ok(c, IdentityResponse{ID: uid, Email: c.GetString(middleware.ContextUserEmail)})
}
