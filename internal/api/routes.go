package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flacroncv-backend-go/internal/config"
	"flacroncv-backend-go/internal/core"
	"flacroncv-backend-go/internal/middleware"
)

// Services bundles everything the HTTP layer depends on.
type Services struct {
	Auth          core.AuthService
	Users         core.UserService
	Subscriptions core.SubscriptionService
	Resumes       core.DocumentService
	CoverLetters  core.DocumentService
	Admin         core.AdminService
	Policy        core.AuthorizationPolicy
	Events        core.EventParser
	PDF           PDFConverter
}

// SetupRoutes registers every route under /api plus the health checks.
// Global middleware (recovery, logging, CORS) is applied by the caller.
func SetupRoutes(router *gin.Engine, appConfig *config.Config, logger *zap.Logger, authMW *middleware.AuthMiddleware, svc Services) {
	prod := appConfig.IsProduction()
	requireAuth := authMW.Authenticate()

	authHandler := NewAuthHandler(svc.Auth, logger, prod)
	resumeHandler := NewDocumentHandler(svc.Resumes, logger, prod)
	letterHandler := NewDocumentHandler(svc.CoverLetters, logger, prod)
	paymentHandler := NewPaymentHandler(svc.Subscriptions, svc.Events, logger, prod)
	adminHandler := NewAdminHandler(svc.Admin, logger, prod)
	pdfHandler := NewPDFHandler(svc.PDF, appConfig.MaxUploadBytes, logger, prod)

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "FlacronCV API is running"})
	}
	router.GET("/health", health)

	api := router.Group("/api")
	api.GET("", health)
	api.GET("/health", health)
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/logout", requireAuth, authHandler.Logout)
		authGroup.GET("/user", requireAuth, CurrentUser)

		resumeGroup := api.Group("/resume", requireAuth)
		registerDocumentRoutes(resumeGroup, resumeHandler)
		resumeGroup.POST("/enhance-summary", resumeHandler.EnhanceSummary)

		letterGroup := api.Group("/cover-letter", requireAuth)
		registerDocumentRoutes(letterGroup, letterHandler)

		paymentGroup := api.Group("/payment")
		paymentGroup.GET("/plans", paymentHandler.Plans)
		// Authenticated by the provider signature, not a bearer token.
		paymentGroup.POST("/webhook", paymentHandler.Webhook)
		paymentGroup.POST("/checkout", requireAuth, paymentHandler.Checkout)
		paymentGroup.GET("/verify", requireAuth, paymentHandler.Verify)
		paymentGroup.POST("/unsubscribe", requireAuth, paymentHandler.Unsubscribe)

		adminGroup := api.Group("/admin", requireAuth, authMW.RequireAdmin(svc.Policy, svc.Users))
		adminGroup.GET("/stats", adminHandler.Stats)
		adminGroup.GET("/users", adminHandler.Users)
		adminGroup.PUT("/users/:id", adminHandler.UpdateUser)
		adminGroup.GET("/documents", adminHandler.Documents)
		adminGroup.PUT("/documents/:id", adminHandler.UpdateDocument)
		adminGroup.DELETE("/documents/:id", adminHandler.DeleteDocument)
		adminGroup.POST("/webhooks", adminHandler.RegisterWebhook)
		adminGroup.GET("/audit-logs", adminHandler.AuditLogs)

		api.POST("/convert-to-cmyk-pdf", pdfHandler.Convert)
	}

	router.NoRoute(func(c *gin.Context) {
		message(c, http.StatusNotFound, "Route not found")
	})

	logger.Info("API routes configured under /api")
}

func registerDocumentRoutes(g *gin.RouterGroup, h *DocumentHandler) {
	g.GET("", h.List)
	g.POST("", h.Generate)
	g.POST("/generate", h.Generate)
	g.POST("/enhance", h.Enhance)
	g.POST("/ai-feedback", h.Feedback)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
