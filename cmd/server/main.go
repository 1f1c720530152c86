package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"flacroncv-backend-go/internal/ai"
	"flacroncv-backend-go/internal/api"
	"flacroncv-backend-go/internal/auth"
	"flacroncv-backend-go/internal/config"
	"flacroncv-backend-go/internal/core"
	"flacroncv-backend-go/internal/db"
	"flacroncv-backend-go/internal/middleware"
	"flacroncv-backend-go/internal/notify"
	"flacroncv-backend-go/internal/payment"
	"flacroncv-backend-go/internal/pdf"
	"flacroncv-backend-go/pkg/cache"
	"flacroncv-backend-go/pkg/messagequeue"
)

func newLogger(appEnv string) (*zap.Logger, error) {
	if strings.EqualFold(appEnv, "production") {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	// .env is a development convenience; release deployments set real env vars.
	if !strings.EqualFold(os.Getenv("GIN_MODE"), "release") {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("WARN: could not load .env: %v", err)
		}
	}

	zapLogger, err := newLogger(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()

	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("Failed to load application configuration", zap.Error(err))
	}

	initCtx, cancelInit := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInit()
	if err := db.InitFirestore(initCtx, appConfig, zapLogger); err != nil {
		zapLogger.Fatal("Failed to initialize Firestore and Firebase Admin SDK", zap.Error(err))
	}
	defer db.Close()
	firestoreClient := db.GetFirestoreClient()

	// Repositories.
	userRepo := db.NewFirestoreUserRepository(firestoreClient)
	resumeRepo := db.NewFirestoreResumeRepository(firestoreClient)
	letterRepo := db.NewFirestoreCoverLetterRepository(firestoreClient)
	auditRepo := db.NewFirestoreAuditRepository(firestoreClient)

	// Optional infrastructure. Each piece degrades to "off" when unconfigured.
	var priceCache core.PriceCache
	if appConfig.RedisAddr != "" {
		rc, err := cache.NewRedisCache(initCtx, cache.RedisConfig{
			Address:   appConfig.RedisAddr,
			Password:  appConfig.RedisPassword,
			DB:        appConfig.RedisDB,
			KeyPrefix: "flacroncv:",
		}, zapLogger)
		if err != nil {
			zapLogger.Warn("Redis unavailable, plan prices will not be cached", zap.Error(err))
		} else {
			defer rc.Close()
			priceCache = rc
		}
	}

	var notifiers []core.Notifier
	if appConfig.NotifyWebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(appConfig.NotifyWebhookURL, nil))
	}
	if appConfig.AMQPURL != "" {
		publisher, err := messagequeue.NewRabbitMQPublisher(messagequeue.RabbitMQConfig{URL: appConfig.AMQPURL}, zapLogger)
		if err != nil {
			zapLogger.Warn("RabbitMQ unavailable, queue notifications disabled", zap.Error(err))
		} else {
			defer publisher.Close()
			notifiers = append(notifiers, notify.NewQueueNotifier(publisher, appConfig.NotifyQueue))
		}
	}
	notifier := notify.NewFanout(zapLogger, notifiers...)

	var enhancer core.ContentEnhancer
	if appConfig.GeminiAPIKey != "" {
		gen, err := ai.NewGeminiGenerator(initCtx, appConfig.GeminiAPIKey, appConfig.GeminiModel)
		if err != nil {
			zapLogger.Fatal("Failed to initialize Gemini client", zap.Error(err))
		}
		defer gen.Close()
		enhancer = ai.NewEnhancer(gen, zapLogger)
	} else {
		zapLogger.Warn("GEMINI_API_KEY not set, AI enhancement disabled")
	}

	// Services.
	auditService := core.NewAuditService(auditRepo)
	userService := core.NewUserService(userRepo, zapLogger)
	tokenIssuer, err := auth.NewJWTIssuer(appConfig.JWTSecret, auth.DefaultTokenTTL)
	if err != nil {
		zapLogger.Fatal("Failed to initialize token issuer", zap.Error(err))
	}
	resumeService := core.NewDocumentService(resumeRepo, userRepo, enhancer, zapLogger)
	letterService := core.NewDocumentService(letterRepo, userRepo, enhancer, zapLogger)
	subscriptionService := core.NewSubscriptionService(userRepo,
		payment.NewStripeGateway(appConfig.StripeSecretKey, zapLogger),
		notifier, auditService, priceCache,
		core.SubscriptionConfig{
			PriceTable:   appConfig.PriceTable(),
			ClientURL:    strings.TrimRight(appConfig.ClientURL, "/"),
			PlanCacheTTL: appConfig.PlanCacheTTL,
		}, zapLogger)

	services := api.Services{
		Auth:          core.NewAuthService(userRepo, userService, tokenIssuer, zapLogger),
		Users:         userService,
		Subscriptions: subscriptionService,
		Resumes:       resumeService,
		CoverLetters:  letterService,
		Admin:         core.NewAdminService(userRepo, resumeRepo, letterRepo, resumeService, letterService, auditService, zapLogger),
		Policy:        core.NewAuthorizationPolicy(appConfig.AdminEmails),
		Events:        payment.NewWebhookProcessor(appConfig.StripeWebhookSecret),
		PDF:           pdf.NewRasterizer("", zapLogger),
	}

	// Firebase ID tokens first, then tokens this service issued.
	verifier := auth.NewChainVerifier(zapLogger,
		auth.NewFirebaseVerifier(db.GetFirebaseAuthClient()),
		auth.NewJWTVerifier(tokenIssuer),
	)
	authMW := middleware.NewAuthMiddleware(verifier, zapLogger)

	if strings.EqualFold(appConfig.GinMode, "release") {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.MaxMultipartMemory = appConfig.MaxUploadBytes
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(appConfig))

	api.SetupRoutes(router, appConfig, zapLogger, authMW, services)

	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zapLogger.Info("Starting HTTP server", zap.String("address", serverAddr),
			zap.String("ginMode", gin.Mode()), zap.String("appEnv", appConfig.AppEnv))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Graceful shutdown failed", zap.Error(err))
		return
	}
	zapLogger.Info("Server exiting gracefully.")
}
