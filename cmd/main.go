package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"checkbox/internal/analytics"
	"checkbox/internal/caching"
	"checkbox/internal/config"
	"checkbox/internal/handlers"
	"checkbox/internal/jobs/background"
	"checkbox/internal/middleware"
	"checkbox/internal/repositories"
	"checkbox/internal/services"
	"checkbox/pkg/database"
)

func main() {
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = random.String(32)
		log.Printf("WARNING: JWT_SECRET not set, using generated secret")
	}

	pool, err := database.NewPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, pool); err != nil {
		cancel()
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	cancel()

	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	storage, err := services.NewMinioReceiptStorage(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("Failed to initialize receipt storage: %v", err)
	}
	if err := storage.EnsureBucketExists(context.Background(), cfg.ReceiptsBucket); err != nil {
		log.Printf("WARNING: Failed to ensure receipts bucket: %v", err)
	}

	uowManager := repositories.NewUnitOfWorkManager(pool)

	userSvc := services.NewUserService(uowManager)
	checkSvc := services.NewCheckService(uowManager)
	authSvc := services.NewAuthService(
		cacheSvc,
		uowManager,
		cfg.JWTSecret,
		time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute,
		time.Duration(cfg.RefreshTokenTTLDays)*24*time.Hour,
	)
	analyticsSvc := analytics.NewService(pool, cacheSvc)

	retention := time.Duration(cfg.PDFRetentionDays) * 24 * time.Hour
	scheduler, err := background.NewJobScheduler(analyticsSvc, storage, cfg.ReceiptsBucket, retention)
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("Failed to stop job scheduler: %v", err)
		}
	}()

	authHandlers := handlers.NewAuthHandlers(userSvc, authSvc)
	checkHandlers := handlers.NewCheckHandlers(checkSvc, analyticsSvc, cacheSvc, storage, cfg.ReceiptsBucket)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc, storage, cfg.ReceiptsBucket)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)

	auth := e.Group("/auth", middleware.RateLimitMiddleware(cacheSvc, 20, time.Minute))
	auth.POST("/register", authHandlers.Register)
	auth.POST("/login", authHandlers.Login)
	auth.POST("/refresh", authHandlers.Refresh)

	// Public receipt page, no auth
	e.GET("/checks/public/:uuid", checkHandlers.PublicCheck)

	checks := e.Group("/checks", middleware.JWTMiddleware(authSvc))
	checks.POST("", checkHandlers.CreateCheck)
	checks.GET("", checkHandlers.ListChecks)
	checks.GET("/stats", checkHandlers.GetStats)
	checks.GET("/:id", checkHandlers.GetCheck)
	checks.GET("/:id/pdf", checkHandlers.GetCheckPDF)

	log.Fatal(e.Start(fmt.Sprintf(":%d", cfg.Port)))
}
