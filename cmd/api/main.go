package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/inklessflow/inkless-backend/internal/auth"
	"github.com/inklessflow/inkless-backend/internal/config"
	"github.com/inklessflow/inkless-backend/internal/documents"
	"github.com/inklessflow/inkless-backend/internal/notifications"
	"github.com/inklessflow/inkless-backend/internal/signatures"
	"github.com/inklessflow/inkless-backend/pkg/storage"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Connect to database
	dbURL := cfg.Database.GetDatabaseURL()
	logger.Info("Connecting to database",
		zap.String("host", cfg.Database.Host),
		zap.String("db", cfg.Database.DBName))
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	// A second handle for the notification outbox, which is managed by gorm.
	gormDB, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open outbox database handle", zap.Error(err))
	}

	ctx := context.Background()

	// Notifications: outbox writer plus the scheduled dispatcher
	notifier, err := notifications.NewService(gormDB, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notifications", zap.Error(err))
	}
	channel, err := notifications.NewEmailChannel(ctx, cfg.Email)
	if err != nil {
		logger.Fatal("Failed to initialize email channel", zap.Error(err))
	}
	dispatcher := notifications.NewDispatcher(gormDB, channel, cfg.Email.From, cfg.Email.MaxAttempts, logger)
	scheduler := cron.New()
	if err := dispatcher.Schedule(scheduler, cfg.Email.DispatchSchedule); err != nil {
		logger.Fatal("Failed to schedule outbox dispatcher", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Object storage for document files and signature images
	store, err := storage.NewS3Client(ctx, cfg.Storage.Region)
	if err != nil {
		logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Auth Module
	authRepo := auth.NewRepository(db)
	authService := auth.NewService(authRepo, cfg.Security.JWTSecret, cfg.Security.TokenTTL, logger)
	authHandler := auth.NewHandler(authService)
	requireAuth := auth.RequireAuth(authService)
	optionalAuth := auth.OptionalAuth(authService)

	// Documents Module
	docsRepo := documents.NewRepository(db)
	links := documents.NewLinkIssuer(docsRepo, cfg.App.BaseURL)
	engine := documents.NewWorkflowEngine(docsRepo, notifier, links, logger)
	docsService := documents.NewService(docsRepo, engine, links, logger)
	docsHandler := documents.NewHandler(docsService, store, cfg.Storage.Bucket)

	// Signatures Module
	sigRepo := signatures.NewRepository(db)
	sigService := signatures.NewService(sigRepo, logger)
	sigHandler := signatures.NewHandler(sigService)

	// Setup Router
	gin.SetMode(gin.DebugMode)
	router := gin.Default()

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1")
	{
		authHandler.RegisterRoutes(api, requireAuth)
		docsHandler.RegisterRoutes(api, requireAuth, optionalAuth)
		sigHandler.RegisterRoutes(api, requireAuth)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:    cfg.Server.GetServerAddr(),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen: %s\n", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.Int("port", cfg.Server.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown:", zap.Error(err))
	}

	logger.Info("Server exiting")
}
