package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/inklessflow/inkless-backend/internal/config"
	"github.com/inklessflow/inkless-backend/internal/notifications"
)

// Standalone outbox worker. Runs the email dispatcher on a cron schedule
// without the API server, for deployments that separate web and delivery.
func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	logger.Info("Connected to database")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel, err := notifications.NewEmailChannel(ctx, cfg.Email)
	if err != nil {
		logger.Fatal("Failed to initialize email channel", zap.Error(err))
	}
	dispatcher := notifications.NewDispatcher(db, channel, cfg.Email.From, cfg.Email.MaxAttempts, logger)

	scheduler := cron.New()
	if err := dispatcher.Schedule(scheduler, cfg.Email.DispatchSchedule); err != nil {
		logger.Fatal("Failed to schedule outbox dispatcher", zap.Error(err))
	}

	// Drain anything already queued, then hand off to the scheduler
	if err := dispatcher.Run(ctx); err != nil {
		logger.Error("Initial outbox run failed", zap.Error(err))
	}
	scheduler.Start()

	logger.Info("Outbox worker starting", zap.String("schedule", cfg.Email.DispatchSchedule))

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutdown signal received")

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("Outbox worker stopped")
}
