package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nitikorn/featured-slots/internal/repository"
	"github.com/nitikorn/featured-slots/internal/service"
	"github.com/nitikorn/featured-slots/internal/worker"
	"github.com/nitikorn/featured-slots/pkg/config"
	"github.com/nitikorn/featured-slots/pkg/database"
	"github.com/nitikorn/featured-slots/pkg/logger"
)

// Standalone expiry sweeper. Deploy this instead of the in-process worker
// when the API runs more than one replica, so only one sweeper scans.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: "sweep-worker",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Sweep Worker...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:          cfg.Database.Host,
		Port:          cfg.Database.Port,
		User:          cfg.Database.User,
		Password:      cfg.Database.Password,
		Database:      cfg.Database.DBName,
		SSLMode:       cfg.Database.SSLMode,
		MaxConns:      10,
		MinConns:      2,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Initialize Kafka event publisher
	var eventPublisher service.EventPublisher
	if cfg.Kafka.Enabled {
		eventPublisher, err = service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			ServiceName: "sweep-worker",
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Kafka connection failed, using no-op publisher: %v", err))
			eventPublisher = service.NewNoOpEventPublisher()
		} else {
			appLog.Info("Kafka event publisher connected")
		}
	} else {
		eventPublisher = service.NewNoOpEventPublisher()
	}
	defer eventPublisher.Close()

	// Initialize content service client
	var contentClient service.ContentClient
	if cfg.Content.BaseURL != "" {
		contentClient = service.NewHTTPContentClient(cfg.Content.BaseURL, cfg.Content.Timeout)
	} else {
		contentClient = service.NewNoOpContentClient()
	}

	// Initialize repositories
	bookingRepo := repository.NewPostgresBookingRepository(db.Pool())
	slotRepo := repository.NewPostgresDisplaySlotRepository(db.Pool())
	assigner := service.NewSlotAssigner(slotRepo)

	// Create worker
	sweepWorker := worker.NewSweepWorker(
		bookingRepo,
		assigner,
		contentClient,
		eventPublisher,
		&worker.SweepWorkerConfig{
			ScanInterval:   cfg.Sweep.Interval,
			PendingTimeout: cfg.Sweep.PendingTimeout,
			BatchSize:      cfg.Sweep.BatchSize,
		},
	)

	// Start worker
	if err := sweepWorker.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start worker: %v", err))
	}

	appLog.Info("Sweep Worker started successfully")

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down worker...")
	sweepWorker.Stop()
	cancel()

	appLog.Info("Worker exited gracefully")
}
