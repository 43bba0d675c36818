package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // Import pprof for profiling
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nitikorn/featured-slots/internal/di"
	"github.com/nitikorn/featured-slots/internal/gateway"
	"github.com/nitikorn/featured-slots/internal/metrics"
	"github.com/nitikorn/featured-slots/internal/repository"
	"github.com/nitikorn/featured-slots/internal/service"
	"github.com/nitikorn/featured-slots/internal/worker"
	"github.com/nitikorn/featured-slots/pkg/config"
	"github.com/nitikorn/featured-slots/pkg/database"
	"github.com/nitikorn/featured-slots/pkg/logger"
	"github.com/nitikorn/featured-slots/pkg/middleware"
	pkgredis "github.com/nitikorn/featured-slots/pkg/redis"
	"github.com/nitikorn/featured-slots/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Featured Slots Service...")

	ctx := context.Background()

	// Initialize tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		appLog.Warn(fmt.Sprintf("Telemetry init failed, continuing without tracing: %v", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	if err := metrics.Init(); err != nil {
		appLog.Warn(fmt.Sprintf("Metrics init failed: %v", err))
	}

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   1 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Apply schema migrations
	if err := database.Migrate(cfg.Database.MigrationsPath, dbCfg); err != nil {
		appLog.Fatal(fmt.Sprintf("Database migration failed: %v", err))
	}
	appLog.Info("Database migrations applied")

	// Initialize Redis connection
	redisCfg := &pkgredis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}
	redisClient, err := pkgredis.NewClient(ctx, redisCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer redisClient.Close()
	appLog.Info(fmt.Sprintf("Redis connected (pool: %d)", redisCfg.PoolSize))

	// Initialize Kafka event publisher
	var eventPublisher service.EventPublisher
	if cfg.Kafka.Enabled {
		eventPublisher, err = service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			ServiceName: cfg.App.Name,
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

	// Initialize checkout gateway
	checkout, err := gateway.NewGateway(&gateway.Config{
		Provider:      cfg.Checkout.Provider,
		SecretKey:     cfg.Checkout.SecretKey,
		WebhookSecret: cfg.Checkout.WebhookSecret,
		SuccessURL:    cfg.Checkout.SuccessURL,
		CancelURL:     cfg.Checkout.CancelURL,
		SessionTTL:    cfg.Checkout.SessionTTL,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Checkout gateway init failed: %v", err))
	}
	appLog.Info(fmt.Sprintf("Checkout gateway ready (provider: %s)", checkout.Name()))

	// Initialize content service client
	var contentClient service.ContentClient
	if cfg.Content.BaseURL != "" {
		contentClient = service.NewHTTPContentClient(cfg.Content.BaseURL, cfg.Content.Timeout)
	} else {
		contentClient = service.NewNoOpContentClient()
	}

	// Initialize repositories
	bookingRepo := repository.NewPostgresBookingRepository(db.Pool())
	catalogRepo := repository.NewCachedCatalogRepository(
		repository.NewPostgresCatalogRepository(db.Pool()),
		redisClient.Client(),
		cfg.Redis.CatalogTTL,
	)
	slotRepo := repository.NewPostgresDisplaySlotRepository(db.Pool())

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:             db,
		Redis:          redisClient,
		BookingRepo:    bookingRepo,
		CatalogRepo:    catalogRepo,
		SlotRepo:       slotRepo,
		Checkout:       checkout,
		ContentClient:  contentClient,
		EventPublisher: eventPublisher,
		WebhookSecret:  cfg.Checkout.WebhookSecret,
		Currency:       cfg.Checkout.Currency,
		SweepConfig: &worker.SweepWorkerConfig{
			ScanInterval:   cfg.Sweep.Interval,
			PendingTimeout: cfg.Sweep.PendingTimeout,
			BatchSize:      cfg.Sweep.BatchSize,
		},
	})
	defer container.Close()

	// Start the expiry sweeper alongside the API
	if err := container.SweepWorker.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start sweep worker: %v", err))
	}

	// Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DisableConsoleColor()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware(cfg.App.Name))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	// Worker and pool stats for monitoring
	router.GET("/metrics", func(c *gin.Context) {
		stats := db.Stats()
		c.JSON(http.StatusOK, gin.H{
			"db_pool": gin.H{
				"total_conns":    stats.TotalConns(),
				"acquired_conns": stats.AcquiredConns(),
				"idle_conns":     stats.IdleConns(),
				"max_conns":      stats.MaxConns(),
			},
			"sweep_worker": container.SweepWorker.GetStats(),
		})
	})

	// API routes
	featured := router.Group("/featured")
	{
		featured.GET("/quote", container.BookingHandler.Quote)
		featured.GET("/display-slots", container.BookingHandler.ListDisplaySlots)

		featured.GET("/pricing", container.PricingHandler.ListEntries)
		featured.GET("/pricing/:category", container.PricingHandler.GetEntry)
		featured.PUT("/pricing/:category", container.PricingHandler.UpdateEntry)

		// The checkout provider signs its own requests, no idempotency key
		featured.POST("/webhooks/checkout", container.WebhookHandler.HandleStripeWebhook)

		bookings := featured.Group("/bookings")
		{
			idempotencyConfig := middleware.DefaultIdempotencyConfig(redisClient.Client())
			bookings.POST("", middleware.Idempotency(idempotencyConfig), container.BookingHandler.Reserve)
			bookings.GET("", container.BookingHandler.ListBookings)
			bookings.GET("/:id", container.BookingHandler.GetBooking)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Start pprof server on separate port for profiling
	go func() {
		pprofAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port+1000)
		appLog.Info(fmt.Sprintf("pprof server listening on %s", pprofAddr))
		if err := http.ListenAndServe(pprofAddr, nil); err != nil {
			appLog.Error(fmt.Sprintf("pprof server error: %v", err))
		}
	}()

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Featured Slots Service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
