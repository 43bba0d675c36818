package di

import (
	"github.com/nitikorn/featured-slots/internal/gateway"
	"github.com/nitikorn/featured-slots/internal/handler"
	"github.com/nitikorn/featured-slots/internal/repository"
	"github.com/nitikorn/featured-slots/internal/service"
	"github.com/nitikorn/featured-slots/internal/worker"
	"github.com/nitikorn/featured-slots/pkg/database"
	"github.com/nitikorn/featured-slots/pkg/redis"
)

// Container holds all dependencies for the featured slots service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	BookingRepo repository.BookingRepository
	CatalogRepo repository.CatalogRepository
	SlotRepo    repository.DisplaySlotRepository

	// External collaborators
	Checkout       gateway.CheckoutGateway
	ContentClient  service.ContentClient
	EventPublisher service.EventPublisher

	// Services
	BookingService      service.BookingService
	AvailabilityService service.AvailabilityService
	CatalogService      service.CatalogService
	ReconcilerService   service.ReconcilerService
	SlotAssigner        service.SlotAssigner

	// Workers
	SweepWorker *worker.SweepWorker

	// Handlers
	HealthHandler  *handler.HealthHandler
	BookingHandler *handler.BookingHandler
	PricingHandler *handler.PricingHandler
	WebhookHandler *handler.WebhookHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB             *database.PostgresDB
	Redis          *redis.Client
	BookingRepo    repository.BookingRepository
	CatalogRepo    repository.CatalogRepository
	SlotRepo       repository.DisplaySlotRepository
	Checkout       gateway.CheckoutGateway
	ContentClient  service.ContentClient
	EventPublisher service.EventPublisher
	WebhookSecret  string
	Currency       string
	SweepConfig    *worker.SweepWorkerConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		BookingRepo:    cfg.BookingRepo,
		CatalogRepo:    cfg.CatalogRepo,
		SlotRepo:       cfg.SlotRepo,
		Checkout:       cfg.Checkout,
		ContentClient:  cfg.ContentClient,
		EventPublisher: cfg.EventPublisher,
	}

	if c.EventPublisher == nil {
		c.EventPublisher = service.NewNoOpEventPublisher()
	}
	if c.ContentClient == nil {
		c.ContentClient = service.NewNoOpContentClient()
	}

	// Initialize services
	c.SlotAssigner = service.NewSlotAssigner(c.SlotRepo)
	c.AvailabilityService = service.NewAvailabilityService(c.BookingRepo, c.CatalogRepo, cfg.Currency)
	c.CatalogService = service.NewCatalogService(c.CatalogRepo)
	c.BookingService = service.NewBookingService(
		c.BookingRepo,
		c.CatalogRepo,
		c.Checkout,
		c.ContentClient,
		c.EventPublisher,
		&service.BookingServiceConfig{Currency: cfg.Currency},
	)
	c.ReconcilerService = service.NewReconcilerService(
		c.BookingRepo,
		c.SlotAssigner,
		c.ContentClient,
		c.EventPublisher,
	)

	// Initialize workers
	c.SweepWorker = worker.NewSweepWorker(
		c.BookingRepo,
		c.SlotAssigner,
		c.ContentClient,
		c.EventPublisher,
		cfg.SweepConfig,
	)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)
	c.BookingHandler = handler.NewBookingHandler(c.BookingService, c.AvailabilityService, c.SlotAssigner)
	c.PricingHandler = handler.NewPricingHandler(c.CatalogService)
	c.WebhookHandler = handler.NewWebhookHandler(c.ReconcilerService, cfg.WebhookSecret)

	return c
}

// Close releases resources held by the container
func (c *Container) Close() {
	if c.SweepWorker != nil {
		c.SweepWorker.Stop()
	}
	if c.EventPublisher != nil {
		_ = c.EventPublisher.Close()
	}
}
