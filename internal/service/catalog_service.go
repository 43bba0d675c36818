package service

import (
	"context"
	"time"

	"github.com/nitikorn/featured-slots/internal/domain"
	"github.com/nitikorn/featured-slots/internal/dto"
	"github.com/nitikorn/featured-slots/internal/repository"
	"github.com/nitikorn/featured-slots/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CatalogService exposes the pricing catalog to the API layer
type CatalogService interface {
	// GetEntry retrieves one catalog entry.
	GetEntry(ctx context.Context, category domain.SlotCategory) (*domain.PricingCatalogEntry, error)

	// ListEntries retrieves all catalog entries.
	ListEntries(ctx context.Context) ([]*domain.PricingCatalogEntry, error)

	// UpdateEntry applies an operator update. Existing bookings keep the
	// amount they were quoted.
	UpdateEntry(ctx context.Context, category domain.SlotCategory, req *dto.PricingEntryRequest) (*domain.PricingCatalogEntry, error)
}

// catalogService implements CatalogService
type catalogService struct {
	catalogRepo repository.CatalogRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(catalogRepo repository.CatalogRepository) CatalogService {
	return &catalogService{catalogRepo: catalogRepo}
}

// GetEntry retrieves one catalog entry
func (s *catalogService) GetEntry(ctx context.Context, category domain.SlotCategory) (*domain.PricingCatalogEntry, error) {
	if !category.Valid() {
		return nil, domain.ErrCategoryNotFound
	}
	return s.catalogRepo.GetEntry(ctx, category)
}

// ListEntries retrieves all catalog entries
func (s *catalogService) ListEntries(ctx context.Context) ([]*domain.PricingCatalogEntry, error) {
	return s.catalogRepo.ListEntries(ctx)
}

// UpdateEntry applies an operator update
func (s *catalogService) UpdateEntry(ctx context.Context, category domain.SlotCategory, req *dto.PricingEntryRequest) (*domain.PricingCatalogEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.catalog.update")
	defer span.End()

	span.SetAttributes(attribute.String("slot_category", category.String()))

	if !category.Valid() {
		span.SetStatus(codes.Error, "unknown category")
		return nil, domain.ErrCategoryNotFound
	}

	current, err := s.catalogRepo.GetEntry(ctx, category)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	entry := &domain.PricingCatalogEntry{
		SlotCategory:  category,
		PricePerDay:   req.PricePerDay,
		MinDays:       req.MinDays,
		MaxConcurrent: req.MaxConcurrent,
		Active:        current.Active,
		UpdatedAt:     time.Now().UTC(),
	}
	if req.Active != nil {
		entry.Active = *req.Active
	}

	if err := s.catalogRepo.UpdateEntry(ctx, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return entry, nil
}

var _ CatalogService = (*catalogService)(nil)
