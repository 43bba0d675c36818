package service

import (
	"context"
	"errors"
	"testing"

	"github.com/nitikorn/featured-slots/internal/domain"
	"github.com/nitikorn/featured-slots/internal/dto"
	"github.com/nitikorn/featured-slots/internal/repository"
)

func TestCatalogService_GetEntry(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(repository.NewMemoryCatalogRepository(heroEntry()))

	entry, err := svc.GetEntry(ctx, domain.SlotCategoryHero)
	if err != nil {
		t.Fatalf("GetEntry() error = %v", err)
	}
	if entry.PricePerDay != 150000 {
		t.Errorf("PricePerDay = %d, want 150000", entry.PricePerDay)
	}

	if _, err := svc.GetEntry(ctx, domain.SlotCategory("banner")); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Errorf("unknown category error = %v, want ErrCategoryNotFound", err)
	}
}

func TestCatalogService_UpdateEntry(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(repository.NewMemoryCatalogRepository(heroEntry()))

	updated, err := svc.UpdateEntry(ctx, domain.SlotCategoryHero, &dto.PricingEntryRequest{
		PricePerDay:   200000,
		MinDays:       5,
		MaxConcurrent: 1,
	})
	if err != nil {
		t.Fatalf("UpdateEntry() error = %v", err)
	}
	if updated.PricePerDay != 200000 || updated.MinDays != 5 || updated.MaxConcurrent != 1 {
		t.Errorf("UpdateEntry() = %+v, want the requested values", updated)
	}
	// Active not in the request, current value kept
	if !updated.Active {
		t.Error("Active flipped without being requested")
	}

	inactive := false
	updated, err = svc.UpdateEntry(ctx, domain.SlotCategoryHero, &dto.PricingEntryRequest{
		PricePerDay:   200000,
		MinDays:       5,
		MaxConcurrent: 1,
		Active:        &inactive,
	})
	if err != nil {
		t.Fatalf("UpdateEntry() error = %v", err)
	}
	if updated.Active {
		t.Error("Active = true, want false after deactivation")
	}

	stored, err := svc.GetEntry(ctx, domain.SlotCategoryHero)
	if err != nil {
		t.Fatalf("GetEntry() error = %v", err)
	}
	if stored.Active {
		t.Error("deactivation not persisted")
	}
}

func TestCatalogService_UpdateEntry_UnknownCategory(t *testing.T) {
	svc := NewCatalogService(repository.NewMemoryCatalogRepository(heroEntry()))

	_, err := svc.UpdateEntry(context.Background(), domain.SlotCategory("banner"), &dto.PricingEntryRequest{
		PricePerDay:   100,
		MinDays:       1,
		MaxConcurrent: 1,
	})
	if !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Errorf("UpdateEntry() error = %v, want ErrCategoryNotFound", err)
	}
}
