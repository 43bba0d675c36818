package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nitikorn/featured-slots/internal/domain"
)

// MemoryCatalogRepository is an in-memory CatalogRepository used in tests.
type MemoryCatalogRepository struct {
	mu      sync.Mutex
	entries map[domain.SlotCategory]*domain.PricingCatalogEntry
}

// NewMemoryCatalogRepository creates a catalog repository pre-loaded with
// the given entries.
func NewMemoryCatalogRepository(entries ...*domain.PricingCatalogEntry) *MemoryCatalogRepository {
	r := &MemoryCatalogRepository{
		entries: make(map[domain.SlotCategory]*domain.PricingCatalogEntry),
	}
	for _, e := range entries {
		cp := *e
		r.entries[e.SlotCategory] = &cp
	}
	return r
}

// GetEntry retrieves the catalog entry for a slot category
func (r *MemoryCatalogRepository) GetEntry(ctx context.Context, category domain.SlotCategory) (*domain.PricingCatalogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[category]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	cp := *e
	return &cp, nil
}

// ListEntries retrieves all catalog entries ordered by category
func (r *MemoryCatalogRepository) ListEntries(ctx context.Context) ([]*domain.PricingCatalogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var entries []*domain.PricingCatalogEntry
	for _, e := range r.entries {
		cp := *e
		entries = append(entries, &cp)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].SlotCategory < entries[j].SlotCategory
	})
	return entries, nil
}

// UpdateEntry updates an existing catalog entry
func (r *MemoryCatalogRepository) UpdateEntry(ctx context.Context, entry *domain.PricingCatalogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[entry.SlotCategory]; !ok {
		return domain.ErrCategoryNotFound
	}
	cp := *entry
	cp.UpdatedAt = time.Now().UTC()
	r.entries[entry.SlotCategory] = &cp
	return nil
}

// Ensure MemoryCatalogRepository implements CatalogRepository
var _ CatalogRepository = (*MemoryCatalogRepository)(nil)
