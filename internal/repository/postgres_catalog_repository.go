package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nitikorn/featured-slots/internal/domain"
	"github.com/nitikorn/featured-slots/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresCatalogRepository implements CatalogRepository using PostgreSQL
type PostgresCatalogRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalogRepository creates a new PostgresCatalogRepository
func NewPostgresCatalogRepository(pool *pgxpool.Pool) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{pool: pool}
}

// GetEntry retrieves the catalog entry for a slot category
func (r *PostgresCatalogRepository) GetEntry(ctx context.Context, category domain.SlotCategory) (*domain.PricingCatalogEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.catalog.get_entry")
	defer span.End()

	span.SetAttributes(attribute.String("slot_category", category.String()))

	query := `
		SELECT slot_category, price_per_day, min_days, max_concurrent, active, updated_at
		FROM pricing_catalog
		WHERE slot_category = $1
	`
	entry := &domain.PricingCatalogEntry{}
	var cat string
	err := r.pool.QueryRow(ctx, query, category.String()).Scan(
		&cat,
		&entry.PricePerDay,
		&entry.MinDays,
		&entry.MaxConcurrent,
		&entry.Active,
		&entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrCategoryNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get catalog entry: %w", err)
	}
	entry.SlotCategory = domain.SlotCategory(cat)

	span.SetStatus(codes.Ok, "")
	return entry, nil
}

// ListEntries retrieves all catalog entries
func (r *PostgresCatalogRepository) ListEntries(ctx context.Context) ([]*domain.PricingCatalogEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.catalog.list")
	defer span.End()

	query := `
		SELECT slot_category, price_per_day, min_days, max_concurrent, active, updated_at
		FROM pricing_catalog
		ORDER BY slot_category
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.PricingCatalogEntry
	for rows.Next() {
		entry := &domain.PricingCatalogEntry{}
		var cat string
		if err := rows.Scan(&cat, &entry.PricePerDay, &entry.MinDays, &entry.MaxConcurrent, &entry.Active, &entry.UpdatedAt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		entry.SlotCategory = domain.SlotCategory(cat)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating catalog entries: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(entries)))
	span.SetStatus(codes.Ok, "")
	return entries, nil
}

// UpdateEntry updates the pricing and limits of a catalog entry
func (r *PostgresCatalogRepository) UpdateEntry(ctx context.Context, entry *domain.PricingCatalogEntry) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.catalog.update")
	defer span.End()

	span.SetAttributes(attribute.String("slot_category", entry.SlotCategory.String()))

	query := `
		UPDATE pricing_catalog SET
			price_per_day = $2,
			min_days = $3,
			max_concurrent = $4,
			active = $5,
			updated_at = $6
		WHERE slot_category = $1
	`
	result, err := r.pool.Exec(ctx, query,
		entry.SlotCategory.String(),
		entry.PricePerDay,
		entry.MinDays,
		entry.MaxConcurrent,
		entry.Active,
		time.Now().UTC(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update catalog entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrCategoryNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Ensure PostgresCatalogRepository implements CatalogRepository
var _ CatalogRepository = (*PostgresCatalogRepository)(nil)
