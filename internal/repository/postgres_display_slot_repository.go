package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nitikorn/featured-slots/internal/domain"
	"github.com/nitikorn/featured-slots/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresDisplaySlotRepository implements DisplaySlotRepository using
// PostgreSQL. The pool rows are seeded by migration; this repository only
// flips positions between free and occupied with conditional updates.
type PostgresDisplaySlotRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresDisplaySlotRepository creates a new PostgresDisplaySlotRepository
func NewPostgresDisplaySlotRepository(pool *pgxpool.Pool) *PostgresDisplaySlotRepository {
	return &PostgresDisplaySlotRepository{pool: pool}
}

const displaySlotByContentItemQuery = `
	SELECT position FROM display_slots WHERE content_item_id = $1
`

// AssignFirstFree claims the lowest free position in a single statement.
// SKIP LOCKED keeps two concurrent assigns from claiming the same row, and
// an item already holding a position keeps it: webhook deliveries replay,
// so assignment must be idempotent per content item. The unique partial
// index on content_item_id backs that up when two deliveries race.
func (r *PostgresDisplaySlotRepository) AssignFirstFree(ctx context.Context, contentItemID, bookingID string) (int, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.display_slot.assign")
	defer span.End()

	span.SetAttributes(attribute.String("content_item_id", contentItemID))

	var position int
	err := r.pool.QueryRow(ctx, displaySlotByContentItemQuery, contentItemID).Scan(&position)
	if err == nil {
		span.SetAttributes(attribute.Int("position", position))
		span.SetStatus(codes.Ok, "already assigned")
		return position, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, false, fmt.Errorf("failed to check existing display slot: %w", err)
	}

	query := `
		UPDATE display_slots SET
			content_item_id = $1,
			booking_id = $2,
			assigned_at = $3
		WHERE position = (
			SELECT position FROM display_slots
			WHERE content_item_id IS NULL
			ORDER BY position
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING position
	`
	err = r.pool.QueryRow(ctx, query, contentItemID, bookingID, time.Now().UTC()).Scan(&position)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "pool full")
			return 0, false, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Lost the race against a concurrent delivery of the same event;
			// the winner's position is the answer.
			if scanErr := r.pool.QueryRow(ctx, displaySlotByContentItemQuery, contentItemID).Scan(&position); scanErr == nil {
				span.SetAttributes(attribute.Int("position", position))
				span.SetStatus(codes.Ok, "already assigned")
				return position, true, nil
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, false, fmt.Errorf("failed to assign display slot: %w", err)
	}

	span.SetAttributes(attribute.Int("position", position))
	span.SetStatus(codes.Ok, "")
	return position, true, nil
}

// ReleaseByContentItem frees any position holding the content item
func (r *PostgresDisplaySlotRepository) ReleaseByContentItem(ctx context.Context, contentItemID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.display_slot.release")
	defer span.End()

	span.SetAttributes(attribute.String("content_item_id", contentItemID))

	query := `
		UPDATE display_slots SET
			content_item_id = NULL,
			booking_id = NULL,
			assigned_at = NULL
		WHERE content_item_id = $1
	`
	result, err := r.pool.Exec(ctx, query, contentItemID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to release display slot: %w", err)
	}

	released := int(result.RowsAffected())
	span.SetAttributes(attribute.Int("released", released))
	span.SetStatus(codes.Ok, "")
	return released, nil
}

// List returns all pool positions in order
func (r *PostgresDisplaySlotRepository) List(ctx context.Context) ([]*domain.DisplaySlot, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.display_slot.list")
	defer span.End()

	query := `
		SELECT position, content_item_id, booking_id, assigned_at
		FROM display_slots
		ORDER BY position
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list display slots: %w", err)
	}
	defer rows.Close()

	var slots []*domain.DisplaySlot
	for rows.Next() {
		slot := &domain.DisplaySlot{}
		var contentItemID, bookingID *string
		if err := rows.Scan(&slot.Position, &contentItemID, &bookingID, &slot.AssignedAt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan display slot: %w", err)
		}
		if contentItemID != nil {
			slot.ContentItemID = *contentItemID
		}
		if bookingID != nil {
			slot.BookingID = *bookingID
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating display slots: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(slots)))
	span.SetStatus(codes.Ok, "")
	return slots, nil
}

// Ensure PostgresDisplaySlotRepository implements DisplaySlotRepository
var _ DisplaySlotRepository = (*PostgresDisplaySlotRepository)(nil)
