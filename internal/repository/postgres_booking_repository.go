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

// PostgresBookingRepository implements BookingRepository using PostgreSQL with pgxpool
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

const bookingColumns = `
	id, content_item_id, requester_id, slot_category, sub_target,
	start_date, end_date, status, amount_paid, checkout_ref, payment_ref,
	display_text, activated_at, cancelled_at, created_at, updated_at
`

// capacityQuery returns the busiest day's capacity-holding booking count
// inside [start, end] for one (slot_category, sub_target) partition.
const capacityQuery = `
	SELECT COALESCE(MAX(cnt), 0) FROM (
		SELECT COUNT(b.id) AS cnt
		FROM generate_series($3::date, $4::date, interval '1 day') AS day
		JOIN bookings b
			ON b.slot_category = $1
			AND COALESCE(b.sub_target, '') = $2
			AND b.status IN ('pending_payment', 'active')
			AND day::date BETWEEN b.start_date AND b.end_date
		GROUP BY day
	) per_day
`

// CreateIfCapacity runs the capacity check and the insert inside one
// SERIALIZABLE transaction. Two concurrent creates for an overlapping range
// cannot both commit: the loser fails with a serialization error (retried by
// the caller) and on retry observes the winner's row.
func (r *PostgresBookingRepository) CreateIfCapacity(ctx context.Context, booking *domain.Booking, maxConcurrent int) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.create_if_capacity")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("slot_category", booking.SlotCategory.String()),
		attribute.String("sub_target", booking.SubTarget),
		attribute.Int("max_concurrent", maxConcurrent),
	)

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var busiest int
	err = tx.QueryRow(ctx, capacityQuery,
		booking.SlotCategory.String(),
		booking.SubTarget,
		booking.StartDate,
		booking.EndDate,
	).Scan(&busiest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to count overlapping bookings: %w", err)
	}

	if busiest >= maxConcurrent {
		span.SetStatus(codes.Error, "capacity exceeded")
		return domain.ErrCapacityExceeded
	}

	insert := `
		INSERT INTO bookings (
			id, content_item_id, requester_id, slot_category, sub_target,
			start_date, end_date, status, amount_paid, display_text,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12
		)
	`
	_, err = tx.Exec(ctx, insert,
		booking.ID,
		booking.ContentItemID,
		booking.RequesterID,
		booking.SlotCategory.String(),
		nullString(booking.SubTarget),
		booking.StartDate,
		booking.EndDate,
		booking.Status.String(),
		booking.AmountPaid,
		nullString(booking.DisplayText),
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a booking by its ID
func (r *PostgresBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	booking, err := scanBookingRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrBookingNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// GetByCheckoutRef retrieves a booking by its checkout session reference
func (r *PostgresBookingRepository) GetByCheckoutRef(ctx context.Context, ref string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_checkout_ref")
	defer span.End()

	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE checkout_ref = $1`, ref)
	booking, err := scanBookingRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrBookingNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get booking by checkout ref: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// GetByRequesterID retrieves all bookings for a requester, newest first
func (r *PostgresBookingRepository) GetByRequesterID(ctx context.Context, requesterID string, limit, offset int) ([]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_requester")
	defer span.End()

	span.SetAttributes(
		attribute.String("requester_id", requesterID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE requester_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, requesterID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get bookings by requester: %w", err)
	}
	defer rows.Close()

	bookings, err := collectBookings(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(bookings)))
	span.SetStatus(codes.Ok, "")
	return bookings, nil
}

// CountPerDay returns the capacity-holding booking count for every day in range
func (r *PostgresBookingRepository) CountPerDay(ctx context.Context, category domain.SlotCategory, subTarget string, start, end time.Time) (map[time.Time]int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.count_per_day")
	defer span.End()

	span.SetAttributes(
		attribute.String("slot_category", category.String()),
		attribute.String("sub_target", subTarget),
	)

	query := `
		SELECT day::date, COUNT(b.id)
		FROM generate_series($3::date, $4::date, interval '1 day') AS day
		LEFT JOIN bookings b
			ON b.slot_category = $1
			AND COALESCE(b.sub_target, '') = $2
			AND b.status IN ('pending_payment', 'active')
			AND day::date BETWEEN b.start_date AND b.end_date
		GROUP BY day::date
		ORDER BY day::date
	`
	rows, err := r.pool.Query(ctx, query, category.String(), subTarget, start, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to count bookings per day: %w", err)
	}
	defer rows.Close()

	counts := make(map[time.Time]int)
	for rows.Next() {
		var day time.Time
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan per-day count: %w", err)
		}
		counts[domain.Midnight(day)] = count
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating per-day counts: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return counts, nil
}

// TransitionStatus applies from -> to as a guarded conditional update. It is
// the only writer of the status column. Concurrent writers (webhook vs
// sweeper) race on the WHERE clause; the loser's update becomes a no-op.
func (r *PostgresBookingRepository) TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.transition")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", id),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	)

	if !domain.CanTransition(from, to) {
		span.SetStatus(codes.Error, "illegal transition")
		return domain.ErrInvalidTransition
	}

	var query string
	switch to {
	case domain.BookingStatusActive:
		query = `UPDATE bookings SET status = $3, activated_at = $4, updated_at = $4 WHERE id = $1 AND status = $2`
	case domain.BookingStatusCancelled:
		query = `UPDATE bookings SET status = $3, cancelled_at = $4, updated_at = $4 WHERE id = $1 AND status = $2`
	default:
		query = `UPDATE bookings SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	}

	result, err := r.pool.Exec(ctx, query, id, from.String(), to.String(), time.Now().UTC())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to transition booking status: %w", err)
	}

	if result.RowsAffected() == 0 {
		// The row moved underneath us or never existed. Re-read to decide
		// between not-found, the idempotent replay case, and a real refusal.
		var current string
		err := r.pool.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				span.SetStatus(codes.Error, "not found")
				return domain.ErrBookingNotFound
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to check booking status: %w", err)
		}
		if domain.BookingStatus(current) == to {
			span.SetStatus(codes.Ok, "already in target state")
			return nil
		}
		span.SetStatus(codes.Error, "transition refused")
		return domain.ErrInvalidTransition
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// SetCheckoutRef records the external checkout session reference
func (r *PostgresBookingRepository) SetCheckoutRef(ctx context.Context, id, ref string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.set_checkout_ref")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	result, err := r.pool.Exec(ctx,
		`UPDATE bookings SET checkout_ref = $2, updated_at = $3 WHERE id = $1`,
		id, ref, time.Now().UTC(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to set checkout ref: %w", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrBookingNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// SetPaymentRef records the external payment reference
func (r *PostgresBookingRepository) SetPaymentRef(ctx context.Context, id, ref string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.set_payment_ref")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	result, err := r.pool.Exec(ctx,
		`UPDATE bookings SET payment_ref = $2, updated_at = $3 WHERE id = $1`,
		id, ref, time.Now().UTC(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to set payment ref: %w", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrBookingNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetStalePending returns pending_payment bookings created before cutoff
func (r *PostgresBookingRepository) GetStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_stale_pending")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'pending_payment' AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get stale pending bookings: %w", err)
	}
	defer rows.Close()

	bookings, err := collectBookings(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(bookings)))
	span.SetStatus(codes.Ok, "")
	return bookings, nil
}

// GetExpiredActive returns active bookings whose end_date precedes day
func (r *PostgresBookingRepository) GetExpiredActive(ctx context.Context, day time.Time, limit int) ([]*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_expired_active")
	defer span.End()

	span.SetAttributes(attribute.Int("limit", limit))

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'active' AND end_date < $1::date
		ORDER BY end_date
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, domain.Midnight(day), limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get expired active bookings: %w", err)
	}
	defer rows.Close()

	bookings, err := collectBookings(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(bookings)))
	span.SetStatus(codes.Ok, "")
	return bookings, nil
}

// IsSerializationFailure reports whether err is a PostgreSQL serialization
// or deadlock failure that is safe to retry.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanBookingRow scans a single row into a Booking struct
func scanBookingRow(row rowScanner) (*domain.Booking, error) {
	booking := &domain.Booking{}
	var (
		category    string
		status      string
		subTarget   *string
		checkoutRef *string
		paymentRef  *string
		displayText *string
	)

	err := row.Scan(
		&booking.ID,
		&booking.ContentItemID,
		&booking.RequesterID,
		&category,
		&subTarget,
		&booking.StartDate,
		&booking.EndDate,
		&status,
		&booking.AmountPaid,
		&checkoutRef,
		&paymentRef,
		&displayText,
		&booking.ActivatedAt,
		&booking.CancelledAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.SlotCategory = domain.SlotCategory(category)
	booking.Status = domain.BookingStatus(status)
	if subTarget != nil {
		booking.SubTarget = *subTarget
	}
	if checkoutRef != nil {
		booking.CheckoutRef = *checkoutRef
	}
	if paymentRef != nil {
		booking.PaymentRef = *paymentRef
	}
	if displayText != nil {
		booking.DisplayText = *displayText
	}
	booking.StartDate = domain.Midnight(booking.StartDate)
	booking.EndDate = domain.Midnight(booking.EndDate)

	return booking, nil
}

func collectBookings(rows pgx.Rows) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBookingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}
	return bookings, nil
}

// nullString converts an empty string to a nil pointer
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure PostgresBookingRepository implements BookingRepository
var _ BookingRepository = (*PostgresBookingRepository)(nil)
