package metrics

import (
	"context"
	"sync"

	"github.com/nitikorn/featured-slots/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Booking lifecycle counters
	BookingsReserved  *telemetry.Counter
	BookingsActivated *telemetry.Counter
	BookingsCancelled *telemetry.Counter
	BookingsCompleted *telemetry.Counter
	CapacityRejects   *telemetry.Counter

	// Webhook counters
	WebhooksReceived *telemetry.Counter
	WebhooksReplayed *telemetry.Counter

	// Sweeper counters
	SweepCancelled *telemetry.Counter
	SweepCompleted *telemetry.Counter

	// Histograms
	ReserveDuration *telemetry.Histogram

	// Gauges
	PendingBookings *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	BookingsReserved, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "featured_bookings_reserved_total",
		Description: "Total number of reservations created",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsActivated, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "featured_bookings_activated_total",
		Description: "Total number of bookings activated by payment",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "featured_bookings_cancelled_total",
		Description: "Total number of cancelled bookings",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	BookingsCompleted, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "featured_bookings_completed_total",
		Description: "Total number of completed bookings",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CapacityRejects, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "featured_capacity_rejects_total",
		Description: "Total number of reservations rejected for lack of capacity",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	WebhooksReceived, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "featured_webhooks_received_total",
		Description: "Total number of checkout webhook events received",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	WebhooksReplayed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "featured_webhooks_replayed_total",
		Description: "Total number of webhook events that were no-op replays",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	SweepCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "featured_sweep_cancelled_total",
		Description: "Total number of stale pending bookings cancelled by the sweeper",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	SweepCompleted, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "featured_sweep_completed_total",
		Description: "Total number of ended bookings completed by the sweeper",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ReserveDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "featured_reserve_duration_seconds",
		Description: "Duration of reservation requests including checkout session creation",
		Unit:        "s",
	}, []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5})
	if err != nil {
		return err
	}

	PendingBookings, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "featured_pending_bookings",
		Description: "Current number of bookings awaiting payment",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordReservation records a created reservation
func RecordReservation(ctx context.Context, category string) {
	if BookingsReserved != nil {
		BookingsReserved.Inc(ctx, attribute.String("slot_category", category))
	}
	if PendingBookings != nil {
		PendingBookings.Inc(ctx)
	}
}

// RecordCapacityReject records a reservation rejected for lack of capacity
func RecordCapacityReject(ctx context.Context, category string) {
	if CapacityRejects != nil {
		CapacityRejects.Inc(ctx, attribute.String("slot_category", category))
	}
}

// RecordActivation records a booking activated by payment
func RecordActivation(ctx context.Context, category string) {
	if BookingsActivated != nil {
		BookingsActivated.Inc(ctx, attribute.String("slot_category", category))
	}
	if PendingBookings != nil {
		PendingBookings.Dec(ctx)
	}
}

// RecordCancellation records a cancelled booking
func RecordCancellation(ctx context.Context, category, reason string) {
	if BookingsCancelled != nil {
		BookingsCancelled.Inc(ctx,
			attribute.String("slot_category", category),
			attribute.String("reason", reason),
		)
	}
	if PendingBookings != nil {
		PendingBookings.Dec(ctx)
	}
}

// RecordCompletion records a completed booking
func RecordCompletion(ctx context.Context, category string) {
	if BookingsCompleted != nil {
		BookingsCompleted.Inc(ctx, attribute.String("slot_category", category))
	}
}

// RecordWebhook records a received webhook event
func RecordWebhook(ctx context.Context, eventType string, replay bool) {
	if WebhooksReceived != nil {
		WebhooksReceived.Inc(ctx, attribute.String("event_type", eventType))
	}
	if replay && WebhooksReplayed != nil {
		WebhooksReplayed.Inc(ctx, attribute.String("event_type", eventType))
	}
}

// RecordSweep records one sweeper pass outcome
func RecordSweep(ctx context.Context, cancelled, completed int64) {
	if cancelled > 0 && SweepCancelled != nil {
		SweepCancelled.Add(ctx, cancelled)
	}
	if completed > 0 && SweepCompleted != nil {
		SweepCompleted.Add(ctx, completed)
	}
}
