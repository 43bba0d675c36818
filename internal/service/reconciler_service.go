package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nitikorn/featured-slots/internal/domain"
	"github.com/nitikorn/featured-slots/internal/metrics"
	"github.com/nitikorn/featured-slots/internal/repository"
	"github.com/nitikorn/featured-slots/pkg/logger"
	"github.com/nitikorn/featured-slots/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ReconcilerService applies checkout webhook outcomes to the booking
// ledger. Every handler is safe to replay: the provider retries delivery
// until acknowledged, so the same event can arrive many times.
type ReconcilerService interface {
	// HandleCheckoutCompleted activates the booking paid through the given
	// checkout session.
	HandleCheckoutCompleted(ctx context.Context, sessionRef, paymentRef string) error

	// HandleCheckoutExpired cancels the pending booking whose session
	// lapsed unpaid.
	HandleCheckoutExpired(ctx context.Context, sessionRef string) error
}

// reconcilerService implements ReconcilerService
type reconcilerService struct {
	bookingRepo    repository.BookingRepository
	assigner       SlotAssigner
	contentClient  ContentClient
	eventPublisher EventPublisher
}

// NewReconcilerService creates a new reconciler service
func NewReconcilerService(
	bookingRepo repository.BookingRepository,
	assigner SlotAssigner,
	contentClient ContentClient,
	eventPublisher EventPublisher,
) ReconcilerService {
	if eventPublisher == nil {
		eventPublisher = NewNoOpEventPublisher()
	}
	if contentClient == nil {
		contentClient = NewNoOpContentClient()
	}
	return &reconcilerService{
		bookingRepo:    bookingRepo,
		assigner:       assigner,
		contentClient:  contentClient,
		eventPublisher: eventPublisher,
	}
}

// HandleCheckoutCompleted activates the booking paid through the session
func (s *reconcilerService) HandleCheckoutCompleted(ctx context.Context, sessionRef, paymentRef string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.reconciler.checkout_completed")
	defer span.End()

	span.SetAttributes(attribute.String("checkout_ref", sessionRef))

	booking, err := s.bookingRepo.GetByCheckoutRef(ctx, sessionRef)
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			// Unknown session: not ours, or the row predates this
			// environment. Acknowledge so the provider stops retrying.
			logger.Get().Warn(fmt.Sprintf("Checkout completed for unknown session %s, discarding", sessionRef))
			span.SetStatus(codes.Ok, "unknown session")
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.String("booking_id", booking.ID))

	if booking.Status == domain.BookingStatusActive || booking.Status == domain.BookingStatusCompleted {
		metrics.RecordWebhook(ctx, "checkout_completed", true)
		if booking.Status == domain.BookingStatusActive {
			// A prior delivery may have crashed between the transition and
			// the side effects. Both are idempotent, so re-apply them.
			s.applyActivationEffects(ctx, booking)
		}
		span.SetStatus(codes.Ok, "replay")
		return nil
	}
	metrics.RecordWebhook(ctx, "checkout_completed", false)

	err = s.bookingRepo.TransitionStatus(ctx, booking.ID, domain.BookingStatusPendingPayment, domain.BookingStatusActive)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Sweeper cancelled the booking before the payment landed. The
			// cancellation stands; the captured payment needs a manual
			// refund.
			logger.Get().Error(fmt.Sprintf(
				"Payment %s captured for booking %s in state %s, refund required",
				paymentRef, booking.ID, booking.Status))
			span.SetStatus(codes.Ok, "late payment on settled booking")
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if paymentRef != "" {
		if err := s.bookingRepo.SetPaymentRef(ctx, booking.ID, paymentRef); err != nil {
			logger.Get().Warn(fmt.Sprintf("Failed to store payment ref for booking %s: %v", booking.ID, err))
		}
	}

	booking.Status = domain.BookingStatusActive
	metrics.RecordActivation(ctx, booking.SlotCategory.String())
	logger.Get().Info(fmt.Sprintf("Booking %s activated by checkout session %s", booking.ID, sessionRef))

	if err := s.eventPublisher.PublishBookingActivated(ctx, booking); err != nil {
		logger.Get().Warn(fmt.Sprintf("Failed to publish booking activated event for %s: %v", booking.ID, err))
	}

	// Side effects are best effort; the ledger already records the
	// activation.
	s.applyActivationEffects(ctx, booking)

	span.SetStatus(codes.Ok, "")
	return nil
}

// applyActivationEffects marks the content item promoted until the booking
// ends and claims a display position. The promotion carries its own expiry
// and assignment returns the existing position for an item already in the
// pool, so replays re-apply without duplicating.
func (s *reconcilerService) applyActivationEffects(ctx context.Context, booking *domain.Booking) {
	if err := s.contentClient.MarkPromoted(ctx, booking.ContentItemID, booking.EndDate); err != nil {
		logger.Get().Warn(fmt.Sprintf("Failed to mark content item %s promoted: %v", booking.ContentItemID, err))
	}
	if _, _, err := s.assigner.Assign(ctx, booking); err != nil {
		logger.Get().Warn(fmt.Sprintf("Failed to assign display position for booking %s: %v", booking.ID, err))
	}
}

// HandleCheckoutExpired cancels the pending booking whose session lapsed
func (s *reconcilerService) HandleCheckoutExpired(ctx context.Context, sessionRef string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.reconciler.checkout_expired")
	defer span.End()

	span.SetAttributes(attribute.String("checkout_ref", sessionRef))

	booking, err := s.bookingRepo.GetByCheckoutRef(ctx, sessionRef)
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			logger.Get().Warn(fmt.Sprintf("Checkout expired for unknown session %s, discarding", sessionRef))
			span.SetStatus(codes.Ok, "unknown session")
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.String("booking_id", booking.ID))

	// A session can expire after the completed event already activated the
	// booking. The paid booking wins.
	if booking.Status != domain.BookingStatusPendingPayment {
		metrics.RecordWebhook(ctx, "checkout_expired", true)
		span.SetStatus(codes.Ok, "not pending")
		return nil
	}
	metrics.RecordWebhook(ctx, "checkout_expired", false)

	err = s.bookingRepo.TransitionStatus(ctx, booking.ID, domain.BookingStatusPendingPayment, domain.BookingStatusCancelled)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Lost a race with the sweeper or the completed event; either
			// outcome is already settled.
			span.SetStatus(codes.Ok, "already settled")
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	booking.Status = domain.BookingStatusCancelled
	metrics.RecordCancellation(ctx, booking.SlotCategory.String(), "checkout_expired")
	logger.Get().Info(fmt.Sprintf("Booking %s cancelled, checkout session %s expired unpaid", booking.ID, sessionRef))

	if err := s.eventPublisher.PublishBookingCancelled(ctx, booking); err != nil {
		logger.Get().Warn(fmt.Sprintf("Failed to publish booking cancelled event for %s: %v", booking.ID, err))
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

var _ ReconcilerService = (*reconcilerService)(nil)
