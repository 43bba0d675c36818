package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nitikorn/featured-slots/internal/domain"
	"github.com/nitikorn/featured-slots/internal/dto"
	"github.com/nitikorn/featured-slots/internal/gateway"
	"github.com/nitikorn/featured-slots/internal/metrics"
	"github.com/nitikorn/featured-slots/internal/repository"
	"github.com/nitikorn/featured-slots/pkg/logger"
	"github.com/nitikorn/featured-slots/pkg/retry"
	"github.com/nitikorn/featured-slots/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// BookingService defines the interface for the reservation flow
type BookingService interface {
	// Reserve creates a pending booking if capacity allows and opens a
	// hosted checkout session for it.
	Reserve(ctx context.Context, requesterID string, req *dto.ReserveRequest) (*dto.ReserveResponse, error)

	// GetBooking retrieves a booking by ID, scoped to its requester.
	GetBooking(ctx context.Context, bookingID, requesterID string) (*dto.BookingResponse, error)

	// GetRequesterBookings retrieves a requester's bookings, newest first.
	GetRequesterBookings(ctx context.Context, requesterID string, page, pageSize int) (*dto.PaginatedResponse, error)
}

// bookingService implements BookingService
type bookingService struct {
	bookingRepo    repository.BookingRepository
	catalogRepo    repository.CatalogRepository
	checkout       gateway.CheckoutGateway
	contentClient  ContentClient
	eventPublisher EventPublisher
	currency       string
	retryCfg       *retry.Config
}

// BookingServiceConfig contains configuration for the booking service
type BookingServiceConfig struct {
	Currency string
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookingRepo repository.BookingRepository,
	catalogRepo repository.CatalogRepository,
	checkout gateway.CheckoutGateway,
	contentClient ContentClient,
	eventPublisher EventPublisher,
	cfg *BookingServiceConfig,
) BookingService {
	currency := "thb"
	if cfg != nil && cfg.Currency != "" {
		currency = cfg.Currency
	}
	if eventPublisher == nil {
		eventPublisher = NewNoOpEventPublisher()
	}
	if contentClient == nil {
		contentClient = NewNoOpContentClient()
	}
	return &bookingService{
		bookingRepo:    bookingRepo,
		catalogRepo:    catalogRepo,
		checkout:       checkout,
		contentClient:  contentClient,
		eventPublisher: eventPublisher,
		currency:       currency,
		// Serialization conflicts resolve quickly, so retry tight
		retryCfg: &retry.Config{
			MaxRetries:      3,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      2.0,
			JitterFactor:    0.2,
		},
	}
}

// Reserve creates a pending booking and opens a checkout session
func (s *bookingService) Reserve(ctx context.Context, requesterID string, req *dto.ReserveRequest) (*dto.ReserveResponse, error) {
	started := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "service.booking.reserve")
	defer span.End()
	defer func() {
		if metrics.ReserveDuration != nil {
			metrics.ReserveDuration.Record(ctx, time.Since(started).Seconds())
		}
	}()

	if requesterID == "" {
		span.SetStatus(codes.Error, "invalid requester")
		return nil, domain.ErrInvalidRequester
	}

	category := domain.SlotCategory(req.SlotCategory)
	span.SetAttributes(
		attribute.String("requester_id", requesterID),
		attribute.String("content_item_id", req.ContentItemID),
		attribute.String("slot_category", req.SlotCategory),
	)

	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		span.SetStatus(codes.Error, "invalid start date")
		return nil, err
	}
	end, err := domain.ParseDate(req.EndDate)
	if err != nil {
		span.SetStatus(codes.Error, "invalid end date")
		return nil, err
	}
	if end.Before(start) {
		span.SetStatus(codes.Error, "end before start")
		return nil, domain.ErrInvalidRange
	}

	entry, err := s.catalogRepo.GetEntry(ctx, category)
	if err != nil {
		span.SetStatus(codes.Error, "catalog lookup failed")
		return nil, err
	}
	if !entry.Active {
		span.SetStatus(codes.Error, "category inactive")
		return nil, domain.ErrCategoryInactive
	}
	if domain.DaysBetween(start, end) < entry.MinDays {
		span.SetStatus(codes.Error, "below minimum stay")
		return nil, domain.ErrBelowMinimumStay
	}

	item, err := s.contentClient.GetItem(ctx, req.ContentItemID)
	if err != nil {
		span.SetStatus(codes.Error, "content item lookup failed")
		return nil, err
	}
	if item.OwnerID != "" && item.OwnerID != requesterID {
		span.SetStatus(codes.Error, "content item not owned by requester")
		return nil, domain.ErrInvalidContentItem
	}

	// The quote is captured on the row now; later catalog changes never
	// reprice an existing booking.
	amount := entry.QuoteFor(start, end)

	booking, err := domain.NewBooking(req.ContentItemID, requesterID, category, req.SubTarget, start, end, amount, req.DisplayText)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.createWithCapacity(ctx, booking, entry.MaxConcurrent); err != nil {
		if domain.IsConflictError(err) {
			metrics.RecordCapacityReject(ctx, category.String())
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("booking_id", booking.ID))
	metrics.RecordReservation(ctx, category.String())

	if err := s.eventPublisher.PublishBookingCreated(ctx, booking); err != nil {
		logger.Get().Warn(fmt.Sprintf("Failed to publish booking created event for %s: %v", booking.ID, err))
	}

	session, err := s.checkout.CreateSession(ctx, &gateway.CheckoutSessionRequest{
		BookingID:   booking.ID,
		Amount:      amount,
		Currency:    s.currency,
		Description: fmt.Sprintf("Featured placement: %s, %s to %s", category, req.StartDate, req.EndDate),
		Metadata: map[string]string{
			"requester_id":    requesterID,
			"content_item_id": req.ContentItemID,
		},
	})
	if err != nil {
		// The pending row stays; the expiry sweeper reclaims its capacity
		// when the payment window lapses.
		logger.Get().Error(fmt.Sprintf("Failed to create checkout session for booking %s: %v", booking.ID, err))
		span.SetStatus(codes.Error, "checkout session failed")
		return nil, domain.ErrCheckoutUnavailable
	}

	if err := s.bookingRepo.SetCheckoutRef(ctx, booking.ID, session.SessionRef); err != nil {
		logger.Get().Error(fmt.Sprintf("Failed to store checkout ref for booking %s: %v", booking.ID, err))
		span.SetStatus(codes.Error, "checkout ref not stored")
		return nil, domain.ErrCheckoutUnavailable
	}

	span.SetStatus(codes.Ok, "")
	return &dto.ReserveResponse{
		BookingID:   booking.ID,
		Status:      booking.Status.String(),
		AmountDue:   amount,
		Currency:    s.currency,
		RedirectURL: session.RedirectURL,
	}, nil
}

// createWithCapacity runs the serializable check-then-insert, retrying
// serialization conflicts under contention
func (s *bookingService) createWithCapacity(ctx context.Context, booking *domain.Booking, maxConcurrent int) error {
	result := retry.Do(ctx, s.retryCfg, func(ctx context.Context) error {
		err := s.bookingRepo.CreateIfCapacity(ctx, booking, maxConcurrent)
		if err == nil {
			return nil
		}
		if repository.IsSerializationFailure(err) {
			return err
		}
		return retry.Permanent(err)
	})
	if result.Err != nil {
		if result.LastError != nil {
			return result.LastError
		}
		return result.Err
	}
	return nil
}

// GetBooking retrieves a booking by ID, scoped to its requester
func (s *bookingService) GetBooking(ctx context.Context, bookingID, requesterID string) (*dto.BookingResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", bookingID))

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if requesterID != "" && !booking.BelongsTo(requesterID) {
		// Do not leak existence of other requesters' bookings
		span.SetStatus(codes.Error, "requester mismatch")
		return nil, domain.ErrBookingNotFound
	}

	span.SetStatus(codes.Ok, "")
	return dto.FromDomain(booking), nil
}

// GetRequesterBookings retrieves a requester's bookings, newest first
func (s *bookingService) GetRequesterBookings(ctx context.Context, requesterID string, page, pageSize int) (*dto.PaginatedResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.list")
	defer span.End()

	if requesterID == "" {
		span.SetStatus(codes.Error, "invalid requester")
		return nil, domain.ErrInvalidRequester
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	bookings, err := s.bookingRepo.GetByRequesterID(ctx, requesterID, pageSize, (page-1)*pageSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	responses := make([]*dto.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		responses = append(responses, dto.FromDomain(b))
	}

	span.SetAttributes(attribute.Int("count", len(responses)))
	span.SetStatus(codes.Ok, "")
	return &dto.PaginatedResponse{
		Data:     responses,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

var _ BookingService = (*bookingService)(nil)
