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

// AvailabilityService computes advisory availability and price quotes.
// A quote is never a hold; the reservation path re-checks capacity inside
// its own transaction.
type AvailabilityService interface {
	// Quote returns per-day remaining capacity and the price for the range.
	Quote(ctx context.Context, req *dto.QuoteRequest) (*dto.QuoteResponse, error)
}

// availabilityService implements AvailabilityService
type availabilityService struct {
	bookingRepo repository.BookingRepository
	catalogRepo repository.CatalogRepository
	currency    string
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(
	bookingRepo repository.BookingRepository,
	catalogRepo repository.CatalogRepository,
	currency string,
) AvailabilityService {
	if currency == "" {
		currency = "thb"
	}
	return &availabilityService{
		bookingRepo: bookingRepo,
		catalogRepo: catalogRepo,
		currency:    currency,
	}
}

// Quote returns per-day remaining capacity and the price for the range
func (s *availabilityService) Quote(ctx context.Context, req *dto.QuoteRequest) (*dto.QuoteResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.availability.quote")
	defer span.End()

	category := domain.SlotCategory(req.SlotCategory)
	span.SetAttributes(
		attribute.String("slot_category", req.SlotCategory),
		attribute.String("start_date", req.StartDate),
		attribute.String("end_date", req.EndDate),
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
	if category.RequiresSubTarget() && req.SubTarget == "" {
		span.SetStatus(codes.Error, "missing sub target")
		return nil, domain.ErrMissingSubTarget
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

	days := domain.DaysBetween(start, end)
	if days < entry.MinDays {
		span.SetStatus(codes.Error, "below minimum stay")
		return nil, domain.ErrBelowMinimumStay
	}

	counts, err := s.bookingRepo.CountPerDay(ctx, category, req.SubTarget, start, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	remaining := make(map[string]int, days)
	available := true
	domain.EachDay(start, end, func(d time.Time) {
		left := entry.MaxConcurrent - counts[d]
		if left < 0 {
			left = 0
		}
		if left == 0 {
			available = false
		}
		remaining[d.Format(domain.DateLayout)] = left
	})

	resp := &dto.QuoteResponse{
		Available:       available,
		RemainingPerDay: remaining,
		Days:            days,
		Currency:        s.currency,
	}
	if available {
		resp.Quote = entry.QuoteFor(start, end)
	}

	span.SetAttributes(attribute.Bool("available", available))
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

var _ AvailabilityService = (*availabilityService)(nil)
