package service

import (
	"context"
	"fmt"

	"github.com/nitikorn/featured-slots/internal/domain"
	"github.com/nitikorn/featured-slots/internal/repository"
	"github.com/nitikorn/featured-slots/pkg/logger"
	"github.com/nitikorn/featured-slots/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SlotAssigner manages the fixed pool of display positions. Assignment is
// best effort: a full pool is not an error, and a booking without a
// position is still active and billed.
type SlotAssigner interface {
	// Assign claims the lowest free position for the booking's content item.
	// Returns the position and false when the pool is full.
	Assign(ctx context.Context, booking *domain.Booking) (int, bool, error)

	// Release frees any position held by the content item.
	Release(ctx context.Context, contentItemID string) error

	// ListSlots returns the whole pool ordered by position.
	ListSlots(ctx context.Context) ([]*domain.DisplaySlot, error)
}

// slotAssigner implements SlotAssigner
type slotAssigner struct {
	slotRepo repository.DisplaySlotRepository
}

// NewSlotAssigner creates a new slot assigner
func NewSlotAssigner(slotRepo repository.DisplaySlotRepository) SlotAssigner {
	return &slotAssigner{slotRepo: slotRepo}
}

// Assign claims the lowest free position for the booking's content item
func (s *slotAssigner) Assign(ctx context.Context, booking *domain.Booking) (int, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.slot_assigner.assign")
	defer span.End()

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("content_item_id", booking.ContentItemID),
	)

	position, ok, err := s.slotRepo.AssignFirstFree(ctx, booking.ContentItemID, booking.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, false, err
	}
	if !ok {
		logger.Get().Info(fmt.Sprintf("Display pool full, booking %s active without a position", booking.ID))
		span.SetStatus(codes.Ok, "pool full")
		return 0, false, nil
	}

	span.SetAttributes(attribute.Int("position", position))
	span.SetStatus(codes.Ok, "")
	return position, true, nil
}

// Release frees any position held by the content item
func (s *slotAssigner) Release(ctx context.Context, contentItemID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.slot_assigner.release")
	defer span.End()

	span.SetAttributes(attribute.String("content_item_id", contentItemID))

	released, err := s.slotRepo.ReleaseByContentItem(ctx, contentItemID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.Int("released", released))
	span.SetStatus(codes.Ok, "")
	return nil
}

// ListSlots returns the whole pool ordered by position
func (s *slotAssigner) ListSlots(ctx context.Context) ([]*domain.DisplaySlot, error) {
	return s.slotRepo.List(ctx)
}

var _ SlotAssigner = (*slotAssigner)(nil)
