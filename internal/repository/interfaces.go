package repository

import (
	"context"
	"time"

	"github.com/nitikorn/featured-slots/internal/domain"
)

// BookingRepository defines storage operations for the booking ledger.
type BookingRepository interface {
	// CreateIfCapacity inserts the booking only if every calendar day in
	// its range has fewer than maxConcurrent capacity-holding bookings for
	// the same (slot_category, sub_target). The check and insert execute
	// as one serializable unit; losers get domain.ErrCapacityExceeded.
	CreateIfCapacity(ctx context.Context, booking *domain.Booking, maxConcurrent int) error

	// GetByID retrieves a booking by its id.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// GetByCheckoutRef retrieves a booking by its external checkout session
	// reference.
	GetByCheckoutRef(ctx context.Context, ref string) (*domain.Booking, error)

	// GetByRequesterID retrieves a requester's bookings, newest first.
	GetByRequesterID(ctx context.Context, requesterID string, limit, offset int) ([]*domain.Booking, error)

	// CountPerDay returns, for every calendar day in [start, end], the
	// number of capacity-holding bookings covering that day for the given
	// (slot_category, sub_target) partition.
	CountPerDay(ctx context.Context, category domain.SlotCategory, subTarget string, start, end time.Time) (map[time.Time]int, error)

	// TransitionStatus is the only writer of the status column. It applies
	// from -> to as a conditional update. A booking already in the target
	// state is a no-op reported as success; any other mismatch returns
	// domain.ErrInvalidTransition.
	TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus) error

	// SetCheckoutRef records the external checkout session reference.
	SetCheckoutRef(ctx context.Context, id, ref string) error

	// SetPaymentRef records the external payment reference after activation.
	SetPaymentRef(ctx context.Context, id, ref string) error

	// GetStalePending returns pending_payment bookings created before the
	// given cutoff, up to limit rows.
	GetStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Booking, error)

	// GetExpiredActive returns active bookings whose end_date precedes the
	// given day, up to limit rows.
	GetExpiredActive(ctx context.Context, day time.Time, limit int) ([]*domain.Booking, error)
}

// CatalogRepository defines read/update access to the pricing catalog.
type CatalogRepository interface {
	GetEntry(ctx context.Context, category domain.SlotCategory) (*domain.PricingCatalogEntry, error)
	ListEntries(ctx context.Context) ([]*domain.PricingCatalogEntry, error)
	UpdateEntry(ctx context.Context, entry *domain.PricingCatalogEntry) error
}

// DisplaySlotRepository manages the fixed pool of display positions.
type DisplaySlotRepository interface {
	// AssignFirstFree claims the lowest free position for the content item.
	// Returns the claimed position and false when the pool is full.
	AssignFirstFree(ctx context.Context, contentItemID, bookingID string) (int, bool, error)

	// ReleaseByContentItem frees any position holding the content item and
	// returns how many positions were cleared.
	ReleaseByContentItem(ctx context.Context, contentItemID string) (int, error)

	// List returns the whole pool ordered by position.
	List(ctx context.Context) ([]*domain.DisplaySlot, error)
}
