package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nitikorn/featured-slots/internal/domain"
)

// MemoryBookingRepository is an in-memory BookingRepository used in tests.
// A single mutex serializes the capacity check and insert, giving the same
// no-oversell guarantee the serializable transaction gives in Postgres.
type MemoryBookingRepository struct {
	mu       sync.Mutex
	bookings map[string]*domain.Booking
}

// NewMemoryBookingRepository creates a new MemoryBookingRepository
func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		bookings: make(map[string]*domain.Booking),
	}
}

// CreateIfCapacity inserts the booking unless any day in its range is full
func (r *MemoryBookingRepository) CreateIfCapacity(ctx context.Context, booking *domain.Booking, maxConcurrent int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := r.countPerDayLocked(booking.SlotCategory, booking.SubTarget, booking.StartDate, booking.EndDate)
	for _, n := range counts {
		if n >= maxConcurrent {
			return domain.ErrCapacityExceeded
		}
	}

	cp := *booking
	r.bookings[booking.ID] = &cp
	return nil
}

// GetByID retrieves a booking by id
func (r *MemoryBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

// GetByCheckoutRef retrieves a booking by its checkout session reference
func (r *MemoryBookingRepository) GetByCheckoutRef(ctx context.Context, ref string) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.bookings {
		if b.CheckoutRef == ref {
			cp := *b
			return &cp, nil
		}
	}
	return nil, domain.ErrBookingNotFound
}

// GetByRequesterID retrieves a requester's bookings, newest first
func (r *MemoryBookingRepository) GetByRequesterID(ctx context.Context, requesterID string, limit, offset int) ([]*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.Booking
	for _, b := range r.bookings {
		if b.RequesterID == requesterID {
			cp := *b
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// CountPerDay returns per-day capacity-holding counts for the partition
func (r *MemoryBookingRepository) CountPerDay(ctx context.Context, category domain.SlotCategory, subTarget string, start, end time.Time) (map[time.Time]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.countPerDayLocked(category, subTarget, start, end), nil
}

func (r *MemoryBookingRepository) countPerDayLocked(category domain.SlotCategory, subTarget string, start, end time.Time) map[time.Time]int {
	counts := make(map[time.Time]int)
	domain.EachDay(start, end, func(d time.Time) {
		counts[d] = 0
	})
	for _, b := range r.bookings {
		if b.SlotCategory != category || b.SubTarget != subTarget || !b.Status.HoldsCapacity() {
			continue
		}
		domain.EachDay(start, end, func(d time.Time) {
			if b.Covers(d) {
				counts[d]++
			}
		})
	}
	return counts
}

// TransitionStatus applies from -> to with the same no-op and mismatch
// semantics as the Postgres implementation
func (r *MemoryBookingRepository) TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus) error {
	if !domain.CanTransition(from, to) {
		return domain.ErrInvalidTransition
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if b.Status == to {
		return nil
	}
	if b.Status != from {
		return domain.ErrInvalidTransition
	}

	now := time.Now().UTC()
	b.Status = to
	b.UpdatedAt = now
	switch to {
	case domain.BookingStatusActive:
		b.ActivatedAt = &now
	case domain.BookingStatusCancelled:
		b.CancelledAt = &now
	}
	return nil
}

// SetCheckoutRef records the checkout session reference
func (r *MemoryBookingRepository) SetCheckoutRef(ctx context.Context, id, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	b.CheckoutRef = ref
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// SetPaymentRef records the payment reference
func (r *MemoryBookingRepository) SetPaymentRef(ctx context.Context, id, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	b.PaymentRef = ref
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// GetStalePending returns pending bookings created before cutoff
func (r *MemoryBookingRepository) GetStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []*domain.Booking
	for _, b := range r.bookings {
		if b.Status == domain.BookingStatusPendingPayment && b.CreatedAt.Before(cutoff) {
			cp := *b
			stale = append(stale, &cp)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].CreatedAt.Before(stale[j].CreatedAt)
	})
	if limit > 0 && limit < len(stale) {
		stale = stale[:limit]
	}
	return stale, nil
}

// GetExpiredActive returns active bookings whose window ended before day
func (r *MemoryBookingRepository) GetExpiredActive(ctx context.Context, day time.Time, limit int) ([]*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []*domain.Booking
	for _, b := range r.bookings {
		if b.Status == domain.BookingStatusActive && domain.Midnight(b.EndDate).Before(domain.Midnight(day)) {
			cp := *b
			expired = append(expired, &cp)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].EndDate.Before(expired[j].EndDate)
	})
	if limit > 0 && limit < len(expired) {
		expired = expired[:limit]
	}
	return expired, nil
}

// Ensure MemoryBookingRepository implements BookingRepository
var _ BookingRepository = (*MemoryBookingRepository)(nil)
