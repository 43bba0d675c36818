package repository

import (
	"context"
	"sync"
	"time"

	"github.com/nitikorn/featured-slots/internal/domain"
)

// MemoryDisplaySlotRepository is an in-memory DisplaySlotRepository used in
// tests. Positions are numbered 1..size.
type MemoryDisplaySlotRepository struct {
	mu    sync.Mutex
	slots []*domain.DisplaySlot
}

// NewMemoryDisplaySlotRepository creates a pool with the given number of
// free positions.
func NewMemoryDisplaySlotRepository(size int) *MemoryDisplaySlotRepository {
	slots := make([]*domain.DisplaySlot, size)
	for i := range slots {
		slots[i] = &domain.DisplaySlot{Position: i + 1}
	}
	return &MemoryDisplaySlotRepository{slots: slots}
}

// AssignFirstFree claims the lowest free position. An item already holding
// a position keeps it, so replayed assigns never occupy a second slot.
func (r *MemoryDisplaySlotRepository) AssignFirstFree(ctx context.Context, contentItemID, bookingID string) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.slots {
		if !s.Free() && s.ContentItemID == contentItemID {
			return s.Position, true, nil
		}
	}
	for _, s := range r.slots {
		if s.Free() {
			now := time.Now().UTC()
			s.ContentItemID = contentItemID
			s.BookingID = bookingID
			s.AssignedAt = &now
			return s.Position, true, nil
		}
	}
	return 0, false, nil
}

// ReleaseByContentItem frees any position holding the content item
func (r *MemoryDisplaySlotRepository) ReleaseByContentItem(ctx context.Context, contentItemID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	released := 0
	for _, s := range r.slots {
		if s.ContentItemID == contentItemID {
			s.ContentItemID = ""
			s.BookingID = ""
			s.AssignedAt = nil
			released++
		}
	}
	return released, nil
}

// List returns all pool positions in order
func (r *MemoryDisplaySlotRepository) List(ctx context.Context) ([]*domain.DisplaySlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.DisplaySlot, len(r.slots))
	for i, s := range r.slots {
		cp := *s
		out[i] = &cp
	}
	return out, nil
}

// Ensure MemoryDisplaySlotRepository implements DisplaySlotRepository
var _ DisplaySlotRepository = (*MemoryDisplaySlotRepository)(nil)
