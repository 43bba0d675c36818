package domain

import "time"

// DisplaySlot is one physical above-the-fold display position. The pool is
// small and fixed; positions are seeded once at initialization and only the
// slot assigner mutates them. An empty ContentItemID means the position is
// free.
type DisplaySlot struct {
	Position      int        `json:"position"`
	ContentItemID string     `json:"content_item_id,omitempty"`
	BookingID     string     `json:"booking_id,omitempty"`
	AssignedAt    *time.Time `json:"assigned_at,omitempty"`
}

// Free reports whether the position holds no content item.
func (s *DisplaySlot) Free() bool {
	return s.ContentItemID == ""
}
