package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a booking (matches DB ENUM)
type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "pending_payment"
	BookingStatusActive         BookingStatus = "active"
	BookingStatusCancelled      BookingStatus = "cancelled"
	BookingStatusCompleted      BookingStatus = "completed"
	// Rejected belongs to a manual-approval flow that the paid path never
	// exercises; it is kept so the taxonomy matches the bookings ENUM.
	BookingStatusRejected BookingStatus = "rejected"
)

func (s BookingStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is allowed from s.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted || s == BookingStatusRejected
}

// HoldsCapacity returns true if the status still counts against the
// per-day concurrency limit of its slot category.
func (s BookingStatus) HoldsCapacity() bool {
	return s == BookingStatusPendingPayment || s == BookingStatusActive
}

// transitions is the full set of legal status transitions. Every status
// write in the system goes through TransitionStatus on the repository,
// which enforces this table with a conditional update.
var transitions = map[BookingStatus][]BookingStatus{
	BookingStatusPendingPayment: {BookingStatusActive, BookingStatusCancelled},
	BookingStatusActive:         {BookingStatusCompleted},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to BookingStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Booking is the ledger entry for one reservation attempt of a featured
// placement. Start and end dates are inclusive calendar dates.
type Booking struct {
	ID            string        `json:"id"`
	ContentItemID string        `json:"content_item_id"`
	RequesterID   string        `json:"requester_id"`
	SlotCategory  SlotCategory  `json:"slot_category"`
	SubTarget     string        `json:"sub_target,omitempty"`
	StartDate     time.Time     `json:"start_date"`
	EndDate       time.Time     `json:"end_date"`
	Status        BookingStatus `json:"status"`
	// AmountPaid is the quote captured at creation time in minor currency
	// units (satang). Catalog price changes never touch it.
	AmountPaid  int64      `json:"amount_paid"`
	CheckoutRef string     `json:"checkout_ref,omitempty"`
	PaymentRef  string     `json:"payment_ref,omitempty"`
	DisplayText string     `json:"display_text,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewBooking creates a pending booking for the given placement request.
// The caller is responsible for the capacity check; amount is the computed
// quote in minor units.
func NewBooking(contentItemID, requesterID string, category SlotCategory, subTarget string, start, end time.Time, amount int64, displayText string) (*Booking, error) {
	if contentItemID == "" {
		return nil, ErrInvalidContentItem
	}
	if requesterID == "" {
		return nil, ErrInvalidRequester
	}
	if !category.Valid() {
		return nil, ErrCategoryNotFound
	}
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	if category.RequiresSubTarget() && subTarget == "" {
		return nil, ErrMissingSubTarget
	}

	now := time.Now().UTC()
	return &Booking{
		ID:            uuid.New().String(),
		ContentItemID: contentItemID,
		RequesterID:   requesterID,
		SlotCategory:  category,
		SubTarget:     subTarget,
		StartDate:     start,
		EndDate:       end,
		Status:        BookingStatusPendingPayment,
		AmountPaid:    amount,
		DisplayText:   displayText,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Days returns the inclusive number of calendar days the booking covers.
func (b *Booking) Days() int {
	return DaysBetween(b.StartDate, b.EndDate)
}

// Covers reports whether the booking's date range includes day d.
func (b *Booking) Covers(d time.Time) bool {
	day := Midnight(d)
	return !day.Before(Midnight(b.StartDate)) && !day.After(Midnight(b.EndDate))
}

// BelongsTo reports whether the booking was made by the given requester.
func (b *Booking) BelongsTo(requesterID string) bool {
	return b.RequesterID == requesterID
}

// IsActive returns true if the booking is in active status.
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusActive
}

// Ended reports whether the booking's window has fully elapsed as of now.
func (b *Booking) Ended(now time.Time) bool {
	return Midnight(now).After(Midnight(b.EndDate))
}
