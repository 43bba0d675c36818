package domain

import "time"

// BookingEventType identifies a booking lifecycle event on the bus.
type BookingEventType string

const (
	BookingEventCreated   BookingEventType = "featured.booking.created"
	BookingEventActivated BookingEventType = "featured.booking.activated"
	BookingEventCancelled BookingEventType = "featured.booking.cancelled"
	BookingEventCompleted BookingEventType = "featured.booking.completed"
)

// BookingEvent is the payload published for every booking lifecycle change.
// Consumers (search indexer, notification service) key on the booking id.
type BookingEvent struct {
	EventID       string           `json:"event_id"`
	EventType     BookingEventType `json:"event_type"`
	BookingID     string           `json:"booking_id"`
	ContentItemID string           `json:"content_item_id"`
	RequesterID   string           `json:"requester_id"`
	SlotCategory  SlotCategory     `json:"slot_category"`
	SubTarget     string           `json:"sub_target,omitempty"`
	StartDate     string           `json:"start_date"`
	EndDate       string           `json:"end_date"`
	Status        BookingStatus    `json:"status"`
	AmountPaid    int64            `json:"amount_paid"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// NewBookingEvent builds an event snapshot from a booking.
func NewBookingEvent(eventType BookingEventType, b *Booking, eventID string) *BookingEvent {
	return &BookingEvent{
		EventID:       eventID,
		EventType:     eventType,
		BookingID:     b.ID,
		ContentItemID: b.ContentItemID,
		RequesterID:   b.RequesterID,
		SlotCategory:  b.SlotCategory,
		SubTarget:     b.SubTarget,
		StartDate:     b.StartDate.Format(DateLayout),
		EndDate:       b.EndDate.Format(DateLayout),
		Status:        b.Status,
		AmountPaid:    b.AmountPaid,
		OccurredAt:    time.Now().UTC(),
	}
}

// Key returns the partition key for the event.
func (e *BookingEvent) Key() string {
	return e.BookingID
}
