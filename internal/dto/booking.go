package dto

import (
	"time"

	"github.com/nitikorn/featured-slots/internal/domain"
)

// QuoteRequest represents a price and availability check for a date range.
// Dates are inclusive calendar dates in YYYY-MM-DD format.
type QuoteRequest struct {
	SlotCategory string `json:"slot_category" form:"slot_category" binding:"required"`
	SubTarget    string `json:"sub_target,omitempty" form:"sub_target"`
	StartDate    string `json:"start_date" form:"start_date" binding:"required"`
	EndDate      string `json:"end_date" form:"end_date" binding:"required"`
}

// QuoteResponse represents the advisory availability result. A quote is not
// a hold; availability is re-checked at reservation time.
type QuoteResponse struct {
	Available       bool           `json:"available"`
	RemainingPerDay map[string]int `json:"remaining_per_day"`
	Days            int            `json:"days"`
	Quote           int64          `json:"quote,omitempty"`
	Currency        string         `json:"currency"`
}

// ReserveRequest represents a reservation attempt for a featured placement.
type ReserveRequest struct {
	ContentItemID string `json:"content_item_id" binding:"required"`
	SlotCategory  string `json:"slot_category" binding:"required"`
	SubTarget     string `json:"sub_target,omitempty"`
	StartDate     string `json:"start_date" binding:"required"`
	EndDate       string `json:"end_date" binding:"required"`
	DisplayText   string `json:"display_text,omitempty"`
}

// ReserveResponse represents a created reservation awaiting payment.
type ReserveResponse struct {
	BookingID   string `json:"booking_id"`
	Status      string `json:"status"`
	AmountDue   int64  `json:"amount_due"`
	Currency    string `json:"currency"`
	RedirectURL string `json:"redirect_url"`
}

// BookingResponse represents a booking in API responses.
type BookingResponse struct {
	ID            string     `json:"id"`
	ContentItemID string     `json:"content_item_id"`
	RequesterID   string     `json:"requester_id"`
	SlotCategory  string     `json:"slot_category"`
	SubTarget     string     `json:"sub_target,omitempty"`
	StartDate     string     `json:"start_date"`
	EndDate       string     `json:"end_date"`
	Status        string     `json:"status"`
	AmountPaid    int64      `json:"amount_paid"`
	DisplayText   string     `json:"display_text,omitempty"`
	ActivatedAt   *time.Time `json:"activated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// PaginatedResponse wraps a page of results.
type PaginatedResponse struct {
	Data     any `json:"data"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// PricingEntryRequest represents an operator update to a catalog entry.
type PricingEntryRequest struct {
	PricePerDay   int64 `json:"price_per_day" binding:"required,min=1"`
	MinDays       int   `json:"min_days" binding:"required,min=1"`
	MaxConcurrent int   `json:"max_concurrent" binding:"required,min=1"`
	Active        *bool `json:"active,omitempty"`
}

// FromDomain converts a domain Booking to a BookingResponse.
func FromDomain(b *domain.Booking) *BookingResponse {
	return &BookingResponse{
		ID:            b.ID,
		ContentItemID: b.ContentItemID,
		RequesterID:   b.RequesterID,
		SlotCategory:  string(b.SlotCategory),
		SubTarget:     b.SubTarget,
		StartDate:     b.StartDate.Format(domain.DateLayout),
		EndDate:       b.EndDate.Format(domain.DateLayout),
		Status:        string(b.Status),
		AmountPaid:    b.AmountPaid,
		DisplayText:   b.DisplayText,
		ActivatedAt:   b.ActivatedAt,
		CreatedAt:     b.CreatedAt,
	}
}
