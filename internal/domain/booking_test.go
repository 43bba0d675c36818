package domain

import (
	"errors"
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{"pending to active", BookingStatusPendingPayment, BookingStatusActive, true},
		{"pending to cancelled", BookingStatusPendingPayment, BookingStatusCancelled, true},
		{"active to completed", BookingStatusActive, BookingStatusCompleted, true},
		{"pending to completed", BookingStatusPendingPayment, BookingStatusCompleted, false},
		{"active to cancelled", BookingStatusActive, BookingStatusCancelled, false},
		{"active to pending", BookingStatusActive, BookingStatusPendingPayment, false},
		{"cancelled to active", BookingStatusCancelled, BookingStatusActive, false},
		{"completed to active", BookingStatusCompleted, BookingStatusActive, false},
		{"rejected is terminal", BookingStatusRejected, BookingStatusActive, false},
		{"self transition not listed", BookingStatusActive, BookingStatusActive, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestBookingStatus_IsTerminal(t *testing.T) {
	terminal := []BookingStatus{BookingStatusCancelled, BookingStatusCompleted, BookingStatusRejected}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	live := []BookingStatus{BookingStatusPendingPayment, BookingStatusActive}
	for _, s := range live {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestBookingStatus_HoldsCapacity(t *testing.T) {
	holding := []BookingStatus{BookingStatusPendingPayment, BookingStatusActive}
	for _, s := range holding {
		if !s.HoldsCapacity() {
			t.Errorf("%s should hold capacity", s)
		}
	}
	released := []BookingStatus{BookingStatusCancelled, BookingStatusCompleted, BookingStatusRejected}
	for _, s := range released {
		if s.HoldsCapacity() {
			t.Errorf("%s should not hold capacity", s)
		}
	}
}

func TestNewBooking(t *testing.T) {
	start := date("2026-01-10")
	end := date("2026-01-12")

	tests := []struct {
		name          string
		contentItemID string
		requesterID   string
		category      SlotCategory
		subTarget     string
		start, end    time.Time
		wantErr       error
	}{
		{"valid hero booking", "item-1", "user-1", SlotCategoryHero, "", start, end, nil},
		{"valid category-pinned with sub target", "item-1", "user-1", SlotCategoryCategoryPinned, "cat-42", start, end, nil},
		{"missing content item", "", "user-1", SlotCategoryHero, "", start, end, ErrInvalidContentItem},
		{"missing requester", "item-1", "", SlotCategoryHero, "", start, end, ErrInvalidRequester},
		{"unknown category", "item-1", "user-1", SlotCategory("banner"), "", start, end, ErrCategoryNotFound},
		{"end before start", "item-1", "user-1", SlotCategoryHero, "", end, start, ErrInvalidRange},
		{"category-pinned without sub target", "item-1", "user-1", SlotCategoryCategoryPinned, "", start, end, ErrMissingSubTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBooking(tt.contentItemID, tt.requesterID, tt.category, tt.subTarget, tt.start, tt.end, 450000, "")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewBooking() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBooking() unexpected error = %v", err)
			}
			if b.ID == "" {
				t.Error("NewBooking() did not assign an id")
			}
			if b.Status != BookingStatusPendingPayment {
				t.Errorf("NewBooking() status = %s, want %s", b.Status, BookingStatusPendingPayment)
			}
			if b.AmountPaid != 450000 {
				t.Errorf("NewBooking() amount = %d, want 450000", b.AmountPaid)
			}
		})
	}
}

func TestBooking_Days(t *testing.T) {
	b := &Booking{StartDate: date("2026-01-10"), EndDate: date("2026-01-12")}
	if got := b.Days(); got != 3 {
		t.Errorf("Days() = %d, want 3", got)
	}

	single := &Booking{StartDate: date("2026-01-10"), EndDate: date("2026-01-10")}
	if got := single.Days(); got != 1 {
		t.Errorf("Days() for single day = %d, want 1", got)
	}
}

func TestBooking_Covers(t *testing.T) {
	b := &Booking{StartDate: date("2026-01-10"), EndDate: date("2026-01-12")}

	tests := []struct {
		day  string
		want bool
	}{
		{"2026-01-09", false},
		{"2026-01-10", true},
		{"2026-01-11", true},
		{"2026-01-12", true},
		{"2026-01-13", false},
	}
	for _, tt := range tests {
		if got := b.Covers(date(tt.day)); got != tt.want {
			t.Errorf("Covers(%s) = %v, want %v", tt.day, got, tt.want)
		}
	}

	// A mid-day timestamp still counts as its calendar date
	noon := time.Date(2026, 1, 11, 12, 30, 0, 0, time.UTC)
	if !b.Covers(noon) {
		t.Error("Covers() should ignore the time of day")
	}
}

func TestBooking_Ended(t *testing.T) {
	b := &Booking{StartDate: date("2026-01-10"), EndDate: date("2026-01-12")}

	if b.Ended(date("2026-01-12")) {
		t.Error("Ended() should be false on the last covered day")
	}
	if !b.Ended(date("2026-01-13")) {
		t.Error("Ended() should be true the day after end_date")
	}
}
