package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nitikorn/featured-slots/internal/domain"
)

func date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestBooking(t *testing.T, requesterID, start, end string) *domain.Booking {
	t.Helper()
	b, err := domain.NewBooking("item-"+requesterID, requesterID, domain.SlotCategoryHero, "", date(start), date(end), 450000, "")
	if err != nil {
		t.Fatalf("NewBooking() error = %v", err)
	}
	return b
}

func TestMemoryBookingRepository_CreateIfCapacity(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBookingRepository()

	// max_concurrent = 2, fill both units on the overlapping day
	first := newTestBooking(t, "user-1", "2026-01-10", "2026-01-12")
	if err := repo.CreateIfCapacity(ctx, first, 2); err != nil {
		t.Fatalf("first create error = %v", err)
	}
	second := newTestBooking(t, "user-2", "2026-01-09", "2026-01-10")
	if err := repo.CreateIfCapacity(ctx, second, 2); err != nil {
		t.Fatalf("second create error = %v", err)
	}

	// Third booking covering the full day is rejected
	third := newTestBooking(t, "user-3", "2026-01-10", "2026-01-10")
	if err := repo.CreateIfCapacity(ctx, third, 2); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Errorf("third create error = %v, want ErrCapacityExceeded", err)
	}

	// Cancelling one frees the day again
	if err := repo.TransitionStatus(ctx, second.ID, domain.BookingStatusPendingPayment, domain.BookingStatusCancelled); err != nil {
		t.Fatalf("cancel error = %v", err)
	}
	if err := repo.CreateIfCapacity(ctx, third, 2); err != nil {
		t.Errorf("create after cancel error = %v, want nil", err)
	}
}

func TestMemoryBookingRepository_CapacityPartitionedBySubTarget(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBookingRepository()

	a, _ := domain.NewBooking("item-a", "user-1", domain.SlotCategoryCategoryPinned, "cat-1", date("2026-01-10"), date("2026-01-10"), 60000, "")
	b, _ := domain.NewBooking("item-b", "user-2", domain.SlotCategoryCategoryPinned, "cat-2", date("2026-01-10"), date("2026-01-10"), 60000, "")

	if err := repo.CreateIfCapacity(ctx, a, 1); err != nil {
		t.Fatalf("create in cat-1 error = %v", err)
	}
	// A different sub target has its own capacity
	if err := repo.CreateIfCapacity(ctx, b, 1); err != nil {
		t.Errorf("create in cat-2 error = %v, want nil", err)
	}

	c, _ := domain.NewBooking("item-c", "user-3", domain.SlotCategoryCategoryPinned, "cat-1", date("2026-01-10"), date("2026-01-10"), 60000, "")
	if err := repo.CreateIfCapacity(ctx, c, 1); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Errorf("second create in cat-1 error = %v, want ErrCapacityExceeded", err)
	}
}

// The capacity invariant must hold when many creates race for the same day.
func TestMemoryBookingRepository_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBookingRepository()
	const maxConcurrent = 3
	const attempts = 50

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := newTestBooking(t, "user-1", "2026-01-10", "2026-01-12")
			errs[i] = repo.CreateIfCapacity(ctx, b, maxConcurrent)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, domain.ErrCapacityExceeded) {
			t.Errorf("unexpected error = %v", err)
		}
	}
	if succeeded != maxConcurrent {
		t.Errorf("%d creates succeeded, want exactly %d", succeeded, maxConcurrent)
	}

	counts, err := repo.CountPerDay(ctx, domain.SlotCategoryHero, "", date("2026-01-10"), date("2026-01-12"))
	if err != nil {
		t.Fatalf("CountPerDay() error = %v", err)
	}
	for day, n := range counts {
		if n > maxConcurrent {
			t.Errorf("day %s has %d bookings, capacity is %d", day.Format(domain.DateLayout), n, maxConcurrent)
		}
	}
}

func TestMemoryBookingRepository_TransitionStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBookingRepository()

	b := newTestBooking(t, "user-1", "2026-01-10", "2026-01-12")
	if err := repo.CreateIfCapacity(ctx, b, 2); err != nil {
		t.Fatalf("create error = %v", err)
	}

	t.Run("illegal transition rejected", func(t *testing.T) {
		err := repo.TransitionStatus(ctx, b.ID, domain.BookingStatusPendingPayment, domain.BookingStatusCompleted)
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("error = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("unknown booking", func(t *testing.T) {
		err := repo.TransitionStatus(ctx, "nonexistent", domain.BookingStatusPendingPayment, domain.BookingStatusActive)
		if !errors.Is(err, domain.ErrBookingNotFound) {
			t.Errorf("error = %v, want ErrBookingNotFound", err)
		}
	})

	t.Run("activation sets timestamp", func(t *testing.T) {
		if err := repo.TransitionStatus(ctx, b.ID, domain.BookingStatusPendingPayment, domain.BookingStatusActive); err != nil {
			t.Fatalf("activate error = %v", err)
		}
		got, _ := repo.GetByID(ctx, b.ID)
		if got.Status != domain.BookingStatusActive {
			t.Errorf("status = %s, want active", got.Status)
		}
		if got.ActivatedAt == nil {
			t.Error("ActivatedAt not set")
		}
	})

	t.Run("replay is a no-op", func(t *testing.T) {
		if err := repo.TransitionStatus(ctx, b.ID, domain.BookingStatusPendingPayment, domain.BookingStatusActive); err != nil {
			t.Errorf("replayed transition error = %v, want nil", err)
		}
	})

	t.Run("state mismatch refused", func(t *testing.T) {
		err := repo.TransitionStatus(ctx, b.ID, domain.BookingStatusPendingPayment, domain.BookingStatusCancelled)
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("error = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestMemoryBookingRepository_SweeperQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBookingRepository()

	stale := newTestBooking(t, "user-1", "2026-01-10", "2026-01-12")
	stale.CreatedAt = time.Now().UTC().Add(-30 * time.Minute)
	if err := repo.CreateIfCapacity(ctx, stale, 5); err != nil {
		t.Fatalf("create error = %v", err)
	}

	fresh := newTestBooking(t, "user-2", "2026-01-10", "2026-01-12")
	if err := repo.CreateIfCapacity(ctx, fresh, 5); err != nil {
		t.Fatalf("create error = %v", err)
	}

	cutoff := time.Now().UTC().Add(-15 * time.Minute)
	got, err := repo.GetStalePending(ctx, cutoff, 100)
	if err != nil {
		t.Fatalf("GetStalePending() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != stale.ID {
		t.Errorf("GetStalePending() returned %d rows, want only the stale booking", len(got))
	}

	ended := newTestBooking(t, "user-3", "2026-01-01", "2026-01-02")
	if err := repo.CreateIfCapacity(ctx, ended, 5); err != nil {
		t.Fatalf("create error = %v", err)
	}
	if err := repo.TransitionStatus(ctx, ended.ID, domain.BookingStatusPendingPayment, domain.BookingStatusActive); err != nil {
		t.Fatalf("activate error = %v", err)
	}

	expired, err := repo.GetExpiredActive(ctx, date("2026-01-05"), 100)
	if err != nil {
		t.Fatalf("GetExpiredActive() error = %v", err)
	}
	if len(expired) != 1 || expired[0].ID != ended.ID {
		t.Errorf("GetExpiredActive() returned %d rows, want only the ended booking", len(expired))
	}
}

func TestMemoryBookingRepository_GetByCheckoutRef(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBookingRepository()

	b := newTestBooking(t, "user-1", "2026-01-10", "2026-01-12")
	if err := repo.CreateIfCapacity(ctx, b, 2); err != nil {
		t.Fatalf("create error = %v", err)
	}
	if err := repo.SetCheckoutRef(ctx, b.ID, "cs_test_123"); err != nil {
		t.Fatalf("SetCheckoutRef() error = %v", err)
	}

	got, err := repo.GetByCheckoutRef(ctx, "cs_test_123")
	if err != nil {
		t.Fatalf("GetByCheckoutRef() error = %v", err)
	}
	if got.ID != b.ID {
		t.Errorf("GetByCheckoutRef() returned %s, want %s", got.ID, b.ID)
	}

	if _, err := repo.GetByCheckoutRef(ctx, "cs_unknown"); !errors.Is(err, domain.ErrBookingNotFound) {
		t.Errorf("unknown ref error = %v, want ErrBookingNotFound", err)
	}
}
