package service

import (
	"context"
	"errors"
	"testing"

	"github.com/nitikorn/featured-slots/internal/domain"
	"github.com/nitikorn/featured-slots/internal/dto"
	"github.com/nitikorn/featured-slots/internal/repository"
)

func TestAvailabilityService_Quote(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *dto.QuoteRequest
		seed    func(t *testing.T, repo *repository.MemoryBookingRepository)
		wantErr error
		check   func(t *testing.T, resp *dto.QuoteResponse)
	}{
		{
			name: "empty calendar is fully available",
			req: &dto.QuoteRequest{
				SlotCategory: "hero",
				StartDate:    "2026-01-10",
				EndDate:      "2026-01-12",
			},
			check: func(t *testing.T, resp *dto.QuoteResponse) {
				if !resp.Available {
					t.Error("expected range to be available")
				}
				if resp.Days != 3 {
					t.Errorf("Days = %d, want 3", resp.Days)
				}
				if resp.Quote != 450000 {
					t.Errorf("Quote = %d, want 450000", resp.Quote)
				}
				if resp.Currency != "thb" {
					t.Errorf("Currency = %s, want thb", resp.Currency)
				}
				for day, left := range resp.RemainingPerDay {
					if left != 2 {
						t.Errorf("remaining on %s = %d, want 2", day, left)
					}
				}
			},
		},
		{
			name: "full day makes the range unavailable",
			req: &dto.QuoteRequest{
				SlotCategory: "hero",
				StartDate:    "2026-01-10",
				EndDate:      "2026-01-12",
			},
			seed: func(t *testing.T, repo *repository.MemoryBookingRepository) {
				for i := 0; i < 2; i++ {
					b, err := domain.NewBooking("item", "user", domain.SlotCategoryHero, "", date(t, "2026-01-11"), date(t, "2026-01-13"), 450000, "")
					if err != nil {
						t.Fatal(err)
					}
					if err := repo.CreateIfCapacity(ctx, b, 2); err != nil {
						t.Fatal(err)
					}
				}
			},
			check: func(t *testing.T, resp *dto.QuoteResponse) {
				if resp.Available {
					t.Error("expected range to be unavailable")
				}
				if resp.Quote != 0 {
					t.Errorf("Quote = %d, want 0 when unavailable", resp.Quote)
				}
				if resp.RemainingPerDay["2026-01-10"] != 2 {
					t.Errorf("remaining on 2026-01-10 = %d, want 2", resp.RemainingPerDay["2026-01-10"])
				}
				if resp.RemainingPerDay["2026-01-11"] != 0 {
					t.Errorf("remaining on 2026-01-11 = %d, want 0", resp.RemainingPerDay["2026-01-11"])
				}
			},
		},
		{
			name: "below minimum stay",
			req: &dto.QuoteRequest{
				SlotCategory: "hero",
				StartDate:    "2026-01-10",
				EndDate:      "2026-01-11",
			},
			wantErr: domain.ErrBelowMinimumStay,
		},
		{
			name: "end before start",
			req: &dto.QuoteRequest{
				SlotCategory: "hero",
				StartDate:    "2026-01-12",
				EndDate:      "2026-01-10",
			},
			wantErr: domain.ErrInvalidRange,
		},
		{
			name: "malformed date",
			req: &dto.QuoteRequest{
				SlotCategory: "hero",
				StartDate:    "10/01/2026",
				EndDate:      "2026-01-12",
			},
			wantErr: domain.ErrInvalidRange,
		},
		{
			name: "category-pinned without sub target",
			req: &dto.QuoteRequest{
				SlotCategory: "category-pinned",
				StartDate:    "2026-01-10",
				EndDate:      "2026-01-12",
			},
			wantErr: domain.ErrMissingSubTarget,
		},
		{
			name: "unknown category",
			req: &dto.QuoteRequest{
				SlotCategory: "banner",
				StartDate:    "2026-01-10",
				EndDate:      "2026-01-12",
			},
			wantErr: domain.ErrCategoryNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookingRepo := repository.NewMemoryBookingRepository()
			catalogRepo := repository.NewMemoryCatalogRepository(heroEntry(), carouselEntry())
			if tt.seed != nil {
				tt.seed(t, bookingRepo)
			}

			svc := NewAvailabilityService(bookingRepo, catalogRepo, "thb")
			resp, err := svc.Quote(ctx, tt.req)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Quote() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Quote() unexpected error = %v", err)
			}
			if tt.check != nil {
				tt.check(t, resp)
			}
		})
	}
}

func TestAvailabilityService_InactiveCategory(t *testing.T) {
	entry := heroEntry()
	entry.Active = false

	svc := NewAvailabilityService(
		repository.NewMemoryBookingRepository(),
		repository.NewMemoryCatalogRepository(entry),
		"thb",
	)

	_, err := svc.Quote(context.Background(), &dto.QuoteRequest{
		SlotCategory: "hero",
		StartDate:    "2026-01-10",
		EndDate:      "2026-01-12",
	})
	if !errors.Is(err, domain.ErrCategoryInactive) {
		t.Errorf("Quote() error = %v, want ErrCategoryInactive", err)
	}
}

// A quote never holds capacity: quoting the same range many times leaves
// the calendar unchanged.
func TestAvailabilityService_QuoteIsAdvisory(t *testing.T) {
	ctx := context.Background()
	bookingRepo := repository.NewMemoryBookingRepository()
	svc := NewAvailabilityService(bookingRepo, repository.NewMemoryCatalogRepository(heroEntry()), "thb")

	req := &dto.QuoteRequest{SlotCategory: "hero", StartDate: "2026-01-10", EndDate: "2026-01-12"}
	for i := 0; i < 5; i++ {
		resp, err := svc.Quote(ctx, req)
		if err != nil {
			t.Fatalf("Quote() error = %v", err)
		}
		if !resp.Available {
			t.Fatal("quoting must not consume capacity")
		}
	}
}
