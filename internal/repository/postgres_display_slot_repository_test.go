package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

func resetDisplaySlots(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	query := `
		UPDATE display_slots SET
			content_item_id = NULL,
			booking_id = NULL,
			assigned_at = NULL
	`
	if _, err := pool.Exec(context.Background(), query); err != nil {
		t.Fatalf("Failed to reset display slots: %v", err)
	}
}

func TestPostgresDisplaySlotRepository_AssignIdempotentPerItem(t *testing.T) {
	skipIfNoIntegration(t)

	pool := getPostgresPool(t)
	defer pool.Close()
	resetDisplaySlots(t, pool)

	repo := NewPostgresDisplaySlotRepository(pool)
	ctx := context.Background()

	first, ok, err := repo.AssignFirstFree(ctx, "item-1", "booking-1")
	if err != nil || !ok {
		t.Fatalf("AssignFirstFree() = (%d, %t, %v), want a position", first, ok, err)
	}

	// Replayed webhook deliveries assign again for the same item; the row
	// it already holds is returned instead of a second position.
	again, ok, err := repo.AssignFirstFree(ctx, "item-1", "booking-1")
	if err != nil || !ok {
		t.Fatalf("repeated AssignFirstFree() = (%d, %t, %v), want a position", again, ok, err)
	}
	if again != first {
		t.Errorf("repeated assign position = %d, want %d", again, first)
	}

	slots, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	held := 0
	for _, s := range slots {
		if s.ContentItemID == "item-1" {
			held++
		}
	}
	if held != 1 {
		t.Errorf("positions holding item-1 = %d, want 1", held)
	}
}

func TestPostgresDisplaySlotRepository_ReleaseByContentItem(t *testing.T) {
	skipIfNoIntegration(t)

	pool := getPostgresPool(t)
	defer pool.Close()
	resetDisplaySlots(t, pool)

	repo := NewPostgresDisplaySlotRepository(pool)
	ctx := context.Background()

	if _, ok, err := repo.AssignFirstFree(ctx, "item-1", "booking-1"); err != nil || !ok {
		t.Fatalf("AssignFirstFree() ok = %t, err = %v, want claim", ok, err)
	}

	released, err := repo.ReleaseByContentItem(ctx, "item-1")
	if err != nil {
		t.Fatalf("ReleaseByContentItem() error = %v", err)
	}
	if released != 1 {
		t.Errorf("released = %d, want 1", released)
	}

	// Releasing an absent item is a no-op
	released, err = repo.ReleaseByContentItem(ctx, "item-1")
	if err != nil {
		t.Fatalf("second ReleaseByContentItem() error = %v", err)
	}
	if released != 0 {
		t.Errorf("released = %d, want 0", released)
	}
}
