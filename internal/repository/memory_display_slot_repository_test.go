package repository

import (
	"context"
	"testing"
)

func TestMemoryDisplaySlotRepository_AssignIdempotentPerItem(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDisplaySlotRepository(3)

	first, ok, err := repo.AssignFirstFree(ctx, "item-1", "booking-1")
	if err != nil || !ok {
		t.Fatalf("AssignFirstFree() = (%d, %t, %v), want a position", first, ok, err)
	}

	// A second assign for the same item returns the position it already
	// holds instead of occupying another one.
	again, ok, err := repo.AssignFirstFree(ctx, "item-1", "booking-1")
	if err != nil || !ok {
		t.Fatalf("repeated AssignFirstFree() = (%d, %t, %v), want a position", again, ok, err)
	}
	if again != first {
		t.Errorf("repeated assign position = %d, want %d", again, first)
	}

	slots, _ := repo.List(ctx)
	held := 0
	for _, s := range slots {
		if s.ContentItemID == "item-1" {
			held++
		}
	}
	if held != 1 {
		t.Errorf("positions holding item-1 = %d, want 1", held)
	}

	// Other items still get fresh positions
	second, ok, err := repo.AssignFirstFree(ctx, "item-2", "booking-2")
	if err != nil || !ok {
		t.Fatalf("AssignFirstFree(item-2) = (%d, %t, %v), want a position", second, ok, err)
	}
	if second == first {
		t.Errorf("item-2 position = %d, collides with item-1", second)
	}
}

func TestMemoryDisplaySlotRepository_PoolFullAndRelease(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDisplaySlotRepository(1)

	if _, ok, err := repo.AssignFirstFree(ctx, "item-1", "booking-1"); err != nil || !ok {
		t.Fatalf("AssignFirstFree() ok = %t, err = %v, want claim", ok, err)
	}

	// Pool full is reported, not an error
	if _, ok, err := repo.AssignFirstFree(ctx, "item-2", "booking-2"); err != nil || ok {
		t.Errorf("AssignFirstFree() on full pool = (%t, %v), want (false, nil)", ok, err)
	}

	released, err := repo.ReleaseByContentItem(ctx, "item-1")
	if err != nil {
		t.Fatalf("ReleaseByContentItem() error = %v", err)
	}
	if released != 1 {
		t.Errorf("released = %d, want 1", released)
	}

	if _, ok, err := repo.AssignFirstFree(ctx, "item-2", "booking-2"); err != nil || !ok {
		t.Errorf("AssignFirstFree() after release = (%t, %v), want claim", ok, err)
	}
}
