package domain

import "testing"

func TestSlotCategory_Valid(t *testing.T) {
	for _, c := range []SlotCategory{SlotCategoryHero, SlotCategoryGlobalPinned, SlotCategoryCategoryPinned, SlotCategoryCarousel} {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
	}
	for _, c := range []SlotCategory{"", "banner", "HERO"} {
		if c.Valid() {
			t.Errorf("%q should not be valid", c)
		}
	}
}

func TestSlotCategory_RequiresSubTarget(t *testing.T) {
	if !SlotCategoryCategoryPinned.RequiresSubTarget() {
		t.Error("category-pinned should require a sub target")
	}
	for _, c := range []SlotCategory{SlotCategoryHero, SlotCategoryGlobalPinned, SlotCategoryCarousel} {
		if c.RequiresSubTarget() {
			t.Errorf("%s should not require a sub target", c)
		}
	}
}

func TestPricingCatalogEntry_QuoteFor(t *testing.T) {
	entry := &PricingCatalogEntry{
		SlotCategory: SlotCategoryHero,
		PricePerDay:  150000,
	}

	tests := []struct {
		name       string
		start, end string
		want       int64
	}{
		{"single day", "2026-01-10", "2026-01-10", 150000},
		{"three days", "2026-01-10", "2026-01-12", 450000},
		{"inverted range quotes zero", "2026-01-12", "2026-01-10", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entry.QuoteFor(date(tt.start), date(tt.end)); got != tt.want {
				t.Errorf("QuoteFor(%s, %s) = %d, want %d", tt.start, tt.end, got, tt.want)
			}
		})
	}
}
