package domain

import "time"

// SlotCategory identifies a kind of featured placement. Each category has
// exactly one pricing catalog entry.
type SlotCategory string

const (
	SlotCategoryHero           SlotCategory = "hero"
	SlotCategoryGlobalPinned   SlotCategory = "global-pinned"
	SlotCategoryCategoryPinned SlotCategory = "category-pinned"
	SlotCategoryCarousel       SlotCategory = "carousel"
)

func (c SlotCategory) String() string {
	return string(c)
}

// Valid reports whether c is a known slot category.
func (c SlotCategory) Valid() bool {
	switch c {
	case SlotCategoryHero, SlotCategoryGlobalPinned, SlotCategoryCategoryPinned, SlotCategoryCarousel:
		return true
	}
	return false
}

// RequiresSubTarget reports whether capacity for this category is
// partitioned by a sub-target (e.g. a content category id).
func (c SlotCategory) RequiresSubTarget() bool {
	return c == SlotCategoryCategoryPinned
}

// PricingCatalogEntry holds the operator-configured pricing and capacity
// limits for one slot category. Prices are in minor currency units; a price
// change applies to new quotes only.
type PricingCatalogEntry struct {
	SlotCategory  SlotCategory `json:"slot_category"`
	PricePerDay   int64        `json:"price_per_day"`
	MinDays       int          `json:"min_days"`
	MaxConcurrent int          `json:"max_concurrent"`
	Active        bool         `json:"active"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// QuoteFor returns the price of an inclusive date range at this entry's
// current rate.
func (e *PricingCatalogEntry) QuoteFor(start, end time.Time) int64 {
	return int64(DaysBetween(start, end)) * e.PricePerDay
}
