package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nitikorn/featured-slots/internal/domain"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q) error = %v", s, err)
	}
	return d
}

func heroEntry() *domain.PricingCatalogEntry {
	return &domain.PricingCatalogEntry{
		SlotCategory:  domain.SlotCategoryHero,
		PricePerDay:   150000,
		MinDays:       3,
		MaxConcurrent: 2,
		Active:        true,
	}
}

func carouselEntry() *domain.PricingCatalogEntry {
	return &domain.PricingCatalogEntry{
		SlotCategory:  domain.SlotCategoryCarousel,
		PricePerDay:   40000,
		MinDays:       1,
		MaxConcurrent: 5,
		Active:        true,
	}
}

// RecordingEventPublisher captures published events for assertions
type RecordingEventPublisher struct {
	mu     sync.Mutex
	Events []domain.BookingEventType
}

func (p *RecordingEventPublisher) record(t domain.BookingEventType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, t)
	return nil
}

func (p *RecordingEventPublisher) PublishBookingCreated(ctx context.Context, b *domain.Booking) error {
	return p.record(domain.BookingEventCreated)
}

func (p *RecordingEventPublisher) PublishBookingActivated(ctx context.Context, b *domain.Booking) error {
	return p.record(domain.BookingEventActivated)
}

func (p *RecordingEventPublisher) PublishBookingCancelled(ctx context.Context, b *domain.Booking) error {
	return p.record(domain.BookingEventCancelled)
}

func (p *RecordingEventPublisher) PublishBookingCompleted(ctx context.Context, b *domain.Booking) error {
	return p.record(domain.BookingEventCompleted)
}

func (p *RecordingEventPublisher) Close() error { return nil }

func (p *RecordingEventPublisher) Count(t domain.BookingEventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.Events {
		if e == t {
			n++
		}
	}
	return n
}

// RecordingContentClient tracks promoted flags per content item
type RecordingContentClient struct {
	mu       sync.Mutex
	Items    map[string]*ContentItem
	Promoted map[string]bool
	Until    map[string]time.Time
}

func NewRecordingContentClient() *RecordingContentClient {
	return &RecordingContentClient{
		Items:    make(map[string]*ContentItem),
		Promoted: make(map[string]bool),
		Until:    make(map[string]time.Time),
	}
}

func (c *RecordingContentClient) GetItem(ctx context.Context, id string) (*ContentItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.Items[id]; ok {
		return item, nil
	}
	return &ContentItem{ID: id}, nil
}

func (c *RecordingContentClient) MarkPromoted(ctx context.Context, id string, until time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Promoted[id] = true
	c.Until[id] = until
	return nil
}

func (c *RecordingContentClient) ClearPromoted(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Promoted[id] = false
	delete(c.Until, id)
	return nil
}

func (c *RecordingContentClient) IsPromoted(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Promoted[id]
}

func (c *RecordingContentClient) PromotedUntil(id string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Until[id]
}

// Unpromote resets the recorded flag without going through the client
// interface, simulating state the content service arrived at on its own.
func (c *RecordingContentClient) Unpromote(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Promoted[id] = false
	delete(c.Until, id)
}
