package service

import (
	"context"
	"sync"
	"testing"

	"github.com/nitikorn/featured-slots/internal/domain"
	"github.com/nitikorn/featured-slots/internal/repository"
)

type reconcilerFixture struct {
	repo      *repository.MemoryBookingRepository
	slots     *repository.MemoryDisplaySlotRepository
	content   *RecordingContentClient
	publisher *RecordingEventPublisher
	svc       ReconcilerService
}

func newReconcilerFixture(poolSize int) *reconcilerFixture {
	repo := repository.NewMemoryBookingRepository()
	slots := repository.NewMemoryDisplaySlotRepository(poolSize)
	content := NewRecordingContentClient()
	publisher := &RecordingEventPublisher{}
	return &reconcilerFixture{
		repo:      repo,
		slots:     slots,
		content:   content,
		publisher: publisher,
		svc:       NewReconcilerService(repo, NewSlotAssigner(slots), content, publisher),
	}
}

func (f *reconcilerFixture) createPending(t *testing.T, checkoutRef string) *domain.Booking {
	t.Helper()
	ctx := context.Background()
	b, err := domain.NewBooking("item-"+checkoutRef, "user-1", domain.SlotCategoryHero, "",
		date(t, "2026-01-10"), date(t, "2026-01-12"), 450000, "")
	if err != nil {
		t.Fatalf("NewBooking() error = %v", err)
	}
	if err := f.repo.CreateIfCapacity(ctx, b, 10); err != nil {
		t.Fatalf("CreateIfCapacity() error = %v", err)
	}
	if err := f.repo.SetCheckoutRef(ctx, b.ID, checkoutRef); err != nil {
		t.Fatalf("SetCheckoutRef() error = %v", err)
	}
	return b
}

func TestReconciler_CheckoutCompleted(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture(5)
	b := f.createPending(t, "cs_1")

	if err := f.svc.HandleCheckoutCompleted(ctx, "cs_1", "pi_1"); err != nil {
		t.Fatalf("HandleCheckoutCompleted() error = %v", err)
	}

	got, _ := f.repo.GetByID(ctx, b.ID)
	if got.Status != domain.BookingStatusActive {
		t.Errorf("status = %s, want active", got.Status)
	}
	if got.PaymentRef != "pi_1" {
		t.Errorf("payment ref = %s, want pi_1", got.PaymentRef)
	}
	if !f.content.IsPromoted(b.ContentItemID) {
		t.Error("content item not marked promoted")
	}
	if !f.content.PromotedUntil(b.ContentItemID).Equal(b.EndDate) {
		t.Errorf("promoted until = %s, want the booking end date %s",
			f.content.PromotedUntil(b.ContentItemID).Format(domain.DateLayout),
			b.EndDate.Format(domain.DateLayout))
	}
	if f.publisher.Count(domain.BookingEventActivated) != 1 {
		t.Errorf("activated events = %d, want 1", f.publisher.Count(domain.BookingEventActivated))
	}

	slots, _ := f.slots.List(ctx)
	assigned := 0
	for _, s := range slots {
		if s.ContentItemID == b.ContentItemID {
			assigned++
		}
	}
	if assigned != 1 {
		t.Errorf("display positions holding the item = %d, want 1", assigned)
	}
}

// Replaying the completed event re-applies the promote and assign side
// effects without duplicating them, so a delivery that failed partway is
// healed by the retry.
func TestReconciler_CheckoutCompleted_Replay(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture(5)
	b := f.createPending(t, "cs_1")

	if err := f.svc.HandleCheckoutCompleted(ctx, "cs_1", "pi_1"); err != nil {
		t.Fatalf("HandleCheckoutCompleted() error = %v", err)
	}

	// The first delivery died after the status transition but before its
	// side effects landed.
	f.content.Unpromote(b.ContentItemID)
	if _, err := f.slots.ReleaseByContentItem(ctx, b.ContentItemID); err != nil {
		t.Fatalf("ReleaseByContentItem() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := f.svc.HandleCheckoutCompleted(ctx, "cs_1", "pi_1"); err != nil {
			t.Fatalf("replay %d error = %v", i, err)
		}
	}

	got, _ := f.repo.GetByID(ctx, b.ID)
	if got.Status != domain.BookingStatusActive {
		t.Errorf("status = %s, want active", got.Status)
	}
	if f.publisher.Count(domain.BookingEventActivated) != 1 {
		t.Errorf("activated events = %d, want 1 despite replays", f.publisher.Count(domain.BookingEventActivated))
	}
	if !f.content.IsPromoted(b.ContentItemID) {
		t.Error("replay did not restore the promoted flag")
	}

	slots, _ := f.slots.List(ctx)
	assigned := 0
	for _, s := range slots {
		if s.ContentItemID == b.ContentItemID {
			assigned++
		}
	}
	if assigned != 1 {
		t.Errorf("display positions holding the item = %d, want 1 (no double assign)", assigned)
	}
}

// gatedBookingRepo holds every GetByCheckoutRef until all expected readers
// arrive, so concurrent deliveries observe the same pending row.
type gatedBookingRepo struct {
	*repository.MemoryBookingRepository
	gate sync.WaitGroup
}

func (r *gatedBookingRepo) GetByCheckoutRef(ctx context.Context, ref string) (*domain.Booking, error) {
	b, err := r.MemoryBookingRepository.GetByCheckoutRef(ctx, ref)
	r.gate.Done()
	r.gate.Wait()
	return b, err
}

// Two deliveries of the same completed event racing through the handler
// must leave the item holding exactly one display position.
func TestReconciler_CheckoutCompleted_ConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryBookingRepository()
	repo := &gatedBookingRepo{MemoryBookingRepository: mem}
	repo.gate.Add(2)

	slots := repository.NewMemoryDisplaySlotRepository(5)
	content := NewRecordingContentClient()
	svc := NewReconcilerService(repo, NewSlotAssigner(slots), content, &RecordingEventPublisher{})

	b, err := domain.NewBooking("item-1", "user-1", domain.SlotCategoryHero, "",
		date(t, "2026-01-10"), date(t, "2026-01-12"), 450000, "")
	if err != nil {
		t.Fatalf("NewBooking() error = %v", err)
	}
	if err := mem.CreateIfCapacity(ctx, b, 10); err != nil {
		t.Fatalf("CreateIfCapacity() error = %v", err)
	}
	if err := mem.SetCheckoutRef(ctx, b.ID, "cs_1"); err != nil {
		t.Fatalf("SetCheckoutRef() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.HandleCheckoutCompleted(ctx, "cs_1", "pi_1"); err != nil {
				t.Errorf("HandleCheckoutCompleted() error = %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := mem.GetByID(ctx, b.ID)
	if got.Status != domain.BookingStatusActive {
		t.Errorf("status = %s, want active", got.Status)
	}

	pool, _ := slots.List(ctx)
	assigned := 0
	for _, s := range pool {
		if s.ContentItemID == b.ContentItemID {
			assigned++
		}
	}
	if assigned != 1 {
		t.Errorf("display positions holding the item = %d, want 1", assigned)
	}
}

func TestReconciler_CheckoutCompleted_UnknownSession(t *testing.T) {
	f := newReconcilerFixture(5)
	// Unknown sessions are acknowledged, not errors, so the provider stops
	// retrying.
	if err := f.svc.HandleCheckoutCompleted(context.Background(), "cs_unknown", "pi_1"); err != nil {
		t.Errorf("HandleCheckoutCompleted() error = %v, want nil", err)
	}
}

// Payment landing after the sweeper already cancelled: the cancellation
// stands and the event is acknowledged.
func TestReconciler_CheckoutCompleted_AfterSweeperCancel(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture(5)
	b := f.createPending(t, "cs_1")

	if err := f.repo.TransitionStatus(ctx, b.ID, domain.BookingStatusPendingPayment, domain.BookingStatusCancelled); err != nil {
		t.Fatalf("cancel error = %v", err)
	}

	if err := f.svc.HandleCheckoutCompleted(ctx, "cs_1", "pi_1"); err != nil {
		t.Errorf("HandleCheckoutCompleted() error = %v, want nil", err)
	}

	got, _ := f.repo.GetByID(ctx, b.ID)
	if got.Status != domain.BookingStatusCancelled {
		t.Errorf("status = %s, want cancelled to stand", got.Status)
	}
	if f.publisher.Count(domain.BookingEventActivated) != 0 {
		t.Error("no activation event expected for a settled booking")
	}
}

func TestReconciler_CheckoutExpired(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture(5)
	b := f.createPending(t, "cs_1")

	if err := f.svc.HandleCheckoutExpired(ctx, "cs_1"); err != nil {
		t.Fatalf("HandleCheckoutExpired() error = %v", err)
	}

	got, _ := f.repo.GetByID(ctx, b.ID)
	if got.Status != domain.BookingStatusCancelled {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
	if f.publisher.Count(domain.BookingEventCancelled) != 1 {
		t.Errorf("cancelled events = %d, want 1", f.publisher.Count(domain.BookingEventCancelled))
	}

	// Replay is a no-op
	if err := f.svc.HandleCheckoutExpired(ctx, "cs_1"); err != nil {
		t.Errorf("replayed expiry error = %v, want nil", err)
	}
	if f.publisher.Count(domain.BookingEventCancelled) != 1 {
		t.Error("replay duplicated the cancelled event")
	}
}

// A session can expire after the completed event already activated the
// booking; the paid booking wins.
func TestReconciler_CheckoutExpired_AfterActivation(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture(5)
	b := f.createPending(t, "cs_1")

	if err := f.svc.HandleCheckoutCompleted(ctx, "cs_1", "pi_1"); err != nil {
		t.Fatalf("HandleCheckoutCompleted() error = %v", err)
	}
	if err := f.svc.HandleCheckoutExpired(ctx, "cs_1"); err != nil {
		t.Errorf("HandleCheckoutExpired() error = %v, want nil", err)
	}

	got, _ := f.repo.GetByID(ctx, b.ID)
	if got.Status != domain.BookingStatusActive {
		t.Errorf("status = %s, want active to survive the expired event", got.Status)
	}
}

// Pool full: activation proceeds, position assignment is skipped.
func TestReconciler_PoolFull(t *testing.T) {
	ctx := context.Background()
	f := newReconcilerFixture(1)

	first := f.createPending(t, "cs_1")
	second := f.createPending(t, "cs_2")

	if err := f.svc.HandleCheckoutCompleted(ctx, "cs_1", "pi_1"); err != nil {
		t.Fatalf("first activation error = %v", err)
	}
	if err := f.svc.HandleCheckoutCompleted(ctx, "cs_2", "pi_2"); err != nil {
		t.Fatalf("second activation error = %v", err)
	}

	gotFirst, _ := f.repo.GetByID(ctx, first.ID)
	gotSecond, _ := f.repo.GetByID(ctx, second.ID)
	if gotFirst.Status != domain.BookingStatusActive || gotSecond.Status != domain.BookingStatusActive {
		t.Error("both bookings should be active regardless of pool state")
	}

	slots, _ := f.slots.List(ctx)
	if len(slots) != 1 || slots[0].ContentItemID != first.ContentItemID {
		t.Error("only the first booking should hold the single position")
	}
}
