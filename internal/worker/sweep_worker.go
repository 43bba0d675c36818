package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nitikorn/featured-slots/internal/domain"
	"github.com/nitikorn/featured-slots/internal/metrics"
	"github.com/nitikorn/featured-slots/internal/repository"
	"github.com/nitikorn/featured-slots/internal/service"
	"github.com/nitikorn/featured-slots/pkg/logger"
)

// SweepWorkerConfig contains configuration for the sweep worker
type SweepWorkerConfig struct {
	// ScanInterval is the interval between sweeps
	ScanInterval time.Duration
	// PendingTimeout is how long a booking may sit unpaid before it is
	// cancelled
	PendingTimeout time.Duration
	// BatchSize is the number of bookings to process per pass
	BatchSize int
}

// DefaultSweepWorkerConfig returns default configuration
func DefaultSweepWorkerConfig() *SweepWorkerConfig {
	return &SweepWorkerConfig{
		ScanInterval:   5 * time.Minute,
		PendingTimeout: 15 * time.Minute,
		BatchSize:      100,
	}
}

// SweepWorker is the safety net behind the webhook reconciler. Each sweep
// makes two passes: cancel pending bookings whose payment window lapsed
// (reclaiming their capacity), and complete active bookings whose date
// range has ended (freeing their display position).
type SweepWorker struct {
	bookingRepo    repository.BookingRepository
	assigner       service.SlotAssigner
	contentClient  service.ContentClient
	eventPublisher service.EventPublisher
	config         *SweepWorkerConfig
	log            *logger.Logger
	stopCh         chan struct{}
	wg             sync.WaitGroup
	mu             sync.Mutex
	running        bool

	// Stats
	totalCancelled int64
	totalCompleted int64
	lastSweepTime  time.Time
}

// NewSweepWorker creates a new sweep worker
func NewSweepWorker(
	bookingRepo repository.BookingRepository,
	assigner service.SlotAssigner,
	contentClient service.ContentClient,
	eventPublisher service.EventPublisher,
	config *SweepWorkerConfig,
) *SweepWorker {
	if config == nil {
		config = DefaultSweepWorkerConfig()
	}
	if eventPublisher == nil {
		eventPublisher = service.NewNoOpEventPublisher()
	}
	if contentClient == nil {
		contentClient = service.NewNoOpContentClient()
	}

	return &SweepWorker{
		bookingRepo:    bookingRepo,
		assigner:       assigner,
		contentClient:  contentClient,
		eventPublisher: eventPublisher,
		config:         config,
		log:            logger.Get(),
		stopCh:         make(chan struct{}),
	}
}

// Start starts the sweep worker
func (w *SweepWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sweep worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting sweep worker")

	w.wg.Add(1)
	go w.run(ctx)

	return nil
}

// Stop stops the sweep worker
func (w *SweepWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping sweep worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Sweep worker stopped")
}

func (w *SweepWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs both passes once. Exported so tests and operational tooling
// can trigger a sweep directly.
func (w *SweepWorker) Sweep(ctx context.Context) {
	w.mu.Lock()
	w.lastSweepTime = time.Now()
	w.mu.Unlock()

	cancelled := w.cancelStalePending(ctx)
	completed := w.completeEndedActive(ctx)

	if cancelled > 0 || completed > 0 {
		w.log.Info(fmt.Sprintf("Sweep done: cancelled %d stale pending, completed %d ended active", cancelled, completed))
	}
	metrics.RecordSweep(ctx, cancelled, completed)

	w.mu.Lock()
	w.totalCancelled += cancelled
	w.totalCompleted += completed
	w.mu.Unlock()
}

// cancelStalePending cancels pending bookings older than the payment window
func (w *SweepWorker) cancelStalePending(ctx context.Context) int64 {
	cutoff := time.Now().UTC().Add(-w.config.PendingTimeout)

	stale, err := w.bookingRepo.GetStalePending(ctx, cutoff, w.config.BatchSize)
	if err != nil {
		w.log.Error(fmt.Sprintf("Failed to get stale pending bookings: %v", err))
		return 0
	}

	var cancelled int64
	for _, booking := range stale {
		err := w.bookingRepo.TransitionStatus(ctx, booking.ID,
			domain.BookingStatusPendingPayment, domain.BookingStatusCancelled)
		if err != nil {
			// A webhook may have settled the row between scan and update;
			// skip and move on.
			w.log.Warn(fmt.Sprintf("Skipping stale booking %s: %v", booking.ID, err))
			continue
		}
		cancelled++

		booking.Status = domain.BookingStatusCancelled
		w.log.Info(fmt.Sprintf("Cancelled stale pending booking %s (created %s)",
			booking.ID, booking.CreatedAt.Format(time.RFC3339)))

		if err := w.eventPublisher.PublishBookingCancelled(ctx, booking); err != nil {
			w.log.Warn(fmt.Sprintf("Failed to publish cancelled event for %s: %v", booking.ID, err))
		}
	}
	return cancelled
}

// completeEndedActive completes active bookings whose window has elapsed
func (w *SweepWorker) completeEndedActive(ctx context.Context) int64 {
	today := domain.Midnight(time.Now())

	expired, err := w.bookingRepo.GetExpiredActive(ctx, today, w.config.BatchSize)
	if err != nil {
		w.log.Error(fmt.Sprintf("Failed to get expired active bookings: %v", err))
		return 0
	}

	var completed int64
	for _, booking := range expired {
		err := w.bookingRepo.TransitionStatus(ctx, booking.ID,
			domain.BookingStatusActive, domain.BookingStatusCompleted)
		if err != nil {
			w.log.Warn(fmt.Sprintf("Skipping ended booking %s: %v", booking.ID, err))
			continue
		}
		completed++

		booking.Status = domain.BookingStatusCompleted
		metrics.RecordCompletion(ctx, booking.SlotCategory.String())
		w.log.Info(fmt.Sprintf("Completed booking %s (ended %s)",
			booking.ID, booking.EndDate.Format(domain.DateLayout)))

		// Cleanup is best effort; the ledger state is already settled.
		if err := w.assigner.Release(ctx, booking.ContentItemID); err != nil {
			w.log.Warn(fmt.Sprintf("Failed to release display position for %s: %v", booking.ContentItemID, err))
		}
		if err := w.contentClient.ClearPromoted(ctx, booking.ContentItemID); err != nil {
			w.log.Warn(fmt.Sprintf("Failed to clear promoted flag for %s: %v", booking.ContentItemID, err))
		}
		if err := w.eventPublisher.PublishBookingCompleted(ctx, booking); err != nil {
			w.log.Warn(fmt.Sprintf("Failed to publish completed event for %s: %v", booking.ID, err))
		}
	}
	return completed
}

// GetStats returns worker statistics
func (w *SweepWorker) GetStats() *SweepWorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &SweepWorkerStats{
		IsRunning:      w.running,
		TotalCancelled: w.totalCancelled,
		TotalCompleted: w.totalCompleted,
		LastSweepTime:  w.lastSweepTime,
	}
}

// SweepWorkerStats contains worker statistics
type SweepWorkerStats struct {
	IsRunning      bool      `json:"is_running"`
	TotalCancelled int64     `json:"total_cancelled"`
	TotalCompleted int64     `json:"total_completed"`
	LastSweepTime  time.Time `json:"last_sweep_time"`
}
