/*
scheduler.go - Background month materialization

PURPOSE:
  Periodically makes sure every stored household has an entry for the
  current month, so a month rolls over even when nobody opens the app on
  its first day. Ensuring a month is idempotent and does not touch the
  document's modifiedAt, so a device that syncs later still wins.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Walks every owner in the store
  - Skips owners whose current month already exists
  - Never blocks HTTP writes for longer than one owner's update

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewMonthScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - household/reducer.go: EnsureMonth
  - handlers.go: Handler write lock
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/household-ledger/generic"
	"github.com/warp/household-ledger/household"
	"github.com/warp/household-ledger/logging"
)

// MonthScheduler materializes the current month for every owner.
type MonthScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	log    *logging.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// RunStats summarizes one pass.
type RunStats struct {
	Owners  int
	Created int
	Skipped int
	Failed  int
}

// NewMonthScheduler creates a new scheduler.
func NewMonthScheduler(handler *Handler) *MonthScheduler {
	return &MonthScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		log:           handler.Log.WithComponent(logging.ComponentApp).With("worker", "month-scheduler"),
	}
}

// Start begins the scheduler. A stopped scheduler can be started again.
func (ms *MonthScheduler) Start() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.Enabled {
		ms.log.Info("scheduler disabled, not starting")
		return
	}
	if ms.ticker != nil {
		return
	}

	ms.ticker = time.NewTicker(ms.CheckInterval)
	ms.stop = make(chan struct{})
	ms.wg.Add(1)

	go ms.run(ms.ticker, ms.stop)

	ms.log.Info("scheduler started", "interval", ms.CheckInterval.String())
}

// Stop stops the scheduler and waits for a pass in progress.
func (ms *MonthScheduler) Stop() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.ticker != nil {
		ms.ticker.Stop()
		close(ms.stop)
		ms.wg.Wait()
		ms.ticker = nil
		ms.log.Info("scheduler stopped")
	}
}

func (ms *MonthScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ms.wg.Done()

	// Run immediately on start
	ms.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			ms.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow performs one pass over all owners.
func (ms *MonthScheduler) RunNow(ctx context.Context) RunStats {
	h := ms.Handler
	current := h.Reducer.Clock.Today().YearMonth()

	records, err := h.Syncer.Store.List(ctx)
	if err != nil {
		ms.log.ErrorContext(ctx, "listing owners failed", logging.FieldError, err)
		return RunStats{}
	}

	stats := RunStats{Owners: len(records)}
	for _, rec := range records {
		created, err := ms.ensureMonth(ctx, rec.OwnerID, current)
		switch {
		case err != nil:
			stats.Failed++
			ms.log.WarnContext(ctx, "month materialization failed",
				logging.FieldOwner, rec.OwnerID, logging.FieldMonth, current.String(), logging.FieldError, err)
		case created:
			stats.Created++
		default:
			stats.Skipped++
		}
	}

	if stats.Created > 0 || stats.Failed > 0 {
		ms.log.InfoContext(ctx, "month pass completed",
			logging.FieldMonth, current.String(),
			"created", stats.Created, "skipped", stats.Skipped, "failed", stats.Failed)
	}
	return stats
}

func (ms *MonthScheduler) ensureMonth(ctx context.Context, owner string, ym generic.YearMonth) (bool, error) {
	h := ms.Handler
	h.mu.Lock()
	defer h.mu.Unlock()

	st, err := h.Syncer.Load(ctx, owner)
	if err != nil {
		return false, err
	}
	if _, ok := st.Months[ym]; ok {
		return false, nil
	}
	next, err := h.Reducer.Apply(st, household.EnsureMonth{Month: ym})
	if err != nil {
		return false, err
	}
	if err := h.Syncer.Replace(ctx, owner, next); err != nil {
		return false, err
	}
	return true, nil
}
