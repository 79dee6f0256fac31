package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/bastion/internal/clock"
)

// Sweeper drops per-client state that has been idle for at least idle
type Sweeper interface {
	Sweep(now time.Time, idle time.Duration) int
}

// SweepManager periodically evicts idle rate limiter entries
type SweepManager struct {
	sweeper  Sweeper
	clock    clock.Clock
	logger   *slog.Logger
	interval time.Duration
	idle     time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSweepManager creates a sweep manager that runs every interval and
// evicts entries idle for idle or longer
func NewSweepManager(sweeper Sweeper, clk clock.Clock, logger *slog.Logger, interval, idle time.Duration) *SweepManager {
	return &SweepManager{
		sweeper:  sweeper,
		clock:    clk,
		logger:   logger,
		interval: interval,
		idle:     idle,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is done
func (sm *SweepManager) Start(ctx context.Context) {
	ticker := time.NewTicker(sm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sm.RunOnce()
		case <-sm.stopCh:
			sm.logger.Info("sweep manager stopped")
			return
		case <-ctx.Done():
			sm.logger.Info("sweep manager context cancelled")
			return
		}
	}
}

// RunOnce performs a single sweep and returns the number of evicted entries
func (sm *SweepManager) RunOnce() int {
	removed := sm.sweeper.Sweep(sm.clock.Now(), sm.idle)
	if removed > 0 {
		sm.logger.Info("rate limiter sweep completed", slog.Int("entries_removed", removed))
	} else {
		sm.logger.Debug("rate limiter sweep completed", slog.Int("entries_removed", 0))
	}
	return removed
}

// Stop signals the sweep loop to exit. It is safe to call more than once.
func (sm *SweepManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.stopCh) })
}
