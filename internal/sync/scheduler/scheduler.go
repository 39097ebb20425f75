// Package scheduler provides the periodic drain timer. Callers that need
// "drain eventually" semantics after a dropped trigger rely on this timer
// retrying later.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/farmtrack/backend/internal/logging"
	syncpkg "github.com/farmtrack/backend/internal/sync"
	"github.com/farmtrack/backend/internal/sync/netwatch"
)

// DefaultInterval matches the original application's periodic sync cadence.
const DefaultInterval = 5 * time.Minute

// Scheduler fires drains on a timer while the device is online.
type Scheduler struct {
	engine   syncpkg.DrainEngine
	source   netwatch.Source
	interval time.Duration

	mu        sync.Mutex
	isRunning bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New creates a Scheduler. interval <= 0 selects DefaultInterval.
func New(engine syncpkg.DrainEngine, source netwatch.Source, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		engine:   engine,
		source:   source,
		interval: interval,
	}
}

// Start launches the periodic drain loop. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	logging.Info("Sync scheduler started", map[string]interface{}{
		"interval": s.interval.String(),
	})
}

// Stop halts the loop and waits for it to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	logging.Info("Sync scheduler stopped", nil)
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.source.IsOnline() {
				continue
			}
			if s.engine.Draining() {
				logging.Debug("Skipping periodic drain, sync already in progress", nil)
				continue
			}
			result := s.engine.Drain(ctx)
			if !result.Success && len(result.Errors) > 0 {
				logging.Warn("Periodic drain finished with errors", map[string]interface{}{
					"synced": result.SyncedCount,
					"errors": len(result.Errors),
				})
			}
		}
	}
}
