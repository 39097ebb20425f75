package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	syncpkg "github.com/farmtrack/backend/internal/sync"
	"github.com/farmtrack/backend/internal/sync/netwatch"
)

// countingEngine is a DrainEngine that counts drains.
type countingEngine struct {
	drains   int32
	draining int32
}

func (e *countingEngine) Drain(ctx context.Context) syncpkg.DrainResult {
	atomic.AddInt32(&e.drains, 1)
	return syncpkg.DrainResult{Success: true}
}

func (e *countingEngine) ManualSync(ctx context.Context) error { return nil }

func (e *countingEngine) Draining() bool {
	return atomic.LoadInt32(&e.draining) == 1
}

func (e *countingEngine) LastSync() *time.Time { return nil }

func TestSchedulerDrainsPeriodically(t *testing.T) {
	engine := &countingEngine{}
	source := netwatch.NewManual(true)

	s := New(engine, source, 20*time.Millisecond)
	s.Start(context.Background())
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&engine.drains) < 2 {
		select {
		case <-deadline:
			t.Fatalf("Only %d drains fired, want at least 2", engine.drains)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSchedulerSkipsWhileOffline(t *testing.T) {
	engine := &countingEngine{}
	source := netwatch.NewManual(false)

	s := New(engine, source, 10*time.Millisecond)
	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(&engine.drains); n != 0 {
		t.Errorf("Scheduler drained %d times while offline, want 0", n)
	}
}

func TestSchedulerSkipsWhileDraining(t *testing.T) {
	engine := &countingEngine{}
	atomic.StoreInt32(&engine.draining, 1)
	source := netwatch.NewManual(true)

	s := New(engine, source, 10*time.Millisecond)
	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(&engine.drains); n != 0 {
		t.Errorf("Scheduler started %d overlapping drains, want 0", n)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	engine := &countingEngine{}
	source := netwatch.NewManual(true)

	s := New(engine, source, time.Hour)
	if s.IsRunning() {
		t.Error("New scheduler should not be running")
	}

	s.Start(context.Background())
	if !s.IsRunning() {
		t.Error("Scheduler should be running after Start")
	}

	// Double start is a no-op.
	s.Start(context.Background())

	s.Stop()
	if s.IsRunning() {
		t.Error("Scheduler should be stopped after Stop")
	}

	// Double stop is a no-op.
	s.Stop()
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	engine := &countingEngine{}
	source := netwatch.NewManual(true)

	ctx, cancel := context.WithCancel(context.Background())
	s := New(engine, source, 10*time.Millisecond)
	s.Start(ctx)

	cancel()
	time.Sleep(50 * time.Millisecond)
	before := atomic.LoadInt32(&engine.drains)
	time.Sleep(100 * time.Millisecond)
	after := atomic.LoadInt32(&engine.drains)

	if before != after {
		t.Errorf("Drains continued after context cancel: %d -> %d", before, after)
	}
	s.Stop()
}
