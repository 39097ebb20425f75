package sync

import (
	"context"
	"time"
)

// DrainEngine defines the drain operations consumed by the scheduler, the
// network observer, and the API handlers. The interface allows mocking in
// tests and alternative implementations.
type DrainEngine interface {
	// Drain performs one complete pass over the pending queue.
	Drain(ctx context.Context) DrainResult

	// ManualSync forces a drain; rejected when offline.
	ManualSync(ctx context.Context) error

	// Draining reports whether a drain is in flight.
	Draining() bool

	// LastSync returns the completion time of the last drain, or nil.
	LastSync() *time.Time
}

// Ensure *Engine implements DrainEngine at compile time.
var _ DrainEngine = (*Engine)(nil)
