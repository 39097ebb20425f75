// Package sync provides the engine that drains the local durable queue
// against the hosted backend.
package sync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	sysync "sync"
	"time"

	"github.com/farmtrack/backend/internal/backend"
	apperrors "github.com/farmtrack/backend/internal/errors"
	"github.com/farmtrack/backend/internal/logging"
	"github.com/farmtrack/backend/internal/models"
	"github.com/farmtrack/backend/internal/status"
	"github.com/farmtrack/backend/internal/sync/conflict"
	"github.com/farmtrack/backend/internal/sync/netwatch"
	"github.com/farmtrack/backend/internal/sync/queue"
	"github.com/farmtrack/backend/internal/uuid"
)

// DrainResult reports the outcome of one complete drain pass.
// Success is true only if every entry synced; a partial failure reports
// Success=false with a nonzero SyncedCount, so callers can distinguish
// "nothing to do", "fully succeeded", and "partially succeeded".
type DrainResult struct {
	Success     bool     `json:"success"`
	SyncedCount int      `json:"syncedCount"`
	Errors      []string `json:"errors"`
}

// EventHandler receives notifications during a drain, typically bridged to
// the UI over WebSocket. Implementations must not block.
type EventHandler interface {
	SyncStarted(total int)
	SyncProgress(completed, total int)
	SyncCompleted(result DrainResult)
	SyncFailed(message string)
}

// Engine drains the durable queue, preserving timestamp ordering and
// isolating per-entry failures so one bad entry does not block the rest.
type Engine struct {
	queue      *queue.DurableQueue
	conflicts  *conflict.Store
	backend    backend.DataService
	status     *status.Store
	source     netwatch.Source
	purgeGrace time.Duration

	mu       sysync.Mutex
	draining bool
	lastSync *time.Time
	events   EventHandler
}

// Options configures optional engine behavior.
type Options struct {
	// PurgeGrace is how long synced entries linger before the delayed purge.
	// Zero selects queue.DefaultPurgeGrace.
	PurgeGrace time.Duration
}

// NewEngine creates an Engine. backend may be nil when the hosted service is
// not yet configured; a drain then fails at setup and leaves every entry
// unsynced for a later attempt.
func NewEngine(q *queue.DurableQueue, conflicts *conflict.Store, svc backend.DataService,
	st *status.Store, source netwatch.Source, opts Options) *Engine {
	grace := opts.PurgeGrace
	if grace == 0 {
		grace = queue.DefaultPurgeGrace
	}
	return &Engine{
		queue:      q,
		conflicts:  conflicts,
		backend:    svc,
		status:     st,
		source:     source,
		purgeGrace: grace,
	}
}

// SetEventHandler sets the handler notified during drains.
func (e *Engine) SetEventHandler(handler EventHandler) {
	e.mu.Lock()
	e.events = handler
	e.mu.Unlock()
}

// SetBackend swaps the hosted data service, used after credentials change.
func (e *Engine) SetBackend(svc backend.DataService) {
	e.mu.Lock()
	e.backend = svc
	e.mu.Unlock()
}

// Draining reports whether a drain is currently in flight.
func (e *Engine) Draining() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draining
}

// LastSync returns the completion time of the last drain, or nil.
func (e *Engine) LastSync() *time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// Drain attempts to apply every unsynced queue entry, oldest first.
//
// Single-flight: a drain requested while one is in flight returns
// immediately with an explanatory error and processes nothing. The guard is
// in-memory only; the queue itself is the durable source of truth, so a
// crashed drain simply leaves entries unsynced for the next attempt.
func (e *Engine) Drain(ctx context.Context) DrainResult {
	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		return DrainResult{Success: false, Errors: []string{"Sync already in progress"}}
	}
	e.draining = true
	svc := e.backend
	events := e.events
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.draining = false
		e.mu.Unlock()
	}()

	e.status.SetSyncing(true)
	e.status.SetSyncError("")

	result := e.drain(ctx, svc, events)

	now := time.Now()
	e.mu.Lock()
	e.lastSync = &now
	e.mu.Unlock()

	e.refreshCounts()
	e.status.SetLastSync(now)
	e.status.SetSyncing(false)

	if failed := len(result.Errors); failed > 0 {
		e.status.SetSyncError(fmt.Sprintf("%d items failed to sync", failed))
		if events != nil {
			events.SyncFailed(fmt.Sprintf("%d items failed to sync", failed))
		}
	} else if events != nil {
		events.SyncCompleted(result)
	}

	return result
}

// drain runs the processing loop; setup failures abort, per-entry failures
// are isolated into conflict records.
func (e *Engine) drain(ctx context.Context, svc backend.DataService, events EventHandler) DrainResult {
	result := DrainResult{}

	if svc == nil {
		msg := "backend data service is not configured"
		logging.Error("Drain aborted", apperrors.New(apperrors.ErrSyncNotConfigured, msg), nil)
		result.Errors = append(result.Errors, msg)
		return result
	}

	entries, err := e.queue.ListUnsynced()
	if err != nil {
		// Top-level failure: nothing was processed, everything stays
		// unsynced for the next attempt.
		logging.Error("Drain aborted", err, nil)
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	if len(entries) == 0 {
		result.Success = true
		return result
	}

	// Oldest first. A vehicle created offline must reach the backend before
	// the fuel entry that references it; dependent writes carry later
	// timestamps because the UI creates them in order.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	if events != nil {
		events.SyncStarted(len(entries))
	}

	logging.Info("Draining offline queue", map[string]interface{}{
		"pending": len(entries),
	})

	for i, entry := range entries {
		select {
		case <-ctx.Done():
			result.Errors = append(result.Errors, ctx.Err().Error())
			return result
		default:
		}

		if err := e.applyEntry(ctx, svc, entry); err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("failed to sync %s (%s): %v", entry.Kind, entry.ID, err))

			if recErr := e.conflicts.Record(entry, err); recErr != nil {
				logging.Error("Failed to record sync conflict", recErr, map[string]interface{}{
					"entry_id": entry.ID,
				})
			}
		} else {
			if markErr := e.queue.MarkSynced(entry.ID); markErr != nil {
				// Applied remotely but not marked locally: the entry will be
				// retried and may duplicate. Surface loudly.
				logging.Error("Failed to mark entry synced", markErr, map[string]interface{}{
					"entry_id": entry.ID,
				})
				result.Errors = append(result.Errors, markErr.Error())
				continue
			}
			result.SyncedCount++
		}

		if events != nil {
			events.SyncProgress(i+1, len(entries))
		}
	}

	// Delayed purge so the UI can show success before the rows disappear.
	grace := e.purgeGrace
	time.AfterFunc(grace, func() {
		if _, err := e.queue.PurgeSynced(grace); err != nil {
			logging.Error("Delayed purge failed", err, nil)
		}
		e.refreshCounts()
	})

	result.Success = len(result.Errors) == 0

	logging.Info("Drain completed", map[string]interface{}{
		"synced": result.SyncedCount,
		"failed": len(result.Errors),
	})

	return result
}

// applyEntry dispatches one entry to the backend. A payload carrying a
// temporary id is a creation (the id is stripped before sending); any other
// id is an update.
func (e *Engine) applyEntry(ctx context.Context, svc backend.DataService, entry *models.QueueEntry) error {
	payload, err := models.DecodePayload(entry.Kind, entry.Payload)
	if err != nil {
		return err
	}

	id := payload.PayloadID()
	if uuid.IsTemp(id) {
		body, err := models.StripPayloadID(entry.Payload)
		if err != nil {
			return err
		}
		return svc.Create(ctx, entry.Kind, body)
	}
	return svc.Update(ctx, entry.Kind, id, entry.Payload)
}

// ManualSync forces a drain on behalf of the operator. Rejected
// synchronously, before any queue access, when the device is offline or a
// drain is already in flight.
func (e *Engine) ManualSync(ctx context.Context) error {
	if e.source != nil && !e.source.IsOnline() {
		return apperrors.New(apperrors.ErrSyncOffline, "Cannot sync while offline")
	}
	if e.Draining() {
		return apperrors.New(apperrors.ErrSyncInProgress, "Sync already in progress")
	}

	result := e.Drain(ctx)
	if !result.Success && len(result.Errors) > 0 {
		return apperrors.New(apperrors.ErrSyncFailed, strings.Join(result.Errors, ", "))
	}
	return nil
}

// refreshCounts republishes pending and conflict counts to the status store.
func (e *Engine) refreshCounts() {
	if pending, err := e.queue.PendingCount(); err == nil {
		e.status.SetPendingCount(pending)
	} else {
		logging.Error("Failed to refresh pending count", err, nil)
	}
	if conflicts, err := e.conflicts.Count(); err == nil {
		e.status.SetConflictCount(conflicts)
	} else {
		logging.Error("Failed to refresh conflict count", err, nil)
	}
}

// RefreshCounts republishes queue statistics, used after out-of-band
// enqueues so the UI's pending count stays accurate.
func (e *Engine) RefreshCounts() {
	e.refreshCounts()
}
