// Package queue provides the local durable queue of pending mutations.
// Entries survive process restarts; the queue is the durable source of truth
// for offline work, independent of network state.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/farmtrack/backend/internal/db"
	apperrors "github.com/farmtrack/backend/internal/errors"
	"github.com/farmtrack/backend/internal/logging"
	"github.com/farmtrack/backend/internal/models"
	"github.com/farmtrack/backend/internal/uuid"
)

// DefaultPurgeGrace is how long synced entries linger before purge, so the
// UI can show a "saved" confirmation before the row disappears.
const DefaultPurgeGrace = 5 * time.Second

// DurableQueue persists pending mutations until the sync engine confirms
// remote application.
type DurableQueue struct {
	repo     db.QueueRepository
	deviceID string
	now      func() time.Time
}

// New creates a DurableQueue. deviceID identifies the originating
// device/session for multi-device conflict attribution.
func New(repo db.QueueRepository, deviceID string) *DurableQueue {
	if deviceID == "" {
		deviceID = uuid.NewDeviceID()
	}
	return &DurableQueue{
		repo:     repo,
		deviceID: deviceID,
		now:      time.Now,
	}
}

// DeviceID returns the device identifier stamped onto enqueued entries.
func (q *DurableQueue) DeviceID() string {
	return q.deviceID
}

// Enqueue persists a new pending mutation and returns its queue id.
// A storage write failure propagates to the caller: a mutation that is
// neither applied nor queued is silent data loss.
func (q *DurableQueue) Enqueue(kind models.EntryKind, payload interface{}) (string, error) {
	if !models.ValidKind(kind) {
		return "", apperrors.New(apperrors.ErrUnknownKind, fmt.Sprintf("unknown entry kind: %q", kind))
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInvalid, "failed to encode payload", err)
	}

	entry := &models.QueueEntry{
		ID:           uuid.NewPrefixed(string(kind)),
		Kind:         kind,
		Payload:      raw,
		Timestamp:    q.now(),
		DeviceOrigin: q.deviceID,
		Synced:       false,
	}

	if err := q.repo.CreateQueueEntry(entry); err != nil {
		return "", apperrors.Wrap(apperrors.ErrQueueWrite, "failed to persist queue entry", err)
	}

	logging.Info("Queued mutation for sync", map[string]interface{}{
		"entry_id": entry.ID,
		"kind":     string(kind),
	})

	return entry.ID, nil
}

// ListUnsynced returns all entries with synced=false in ascending timestamp
// order.
func (q *DurableQueue) ListUnsynced() ([]*models.QueueEntry, error) {
	unsynced := false
	entries, err := q.repo.ListQueueEntries(&unsynced)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrQueueRead, "failed to list unsynced entries", err)
	}
	return entries, nil
}

// MarkSynced flips the synced flag for an entry. Idempotent: marking an
// already-synced or missing entry is a no-op, not an error.
func (q *DurableQueue) MarkSynced(id string) error {
	_, err := q.repo.MarkQueueEntrySynced(id, q.now())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrQueueWrite, "failed to mark entry synced", err)
	}
	return nil
}

// PendingCount returns the number of entries with synced=false.
func (q *DurableQueue) PendingCount() (int, error) {
	count, err := q.repo.CountUnsyncedEntries()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrQueueRead, "failed to count pending entries", err)
	}
	return count, nil
}

// PurgeSynced removes synced entries older than the grace window and
// returns how many were removed.
func (q *DurableQueue) PurgeSynced(grace time.Duration) (int64, error) {
	cutoff := q.now().Add(-grace)
	removed, err := q.repo.DeleteSyncedEntriesBefore(cutoff)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrQueueWrite, "failed to purge synced entries", err)
	}
	if removed > 0 {
		logging.Debug("Purged synced queue entries", map[string]interface{}{
			"removed": removed,
		})
	}
	return removed, nil
}

// ClearAll removes every entry, synced or not. Destructive; call sites must
// confirm with the operator first. Reserved for recovery and tests.
func (q *DurableQueue) ClearAll() error {
	if err := q.repo.DeleteAllQueueEntries(); err != nil {
		return apperrors.Wrap(apperrors.ErrQueueWrite, "failed to clear queue", err)
	}
	logging.Warn("Offline queue cleared", nil)
	return nil
}
