// Package conflict provides the durable, append-only record of sync
// failures for operator review. No automated resolution path exists.
package conflict

import (
	"encoding/json"
	"time"

	"github.com/farmtrack/backend/internal/db"
	apperrors "github.com/farmtrack/backend/internal/errors"
	"github.com/farmtrack/backend/internal/logging"
	"github.com/farmtrack/backend/internal/models"
	"github.com/farmtrack/backend/internal/uuid"
)

// DefaultHistoryCap bounds how many conflict records are kept per queue
// entry. The same entry failing across repeated drains appends a record per
// attempt; without a cap the store grows without bound.
const DefaultHistoryCap = 20

// Store records entries that failed remote application along with the error.
type Store struct {
	repo       db.ConflictRepository
	historyCap int
	now        func() time.Time
}

// NewStore creates a conflict Store. historyCap <= 0 selects the default.
func NewStore(repo db.ConflictRepository, historyCap int) *Store {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	return &Store{
		repo:       repo,
		historyCap: historyCap,
		now:        time.Now,
	}
}

// Record appends a conflict record for a failed entry. Repeated failures of
// the same entry each produce a new record (an audit trail of attempts);
// per-entry history beyond the cap is pruned oldest-first.
func (s *Store) Record(entry *models.QueueEntry, syncErr error) error {
	record := &models.ConflictRecord{
		ID:            uuid.New(),
		EntryID:       entry.ID,
		OriginalEntry: *entry,
		Error:         syncErr.Error(),
		Timestamp:     s.now(),
		Resolved:      false,
	}

	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrConflictStore, "failed to encode failed entry", err)
	}

	if err := s.repo.CreateConflictRecord(record, entryJSON); err != nil {
		return apperrors.Wrap(apperrors.ErrConflictStore, "failed to record conflict", err)
	}

	if pruned, err := s.repo.PruneConflictHistory(entry.ID, s.historyCap); err != nil {
		// Pruning failure does not invalidate the record just written.
		logging.Warn("Failed to prune conflict history", map[string]interface{}{
			"entry_id": entry.ID,
			"error":    err.Error(),
		})
	} else if pruned > 0 {
		logging.Debug("Pruned conflict history", map[string]interface{}{
			"entry_id": entry.ID,
			"pruned":   pruned,
		})
	}

	logging.Warn("Sync conflict recorded", map[string]interface{}{
		"entry_id": entry.ID,
		"kind":     string(entry.Kind),
		"error":    syncErr.Error(),
	})

	return nil
}

// List returns conflict records, optionally filtered by resolved status.
// Pass nil for no filter.
func (s *Store) List(resolved *bool) ([]*models.ConflictRecord, error) {
	records, err := s.repo.ListConflictRecords(resolved)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConflictStore, "failed to list conflicts", err)
	}
	return records, nil
}

// Count returns the total number of conflict records.
func (s *Store) Count() (int, error) {
	count, err := s.repo.CountConflictRecords()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrConflictStore, "failed to count conflicts", err)
	}
	return count, nil
}
