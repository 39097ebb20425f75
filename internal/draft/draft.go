// Package draft persists the in-progress fuel entry wizard state so it
// survives accidental reloads, without contacting the backend.
package draft

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/farmtrack/backend/internal/db"
	apperrors "github.com/farmtrack/backend/internal/errors"
	"github.com/farmtrack/backend/internal/logging"
	"github.com/farmtrack/backend/internal/models"
)

// DefaultMaxAge is how old a draft may be before it is treated as absent.
// A stale draft risks resubmitting against drifted odometer and bowser
// readings, so it is discarded rather than resumed.
const DefaultMaxAge = 24 * time.Hour

// Store manages the single draft slot. Single writer, single reader per
// device; no cross-tab coordination is attempted.
type Store struct {
	repo   db.DraftRepository
	maxAge time.Duration
	now    func() time.Time
}

// NewStore creates a draft Store. maxAge <= 0 selects DefaultMaxAge.
func NewStore(repo db.DraftRepository, maxAge time.Duration) *Store {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{
		repo:   repo,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Save overwrites the draft slot with the given step and accumulated data.
// Step 0 means "no draft": the slot is cleared rather than stored.
func (s *Store) Save(step int, data *models.FuelEntryDraft) error {
	if step <= 0 {
		return s.Clear()
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDraftInvalid, "failed to encode draft data", err)
	}

	if err := s.repo.SaveDraft(step, raw, s.now()); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to save draft", err)
	}
	return nil
}

// Load reads the stored draft. An absent or expired draft yields the empty
// no-draft state; an expired draft is also cleared from storage.
func (s *Store) Load() (models.DraftState, error) {
	step, raw, savedAt, err := s.repo.GetDraft()
	if errors.Is(err, sql.ErrNoRows) {
		return models.EmptyDraft(), nil
	}
	if err != nil {
		return models.EmptyDraft(), apperrors.Wrap(apperrors.ErrDatabase, "failed to load draft", err)
	}

	if s.now().Sub(savedAt) > s.maxAge {
		logging.Info("Discarding expired fuel entry draft", map[string]interface{}{
			"saved_at": savedAt.UTC().Format(time.RFC3339),
			"step":     step,
		})
		if err := s.repo.DeleteDraft(); err != nil {
			logging.Warn("Failed to delete expired draft", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return models.EmptyDraft(), nil
	}

	var data models.FuelEntryDraft
	if err := json.Unmarshal(raw, &data); err != nil {
		// A corrupt draft is unrecoverable; treat it like an expired one.
		if delErr := s.repo.DeleteDraft(); delErr != nil {
			logging.Warn("Failed to delete corrupt draft", map[string]interface{}{
				"error": delErr.Error(),
			})
		}
		return models.EmptyDraft(), nil
	}

	return models.DraftState{
		HasDraft:    true,
		CurrentStep: step,
		Data:        &data,
		Timestamp:   savedAt,
	}, nil
}

// Clear discards the draft, used on successful submission or explicit
// restart.
func (s *Store) Clear() error {
	if err := s.repo.DeleteDraft(); err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to clear draft", err)
	}
	return nil
}
