// Package db provides repository interfaces for the offline sync models.
package db

import (
	"time"

	"github.com/farmtrack/backend/internal/models"
)

// QueueRepository defines persistence operations for queue entries.
// Higher layers depend on this interface so the queue stays ignorant of the
// concrete storage technology.
type QueueRepository interface {
	// CreateQueueEntry persists a new queue entry.
	CreateQueueEntry(entry *models.QueueEntry) error

	// GetQueueEntry retrieves a queue entry by id.
	GetQueueEntry(id string) (*models.QueueEntry, error)

	// ListQueueEntries returns entries in ascending timestamp order,
	// optionally filtered by synced flag.
	ListQueueEntries(synced *bool) ([]*models.QueueEntry, error)

	// MarkQueueEntrySynced flips the synced flag; zero rows affected means
	// missing or already synced.
	MarkQueueEntrySynced(id string, at time.Time) (int64, error)

	// CountUnsyncedEntries returns the pending count.
	CountUnsyncedEntries() (int, error)

	// DeleteSyncedEntriesBefore purges synced entries older than the cutoff.
	DeleteSyncedEntriesBefore(cutoff time.Time) (int64, error)

	// DeleteAllQueueEntries removes every entry. Destructive.
	DeleteAllQueueEntries() error
}

// ConflictRepository defines persistence operations for conflict records.
type ConflictRepository interface {
	// CreateConflictRecord appends a conflict record with its entry snapshot.
	CreateConflictRecord(record *models.ConflictRecord, entryJSON []byte) error

	// ListConflictRecords returns records, optionally filtered by resolved.
	ListConflictRecords(resolved *bool) ([]*models.ConflictRecord, error)

	// CountConflictRecords returns the total record count.
	CountConflictRecords() (int, error)

	// PruneConflictHistory caps per-entry conflict history.
	PruneConflictHistory(entryID string, keep int) (int64, error)
}

// DraftRepository defines persistence operations for the wizard draft slot.
type DraftRepository interface {
	// SaveDraft overwrites the single draft slot.
	SaveDraft(currentStep int, data []byte, savedAt time.Time) error

	// GetDraft reads the slot; sql.ErrNoRows when absent.
	GetDraft() (currentStep int, data []byte, savedAt time.Time, err error)

	// DeleteDraft removes the slot.
	DeleteDraft() error
}

// CredentialRepository defines persistence operations for backend credentials.
type CredentialRepository interface {
	GetBackendCredential() (*models.BackendCredential, error)
	SaveBackendCredential(cred *models.BackendCredential) error
	DisableAllBackendCredentials() error
	DeleteBackendCredential(id string) error
}

// Ensure *Repository implements the interfaces at compile time.
var (
	_ QueueRepository      = (*Repository)(nil)
	_ ConflictRepository   = (*Repository)(nil)
	_ DraftRepository      = (*Repository)(nil)
	_ CredentialRepository = (*Repository)(nil)
)
