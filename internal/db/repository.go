// Package db provides CRUD repository operations for the offline sync models.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/farmtrack/backend/internal/models"
	"github.com/farmtrack/backend/internal/uuid"
)

// Repository provides persistence operations for queue entries, conflict
// records, the draft slot, and backend credentials.
type Repository struct {
	db *sql.DB

	// Prepared statement cache for frequently used queries. Statements are
	// prepared on first use and reused across calls.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from the cache.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this one; close the duplicate.
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		if err := value.(*sql.Stmt).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// =====================================================
// Queue Entry Operations
// =====================================================

// CreateQueueEntry persists a new queue entry. The entry's id, timestamp,
// and device origin must already be set by the caller; the repository never
// invents identity for a pending mutation.
func (r *Repository) CreateQueueEntry(entry *models.QueueEntry) error {
	query := `
	INSERT INTO offline_queue (id, kind, payload, created_at, device_origin, synced, synced_at)
	VALUES (?, ?, ?, ?, ?, ?, NULL)
	`
	_, err := r.db.Exec(query, entry.ID, string(entry.Kind), string(entry.Payload),
		models.FormatTimestamp(entry.Timestamp), entry.DeviceOrigin, boolToInt(entry.Synced))
	return err
}

// GetQueueEntry retrieves a queue entry by id.
func (r *Repository) GetQueueEntry(id string) (*models.QueueEntry, error) {
	query := `
	SELECT id, kind, payload, created_at, device_origin, synced, synced_at
	FROM offline_queue WHERE id = ?
	`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}
	return scanQueueEntry(stmt.QueryRow(id))
}

// ListQueueEntries returns queue entries in ascending timestamp order,
// optionally filtered by synced flag. The ordering is what the sync engine
// relies on to replay dependent writes in causal order.
func (r *Repository) ListQueueEntries(synced *bool) ([]*models.QueueEntry, error) {
	query := `
	SELECT id, kind, payload, created_at, device_origin, synced, synced_at
	FROM offline_queue
	`
	args := []interface{}{}
	if synced != nil {
		query += " WHERE synced = ?"
		args = append(args, boolToInt(*synced))
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// MarkQueueEntrySynced flips the synced flag for an entry. Returns the number
// of rows updated; zero means the entry was missing or already synced, which
// callers treat as a no-op.
func (r *Repository) MarkQueueEntrySynced(id string, at time.Time) (int64, error) {
	query := `UPDATE offline_queue SET synced = 1, synced_at = ? WHERE id = ? AND synced = 0`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return 0, err
	}
	res, err := stmt.Exec(at.Unix(), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountUnsyncedEntries returns the number of entries with synced = false.
func (r *Repository) CountUnsyncedEntries() (int, error) {
	stmt, err := r.PrepareStmt("SELECT COUNT(*) FROM offline_queue WHERE synced = 0")
	if err != nil {
		return 0, err
	}
	var count int
	err = stmt.QueryRow().Scan(&count)
	return count, err
}

// DeleteSyncedEntriesBefore removes synced entries whose sync time is at or
// before the cutoff. Returns the number of rows removed.
func (r *Repository) DeleteSyncedEntriesBefore(cutoff time.Time) (int64, error) {
	query := `DELETE FROM offline_queue WHERE synced = 1 AND synced_at IS NOT NULL AND synced_at <= ?`
	res, err := r.db.Exec(query, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteAllQueueEntries removes every queue entry, synced or not.
// Destructive; reserved for recovery and tests.
func (r *Repository) DeleteAllQueueEntries() error {
	_, err := r.db.Exec("DELETE FROM offline_queue")
	return err
}

// =====================================================
// Conflict Record Operations
// =====================================================

// CreateConflictRecord appends a conflict record. The original entry is
// stored as a JSON copy so the record survives the entry's eventual purge.
func (r *Repository) CreateConflictRecord(record *models.ConflictRecord, entryJSON []byte) error {
	query := `
	INSERT INTO sync_conflicts (id, entry_id, entry, error, created_at, resolved)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, record.ID, record.EntryID, string(entryJSON),
		record.Error, models.FormatTimestamp(record.Timestamp), boolToInt(record.Resolved))
	return err
}

// ListConflictRecords returns conflict records newest first, optionally
// filtered by resolved status.
func (r *Repository) ListConflictRecords(resolved *bool) ([]*models.ConflictRecord, error) {
	query := `SELECT id, entry_id, entry, error, created_at, resolved FROM sync_conflicts`
	args := []interface{}{}
	if resolved != nil {
		query += " WHERE resolved = ?"
		args = append(args, boolToInt(*resolved))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ConflictRecord
	for rows.Next() {
		record, err := scanConflictRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// CountConflictRecords returns the total number of conflict records.
func (r *Repository) CountConflictRecords() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sync_conflicts").Scan(&count)
	return count, err
}

// PruneConflictHistory keeps at most keep records for the given entry id,
// deleting the oldest beyond that. Bounds store growth when the same entry
// fails across many drain attempts.
func (r *Repository) PruneConflictHistory(entryID string, keep int) (int64, error) {
	query := `
	DELETE FROM sync_conflicts WHERE entry_id = ? AND id NOT IN (
		SELECT id FROM sync_conflicts WHERE entry_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	)`
	res, err := r.db.Exec(query, entryID, entryID, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// =====================================================
// Draft Slot Operations
// =====================================================

// SaveDraft overwrites the single draft slot.
func (r *Repository) SaveDraft(currentStep int, data []byte, savedAt time.Time) error {
	query := `
	INSERT INTO fuel_entry_draft (slot, current_step, data, saved_at)
	VALUES (1, ?, ?, ?)
	ON CONFLICT(slot) DO UPDATE SET
		current_step = excluded.current_step,
		data = excluded.data,
		saved_at = excluded.saved_at
	`
	_, err := r.db.Exec(query, currentStep, string(data), savedAt.Unix())
	return err
}

// GetDraft reads the draft slot. Returns sql.ErrNoRows when no draft exists.
func (r *Repository) GetDraft() (currentStep int, data []byte, savedAt time.Time, err error) {
	var raw string
	var savedUnix int64
	err = r.db.QueryRow("SELECT current_step, data, saved_at FROM fuel_entry_draft WHERE slot = 1").
		Scan(&currentStep, &raw, &savedUnix)
	if err != nil {
		return 0, nil, time.Time{}, err
	}
	return currentStep, []byte(raw), time.Unix(savedUnix, 0), nil
}

// DeleteDraft removes the draft slot if present.
func (r *Repository) DeleteDraft() error {
	_, err := r.db.Exec("DELETE FROM fuel_entry_draft WHERE slot = 1")
	return err
}

// =====================================================
// Backend Credential Operations
// =====================================================

// GetBackendCredential returns the enabled credential, or sql.ErrNoRows.
func (r *Repository) GetBackendCredential() (*models.BackendCredential, error) {
	query := `
	SELECT id, endpoint, api_key_encrypted, is_enabled, created_at, updated_at
	FROM backend_credentials WHERE is_enabled = 1
	ORDER BY updated_at DESC LIMIT 1
	`
	var cred models.BackendCredential
	var enabled int
	err := r.db.QueryRow(query).Scan(&cred.ID, &cred.Endpoint, &cred.APIKeyEncrypted,
		&enabled, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		return nil, err
	}
	cred.IsEnabled = enabled != 0
	return &cred, nil
}

// SaveBackendCredential stores a credential, generating an id when absent.
func (r *Repository) SaveBackendCredential(cred *models.BackendCredential) error {
	if cred.ID == "" {
		cred.ID = uuid.New()
	}
	query := `
	INSERT INTO backend_credentials (id, endpoint, api_key_encrypted, is_enabled, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, cred.ID, cred.Endpoint, cred.APIKeyEncrypted,
		boolToInt(cred.IsEnabled), cred.CreatedAt, cred.UpdatedAt)
	return err
}

// DisableAllBackendCredentials marks every stored credential disabled.
func (r *Repository) DisableAllBackendCredentials() error {
	_, err := r.db.Exec("UPDATE backend_credentials SET is_enabled = 0, updated_at = ?", time.Now().Unix())
	return err
}

// DeleteBackendCredential removes a credential by id.
func (r *Repository) DeleteBackendCredential(id string) error {
	_, err := r.db.Exec("DELETE FROM backend_credentials WHERE id = ?", id)
	return err
}

// =====================================================
// Scan helpers
// =====================================================

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQueueEntry(row rowScanner) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	var kind, payload, createdAt string
	var synced int
	var syncedAt sql.NullInt64

	err := row.Scan(&entry.ID, &kind, &payload, &createdAt, &entry.DeviceOrigin, &synced, &syncedAt)
	if err != nil {
		return nil, err
	}

	entry.Kind = models.EntryKind(kind)
	entry.Payload = []byte(payload)
	entry.Synced = synced != 0
	entry.Timestamp, err = models.ParseTimestamp(createdAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt queue entry timestamp %q: %w", createdAt, err)
	}
	if syncedAt.Valid {
		t := time.Unix(syncedAt.Int64, 0)
		entry.SyncedAt = &t
	}
	return &entry, nil
}

func scanConflictRecord(row rowScanner) (*models.ConflictRecord, error) {
	var record models.ConflictRecord
	var entryJSON, createdAt string
	var resolved int

	err := row.Scan(&record.ID, &record.EntryID, &entryJSON, &record.Error, &createdAt, &resolved)
	if err != nil {
		return nil, err
	}

	record.Resolved = resolved != 0
	record.Timestamp, err = models.ParseTimestamp(createdAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt conflict timestamp %q: %w", createdAt, err)
	}
	if err := unmarshalQueueEntry([]byte(entryJSON), &record.OriginalEntry); err != nil {
		return nil, err
	}
	return &record, nil
}

func unmarshalQueueEntry(data []byte, entry *models.QueueEntry) error {
	if err := json.Unmarshal(data, entry); err != nil {
		return fmt.Errorf("corrupt stored queue entry: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
