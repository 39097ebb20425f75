package models

import "time"

// ConflictRecord is a durable, append-only log of a failed sync attempt.
// Records are created only by the sync engine when applying a queue entry
// fails; nothing resolves them automatically.
type ConflictRecord struct {
	ID            string     `db:"id" json:"id"`
	EntryID       string     `db:"entry_id" json:"entryId"`
	OriginalEntry QueueEntry `db:"entry" json:"originalEntry"`
	Error         string     `db:"error" json:"error"`
	Timestamp     time.Time  `db:"created_at" json:"timestamp"`
	Resolved      bool       `db:"resolved" json:"resolved"`
}

// TableName returns the table name for ConflictRecord.
func (ConflictRecord) TableName() string {
	return "sync_conflicts"
}
