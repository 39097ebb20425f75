// Package models provides data model definitions for the FarmTrack backend.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntryKind identifies the domain record a queue entry mutates.
// The set is closed; the sync engine dispatches exhaustively over it.
type EntryKind string

const (
	KindFuelEntry EntryKind = "fuel_entry"
	KindVehicle   EntryKind = "vehicle"
	KindDriver    EntryKind = "driver"
	KindBowser    EntryKind = "bowser"
	KindActivity  EntryKind = "activity"
	KindField     EntryKind = "field"
	KindRefill    EntryKind = "refill"
)

// Kinds returns all valid entry kinds.
func Kinds() []EntryKind {
	return []EntryKind{
		KindFuelEntry, KindVehicle, KindDriver, KindBowser,
		KindActivity, KindField, KindRefill,
	}
}

// ValidKind reports whether k is a member of the closed kind set.
func ValidKind(k EntryKind) bool {
	switch k {
	case KindFuelEntry, KindVehicle, KindDriver, KindBowser,
		KindActivity, KindField, KindRefill:
		return true
	}
	return false
}

// TimestampLayout is the on-disk timestamp format for queue entries and
// conflict records. Fixed-width UTC milliseconds, so lexicographic order
// matches chronological order in SQL.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampLayout (UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a TimestampLayout string.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// QueueEntry is a single pending mutation awaiting remote application.
// Entries are immutable once created except for the Synced flag; a
// correction is a new entry, never an in-place payload edit.
type QueueEntry struct {
	ID           string          `db:"id" json:"id"`
	Kind         EntryKind       `db:"kind" json:"type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Timestamp    time.Time       `db:"created_at" json:"timestamp"`
	DeviceOrigin string          `db:"device_origin" json:"deviceOrigin"`
	Synced       bool            `db:"synced" json:"synced"`
	SyncedAt     *time.Time      `db:"synced_at" json:"syncedAt,omitempty"`
}

// TableName returns the table name for QueueEntry.
func (QueueEntry) TableName() string {
	return "offline_queue"
}

// Payload is implemented by every domain record that can travel through the
// offline queue. PayloadID returns the record's id field, which may be a
// temporary ("temp_"-prefixed) id for not-yet-created records.
type Payload interface {
	PayloadID() string
}

// DecodePayload decodes a raw queue payload into its strongly typed domain
// record, dispatching on kind. Unknown kinds are an error, never a silent
// pass-through.
func DecodePayload(kind EntryKind, raw json.RawMessage) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch kind {
	case KindFuelEntry:
		v := &FuelEntry{}
		err = json.Unmarshal(raw, v)
		p = v
	case KindVehicle:
		v := &Vehicle{}
		err = json.Unmarshal(raw, v)
		p = v
	case KindDriver:
		v := &Driver{}
		err = json.Unmarshal(raw, v)
		p = v
	case KindBowser:
		v := &Bowser{}
		err = json.Unmarshal(raw, v)
		p = v
	case KindActivity:
		v := &Activity{}
		err = json.Unmarshal(raw, v)
		p = v
	case KindField:
		v := &Field{}
		err = json.Unmarshal(raw, v)
		p = v
	case KindRefill:
		v := &RefillRecord{}
		err = json.Unmarshal(raw, v)
		p = v
	default:
		return nil, fmt.Errorf("unknown entry kind: %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return p, nil
}

// StripPayloadID returns a copy of raw with its top-level "id" field removed.
// Used when replaying a creation: the temporary client id must not reach the
// hosted backend, which assigns the permanent id itself.
func StripPayloadID(raw json.RawMessage) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("strip payload id: %w", err)
	}
	delete(obj, "id")
	out, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("strip payload id: %w", err)
	}
	return out, nil
}
