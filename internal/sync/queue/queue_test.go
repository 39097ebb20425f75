package queue

import (
	"strings"
	"testing"
	"time"

	"github.com/farmtrack/backend/internal/db"
	apperrors "github.com/farmtrack/backend/internal/errors"
	"github.com/farmtrack/backend/internal/models"
)

func setupQueue(t *testing.T) *DurableQueue {
	t.Helper()

	database, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	migrator := db.NewMigrator(database.DB)
	if err := migrator.Initialize(); err != nil {
		t.Fatalf("Failed to initialize migrator: %v", err)
	}
	if err := migrator.Up(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	repo := db.NewRepository(database.DB)
	t.Cleanup(func() { repo.Close() })

	return New(repo, "device_test_123456789")
}

func TestEnqueueAndList(t *testing.T) {
	q := setupQueue(t)

	id, err := q.Enqueue(models.KindVehicle, &models.Vehicle{
		ID:   "temp_1700000000000_ab12cd34e",
		Code: "TR-01",
		Name: "John Deere 6120",
		Type: "tractor",
	})
	if err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	if !strings.HasPrefix(id, "vehicle_") {
		t.Errorf("Queue id %s should carry the kind prefix", id)
	}

	entries, err := q.ListUnsynced()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].DeviceOrigin != "device_test_123456789" {
		t.Errorf("DeviceOrigin = %s, want device_test_123456789", entries[0].DeviceOrigin)
	}
	if entries[0].Synced {
		t.Error("New entry should be unsynced")
	}
}

func TestEnqueueRejectsUnknownKind(t *testing.T) {
	q := setupQueue(t)

	_, err := q.Enqueue("harvest_report", map[string]string{"id": "x"})
	if err == nil {
		t.Fatal("Expected error for unknown kind, got nil")
	}
	if !apperrors.Is(err, apperrors.ErrUnknownKind) {
		t.Errorf("Expected UNKNOWN_ENTRY_KIND, got %v", err)
	}

	count, err := q.PendingCount()
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("Rejected enqueue left %d entries behind", count)
	}
}

func TestPendingCountTracksMarks(t *testing.T) {
	q := setupQueue(t)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := q.Enqueue(models.KindDriver, &models.Driver{
			ID:   "temp_1",
			Name: "Driver",
		})
		if err != nil {
			t.Fatalf("Failed to enqueue %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	count, err := q.PendingCount()
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 3 {
		t.Fatalf("PendingCount = %d, want 3", count)
	}

	if err := q.MarkSynced(ids[0]); err != nil {
		t.Fatalf("Failed to mark synced: %v", err)
	}
	// Idempotent: repeating the mark is not an error.
	if err := q.MarkSynced(ids[0]); err != nil {
		t.Fatalf("Second mark errored: %v", err)
	}

	count, err = q.PendingCount()
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 2 {
		t.Errorf("PendingCount after mark = %d, want 2", count)
	}
}

func TestPurgeSyncedRespectsGrace(t *testing.T) {
	q := setupQueue(t)

	// Control the clock so grace windows are deterministic.
	current := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return current }

	oldID, err := q.Enqueue(models.KindBowser, &models.Bowser{ID: "temp_1", Name: "Bowser A"})
	if err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	if err := q.MarkSynced(oldID); err != nil {
		t.Fatalf("Failed to mark synced: %v", err)
	}

	// A second entry synced much later must survive the purge.
	current = current.Add(time.Minute)
	newID, err := q.Enqueue(models.KindBowser, &models.Bowser{ID: "temp_2", Name: "Bowser B"})
	if err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	if err := q.MarkSynced(newID); err != nil {
		t.Fatalf("Failed to mark synced: %v", err)
	}

	// Purge with a 30s grace as of one minute after the first sync.
	removed, err := q.PurgeSynced(30 * time.Second)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Purged %d entries, want 1 (only the one past grace)", removed)
	}
}

func TestClearAll(t *testing.T) {
	q := setupQueue(t)

	for i := 0; i < 3; i++ {
		if _, err := q.Enqueue(models.KindField, &models.Field{ID: "temp_1", Name: "Field"}); err != nil {
			t.Fatalf("Failed to enqueue: %v", err)
		}
	}

	if err := q.ClearAll(); err != nil {
		t.Fatalf("Failed to clear: %v", err)
	}

	count, err := q.PendingCount()
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("PendingCount after clear = %d, want 0", count)
	}
}

func TestGeneratedDeviceID(t *testing.T) {
	database, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	repo := db.NewRepository(database.DB)
	defer repo.Close()

	q := New(repo, "")
	if q.DeviceID() == "" {
		t.Error("Expected a generated device id for empty input")
	}
	if !strings.HasPrefix(q.DeviceID(), "device_") {
		t.Errorf("Generated device id %s missing prefix", q.DeviceID())
	}
}
