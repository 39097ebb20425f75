package status

import (
	"testing"
	"time"
)

func TestInitialState(t *testing.T) {
	store := NewStore()

	snap := store.Get()
	if !snap.Online {
		t.Error("New store should report online")
	}
	if snap.Syncing {
		t.Error("New store should not report syncing")
	}
	if snap.PendingCount != 0 || snap.ConflictCount != 0 {
		t.Errorf("New store counts = %d/%d, want 0/0", snap.PendingCount, snap.ConflictCount)
	}
	if snap.LastSync != nil {
		t.Error("New store should have no last sync time")
	}
}

func TestUpdatesAreVisible(t *testing.T) {
	store := NewStore()
	now := time.Now()

	store.SetOnline(false)
	store.SetSyncing(true)
	store.SetPendingCount(7)
	store.SetLastSync(now)
	store.SetSyncError("2 items failed to sync")
	store.SetConflictCount(2)

	snap := store.Get()
	if snap.Online {
		t.Error("Online not updated")
	}
	if !snap.Syncing {
		t.Error("Syncing not updated")
	}
	if snap.PendingCount != 7 {
		t.Errorf("PendingCount = %d, want 7", snap.PendingCount)
	}
	if snap.LastSync == nil || !snap.LastSync.Equal(now) {
		t.Errorf("LastSync = %v, want %v", snap.LastSync, now)
	}
	if snap.SyncError != "2 items failed to sync" {
		t.Errorf("SyncError = %q", snap.SyncError)
	}
	if snap.ConflictCount != 2 {
		t.Errorf("ConflictCount = %d, want 2", snap.ConflictCount)
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	store := NewStore()

	ch, cancel := store.Subscribe()
	defer cancel()

	store.SetPendingCount(3)

	select {
	case snap := <-ch:
		if snap.PendingCount != 3 {
			t.Errorf("Notified snapshot PendingCount = %d, want 3", snap.PendingCount)
		}
	case <-time.After(time.Second):
		t.Fatal("Subscriber never notified")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	store := NewStore()

	ch, cancel := store.Subscribe()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("Channel should be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	store.SetPendingCount(1)

	// Double cancel is a no-op.
	cancel()
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewStore()

	_, cancel := store.Subscribe()
	defer cancel()

	// Exceed the buffer; publishers must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			store.SetPendingCount(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publisher blocked on a slow subscriber")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	store := NewStore()
	store.SetPendingCount(5)

	snap := store.Get()
	store.SetPendingCount(9)

	if snap.PendingCount != 5 {
		t.Errorf("Earlier snapshot mutated: PendingCount = %d, want 5", snap.PendingCount)
	}
}
