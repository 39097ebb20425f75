// Package status provides the process-wide observable SyncStatus store.
// The UI layer subscribes to it for the pending count, syncing spinner,
// last-sync time, and conflict count.
package status

import (
	"sync"
	"time"
)

// Snapshot is an immutable view of the sync state at a point in time.
type Snapshot struct {
	Online        bool       `json:"online"`
	Syncing       bool       `json:"syncing"`
	PendingCount  int        `json:"pendingCount"`
	LastSync      *time.Time `json:"lastSync"`
	SyncError     string     `json:"syncError,omitempty"`
	ConflictCount int        `json:"conflictCount"`
}

// Store holds the current snapshot and notifies subscribers on change.
// A single instance is created at startup and passed explicitly to the
// components that read or write it.
type Store struct {
	mu          sync.RWMutex
	state       Snapshot
	subscribers map[int]chan Snapshot
	nextSubID   int
}

// NewStore creates a Store reporting online and idle.
func NewStore() *Store {
	return &Store{
		state:       Snapshot{Online: true},
		subscribers: make(map[int]chan Snapshot),
	}
}

// Get returns the current snapshot.
func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers a listener and returns its channel plus an unsubscribe
// function. The channel is buffered; a slow consumer drops intermediate
// snapshots rather than blocking publishers.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Snapshot, 16)
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(existing)
		}
	}
}

// update applies fn to a copy of the state and notifies subscribers.
func (s *Store) update(fn func(*Snapshot)) {
	s.mu.Lock()
	next := s.state
	fn(&next)
	s.state = next
	for _, ch := range s.subscribers {
		select {
		case ch <- next:
		default:
			// Subscriber buffer full; it will catch up on the next change.
		}
	}
	s.mu.Unlock()
}

// SetOnline records the connectivity flag.
func (s *Store) SetOnline(online bool) {
	s.update(func(st *Snapshot) { st.Online = online })
}

// SetSyncing records whether a drain is in flight.
func (s *Store) SetSyncing(syncing bool) {
	s.update(func(st *Snapshot) { st.Syncing = syncing })
}

// SetPendingCount records the number of unsynced queue entries.
func (s *Store) SetPendingCount(n int) {
	s.update(func(st *Snapshot) { st.PendingCount = n })
}

// SetLastSync records the completion time of the last drain.
func (s *Store) SetLastSync(t time.Time) {
	s.update(func(st *Snapshot) {
		ts := t
		st.LastSync = &ts
	})
}

// SetSyncError records the user-visible aggregate error; empty clears it.
func (s *Store) SetSyncError(msg string) {
	s.update(func(st *Snapshot) { st.SyncError = msg })
}

// SetConflictCount records the conflict store size.
func (s *Store) SetConflictCount(n int) {
	s.update(func(st *Snapshot) { st.ConflictCount = n })
}
