// Package netwatch tracks online/offline transitions and triggers sync
// attempts on reconnection. Connectivity signals are injected so the sync
// engine is testable without a real platform runtime.
package netwatch

import (
	"context"
	"sync"

	"github.com/farmtrack/backend/internal/logging"
	"github.com/farmtrack/backend/internal/status"
)

// Source is the injected connectivity dependency: a current flag plus a
// change-notification stream.
type Source interface {
	// IsOnline reports whether the device can currently reach the backend.
	IsOnline() bool

	// Changes delivers the new flag on every transition. May return nil when
	// the platform offers no signals; the observer then assumes online.
	Changes() <-chan bool
}

// Manual is a Source fed explicitly, by the hosting shell's online/offline
// events in production and by tests directly.
type Manual struct {
	mu     sync.RWMutex
	online bool
	ch     chan bool
}

// NewManual creates a Manual source with the given initial flag.
func NewManual(online bool) *Manual {
	return &Manual{online: online, ch: make(chan bool, 8)}
}

// IsOnline implements Source.
func (m *Manual) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Changes implements Source.
func (m *Manual) Changes() <-chan bool {
	return m.ch
}

// Set records a transition. Setting the current value is a no-op so repeated
// platform signals do not re-trigger syncs.
func (m *Manual) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	m.mu.Unlock()

	select {
	case m.ch <- online:
	default:
		// Transitions are rare and user-visible; if the observer is this far
		// behind, the latest flag is still readable via IsOnline.
	}
}

// AlwaysOnline is the fallback Source for contexts with no platform signals.
// Reporting online keeps the queue from wedging permanently.
type AlwaysOnline struct{}

// IsOnline implements Source.
func (AlwaysOnline) IsOnline() bool { return true }

// Changes implements Source.
func (AlwaysOnline) Changes() <-chan bool { return nil }

// Pending reports how many queue entries await sync.
type Pending interface {
	PendingCount() (int, error)
}

// Observer mirrors connectivity into the status store and triggers a drain
// on the offline-to-online transition. It never drains itself; that is
// delegated to the trigger callback, whose single-flight guard rejects a
// second concurrent drain.
type Observer struct {
	source  Source
	status  *status.Store
	pending Pending
	trigger func()
}

// NewObserver creates an Observer. trigger is invoked (on its own goroutine)
// whenever the device comes online with a nonzero pending count.
func NewObserver(source Source, st *status.Store, pending Pending, trigger func()) *Observer {
	return &Observer{
		source:  source,
		status:  st,
		pending: pending,
		trigger: trigger,
	}
}

// Run watches for transitions until ctx is cancelled. With a nil change
// stream it records the source's current flag once and returns.
func (o *Observer) Run(ctx context.Context) {
	o.status.SetOnline(o.source.IsOnline())

	changes := o.source.Changes()
	if changes == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-changes:
			if !ok {
				return
			}
			o.status.SetOnline(online)
			logging.Info("Connectivity changed", map[string]interface{}{
				"online": online,
			})
			if online {
				o.maybeTrigger()
			}
		}
	}
}

// maybeTrigger starts a sync attempt if anything is pending.
func (o *Observer) maybeTrigger() {
	count, err := o.pending.PendingCount()
	if err != nil {
		logging.Error("Failed to read pending count on reconnect", err, nil)
		return
	}
	if count == 0 {
		return
	}
	go o.trigger()
}
