package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/farmtrack/backend/internal/logging"
	"github.com/farmtrack/backend/internal/status"
	syncpkg "github.com/farmtrack/backend/internal/sync"
)

// WSEnvelope is the wire frame for every pushed event.
type WSEnvelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// WSHub broadcasts sync lifecycle events and status snapshots to connected
// UI clients. It also implements sync.EventHandler so the engine can push
// progress without knowing about WebSockets.
type WSHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan WSEnvelope
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	upgrader   websocket.Upgrader
}

// NewWSHub creates a hub. Run must be started before Serve accepts clients.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan WSEnvelope, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The server only listens on localhost; accept local origins.
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
			},
		},
	}
}

// Run processes register, unregister, and broadcast events until ctx ends.
func (h *WSHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				conn.Close()
			}
			return

		case conn := <-h.register:
			h.clients[conn] = true
			logging.Debug("WebSocket client connected", map[string]interface{}{
				"clients": len(h.clients),
			})

		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}

		case env := <-h.broadcast:
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(env); err != nil {
					delete(h.clients, conn)
					conn.Close()
				}
			}
		}
	}
}

// Serve upgrades an HTTP request to a WebSocket subscription.
func (h *WSHub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	h.register <- conn

	// Drain client frames so pings and close handshakes are processed; the
	// stream is push-only.
	go func() {
		defer func() { h.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// WatchStatus relays status store changes to connected clients.
func (h *WSHub) WatchStatus(ctx context.Context, store *status.Store) {
	ch, cancel := store.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-ch:
			if !ok {
				return
			}
			h.send("status.changed", snapshot)
		}
	}
}

// send queues an envelope for broadcast, dropping it if the hub is saturated.
func (h *WSHub) send(eventType string, data interface{}) {
	env := WSEnvelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	select {
	case h.broadcast <- env:
	default:
		logging.Warn("Dropping WebSocket event, broadcast buffer full", map[string]interface{}{
			"type": eventType,
		})
	}
}

// SyncStarted implements sync.EventHandler.
func (h *WSHub) SyncStarted(total int) {
	h.send("sync.started", map[string]int{"total": total})
}

// SyncProgress implements sync.EventHandler.
func (h *WSHub) SyncProgress(completed, total int) {
	h.send("sync.progress", map[string]int{"completed": completed, "total": total})
}

// SyncCompleted implements sync.EventHandler.
func (h *WSHub) SyncCompleted(result syncpkg.DrainResult) {
	h.send("sync.completed", result)
}

// SyncFailed implements sync.EventHandler.
func (h *WSHub) SyncFailed(message string) {
	h.send("sync.failed", map[string]string{"message": message})
}
