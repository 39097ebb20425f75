package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/farmtrack/backend/internal/backend"
	"github.com/farmtrack/backend/internal/crypto"
	"github.com/farmtrack/backend/internal/db"
	"github.com/farmtrack/backend/internal/draft"
	apperrors "github.com/farmtrack/backend/internal/errors"
	"github.com/farmtrack/backend/internal/logging"
	"github.com/farmtrack/backend/internal/models"
	"github.com/farmtrack/backend/internal/status"
	syncpkg "github.com/farmtrack/backend/internal/sync"
	"github.com/farmtrack/backend/internal/sync/conflict"
	"github.com/farmtrack/backend/internal/sync/netwatch"
	"github.com/farmtrack/backend/internal/sync/queue"
)

// Handler exposes queue, sync, draft, and credential operations over the
// localhost REST API.
type Handler struct {
	queue     *queue.DurableQueue
	engine    *syncpkg.Engine
	conflicts *conflict.Store
	drafts    *draft.Store
	status    *status.Store
	source    *netwatch.Manual
	repo      *db.Repository
	machineID string
}

// NewHandler wires the API handler to its backing components.
func NewHandler(q *queue.DurableQueue, engine *syncpkg.Engine, conflicts *conflict.Store,
	drafts *draft.Store, st *status.Store, source *netwatch.Manual,
	repo *db.Repository, machineID string) *Handler {
	return &Handler{
		queue:     q,
		engine:    engine,
		conflicts: conflicts,
		drafts:    drafts,
		status:    st,
		source:    source,
		repo:      repo,
		machineID: machineID,
	}
}

// Register mounts all REST routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", h.handleHealth)
	mux.HandleFunc("/api/queue", h.handleQueue)
	mux.HandleFunc("/api/queue/clear", h.handleQueueClear)
	mux.HandleFunc("/api/sync/status", h.handleSyncStatus)
	mux.HandleFunc("/api/sync/now", h.handleSyncNow)
	mux.HandleFunc("/api/sync/conflicts", h.handleConflicts)
	mux.HandleFunc("/api/draft", h.handleDraft)
	mux.HandleFunc("/api/network", h.handleNetwork)
	mux.HandleFunc("/api/backend/credentials", h.handleCredentials)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleQueue enqueues a mutation (POST) or lists entries (GET).
func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Type    models.EntryKind `json:"type"`
			Payload json.RawMessage  `json:"payload"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.Payload) == 0 {
			writeError(w, http.StatusBadRequest, "payload is required")
			return
		}

		id, err := h.queue.Enqueue(req.Type, req.Payload)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrUnknownKind) || apperrors.Is(err, apperrors.ErrInvalid) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		h.engine.RefreshCounts()
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})

	case http.MethodGet:
		synced := parseBoolFilter(r.URL.Query().Get("synced"))
		entries, err := h.repo.ListQueueEntries(synced)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})

	default:
		methodNotAllowed(w)
	}
}

// handleQueueClear drops every queued entry. Requires an explicit confirm
// flag because unsynced work is lost permanently.
func (h *Handler) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Confirm {
		writeError(w, http.StatusBadRequest, "clearing the queue requires confirm=true")
		return
	}

	if err := h.queue.ClearAll(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.engine.RefreshCounts()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, h.status.Get())
}

// handleSyncNow triggers a manual drain. Offline devices are rejected up
// front without touching the queue.
func (h *Handler) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	if err := h.engine.ManualSync(r.Context()); err != nil {
		switch {
		case apperrors.Is(err, apperrors.ErrSyncOffline):
			writeError(w, http.StatusConflict, "Cannot sync while offline")
		case apperrors.Is(err, apperrors.ErrSyncInProgress):
			writeError(w, http.StatusConflict, "Sync already in progress")
		default:
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

func (h *Handler) handleConflicts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	resolved := parseBoolFilter(r.URL.Query().Get("resolved"))
	records, err := h.conflicts.List(resolved)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conflicts": records})
}

// handleDraft reads (GET), saves (PUT), or clears (DELETE) the fuel entry
// wizard draft.
func (h *Handler) handleDraft(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		state, err := h.drafts.Load()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, state)

	case http.MethodPut:
		var req struct {
			CurrentStep int                    `json:"currentStep"`
			Data        *models.FuelEntryDraft `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := h.drafts.Save(req.CurrentStep, req.Data); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})

	case http.MethodDelete:
		if err := h.drafts.Clear(); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})

	default:
		methodNotAllowed(w)
	}
}

// handleNetwork flips the manual connectivity flag. The desktop shell calls
// this from its own connectivity probes; transitions to online trigger a
// drain through the network observer.
func (h *Handler) handleNetwork(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.source.Set(req.Online)
	writeJSON(w, http.StatusOK, map[string]bool{"online": req.Online})
}

// handleCredentials manages the hosted backend endpoint and API key. Saving
// a credential encrypts the key at rest and hot-swaps the engine's client.
func (h *Handler) handleCredentials(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cred, err := h.repo.GetBackendCredential()
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"configured": false})
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"configured": true,
			"credential": cred,
		})

	case http.MethodPost:
		var req struct {
			Endpoint string `json:"endpoint"`
			APIKey   string `json:"api_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Endpoint == "" || req.APIKey == "" {
			writeError(w, http.StatusBadRequest, "endpoint and api_key are required")
			return
		}

		encrypted, err := crypto.EncryptAPIKey(req.APIKey, h.machineID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if err := h.repo.DisableAllBackendCredentials(); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		now := time.Now().Unix()
		cred := &models.BackendCredential{
			Endpoint:        req.Endpoint,
			APIKeyEncrypted: encrypted,
			IsEnabled:       true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := h.repo.SaveBackendCredential(cred); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		h.engine.SetBackend(backend.NewRESTClient(backend.Config{
			BaseURL: req.Endpoint,
			APIKey:  req.APIKey,
		}))
		logging.Info("Backend credential updated", map[string]interface{}{
			"endpoint": req.Endpoint,
		})
		writeJSON(w, http.StatusCreated, map[string]string{"id": cred.ID})

	case http.MethodDelete:
		if err := h.repo.DisableAllBackendCredentials(); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.engine.SetBackend(nil)
		writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})

	default:
		methodNotAllowed(w)
	}
}

// parseBoolFilter maps "true"/"false" to a filter pointer; anything else
// means no filter.
func parseBoolFilter(v string) *bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error("Failed to encode response", err, nil)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
