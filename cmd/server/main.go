// Package main provides the localhost API server for the FarmTrack client
// shell. The UI talks REST for queue, sync, and draft operations, and
// subscribes to a WebSocket for live sync status.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/farmtrack/backend/internal/backend"
	"github.com/farmtrack/backend/internal/config"
	"github.com/farmtrack/backend/internal/crypto"
	"github.com/farmtrack/backend/internal/db"
	"github.com/farmtrack/backend/internal/draft"
	"github.com/farmtrack/backend/internal/logging"
	"github.com/farmtrack/backend/internal/status"
	syncpkg "github.com/farmtrack/backend/internal/sync"
	"github.com/farmtrack/backend/internal/sync/conflict"
	"github.com/farmtrack/backend/internal/sync/netwatch"
	"github.com/farmtrack/backend/internal/sync/queue"
	"github.com/farmtrack/backend/internal/sync/scheduler"
	"github.com/farmtrack/backend/internal/uuid"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("Invalid configuration", err, nil)
		os.Exit(1)
	}

	logging.Init(os.Stdout, logging.ParseLevel(cfg.Logging.Level))

	database, err := db.Open(cfg.Storage.DataDir)
	if err != nil {
		logging.Error("Failed to open database", err, nil)
		os.Exit(1)
	}
	defer database.Close()

	migrator := db.NewMigrator(database.DB)
	if err := migrator.Initialize(); err != nil {
		logging.Error("Failed to initialize migrations", err, nil)
		os.Exit(1)
	}
	if err := migrator.Up(); err != nil {
		logging.Error("Failed to apply migrations", err, nil)
		os.Exit(1)
	}

	repo := db.NewRepository(database.DB)
	defer repo.Close()

	deviceID, err := loadDeviceID(cfg.Storage.DataDir)
	if err != nil {
		logging.Error("Failed to load device id", err, nil)
		os.Exit(1)
	}

	statusStore := status.NewStore()
	source := netwatch.NewManual(true)
	q := queue.New(repo, deviceID)
	conflicts := conflict.NewStore(repo, cfg.Sync.ConflictHistoryCap)
	draftStore := draft.NewStore(repo, cfg.DraftMaxAge())

	machineID := machineIdentifier()

	engine := syncpkg.NewEngine(q, conflicts, resolveBackend(repo, cfg, machineID),
		statusStore, source, syncpkg.Options{PurgeGrace: cfg.PurgeGrace()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewWSHub()
	go hub.Run(ctx)
	go hub.WatchStatus(ctx, statusStore)
	engine.SetEventHandler(hub)

	observer := netwatch.NewObserver(source, statusStore, q, func() {
		engine.Drain(context.Background())
	})
	go observer.Run(ctx)

	sched := scheduler.New(engine, source, cfg.SyncInterval())
	sched.Start(ctx)
	defer sched.Stop()

	// Publish the restored queue state before the first request lands.
	engine.RefreshCounts()

	handler := NewHandler(q, engine, conflicts, draftStore, statusStore, source, repo, machineID)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("/ws", hub.Serve)

	server := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logging.Info("FarmTrack sync server listening", map[string]interface{}{
			"addr":      cfg.Server.Listen,
			"device_id": deviceID,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed", err, nil)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logging.Info("Shutting down", nil)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("Shutdown failed", err, nil)
	}
}

// resolveBackend builds the hosted data service client from the saved
// credential if present, falling back to the bootstrap config. Returns nil
// when the service is not configured; drains then fail at setup and entries
// stay queued.
func resolveBackend(repo *db.Repository, cfg *config.Config, machineID string) backend.DataService {
	cred, err := repo.GetBackendCredential()
	if err == nil && cred.IsEnabled {
		apiKey, decErr := crypto.DecryptAPIKey(cred.APIKeyEncrypted, machineID)
		if decErr != nil {
			logging.Error("Failed to decrypt backend credential", decErr, nil)
		} else {
			return backend.NewRESTClient(backend.Config{BaseURL: cred.Endpoint, APIKey: apiKey})
		}
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		logging.Error("Failed to read backend credential", err, nil)
	}

	if cfg.Backend.URL != "" && cfg.Backend.APIKey != "" {
		return backend.NewRESTClient(backend.Config{BaseURL: cfg.Backend.URL, APIKey: cfg.Backend.APIKey})
	}

	logging.Warn("Backend data service not configured, queue will accumulate until credentials are set", nil)
	return nil
}

// loadDeviceID reads the persisted device identifier, generating one on
// first run. The id survives restarts so conflict attribution stays stable.
func loadDeviceID(dataDir string) (string, error) {
	path := filepath.Join(dataDir, "device_id")

	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	id := uuid.NewDeviceID()
	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", err
	}
	return id, nil
}

// machineIdentifier derives the key material id for credential encryption.
func machineIdentifier() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "default"
	}
	return hostname
}
