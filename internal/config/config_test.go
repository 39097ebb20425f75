package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no file failed: %v", err)
	}

	if cfg.Server.Listen != "localhost:8090" {
		t.Errorf("Listen = %s, want localhost:8090", cfg.Server.Listen)
	}
	if cfg.SyncInterval() != 5*time.Minute {
		t.Errorf("SyncInterval = %v, want 5m", cfg.SyncInterval())
	}
	if cfg.PurgeGrace() != 5*time.Second {
		t.Errorf("PurgeGrace = %v, want 5s", cfg.PurgeGrace())
	}
	if cfg.DraftMaxAge() != 24*time.Hour {
		t.Errorf("DraftMaxAge = %v, want 24h", cfg.DraftMaxAge())
	}
	if cfg.Sync.ConflictHistoryCap != 20 {
		t.Errorf("ConflictHistoryCap = %d, want 20", cfg.Sync.ConflictHistoryCap)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farmtrack.toml")
	content := `
[server]
listen = "127.0.0.1:9000"

[storage]
data_dir = "/var/lib/farmtrack"

[sync]
interval_minutes = 10
purge_grace_seconds = 8

[backend]
url = "https://farm.example.com"
api_key = "file-key"

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Listen != "127.0.0.1:9000" {
		t.Errorf("Listen = %s", cfg.Server.Listen)
	}
	if cfg.Storage.DataDir != "/var/lib/farmtrack" {
		t.Errorf("DataDir = %s", cfg.Storage.DataDir)
	}
	if cfg.SyncInterval() != 10*time.Minute {
		t.Errorf("SyncInterval = %v, want 10m", cfg.SyncInterval())
	}
	if cfg.PurgeGrace() != 8*time.Second {
		t.Errorf("PurgeGrace = %v, want 8s", cfg.PurgeGrace())
	}
	// Values not present in the file keep their defaults.
	if cfg.Sync.DraftMaxAgeHours != 24 {
		t.Errorf("DraftMaxAgeHours = %d, want default 24", cfg.Sync.DraftMaxAgeHours)
	}
	if cfg.Backend.URL != "https://farm.example.com" {
		t.Errorf("Backend URL = %s", cfg.Backend.URL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %s", cfg.Logging.Level)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FARMTRACK_LISTEN", "localhost:9100")
	t.Setenv("FARMTRACK_BACKEND_URL", "https://env.example.com")
	t.Setenv("FARMTRACK_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Listen != "localhost:9100" {
		t.Errorf("Listen = %s, env override lost", cfg.Server.Listen)
	}
	if cfg.Backend.URL != "https://env.example.com" {
		t.Errorf("Backend URL = %s, env override lost", cfg.Backend.URL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %s, env override lost", cfg.Logging.Level)
	}
}

func TestInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[server\nlisten = "), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected parse error for malformed TOML, got nil")
	}
}

func TestValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.toml")
	content := `
[sync]
interval_minutes = -1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected validation error for negative interval, got nil")
	}
}
