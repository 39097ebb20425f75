// Package config loads server configuration from a TOML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	apperrors "github.com/farmtrack/backend/internal/errors"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Sync    SyncConfig    `toml:"sync"`
	Backend BackendConfig `toml:"backend"`
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig configures the localhost API server.
type ServerConfig struct {
	Listen string `toml:"listen"`
}

// StorageConfig configures the on-device database.
type StorageConfig struct {
	DataDir string `toml:"data_dir"`
}

// SyncConfig configures the sync engine and scheduler.
type SyncConfig struct {
	// IntervalMinutes between periodic drains while online.
	IntervalMinutes int `toml:"interval_minutes"`

	// PurgeGraceSeconds synced entries linger before cleanup.
	PurgeGraceSeconds int `toml:"purge_grace_seconds"`

	// DraftMaxAgeHours before a wizard draft is treated as expired.
	DraftMaxAgeHours int `toml:"draft_max_age_hours"`

	// ConflictHistoryCap bounds per-entry conflict records.
	ConflictHistoryCap int `toml:"conflict_history_cap"`
}

// BackendConfig configures the hosted data service. Values here are
// bootstrap defaults; credentials saved through the API take precedence.
type BackendConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Listen: "localhost:8090"},
		Storage: StorageConfig{DataDir: "./data"},
		Sync: SyncConfig{
			IntervalMinutes:    5,
			PurgeGraceSeconds:  5,
			DraftMaxAgeHours:   24,
			ConflictHistoryCap: 20,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrConfigInvalid,
				fmt.Sprintf("failed to parse config file %s", path), err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config values from FARMTRACK_* variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("FARMTRACK_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("FARMTRACK_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("FARMTRACK_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("FARMTRACK_BACKEND_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}
	if v := os.Getenv("FARMTRACK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func (c *Config) validate() error {
	if c.Server.Listen == "" {
		return apperrors.New(apperrors.ErrConfigInvalid, "server.listen must not be empty")
	}
	if c.Storage.DataDir == "" {
		return apperrors.New(apperrors.ErrConfigInvalid, "storage.data_dir must not be empty")
	}
	if c.Sync.IntervalMinutes <= 0 {
		return apperrors.New(apperrors.ErrConfigInvalid, "sync.interval_minutes must be positive")
	}
	return nil
}

// SyncInterval returns the periodic drain interval.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalMinutes) * time.Minute
}

// PurgeGrace returns the synced-entry purge grace window.
func (c *Config) PurgeGrace() time.Duration {
	return time.Duration(c.Sync.PurgeGraceSeconds) * time.Second
}

// DraftMaxAge returns the draft expiry age.
func (c *Config) DraftMaxAge() time.Duration {
	return time.Duration(c.Sync.DraftMaxAgeHours) * time.Hour
}
