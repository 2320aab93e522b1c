package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values for configuration fields.
const (
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 7788
	DefaultShutdownTimeout = 15 * time.Second
	DefaultLogLevel        = "info"

	DefaultRetentionDays    = 30
	DefaultRetentionMaxLogs = int64(100000)
	DefaultPruneSchedule    = "0 4 * * *"
)

// DefaultDataDir resolves the data directory: CCG_DATA_DIR when set, else
// ~/.ccg-gateway, falling back to ./.ccg-gateway when the home directory
// cannot be determined.
func DefaultDataDir() string {
	if dir := os.Getenv("CCG_DATA_DIR"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".ccg-gateway")
	}
	return filepath.Join(".", ".ccg-gateway")
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Database.DataDir == "" {
		cfg.Database.DataDir = DefaultDataDir()
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}

	if cfg.Retention.Days == 0 {
		cfg.Retention.Days = DefaultRetentionDays
	}
	if cfg.Retention.MaxRequestLogs == 0 {
		cfg.Retention.MaxRequestLogs = DefaultRetentionMaxLogs
	}
	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = DefaultPruneSchedule
	}
}
