package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

// Config is the top-level gateway configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Retention RetentionConfig `yaml:"retention"`
}

// ServerConfig configures the inbound HTTP listener.
type ServerConfig struct {
	// Host is the bind address. The gateway serves local CLIs, so the
	// default stays on loopback.
	Host string `yaml:"host"`

	// Port is the listen port.
	Port int `yaml:"port"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ListenAddress returns the host:port pair the server binds.
func (s ServerConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig locates the two SQLite stores.
type DatabaseConfig struct {
	// DataDir is the directory holding both databases. Overridable with
	// CCG_DATA_DIR.
	DataDir string `yaml:"data_dir"`

	// Path overrides the configuration database location; empty means
	// DataDir/ccg_gateway.db.
	Path string `yaml:"path"`

	// LogPath overrides the telemetry database location; empty means
	// DataDir/ccg_logs.db.
	LogPath string `yaml:"log_path"`
}

// StorePath returns the configuration database path.
func (d DatabaseConfig) StorePath() string {
	if d.Path != "" {
		return d.Path
	}
	return filepath.Join(d.DataDir, "ccg_gateway.db")
}

// TelemetryPath returns the telemetry database path.
func (d DatabaseConfig) TelemetryPath() string {
	if d.LogPath != "" {
		return d.LogPath
	}
	return filepath.Join(d.DataDir, "ccg_logs.db")
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// SlogLevel converts the configured level string, defaulting to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RetentionConfig bounds the telemetry store.
type RetentionConfig struct {
	// Days is how long request and system logs are kept. Zero or unset
	// takes DefaultRetentionDays, so age-based pruning cannot be turned
	// off through this field.
	Days int `yaml:"days"`

	// MaxRequestLogs caps the request_logs table; oldest rows beyond the
	// cap are pruned. Zero or unset takes DefaultRetentionMaxLogs, so the
	// cap cannot be turned off through this field.
	MaxRequestLogs int64 `yaml:"max_request_logs"`

	// Schedule is the cron expression driving the pruner.
	Schedule string `yaml:"schedule"`
}
