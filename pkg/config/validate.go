package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for values the gateway cannot run with.
func Validate(cfg *Config) error {
	if cfg.Server.Host == "" {
		return fmt.Errorf("server.host must not be empty")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}

	if cfg.Database.DataDir == "" && cfg.Database.Path == "" {
		return fmt.Errorf("database.data_dir or database.path must be set")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q not one of debug, info, warn, error", cfg.Logging.Level)
	}

	if cfg.Retention.Days < 0 {
		return fmt.Errorf("retention.days must not be negative")
	}
	if cfg.Retention.MaxRequestLogs < 0 {
		return fmt.Errorf("retention.max_request_logs must not be negative")
	}
	if cfg.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			return fmt.Errorf("retention.schedule %q invalid: %w", cfg.Retention.Schedule, err)
		}
	}

	return nil
}
