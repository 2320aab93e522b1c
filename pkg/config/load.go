package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration from an optional YAML file, applies
// defaults and environment overrides, and validates the result. A missing
// file is not an error; the path may be empty to skip the file layer
// entirely.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Defaults only.
		case err != nil:
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
			}
		}
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides. Environment
// always wins over the file layer.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("GATEWAY_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("GATEWAY_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = port
		}
	}
	if val := os.Getenv("CCG_DATA_DIR"); val != "" {
		cfg.Database.DataDir = val
		cfg.Database.Path = ""
		cfg.Database.LogPath = ""
	}
	if val := os.Getenv("CCG_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
}
