package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GATEWAY_HOST", "")
	t.Setenv("GATEWAY_PORT", "")
	t.Setenv("CCG_DATA_DIR", "")
	t.Setenv("CCG_LOG_LEVEL", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 7788 {
		t.Errorf("Port = %d, want 7788", cfg.Server.Port)
	}
	if cfg.Server.ListenAddress() != "127.0.0.1:7788" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress())
	}
	if filepath.Base(cfg.Database.StorePath()) != "ccg_gateway.db" {
		t.Errorf("StorePath = %q", cfg.Database.StorePath())
	}
	if filepath.Base(cfg.Database.TelemetryPath()) != "ccg_logs.db" {
		t.Errorf("TelemetryPath = %q", cfg.Database.TelemetryPath())
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Retention.Schedule != DefaultPruneSchedule {
		t.Errorf("Schedule = %q", cfg.Retention.Schedule)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("GATEWAY_HOST", "")
	t.Setenv("GATEWAY_PORT", "")
	t.Setenv("CCG_DATA_DIR", "")
	t.Setenv("CCG_LOG_LEVEL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: 0.0.0.0
  port: 9000
  shutdown_timeout: 5s
database:
  data_dir: /tmp/ccg-test
logging:
  level: debug
retention:
  days: 7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Database.DataDir != "/tmp/ccg-test" {
		t.Errorf("DataDir = %q", cfg.Database.DataDir)
	}
	if cfg.Logging.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v", cfg.Logging.SlogLevel())
	}
	if cfg.Retention.Days != 7 {
		t.Errorf("Retention.Days = %d", cfg.Retention.Days)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GATEWAY_HOST", "0.0.0.0")
	t.Setenv("GATEWAY_PORT", "8900")
	t.Setenv("CCG_DATA_DIR", "/tmp/ccg-env")
	t.Setenv("CCG_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 8900 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Database.DataDir != "/tmp/ccg-env" {
		t.Errorf("DataDir = %q", cfg.Database.DataDir)
	}
	if cfg.Database.StorePath() != "/tmp/ccg-env/ccg_gateway.db" {
		t.Errorf("StorePath = %q", cfg.Database.StorePath())
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CCG_DATA_DIR", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() with missing file: %v", err)
	}
	if cfg.Server.Port != 7788 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "empty host", mutate: func(c *Config) { c.Server.Host = "" }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "bad schedule", mutate: func(c *Config) { c.Retention.Schedule = "every day" }, wantErr: true},
		{name: "negative days", mutate: func(c *Config) { c.Retention.Days = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{}
			ApplyDefaults(&cfg)
			tt.mutate(&cfg)

			err := Validate(&cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
