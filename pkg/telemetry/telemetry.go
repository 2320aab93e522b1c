package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// maxConns bounds the connection pool, matching the configuration store.
const maxConns = 5

// Telemetry provides access to the log database.
type Telemetry struct {
	db *sql.DB
}

// Open opens (creating if necessary) the log database at path with WAL
// mode and initializes the schema.
func Open(path string) (*Telemetry, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open log database: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(0)

	t := &Telemetry{db: db}
	if err := t.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize log schema: %w", err)
	}

	return t, nil
}

// initSchema creates the log tables if they do not exist.
func (t *Telemetry) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS request_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		cli_type TEXT NOT NULL,
		provider_name TEXT,
		model_id TEXT,
		status_code INTEGER,
		elapsed_ms INTEGER NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		client_method TEXT NOT NULL,
		client_path TEXT NOT NULL,
		client_headers TEXT,
		client_body TEXT,
		forward_url TEXT,
		forward_headers TEXT,
		forward_body TEXT,
		response_headers TEXT,
		response_body TEXT,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_request_logs_created_at ON request_logs(created_at);

	CREATE TABLE IF NOT EXISTS system_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		level TEXT NOT NULL,
		event_type TEXT NOT NULL,
		message TEXT NOT NULL,
		provider_name TEXT,
		details TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_system_logs_created_at ON system_logs(created_at);

	CREATE TABLE IF NOT EXISTS usage_daily (
		usage_date TEXT NOT NULL,
		provider_name TEXT NOT NULL,
		cli_type TEXT NOT NULL,
		request_count INTEGER NOT NULL DEFAULT 0,
		success_count INTEGER NOT NULL DEFAULT 0,
		failure_count INTEGER NOT NULL DEFAULT 0,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (usage_date, provider_name, cli_type)
	);`

	_, err := t.db.ExecContext(ctx, schema)
	return err
}

// Close releases the underlying pool.
func (t *Telemetry) Close() error {
	return t.db.Close()
}

// Ping verifies the database is reachable.
func (t *Telemetry) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

func now() int64 {
	return time.Now().Unix()
}

// today returns the UTC date key used by usage_daily.
func today() string {
	return time.Now().UTC().Format("2006-01-02")
}
