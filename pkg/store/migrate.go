package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// migrate reconciles the live database with the declared schema. Fresh
// databases get the full table set and default rows; databases at an older
// version get missing tables created and diverged tables rebuilt by
// copy-through-rename, preserving the intersection of columns. Databases
// at or beyond the declared version are left untouched.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS _schema_version (
			version INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("failed to create version table: %w", err)
	}

	version, err := s.currentVersion(ctx)
	if err != nil {
		return err
	}

	if version >= schemaVersion {
		return nil
	}

	logger := slog.Default().With("component", "store.migrate")
	if version > 0 {
		logger.Info("migrating database", "from_version", version, "to_version", schemaVersion)
	}

	for _, table := range mainSchema() {
		exists, err := s.tableExists(ctx, table.name)
		if err != nil {
			return err
		}

		if !exists {
			if _, err := s.db.ExecContext(ctx, table.createSQL()); err != nil {
				return fmt.Errorf("failed to create table %s: %w", table.name, err)
			}
			continue
		}

		live, err := s.liveColumns(ctx, table.name)
		if err != nil {
			return err
		}

		if !sameColumnSet(live, table.columnNames()) {
			logger.Info("rebuilding table", "table", table.name)
			if err := s.rebuildTable(ctx, table, live); err != nil {
				return fmt.Errorf("failed to rebuild table %s: %w", table.name, err)
			}
		}
	}

	if err := s.seedDefaults(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO _schema_version (version, applied_at) VALUES (?, ?)",
		schemaVersion, now()); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return nil
}

// currentVersion reads the highest recorded schema version, zero for a
// fresh database.
func (s *Store) currentVersion(ctx context.Context) (int64, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM _schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version.Int64, nil
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var found string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&found)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to inspect table %s: %w", name, err)
	default:
		return true, nil
	}
}

// liveColumns returns the column names of a live table in declaration
// order.
func (s *Store) liveColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info of %s: %w", table, err)
		}
		columns = append(columns, name)
	}

	return columns, rows.Err()
}

// rebuildTable replaces a diverged table with the declared shape, copying
// over every column present in both the old and new definitions.
func (s *Store) rebuildTable(ctx context.Context, table tableDef, liveColumns []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tmpName := table.name + "__migrate_new"
	if _, err := tx.ExecContext(ctx, table.createSQLAs(tmpName)); err != nil {
		return err
	}

	common := intersectColumns(liveColumns, table.columnNames())
	if len(common) > 0 {
		cols := strings.Join(common, ", ")
		copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", tmpName, cols, cols, table.name)
		if _, err := tx.ExecContext(ctx, copySQL); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE "+table.name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", tmpName, table.name)); err != nil {
		return err
	}

	return tx.Commit()
}

// seedDefaults inserts the singleton and per-CLI default rows, ignoring
// rows that already exist.
func (s *Store) seedDefaults(ctx context.Context) error {
	ts := now()

	seeds := []struct {
		sql  string
		args []any
	}{
		{
			sql:  "INSERT OR IGNORE INTO timeout_settings (id, stream_first_byte_timeout, stream_idle_timeout, non_stream_timeout, updated_at) VALUES (1, 30, 60, 120, ?)",
			args: []any{ts},
		},
		{
			sql:  "INSERT OR IGNORE INTO gateway_settings (id, debug_log, updated_at) VALUES (1, 0, ?)",
			args: []any{ts},
		},
	}

	for _, cli := range []string{"claude_code", "codex", "gemini"} {
		seeds = append(seeds, struct {
			sql  string
			args []any
		}{
			sql:  "INSERT OR IGNORE INTO cli_settings (cli_type, updated_at) VALUES (?, ?)",
			args: []any{cli, ts},
		})
	}

	for _, seed := range seeds {
		if _, err := s.db.ExecContext(ctx, seed.sql, seed.args...); err != nil {
			return fmt.Errorf("failed to seed defaults: %w", err)
		}
	}

	return nil
}

func sameColumnSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, name := range a {
		set[name] = struct{}{}
	}
	for _, name := range b {
		if _, ok := set[name]; !ok {
			return false
		}
	}
	return true
}

func intersectColumns(live, declared []string) []string {
	set := make(map[string]struct{}, len(live))
	for _, name := range live {
		set[name] = struct{}{}
	}

	var common []string
	for _, name := range declared {
		if _, ok := set[name]; ok {
			common = append(common, name)
		}
	}
	return common
}
