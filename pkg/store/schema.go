package store

import (
	"fmt"
	"strings"
)

// schemaVersion gates migrations. Bump it whenever the declared table set
// below changes; databases at an older version are reconciled on open.
const schemaVersion = 3

// columnDef declares one column: its name plus the SQL type and inline
// constraints, exactly as they appear in CREATE TABLE.
type columnDef struct {
	name string
	def  string
}

// tableDef declares one table. extras holds table-level constraints
// (UNIQUE, composite PRIMARY KEY) appended after the column list.
type tableDef struct {
	name    string
	columns []columnDef
	extras  []string
}

// createSQL renders the CREATE TABLE statement for the declared shape.
func (t tableDef) createSQL() string {
	return t.createSQLAs(t.name)
}

// createSQLAs renders the CREATE TABLE statement under a different name,
// used by the rebuild migration.
func (t tableDef) createSQLAs(name string) string {
	parts := make([]string, 0, len(t.columns)+len(t.extras))
	for _, c := range t.columns {
		parts = append(parts, fmt.Sprintf("%s %s", c.name, c.def))
	}
	parts = append(parts, t.extras...)

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", name, strings.Join(parts, ",\n\t"))
}

// columnNames returns the declared column names in order.
func (t tableDef) columnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// mainSchema declares every table of the configuration store. Order
// matters only for readability; tables carry no cross-table foreign keys
// so creation order is free.
func mainSchema() []tableDef {
	return []tableDef{
		{
			name: "providers",
			columns: []columnDef{
				{"id", "INTEGER PRIMARY KEY AUTOINCREMENT"},
				{"cli_type", "TEXT NOT NULL"},
				{"name", "TEXT NOT NULL"},
				{"base_url", "TEXT NOT NULL"},
				{"api_key", "TEXT NOT NULL"},
				{"enabled", "INTEGER NOT NULL DEFAULT 1"},
				{"failure_threshold", "INTEGER NOT NULL DEFAULT 3"},
				{"blacklist_minutes", "INTEGER NOT NULL DEFAULT 10"},
				{"consecutive_failures", "INTEGER NOT NULL DEFAULT 0"},
				{"blacklisted_until", "INTEGER"},
				{"sort_order", "INTEGER NOT NULL DEFAULT 0"},
				{"created_at", "INTEGER NOT NULL"},
				{"updated_at", "INTEGER NOT NULL"},
			},
			extras: []string{"UNIQUE(cli_type, name)"},
		},
		{
			name: "provider_model_map",
			columns: []columnDef{
				{"id", "INTEGER PRIMARY KEY AUTOINCREMENT"},
				{"provider_id", "INTEGER NOT NULL"},
				{"source_model", "TEXT NOT NULL"},
				{"target_model", "TEXT NOT NULL"},
				{"enabled", "INTEGER NOT NULL DEFAULT 1"},
			},
			extras: []string{"UNIQUE(provider_id, source_model)"},
		},
		{
			name: "timeout_settings",
			columns: []columnDef{
				{"id", "INTEGER PRIMARY KEY CHECK (id = 1)"},
				{"stream_first_byte_timeout", "INTEGER NOT NULL DEFAULT 30"},
				{"stream_idle_timeout", "INTEGER NOT NULL DEFAULT 60"},
				{"non_stream_timeout", "INTEGER NOT NULL DEFAULT 120"},
				{"updated_at", "INTEGER NOT NULL"},
			},
		},
		{
			name: "gateway_settings",
			columns: []columnDef{
				{"id", "INTEGER PRIMARY KEY CHECK (id = 1)"},
				{"debug_log", "INTEGER NOT NULL DEFAULT 0"},
				{"updated_at", "INTEGER NOT NULL"},
			},
		},
		{
			name: "cli_settings",
			columns: []columnDef{
				{"cli_type", "TEXT PRIMARY KEY"},
				{"config_dir", "TEXT"},
				{"updated_at", "INTEGER NOT NULL"},
			},
		},
		{
			name: "mcp_configs",
			columns: []columnDef{
				{"id", "INTEGER PRIMARY KEY AUTOINCREMENT"},
				{"name", "TEXT NOT NULL UNIQUE"},
				{"config_json", "TEXT NOT NULL"},
				{"enabled", "INTEGER NOT NULL DEFAULT 1"},
				{"created_at", "INTEGER NOT NULL"},
				{"updated_at", "INTEGER NOT NULL"},
			},
		},
		{
			name: "prompt_presets",
			columns: []columnDef{
				{"id", "INTEGER PRIMARY KEY AUTOINCREMENT"},
				{"name", "TEXT NOT NULL UNIQUE"},
				{"content", "TEXT NOT NULL"},
				{"created_at", "INTEGER NOT NULL"},
				{"updated_at", "INTEGER NOT NULL"},
			},
		},
		{
			name: "webdav_settings",
			columns: []columnDef{
				{"id", "INTEGER PRIMARY KEY CHECK (id = 1)"},
				{"url", "TEXT"},
				{"username", "TEXT"},
				{"password", "TEXT"},
				{"updated_at", "INTEGER NOT NULL"},
			},
		},
	}
}
