// Package store is the gateway's configuration store: providers and their
// model-mapping tables, timeout settings, and the operator-owned settings
// tables, all persisted in a single SQLite database.
//
// The store is read-mostly and write-serialized. Provider selection reads
// fresh on every request; there is no in-memory cache, because the database
// is local and hot. Health bookkeeping (consecutive-failure counters and
// blacklist expiry) mutates through single statements so concurrent
// requests cannot lose updates, and so exactly one caller observes each
// blacklist threshold crossing.
//
// Schema management is declarative: the expected table set is described in
// schema.go with a version integer. On open, missing tables are created
// and tables whose live column set diverges from the declaration are
// rebuilt by copy-through-rename, preserving the intersection of columns.
package store
