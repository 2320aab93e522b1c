// Package telemetry is the gateway's log store: one request-log row per
// terminated request, a daily usage aggregate keyed by (date, provider,
// CLI type), and a leveled system-event log for operational transitions.
//
// The store lives in its own SQLite database, separate from the
// configuration store, so heavy request logging never contends with the
// provider-selection path. Writes on the request path are best-effort by
// contract: callers log and swallow failures rather than surfacing them to
// the client.
//
// A cron-driven Pruner bounds the store by age and row count.
package telemetry
