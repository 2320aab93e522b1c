package telemetry

import (
	"context"
	"fmt"
)

// Event types written by the gateway. Events record transitions, not
// steady state: a blacklist event fires once per threshold crossing and a
// recovery event once per first-success-after-failure.
const (
	EventNoProviderAvailable = "no_provider_available"
	EventProviderBlacklisted = "provider_blacklisted"
	EventProviderRecovered   = "provider_recovered"
	EventProviderReset       = "provider_reset"
	EventGatewayStarted      = "gateway_started"
)

// RecordEvent writes one system-log row. providerName and details may be
// empty.
func (t *Telemetry) RecordEvent(ctx context.Context, level, eventType, message, providerName, details string) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO system_logs (created_at, level, event_type, message, provider_name, details)
		VALUES (?, ?, ?, ?, ?, ?)`,
		now(), level, eventType, message, nullable(providerName), nullable(details))
	if err != nil {
		return fmt.Errorf("failed to record system event: %w", err)
	}
	return nil
}

// ListSystemEvents returns up to limit events, newest first, optionally
// filtered by level and/or event type.
func (t *Telemetry) ListSystemEvents(ctx context.Context, level, eventType string, limit int64) ([]SystemEvent, error) {
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	query := `SELECT id, created_at, level, event_type, message,
		COALESCE(provider_name, ''), COALESCE(details, '') FROM system_logs`
	var conds []string
	var args []any

	if level != "" {
		conds = append(conds, "level = ?")
		args = append(args, level)
	}
	if eventType != "" {
		conds = append(conds, "event_type = ?")
		args = append(args, eventType)
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list system events: %w", err)
	}
	defer rows.Close()

	var events []SystemEvent
	for rows.Next() {
		var ev SystemEvent
		if err := rows.Scan(&ev.ID, &ev.CreatedAt, &ev.Level, &ev.EventType,
			&ev.Message, &ev.ProviderName, &ev.Details); err != nil {
			return nil, fmt.Errorf("failed to scan system event: %w", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// ClearSystemEvents deletes every system-log row, returning the count.
func (t *Telemetry) ClearSystemEvents(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx, "DELETE FROM system_logs")
	if err != nil {
		return 0, fmt.Errorf("failed to clear system events: %w", err)
	}
	return res.RowsAffected()
}
