package store

import (
	"context"
	"fmt"
)

// GetTimeouts reads the singleton timeout row.
func (s *Store) GetTimeouts(ctx context.Context) (TimeoutSettings, error) {
	var ts TimeoutSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT stream_first_byte_timeout, stream_idle_timeout, non_stream_timeout, updated_at
		FROM timeout_settings WHERE id = 1`).
		Scan(&ts.StreamFirstByteTimeout, &ts.StreamIdleTimeout, &ts.NonStreamTimeout, &ts.UpdatedAt)
	if err != nil {
		return TimeoutSettings{}, fmt.Errorf("failed to read timeout settings: %w", err)
	}
	return ts, nil
}

// UpdateTimeouts replaces the singleton timeout row's values.
func (s *Store) UpdateTimeouts(ctx context.Context, ts TimeoutSettings) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE timeout_settings
		SET stream_first_byte_timeout = ?, stream_idle_timeout = ?, non_stream_timeout = ?, updated_at = ?
		WHERE id = 1`,
		ts.StreamFirstByteTimeout, ts.StreamIdleTimeout, ts.NonStreamTimeout, now())
	if err != nil {
		return fmt.Errorf("failed to update timeout settings: %w", err)
	}
	return nil
}

// GetGatewaySettings reads the singleton gateway-settings row.
func (s *Store) GetGatewaySettings(ctx context.Context) (GatewaySettings, error) {
	var gs GatewaySettings
	var debugLog int64
	err := s.db.QueryRowContext(ctx,
		"SELECT debug_log, updated_at FROM gateway_settings WHERE id = 1").
		Scan(&debugLog, &gs.UpdatedAt)
	if err != nil {
		return GatewaySettings{}, fmt.Errorf("failed to read gateway settings: %w", err)
	}
	gs.DebugLog = debugLog != 0
	return gs, nil
}

// UpdateGatewaySettings replaces the singleton gateway-settings row.
func (s *Store) UpdateGatewaySettings(ctx context.Context, gs GatewaySettings) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE gateway_settings SET debug_log = ?, updated_at = ? WHERE id = 1",
		boolToInt(gs.DebugLog), now())
	if err != nil {
		return fmt.Errorf("failed to update gateway settings: %w", err)
	}
	return nil
}
