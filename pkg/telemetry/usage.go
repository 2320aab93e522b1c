package telemetry

import (
	"context"
	"fmt"
	"time"
)

// DailyStats returns usage rows for the last days days (including today),
// newest first.
func (t *Telemetry) DailyStats(ctx context.Context, days int) ([]DailyStat, error) {
	if days < 1 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	rows, err := t.db.QueryContext(ctx, `
		SELECT usage_date, provider_name, cli_type,
			request_count, success_count, failure_count, input_tokens, output_tokens
		FROM usage_daily
		WHERE usage_date >= ?
		ORDER BY usage_date DESC, provider_name, cli_type`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStat
	for rows.Next() {
		var s DailyStat
		if err := rows.Scan(&s.UsageDate, &s.ProviderName, &s.CliType,
			&s.RequestCount, &s.SuccessCount, &s.FailureCount,
			&s.InputTokens, &s.OutputTokens); err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// ProviderStats aggregates usage across all dates per (provider, CLI type).
func (t *Telemetry) ProviderStats(ctx context.Context) ([]ProviderStat, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT provider_name, cli_type,
			SUM(request_count), SUM(success_count), SUM(failure_count),
			SUM(input_tokens), SUM(output_tokens)
		FROM usage_daily
		GROUP BY provider_name, cli_type
		ORDER BY SUM(request_count) DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query provider stats: %w", err)
	}
	defer rows.Close()

	var stats []ProviderStat
	for rows.Next() {
		var s ProviderStat
		if err := rows.Scan(&s.ProviderName, &s.CliType,
			&s.RequestCount, &s.SuccessCount, &s.FailureCount,
			&s.InputTokens, &s.OutputTokens); err != nil {
			return nil, fmt.Errorf("failed to scan provider stat: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// TodayTotals sums today's usage across every provider and CLI type, for
// the system-status endpoint.
func (t *Telemetry) TodayTotals(ctx context.Context) (DailyStat, error) {
	total := DailyStat{UsageDate: today()}

	err := t.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(request_count), 0), COALESCE(SUM(success_count), 0),
			COALESCE(SUM(failure_count), 0), COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0)
		FROM usage_daily WHERE usage_date = ?`, total.UsageDate).
		Scan(&total.RequestCount, &total.SuccessCount, &total.FailureCount,
			&total.InputTokens, &total.OutputTokens)
	if err != nil {
		return total, fmt.Errorf("failed to sum today's usage: %w", err)
	}

	return total, nil
}
