package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RecordRequest persists one terminated request: a request_logs row and
// the matching usage_daily upsert. Both writes are attempted even if one
// fails; the combined error is returned for the caller to log.
func (t *Telemetry) RecordRequest(ctx context.Context, rec RequestRecord) error {
	var logErr, usageErr error

	_, logErr = t.db.ExecContext(ctx, `
		INSERT INTO request_logs (created_at, cli_type, provider_name, model_id,
			status_code, elapsed_ms, input_tokens, output_tokens,
			client_method, client_path, client_headers, client_body,
			forward_url, forward_headers, forward_body,
			response_headers, response_body, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		now(), rec.CliType, nullable(rec.ProviderName), nullable(rec.ModelID),
		nullableInt(rec.StatusCode), rec.ElapsedMs, rec.InputTokens, rec.OutputTokens,
		rec.ClientMethod, rec.ClientPath, nullable(rec.ClientHeaders), nullable(rec.ClientBody),
		nullable(rec.ForwardURL), nullable(rec.ForwardHeaders), nullable(rec.ForwardBody),
		nullable(rec.ResponseHeaders), nullable(rec.ResponseBody), nullable(rec.ErrorMessage))
	if logErr != nil {
		logErr = fmt.Errorf("failed to insert request log: %w", logErr)
	}

	success, failure := int64(0), int64(1)
	if rec.Success() {
		success, failure = 1, 0
	}

	_, usageErr = t.db.ExecContext(ctx, `
		INSERT INTO usage_daily (usage_date, provider_name, cli_type,
			request_count, success_count, failure_count, input_tokens, output_tokens)
		VALUES (?, ?, ?, 1, ?, ?, ?, ?)
		ON CONFLICT(usage_date, provider_name, cli_type) DO UPDATE SET
			request_count = request_count + 1,
			success_count = success_count + excluded.success_count,
			failure_count = failure_count + excluded.failure_count,
			input_tokens = input_tokens + excluded.input_tokens,
			output_tokens = output_tokens + excluded.output_tokens`,
		today(), rec.ProviderName, rec.CliType,
		success, failure, rec.InputTokens, rec.OutputTokens)
	if usageErr != nil {
		usageErr = fmt.Errorf("failed to upsert daily usage: %w", usageErr)
	}

	return errors.Join(logErr, usageErr)
}

// ListRequestLogs returns one page of request logs, newest first.
func (t *Telemetry) ListRequestLogs(ctx context.Context, page, pageSize int64) (PaginatedLogs, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	result := PaginatedLogs{Page: page, PageSize: pageSize}

	if err := t.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM request_logs").Scan(&result.Total); err != nil {
		return result, fmt.Errorf("failed to count request logs: %w", err)
	}

	rows, err := t.db.QueryContext(ctx, `
		SELECT id, created_at, cli_type, COALESCE(provider_name, ''), COALESCE(model_id, ''),
			status_code, elapsed_ms, input_tokens, output_tokens,
			client_method, client_path, COALESCE(error_message, '')
		FROM request_logs
		ORDER BY id DESC
		LIMIT ? OFFSET ?`,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return result, fmt.Errorf("failed to list request logs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item RequestLogItem
		if err := rows.Scan(&item.ID, &item.CreatedAt, &item.CliType, &item.ProviderName,
			&item.ModelID, &item.StatusCode, &item.ElapsedMs,
			&item.InputTokens, &item.OutputTokens,
			&item.ClientMethod, &item.ClientPath, &item.ErrorMessage); err != nil {
			return result, fmt.Errorf("failed to scan request log: %w", err)
		}
		result.Items = append(result.Items, item)
	}

	return result, rows.Err()
}

// ErrNotFound is returned for a missing log row.
var ErrNotFound = errors.New("telemetry: record not found")

// GetRequestLog fetches one request log with its stored header and body
// copies.
func (t *Telemetry) GetRequestLog(ctx context.Context, id int64) (*RequestLogDetail, error) {
	var d RequestLogDetail
	err := t.db.QueryRowContext(ctx, `
		SELECT id, created_at, cli_type, COALESCE(provider_name, ''), COALESCE(model_id, ''),
			status_code, elapsed_ms, input_tokens, output_tokens,
			client_method, client_path, COALESCE(error_message, ''),
			COALESCE(client_headers, ''), COALESCE(client_body, ''),
			COALESCE(forward_url, ''), COALESCE(forward_headers, ''), COALESCE(forward_body, ''),
			COALESCE(response_headers, ''), COALESCE(response_body, '')
		FROM request_logs WHERE id = ?`, id).
		Scan(&d.ID, &d.CreatedAt, &d.CliType, &d.ProviderName, &d.ModelID,
			&d.StatusCode, &d.ElapsedMs, &d.InputTokens, &d.OutputTokens,
			&d.ClientMethod, &d.ClientPath, &d.ErrorMessage,
			&d.ClientHeaders, &d.ClientBody,
			&d.ForwardURL, &d.ForwardHeaders, &d.ForwardBody,
			&d.ResponseHeaders, &d.ResponseBody)
	switch {
	case err == sql.ErrNoRows:
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get request log %d: %w", id, err)
	}

	return &d, nil
}

// ClearRequestLogs deletes every request log row, returning the count.
func (t *Telemetry) ClearRequestLogs(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx, "DELETE FROM request_logs")
	if err != nil {
		return 0, fmt.Errorf("failed to clear request logs: %w", err)
	}
	return res.RowsAffected()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
