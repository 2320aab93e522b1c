package gateway

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"ccg-hq/gateway/pkg/proxy"
	"ccg-hq/gateway/pkg/store"
	"ccg-hq/gateway/pkg/telemetry"
)

// recordTimeout bounds the health and telemetry writes that follow a
// terminated request. They run on a fresh context: the request context may
// already be cancelled by a disconnected caller.
const recordTimeout = 5 * time.Second

// finish emits the request log row, the daily usage upsert, and the
// prometheus sample for one terminated request. Telemetry failures are
// logged and swallowed; they never surface to the caller.
func (h *Handler) finish(rs *requestState, statusCode *int, usage proxy.TokenUsage, errMsg, respHeaders, respBody string) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	elapsed := time.Since(rs.start)

	rec := telemetry.RequestRecord{
		CliType:         rs.cliType.String(),
		ProviderName:    rs.provider.Name,
		ModelID:         rs.modelID,
		StatusCode:      statusCode,
		ElapsedMs:       elapsed.Milliseconds(),
		InputTokens:     usage.InputTokens,
		OutputTokens:    usage.OutputTokens,
		ClientMethod:    rs.method,
		ClientPath:      rs.path,
		ClientHeaders:   rs.clientHeaders,
		ClientBody:      rs.clientBody,
		ForwardURL:      rs.forwardURL,
		ForwardHeaders:  rs.forwardHeaders,
		ForwardBody:     rs.forwardBody,
		ResponseHeaders: respHeaders,
		ResponseBody:    respBody,
		ErrorMessage:    errMsg,
	}

	if err := h.telemetry.RecordRequest(ctx, rec); err != nil {
		h.logger.Error("failed to record request", "provider", rs.provider.Name, "error", err)
	}

	if h.metrics != nil {
		h.metrics.RecordRequest(rs.provider.Name, rec.CliType,
			statusLabel(statusCode, errMsg, rs.provider.Name), elapsed,
			usage.InputTokens, usage.OutputTokens)
	}
}

// statusLabel classifies an outcome for the metrics counter.
func statusLabel(statusCode *int, errMsg, providerName string) string {
	switch {
	case providerName == "":
		return "no_provider"
	case strings.Contains(errMsg, "timeout"), strings.Contains(errMsg, "Timeout"):
		return "timeout"
	case errMsg != "":
		return "upstream_error"
	case statusCode != nil && *statusCode >= 200 && *statusCode < 300:
		return "success"
	default:
		return "http_error"
	}
}

// recordEvent writes a system event, logging and swallowing failures.
func (h *Handler) recordEvent(level, eventType, message, providerName, details string) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := h.telemetry.RecordEvent(ctx, level, eventType, message, providerName, details); err != nil {
		h.logger.Error("failed to record system event", "event_type", eventType, "error", err)
	}
}

// healthSuccess resets the provider's failure counter and emits a
// recovery event on the first success after any failure.
func (h *Handler) healthSuccess(p store.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	hadFailures, err := h.store.RecordSuccess(ctx, p.ID)
	if err != nil {
		h.logger.Error("failed to record provider success", "provider", p.Name, "error", err)
		return
	}

	if hadFailures {
		h.recordEvent("info", telemetry.EventProviderRecovered,
			fmt.Sprintf("Provider %s recovered successfully", p.Name), p.Name, "")
	}
}

// healthFailure increments the provider's failure counter and emits the
// blacklist event exactly on the threshold-crossing call.
func (h *Handler) healthFailure(p store.Provider, detail string) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	wasBlacklisted, name, err := h.store.RecordFailure(ctx, p.ID)
	if err != nil {
		h.logger.Error("failed to record provider failure", "provider", p.Name, "error", err)
		return
	}

	if wasBlacklisted {
		h.logger.Warn("provider blacklisted", "provider", name)
		h.recordEvent("warn", telemetry.EventProviderBlacklisted,
			fmt.Sprintf("Provider %s blacklisted due to consecutive failures", name),
			name, errorDetails(detail))
	}
}

// recordByStatus applies the success/failure health transition for a
// response that carried an HTTP status.
func (h *Handler) recordByStatus(rs *requestState, statusCode int, errMsg string) {
	if statusCode >= 200 && statusCode < 300 && errMsg == "" {
		h.healthSuccess(rs.provider)
	} else {
		detail := errMsg
		if detail == "" {
			detail = fmt.Sprintf("HTTP %d", statusCode)
		}
		h.healthFailure(rs.provider, detail)
	}
}

// errorDetails renders a detail blob for system events.
func errorDetails(msg string) string {
	if msg == "" {
		return ""
	}
	return fmt.Sprintf("{\"error\": %q}", msg)
}

// maybeDecompress gunzips a body for inspection when the response declared
// gzip encoding. The original bytes stay untouched for forwarding; the
// decompressed form is used only for logging and token accounting.
func maybeDecompress(body []byte, contentEncoding string) []byte {
	if !strings.Contains(strings.ToLower(contentEncoding), "gzip") {
		return body
	}

	reader, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return body
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return body
	}
	return decompressed
}
