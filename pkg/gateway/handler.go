package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ccg-hq/gateway/pkg/metrics"
	"ccg-hq/gateway/pkg/proxy"
	"ccg-hq/gateway/pkg/store"
	"ccg-hq/gateway/pkg/telemetry"
)

// maxInboundBody caps the inbound request body, bounding memory before
// any upstream interaction.
const maxInboundBody = 10 * 1024 * 1024

// providerHeader is emitted on every proxied response for observability.
const providerHeader = "X-CCG-Provider"

// Handler is the catch-all proxy handler.
type Handler struct {
	store     *store.Store
	telemetry *telemetry.Telemetry
	metrics   *metrics.RequestMetrics
	client    *http.Client
	logger    *slog.Logger
}

// NewHandler creates the proxy handler with a pooled upstream transport.
func NewHandler(st *store.Store, tel *telemetry.Telemetry, rm *metrics.RequestMetrics) *Handler {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
		// The gateway forwards upstream bytes verbatim, including
		// gzip-encoded bodies; the transport must never decode them.
		DisableCompression: true,
	}

	return &Handler{
		store:     st,
		telemetry: tel,
		metrics:   rm,
		// Deadlines are layered per request; no client-wide timeout.
		client: &http.Client{Transport: transport},
		logger: slog.Default().With("component", "gateway"),
	}
}

// requestState carries everything the forwarding and recording paths need
// about one in-flight request.
type requestState struct {
	start    time.Time
	cliType  proxy.CliType
	provider store.Provider
	modelID  string
	method   string
	path     string
	timeouts proxy.TimeoutConfig

	clientHeaders  string
	clientBody     string
	forwardURL     string
	forwardHeaders string
	forwardBody    string
}

// ServeHTTP proxies one request end to end.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	fullPath := r.URL.RequestURI()
	cliType := proxy.DetectCliType(r.Header.Get("User-Agent"))

	rs := &requestState{
		start:         start,
		cliType:       cliType,
		method:        r.Method,
		path:          fullPath,
		clientHeaders: serializeHeaders(r.Header),
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxInboundBody+1))
	if err != nil {
		h.logger.Error("failed to read request body", "error", err)
		h.finish(rs, nil, proxy.TokenUsage{}, "Failed to read request body", "", "")
		writeJSONError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(body) > maxInboundBody {
		h.logger.Warn("request body too large", "cli_type", cliType.String(), "path", fullPath)
		rs.clientBody = "[body too large]"
		h.finish(rs, nil, proxy.TokenUsage{}, "Request body too large", "", "")
		writeJSONError(w, http.StatusBadRequest, "Request body too large")
		return
	}
	rs.clientBody = proxy.TruncateBody(body)

	ctx := r.Context()

	picked, err := h.store.SelectProvider(ctx, cliType.String())
	if err != nil {
		h.logger.Error("failed to select provider", "cli_type", cliType.String(), "error", err)
		h.finish(rs, nil, proxy.TokenUsage{}, "Provider selection failed", "", "")
		writeJSONError(w, http.StatusInternalServerError, "Provider selection failed")
		return
	}
	if picked == nil {
		h.logger.Warn("no available provider", "cli_type", cliType.String())
		h.recordEvent("warn", telemetry.EventNoProviderAvailable,
			fmt.Sprintf("No available provider for CLI type: %s", cliType), "", "")
		h.finish(rs, nil, proxy.TokenUsage{}, "No available provider configured", "", "")
		writeJSONError(w, http.StatusServiceUnavailable, "No available provider configured")
		return
	}
	rs.provider = picked.Provider

	rs.timeouts = h.loadTimeouts(ctx)

	streaming := proxy.IsStreaming(body, fullPath, cliType)

	rules := make([]proxy.ModelRule, 0, len(picked.ModelMaps))
	for _, m := range picked.ModelMaps {
		rules = append(rules, proxy.ModelRule{SourceModel: m.SourceModel, TargetModel: m.TargetModel})
	}

	var mapping proxy.MappingResult
	if cliType == proxy.CliGemini {
		mapping = proxy.ApplyURLModelMapping(fullPath, rules)
		mapping.Body = body
	} else {
		mapping = proxy.ApplyBodyModelMapping(body, fullPath, rules)
	}
	rs.modelID = mapping.ModelID()

	rs.forwardURL = proxy.BuildUpstreamURL(picked.BaseURL, mapping.Path)

	headers := proxy.FilterHeaders(r.Header)
	proxy.SetAuthHeader(headers, picked.APIKey, cliType)
	if headers.Get("Content-Type") == "" {
		headers.Set("Content-Type", "application/json")
	}

	rs.forwardHeaders = serializeHeaders(headers)
	rs.forwardBody = proxy.TruncateBody(mapping.Body)

	h.logger.Debug("forwarding request",
		"cli_type", cliType.String(),
		"provider", picked.Name,
		"model", rs.modelID,
		"url", rs.forwardURL,
		"streaming", streaming,
	)

	if streaming {
		h.forwardStreaming(w, r, rs, mapping.Body, headers)
	} else {
		h.forwardBuffered(w, r, rs, mapping.Body, headers)
	}
}

// loadTimeouts reads the timeout settings, falling back to defaults when
// the row is unreadable.
func (h *Handler) loadTimeouts(ctx context.Context) proxy.TimeoutConfig {
	ts, err := h.store.GetTimeouts(ctx)
	if err != nil {
		h.logger.Warn("failed to load timeout settings, using defaults", "error", err)
		return proxy.DefaultTimeouts()
	}
	return proxy.TimeoutsFromSeconds(ts.StreamFirstByteTimeout, ts.StreamIdleTimeout, ts.NonStreamTimeout)
}

// newUpstreamRequest builds the outbound request with the rewritten body
// and filtered headers.
func (h *Handler) newUpstreamRequest(ctx context.Context, rs *requestState, method string, body []byte, headers http.Header) (*http.Request, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rs.forwardURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.Header = headers

	return req, nil
}

// copyResponseHeaders writes the upstream status and headers to the
// caller, plus the provider observability header.
func copyResponseHeaders(w http.ResponseWriter, resp *http.Response, providerName string) {
	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.Header().Set(providerHeader, providerName)
	w.WriteHeader(resp.StatusCode)
}

// serializeHeaders renders headers as a JSON object with lowercase names
// for the request log.
func serializeHeaders(headers http.Header) string {
	m := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) > 0 {
			m[strings.ToLower(name)] = values[0]
		}
	}

	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(data)
}

// writeJSONError replies with a JSON error body of the form the CLIs
// expect from the gateway itself.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
