package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ccg-hq/gateway/pkg/proxy"
)

// forwardBuffered executes the upstream call under the total non-stream
// deadline, reads the entire response, inspects it for token usage, and
// copies status, headers, and body to the caller.
func (h *Handler) forwardBuffered(w http.ResponseWriter, r *http.Request, rs *requestState, body []byte, headers http.Header) {
	ctx, cancel := context.WithTimeout(r.Context(), rs.timeouts.NonStream)
	defer cancel()

	req, err := h.newUpstreamRequest(ctx, rs, r.Method, body, headers)
	if err != nil {
		h.logger.Error("failed to build upstream request", "error", err)
		h.finish(rs, nil, proxy.TokenUsage{}, "Failed to build upstream request", "", "")
		writeJSONError(w, http.StatusInternalServerError, "Failed to build upstream request")
		return
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			h.logger.Error("request timeout", "provider", rs.provider.Name, "url", rs.forwardURL)
			h.healthFailure(rs.provider, "Request timeout")
			h.finish(rs, nil, proxy.TokenUsage{}, "Request timeout", "", "")
			writeJSONError(w, http.StatusGatewayTimeout, "Request timeout")
			return
		}

		h.logger.Error("upstream request failed", "provider", rs.provider.Name, "error", err)
		msg := fmt.Sprintf("Upstream error: %v", err)
		h.healthFailure(rs.provider, msg)
		h.finish(rs, nil, proxy.TokenUsage{}, msg, "", "")
		writeJSONError(w, http.StatusBadGateway, msg)
		return
	}
	defer resp.Body.Close()

	statusCode := resp.StatusCode
	respHeaders := serializeHeaders(resp.Header)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		h.logger.Error("failed to read response body", "provider", rs.provider.Name, "error", err)
		msg := fmt.Sprintf("Failed to read response body: %v", err)
		h.healthFailure(rs.provider, msg)
		h.finish(rs, &statusCode, proxy.TokenUsage{}, msg, respHeaders, "")
		writeJSONError(w, http.StatusBadGateway, msg)
		return
	}

	// Inspect the decompressed form; forward the original bytes verbatim.
	inspectable := maybeDecompress(respBody, resp.Header.Get("Content-Encoding"))

	var usage proxy.TokenUsage
	proxy.ParseTokenUsage(inspectable, rs.cliType, &usage)

	h.recordByStatus(rs, statusCode, "")
	h.finish(rs, &statusCode, usage, "", respHeaders, proxy.TruncateBody(inspectable))

	copyResponseHeaders(w, resp, rs.provider.Name)
	if _, err := w.Write(respBody); err != nil {
		h.logger.Debug("failed to write response to caller", "error", err)
	}
}
