package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ccg-hq/gateway/pkg/proxy"
)

// streamCollectLimit bounds the collector buffer used for post-stream
// logging and the token-usage fallback parse.
const streamCollectLimit = 100 * 1024

// idleTimeoutFrame is the synthesized SSE terminator written to the caller
// when the upstream stalls mid-stream.
const idleTimeoutFrame = "event: error\ndata: {\"error\": \"Stream idle timeout\"}\n\n"

// forwardStreaming executes the upstream call under the first-byte
// deadline, then pumps chunks to the caller at chunk granularity. Each
// loop iteration races the next upstream chunk against the idle timer and
// caller disconnect. Chunks are scanned for SSE usage frames on the way
// through; if the stream ends with usage still unseen, the collector
// buffer is reparsed as a whole, which catches usage JSON that straddled
// chunk boundaries.
func (h *Handler) forwardStreaming(w http.ResponseWriter, r *http.Request, rs *requestState, body []byte, headers http.Header) {
	upCtx, cancel := context.WithCancel(r.Context())
	defer cancel()

	req, err := h.newUpstreamRequest(upCtx, rs, r.Method, body, headers)
	if err != nil {
		h.logger.Error("failed to build upstream request", "error", err)
		h.finish(rs, nil, proxy.TokenUsage{}, "Failed to build upstream request", "", "")
		writeJSONError(w, http.StatusInternalServerError, "Failed to build upstream request")
		return
	}

	type doResult struct {
		resp *http.Response
		err  error
	}
	resCh := make(chan doResult, 1)
	go func() {
		resp, err := h.client.Do(req)
		resCh <- doResult{resp: resp, err: err}
	}()

	firstByte := time.NewTimer(rs.timeouts.FirstByte)
	defer firstByte.Stop()

	var resp *http.Response
	select {
	case res := <-resCh:
		if res.err != nil {
			h.logger.Error("upstream request failed", "provider", rs.provider.Name, "error", res.err)
			msg := fmt.Sprintf("Upstream error: %v", res.err)
			h.healthFailure(rs.provider, msg)
			h.finish(rs, nil, proxy.TokenUsage{}, msg, "", "")
			writeJSONError(w, http.StatusBadGateway, msg)
			return
		}
		resp = res.resp

	case <-firstByte.C:
		h.logger.Error("first byte timeout", "provider", rs.provider.Name, "url", rs.forwardURL)
		cancel()
		// Reap the in-flight call so its response body is not leaked.
		go func() {
			if res := <-resCh; res.resp != nil {
				res.resp.Body.Close()
			}
		}()
		h.healthFailure(rs.provider, "First byte timeout")
		h.finish(rs, nil, proxy.TokenUsage{}, "First byte timeout", "", "")
		writeJSONError(w, http.StatusGatewayTimeout, "First byte timeout")
		return
	}
	defer resp.Body.Close()

	statusCode := resp.StatusCode
	respHeaders := serializeHeaders(resp.Header)
	contentEncoding := resp.Header.Get("Content-Encoding")

	copyResponseHeaders(w, resp, rs.provider.Name)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	type chunkResult struct {
		data []byte
		err  error
	}
	chunks := make(chan chunkResult)
	pumpDone := make(chan struct{})
	defer close(pumpDone)

	go func() {
		buf := make([]byte, 32*1024)
		for {
			n, err := resp.Body.Read(buf)
			var data []byte
			if n > 0 {
				data = append([]byte(nil), buf[:n]...)
			}
			select {
			case chunks <- chunkResult{data: data, err: err}:
			case <-pumpDone:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var (
		usage      proxy.TokenUsage
		collected  []byte
		errMsg     string
		clientGone bool
	)

	idle := time.NewTimer(rs.timeouts.Idle)
	defer idle.Stop()

loop:
	for {
		select {
		case res := <-chunks:
			if len(res.data) > 0 {
				scanChunkForUsage(res.data, rs.cliType, &usage)
				if len(collected) < streamCollectLimit {
					collected = append(collected, res.data...)
				}

				if _, werr := w.Write(res.data); werr != nil {
					h.logger.Warn("caller write failed mid-stream", "provider", rs.provider.Name, "error", werr)
					errMsg = "Client disconnected"
					clientGone = true
					cancel()
					break loop
				}
				if flusher != nil {
					flusher.Flush()
				}
			}

			if res.err != nil {
				if res.err != io.EOF {
					h.logger.Error("stream error", "provider", rs.provider.Name, "error", res.err)
					errMsg = fmt.Sprintf("Stream error: %v", res.err)
				}
				break loop
			}

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(rs.timeouts.Idle)

		case <-idle.C:
			h.logger.Warn("stream idle timeout", "provider", rs.provider.Name)
			errMsg = "Stream idle timeout"
			if _, werr := io.WriteString(w, idleTimeoutFrame); werr == nil && flusher != nil {
				flusher.Flush()
			}
			cancel()
			break loop

		case <-r.Context().Done():
			h.logger.Debug("caller disconnected mid-stream", "provider", rs.provider.Name)
			errMsg = "Client disconnected"
			clientGone = true
			cancel()
			break loop
		}
	}

	// Last-resort usage parse over the whole collected body, decompressed
	// if the response declared gzip.
	if usage.IsZero() && len(collected) > 0 {
		proxy.ParseTokenUsage(maybeDecompress(collected, contentEncoding), rs.cliType, &usage)
	}

	// A caller disconnect says nothing about upstream health; everything
	// else (idle timeout, stream error, non-2xx) counts against the
	// provider.
	if clientGone {
		h.recordByStatus(rs, statusCode, "")
	} else {
		h.recordByStatus(rs, statusCode, errMsg)
	}

	h.finish(rs, &statusCode, usage, errMsg, respHeaders,
		proxy.TruncateBody(maybeDecompress(collected, contentEncoding)))
}

// scanChunkForUsage feeds each data: line of a chunk to the streaming
// usage parser. Frames that straddle chunk boundaries are handled by the
// collector fallback after the stream ends.
func scanChunkForUsage(chunk []byte, cliType proxy.CliType, usage *proxy.TokenUsage) {
	for _, line := range strings.Split(string(chunk), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, "data:") {
			proxy.ParseStreamingTokenUsage(line, cliType, usage)
		}
	}
}
