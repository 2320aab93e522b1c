package proxy

import (
	"net/http"
	"strings"
)

// hopByHopHeaders are meaningful only to a single transport connection and
// must not be forwarded upstream.
var hopByHopHeaders = map[string]struct{}{
	"host":                {},
	"connection":          {},
	"keep-alive":          {},
	"transfer-encoding":   {},
	"te":                  {},
	"trailer":             {},
	"upgrade":             {},
	"content-length":      {},
	"proxy-connection":    {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
}

// FilterHeaders returns a copy of headers with every hop-by-hop header
// removed, matched case-insensitively. All other headers are preserved
// verbatim, including multiple values. The operation is idempotent.
func FilterHeaders(headers http.Header) http.Header {
	filtered := make(http.Header, len(headers))

	for name, values := range headers {
		if _, drop := hopByHopHeaders[strings.ToLower(name)]; drop {
			continue
		}
		for _, v := range values {
			filtered.Add(name, v)
		}
	}

	return filtered
}

// SetAuthHeader installs the provider credential in the header the
// upstream expects for the given CLI type: Authorization: Bearer for
// Claude Code and Codex, x-goog-api-key for Gemini.
func SetAuthHeader(headers http.Header, apiKey string, cliType CliType) {
	switch cliType {
	case CliGemini:
		headers.Set("x-goog-api-key", apiKey)
	default:
		headers.Set("Authorization", "Bearer "+apiKey)
	}
}

// BuildUpstreamURL joins a provider base URL and a request path (which may
// carry a query string). Any trailing slash on the base is stripped so the
// path concatenates cleanly.
func BuildUpstreamURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

// logBodyLimit caps the size of request/response bodies stored in the
// request log. The wire forward is never truncated.
const logBodyLimit = 100 * 1024

// TruncateBody renders a body for logging, truncating anything over 100 KiB
// with a marker suffix.
func TruncateBody(body []byte) string {
	if len(body) > logBodyLimit {
		return string(body[:logBodyLimit]) + "...[truncated]"
	}
	return string(body)
}
