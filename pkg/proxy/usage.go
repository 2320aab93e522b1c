package proxy

import (
	"encoding/json"
	"strings"
)

// TokenUsage accumulates input/output token counts observed in upstream
// responses. For streaming responses the final observed value wins, since
// providers re-emit cumulative usage in the last frame.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// IsZero reports whether no usage has been observed yet.
func (u TokenUsage) IsZero() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0
}

// ParseTokenUsage extracts token counts from a JSON response blob into
// usage, leaving fields untouched when the corresponding key is absent.
//
// Per CLI type:
//   - Claude Code: message.usage, falling back to root usage, with
//     input_tokens / output_tokens.
//   - Codex: response.usage, falling back to root usage; the root form also
//     accepts prompt_tokens / completion_tokens as fallbacks.
//   - Gemini: usageMetadata.promptTokenCount as input; output is the sum of
//     candidatesTokenCount and thoughtsTokenCount.
func ParseTokenUsage(data []byte, cliType CliType, usage *TokenUsage) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}

	switch cliType {
	case CliClaudeCode:
		if msg := objectField(payload, "message"); msg != nil {
			if u := objectField(msg, "usage"); u != nil {
				readInt(u, "input_tokens", &usage.InputTokens)
				readInt(u, "output_tokens", &usage.OutputTokens)
				return
			}
		}
		if u := objectField(payload, "usage"); u != nil {
			readInt(u, "input_tokens", &usage.InputTokens)
			readInt(u, "output_tokens", &usage.OutputTokens)
		}

	case CliCodex:
		if resp := objectField(payload, "response"); resp != nil {
			if u := objectField(resp, "usage"); u != nil {
				readInt(u, "input_tokens", &usage.InputTokens)
				readInt(u, "output_tokens", &usage.OutputTokens)
				return
			}
		}
		if u := objectField(payload, "usage"); u != nil {
			if !readInt(u, "input_tokens", &usage.InputTokens) {
				readInt(u, "prompt_tokens", &usage.InputTokens)
			}
			if !readInt(u, "output_tokens", &usage.OutputTokens) {
				readInt(u, "completion_tokens", &usage.OutputTokens)
			}
		}

	case CliGemini:
		meta := objectField(payload, "usageMetadata")
		if meta == nil {
			return
		}
		readInt(meta, "promptTokenCount", &usage.InputTokens)

		var candidates, thoughts int64
		readInt(meta, "candidatesTokenCount", &candidates)
		readInt(meta, "thoughtsTokenCount", &thoughts)
		usage.OutputTokens = candidates + thoughts
	}
}

// ParseStreamingTokenUsage extracts token counts from a single SSE line.
// Lines without a data: prefix and the [DONE] terminator are ignored.
func ParseStreamingTokenUsage(line string, cliType CliType, usage *TokenUsage) {
	data, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return
	}
	data = strings.TrimPrefix(data, " ")

	if strings.TrimSpace(data) == "[DONE]" {
		return
	}

	ParseTokenUsage([]byte(data), cliType, usage)
}

// objectField unmarshals a nested JSON object field, returning nil when the
// field is absent or not an object.
func objectField(obj map[string]json.RawMessage, key string) map[string]json.RawMessage {
	raw, ok := obj[key]
	if !ok {
		return nil
	}

	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil
	}
	return nested
}

// readInt reads an integer field into dst, reporting whether the field was
// present and numeric.
func readInt(obj map[string]json.RawMessage, key string, dst *int64) bool {
	raw, ok := obj[key]
	if !ok {
		return false
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return false
	}
	*dst = n
	return true
}
