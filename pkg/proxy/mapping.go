package proxy

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ModelRule rewrites a source model identifier to a target identifier.
// Rules are evaluated in the order supplied; the first match wins.
type ModelRule struct {
	SourceModel string
	TargetModel string
}

// MappingResult carries the outcome of model mapping: the (possibly
// rewritten) body and path, plus the source and target model identifiers
// when they could be determined. TargetModel is empty when no rule fired.
type MappingResult struct {
	Body        []byte
	Path        string
	SourceModel string
	TargetModel string
}

// ModelID returns the identifier to surface in telemetry: the target if a
// rule fired, else the source. Empty when neither could be extracted.
func (r MappingResult) ModelID() string {
	if r.TargetModel != "" {
		return r.TargetModel
	}
	return r.SourceModel
}

// geminiModelPattern captures the model token in Gemini request paths,
// e.g. /v1beta/models/gemini-pro:generateContent.
var geminiModelPattern = regexp.MustCompile(`/models/([^/:]+)`)

// ApplyBodyModelMapping applies model mapping for body-based wire formats
// (Claude Code, Codex). The model identifier lives at the JSON key "model";
// when a rule matches, the value is replaced and the body re-serialized.
// A body that does not parse, or has no model key, passes through unchanged.
func ApplyBodyModelMapping(body []byte, path string, rules []ModelRule) MappingResult {
	result := MappingResult{Body: body, Path: path}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return result
	}

	model, ok := payload["model"].(string)
	if !ok || model == "" {
		return result
	}

	result.SourceModel = model

	for _, rule := range rules {
		if !wildcardMatch(rule.SourceModel, model) {
			continue
		}

		result.TargetModel = rule.TargetModel
		payload["model"] = rule.TargetModel

		if rewritten, err := json.Marshal(payload); err == nil {
			result.Body = rewritten
		}
		break
	}

	return result
}

// ApplyURLModelMapping applies model mapping for URL-based wire formats
// (Gemini). The model identifier is extracted from the path segment
// /models/<token>; when a rule matches, the segment is substituted in the
// path and the body is left untouched.
func ApplyURLModelMapping(path string, rules []ModelRule) MappingResult {
	result := MappingResult{Path: path}

	caps := geminiModelPattern.FindStringSubmatch(path)
	if caps == nil || caps[1] == "" {
		return result
	}

	source := caps[1]
	result.SourceModel = source

	for _, rule := range rules {
		if !wildcardMatch(rule.SourceModel, source) {
			continue
		}

		result.TargetModel = rule.TargetModel
		result.Path = strings.Replace(path, "/models/"+source, "/models/"+rule.TargetModel, 1)
		break
	}

	return result
}
