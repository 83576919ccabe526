// Package llmjson decodes JSON out of untrusted LLM output. Responses are
// treated as arbitrary strings: markdown fences are stripped, the outermost
// object is located by brace scan, and a parse failure yields the caller's
// fallback value instead of an error.
package llmjson

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// Clean strips markdown fences and extracts the outermost JSON object.
func Clean(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// ParseOrDefault cleans raw and unmarshals it into T. On any parse failure it
// logs at debug level and returns fallback unchanged.
func ParseOrDefault[T any](raw string, fallback T) T {
	cleaned := Clean(raw)
	if cleaned == "" {
		return fallback
	}

	var out T
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		zap.L().Debug("llmjson: parse failed, using fallback",
			zap.Error(err),
			zap.Int("raw_len", len(raw)),
		)
		return fallback
	}
	return out
}

// Parse cleans raw and unmarshals it into out, reporting whether it succeeded.
func Parse(raw string, out any) bool {
	cleaned := Clean(raw)
	if cleaned == "" {
		return false
	}
	return json.Unmarshal([]byte(cleaned), out) == nil
}
