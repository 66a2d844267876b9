package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

var reFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// StripCodeFences removes a Markdown code fence wrapping the whole reply,
// e.g. ```json ... ```. Text without a fence is returned trimmed.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := reFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	// unbalanced fences: drop the markers themselves
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// NormalizeSyllabusJSON tidies a model reply before strict validation.
// - Trims string values of known fields
// - Drops a null or non-string assignment "type" (it is defaulted later)
// Required fields are never invented; a missing one still fails validation.
func NormalizeSyllabusJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var dropped []string
	trim := func(obj map[string]any, k string) {
		if s, ok := obj[k].(string); ok {
			obj[k] = strings.TrimSpace(s)
		}
	}
	trim(m, "course_name")
	trim(m, "course_code")

	if items, ok := m["assignments"].([]any); ok {
		for i, it := range items {
			a, ok := it.(map[string]any)
			if !ok {
				continue
			}
			trim(a, "title")
			trim(a, "date")
			if v, present := a["type"]; present {
				if s, isStr := v.(string); isStr {
					a["type"] = strings.TrimSpace(s)
				} else {
					delete(a, "type")
					dropped = append(dropped, fmt.Sprintf("assignments[%d].type", i))
				}
			}
		}
	}

	if len(dropped) > 0 {
		logger.Debug("llm.sanitize.dropped", "fields", dropped)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, dropped, nil
}
