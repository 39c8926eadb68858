// output.go reduces a model reply to the generated statement.
//
// The reply must contain one JSON object with a non-blank string field
// "query". Markdown fences and narrative around the object are tolerated.
package ai

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// ParseQuery extracts the "query" field from a model reply.
func ParseQuery(response string) (string, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return "", errors.New("no JSON object found in model response")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &fields); err != nil {
		return "", fmt.Errorf("invalid JSON in model response: %w", err)
	}

	raw, ok := fields["query"]
	if !ok {
		return "", errors.New(`model response has no "query" field`)
	}

	var query string
	if err := json.Unmarshal(raw, &query); err != nil {
		return "", fmt.Errorf(`"query" field is not a string: %s`, truncate(string(raw), 80))
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New(`"query" field is empty`)
	}
	return query, nil
}

// extractJSON finds the first {...} JSON object in the text,
// handling markdown code fences and surrounding narrative.
func extractJSON(text string) string {
	// Try to extract from markdown code fence
	if idx := strings.Index(text, "```json"); idx >= 0 {
		start := idx + len("```json")
		end := strings.Index(text[start:], "```")
		if end >= 0 {
			return strings.TrimSpace(text[start : start+end])
		}
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		start := idx + len("```")
		end := strings.Index(text[start:], "```")
		if end >= 0 {
			candidate := strings.TrimSpace(text[start : start+end])
			if strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	// Match braces, skipping braces inside string literals so SQL such as
	// '{"a":1}' in a value does not end the object early.
	depth := 0
	start := -1
	inString, escaped := false, false
	for i, ch := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
