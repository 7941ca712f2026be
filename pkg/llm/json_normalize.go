package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// fencePattern matches ```json or ``` at start and ``` at end
var fencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*\n?(.*?)\\s*```$")

// StripMarkdownCodeFence removes markdown code fences from LLM responses.
// Handles formats like: ```json\n...\n``` or ```\n...\n```. An opening fence
// without a closing one is dropped as well.
func StripMarkdownCodeFence(s string) string {
	s = strings.TrimSpace(s)

	if matches := fencePattern.FindStringSubmatch(s); len(matches) == 2 {
		return strings.TrimSpace(matches[1])
	}

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		return strings.TrimSpace(s)
	}

	return s
}

// NormalizeStringsToArrays walks a JSON structure and wraps string values in a
// single-element array when their key names an array field. This handles the
// LLM returning {"premises": "s(being)"} where ["s(being)"] is expected.
// An empty string becomes an empty array.
//
// Returns:
//   - normalized JSON bytes
//   - bool indicating whether any normalization occurred
//   - error if JSON parsing fails
func NormalizeStringsToArrays(jsonBytes []byte, arrayFields map[string]bool) ([]byte, bool, error) {
	var data interface{}
	if err := json.Unmarshal(jsonBytes, &data); err != nil {
		return nil, false, fmt.Errorf("failed to parse JSON: %w", err)
	}

	changed := false
	normalized := normalizeValue(data, arrayFields, &changed)

	if !changed {
		return jsonBytes, false, nil
	}

	result, err := json.Marshal(normalized)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal normalized JSON: %w", err)
	}

	return result, true, nil
}

// normalizeValue recursively walks a JSON value and wraps strings found under
// array field names.
func normalizeValue(value interface{}, arrayFields map[string]bool, changed *bool) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, val := range v {
			if s, ok := val.(string); ok && arrayFields[key] {
				*changed = true
				if s == "" {
					result[key] = []interface{}{}
				} else {
					result[key] = []interface{}{s}
				}
				continue
			}
			result[key] = normalizeValue(val, arrayFields, changed)
		}
		return result

	case []interface{}:
		result := make([]interface{}, len(v))
		for i, elem := range v {
			result[i] = normalizeValue(elem, arrayFields, changed)
		}
		return result

	default:
		// Primitive values pass through unchanged
		return value
	}
}
