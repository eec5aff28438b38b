package review

import (
	"encoding/json"
	"regexp"
	"strings"
)

// extractStrategy recovers a JSON object from model text or reports absence.
type extractStrategy func(raw string) (map[string]any, bool)

// extractStrategies are tried in order until one succeeds.
var extractStrategies = []extractStrategy{
	parseWhole,
	parseFenced,
	parseOutermostBraces,
}

var fenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

// Extract recovers a JSON object from raw model output. Numbers are kept as
// json.Number so integer literals can be told apart from floats.
func Extract(raw string) (map[string]any, bool) {
	for _, strategy := range extractStrategies {
		if obj, ok := strategy(raw); ok {
			return obj, true
		}
	}
	return nil, false
}

func parseWhole(raw string) (map[string]any, bool) {
	return decodeObject(raw)
}

func parseFenced(raw string) (map[string]any, bool) {
	m := fenceRE.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	return decodeObject(strings.TrimSpace(m[1]))
}

// parseOutermostBraces takes the text from the first '{' to the last '}'.
// Two separate objects in one reply therefore never decode.
func parseOutermostBraces(raw string) (map[string]any, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return decodeObject(raw[start : end+1])
}

func decodeObject(text string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	// trailing data means text was not a single JSON value
	if strings.TrimSpace(text[dec.InputOffset():]) != "" {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// isBlank reports whether s has no non-space content.
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
