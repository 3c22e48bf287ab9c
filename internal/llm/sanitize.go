package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
)

// ExtractJSONObject trims markdown fences and any prose around the first
// top-level JSON object in a model response. Models occasionally wrap their
// output despite instructions.
func ExtractJSONObject(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// NormalizeOfferJSON applies lenient cleanup to a raw offer response before
// re-validation:
//   - drops null/empty optionals
//   - coerces numeric strings to numbers for money-ish fields
//   - removes unknown keys (additionalProperties = false friendliness)
func NormalizeOfferJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("normalize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)

	// optionals: drop null / "" so they don't trip the schema
	for _, k := range []string{"vat_id", "department"} {
		if v, ok := m[k]; ok {
			if v == nil {
				continue // null is schema-legal for optionals
			}
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			}
		}
	}

	coerceNumber(m, "total_cost", &dropped)
	coerceNumber(m, "confidence", &dropped)

	if lines, ok := m["order_lines"].([]any); ok {
		for _, raw := range lines {
			line, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			coerceNumber(line, "unit_price", &dropped)
			coerceNumber(line, "amount", &dropped)
			coerceNumber(line, "total_price", &dropped)
			for k := range maps.Clone(line) {
				switch k {
				case "position_description", "unit_price", "amount", "unit", "total_price":
				default:
					delete(line, k)
					dropped = append(dropped, "order_lines."+k+"(unknown)")
				}
			}
		}
	}

	// remove unknown top-level keys
	allowed := map[string]struct{}{
		"vendor_name": {}, "vat_id": {}, "department": {},
		"order_lines": {}, "total_cost": {}, "confidence": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("normalize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize", "dropped", dropped)
	}
	return out, dropped, nil
}

// coerceNumber converts a numeric string value under key k to a float64.
// Unparsable strings are dropped so schema validation reports the absence,
// not a type mismatch.
func coerceNumber(m map[string]any, k string, dropped *[]string) {
	v, ok := m[k]
	if !ok {
		return
	}
	switch t := v.(type) {
	case float64:
		// already a number
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", ""))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			m[k] = f
		} else {
			delete(m, k)
			*dropped = append(*dropped, k+"(unparsable)")
		}
	case nil:
		delete(m, k)
		*dropped = append(*dropped, k+"(null)")
	default:
		delete(m, k)
		*dropped = append(*dropped, k+"(type)")
	}
}
