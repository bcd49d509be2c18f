package graph

import "encoding/json"

// NormalizeProperties returns a copy of props in which every json.Number,
// at any depth, is replaced by an int64 when integral and a float64
// otherwise. Property maps decoded with UseNumber go through it before they
// reach the database.
func NormalizeProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = NormalizeValue(v)
	}
	return out
}

// NormalizeValue is NormalizeProperties for a single value.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		return NormalizeProperties(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = NormalizeValue(item)
		}
		return out
	default:
		return v
	}
}
