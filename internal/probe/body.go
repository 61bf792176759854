package probe

import "time"

const timestampPlaceholder = "{{timestamp}}"

// resolvePlaceholders returns a copy of body with every "{{timestamp}}"
// string replaced by now in RFC 3339 format, recursing into maps and lists
func resolvePlaceholders(body map[string]any, now time.Time) map[string]any {
	if body == nil {
		return nil
	}
	return resolveValue(body, now.UTC().Format(time.RFC3339Nano)).(map[string]any)
}

func resolveValue(v any, ts string) any {
	switch val := v.(type) {
	case string:
		if val == timestampPlaceholder {
			return ts
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = resolveValue(item, ts)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = resolveValue(item, ts)
		}
		return out
	default:
		return val
	}
}
