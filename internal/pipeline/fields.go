package pipeline

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// numericString matches quoted scores such as "8.5"; it mirrors the record schemas.
var numericString = regexp.MustCompile(`^\s*-?[0-9]+(\.[0-9]+)?\s*$`)

// num returns f[key] as a float, or def when absent. Numeric strings are
// accepted. ok is false when the key is present with a non-numeric value.
func num(f map[string]any, key string, def float64) (v float64, ok bool) {
	raw, present := f[key]
	if !present || raw == nil {
		return def, true
	}
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		x, err := n.Float64()
		return x, err == nil
	case string:
		if !numericString.MatchString(n) {
			return def, false
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return x, err == nil
	}
	return def, false
}

// numOr is num without the type report; wrong types fall back to def.
func numOr(f map[string]any, key string, def float64) float64 {
	v, ok := num(f, key, def)
	if !ok {
		return def
	}
	return v
}

// strList returns f[key] as a string slice, or def when absent or malformed.
// Non-string items are formatted rather than dropped.
func strList(f map[string]any, key string, def []string) []string {
	switch l := f[key].(type) {
	case []string:
		out := make([]string, len(l))
		copy(out, l)
		return out
	case []any:
		out := make([]string, 0, len(l))
		for _, it := range l {
			out = append(out, str(it))
		}
		return out
	}
	return def
}

// skillMap returns f[key] as a name to score map; ok is false when absent or empty.
func skillMap(f map[string]any, key string) (map[string]float64, bool) {
	switch m := f[key].(type) {
	case map[string]float64:
		if len(m) == 0 {
			return nil, false
		}
		out := make(map[string]float64, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, true
	case map[string]any:
		out := make(map[string]float64, len(m))
		for k := range m {
			if v, ok := num(m, k, 0); ok {
				out[k] = v
			}
		}
		return out, len(out) > 0
	}
	return nil, false
}

func objects(v any) []map[string]any {
	l, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(l))
	for _, it := range l {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
