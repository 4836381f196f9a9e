package toolcall

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Field access on tool input is always tolerant: backends disagree on key
// casing and partially streamed input may miss keys entirely, so missing or
// mistyped values degrade to zero values instead of errors.

// StringField returns the first non-empty string value among keys, matching
// exact keys first and snake/camel-insensitive keys second.
func StringField(m map[string]any, keys ...string) string {
	if m == nil {
		return ""
	}
	for _, key := range keys {
		if val, ok := m[key]; ok {
			if s := stringify(val); s != "" {
				return s
			}
		}
	}
	normalized := make(map[string]any, len(m))
	for k, v := range m {
		normalized[normalizeKey(k)] = v
	}
	for _, key := range keys {
		if val, ok := normalized[normalizeKey(key)]; ok {
			if s := stringify(val); s != "" {
				return s
			}
		}
	}
	return ""
}

// IntField returns the first numeric value among keys, accepting JSON float
// decoding and numeric strings.
func IntField(m map[string]any, keys ...string) (int, bool) {
	if m == nil {
		return 0, false
	}
	lookup := func(val any) (int, bool) {
		switch v := val.(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			return int(v), true
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return int(n), true
			}
		case string:
			var n int
			if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err == nil {
				return n, true
			}
		}
		return 0, false
	}
	for _, key := range keys {
		if val, ok := m[key]; ok {
			if n, ok := lookup(val); ok {
				return n, true
			}
		}
	}
	normalized := make(map[string]any, len(m))
	for k, v := range m {
		normalized[normalizeKey(k)] = v
	}
	for _, key := range keys {
		if val, ok := normalized[normalizeKey(key)]; ok {
			if n, ok := lookup(val); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// BoolField returns the first boolean value among keys.
func BoolField(m map[string]any, keys ...string) bool {
	if m == nil {
		return false
	}
	lookup := func(val any) (bool, bool) {
		switch v := val.(type) {
		case bool:
			return v, true
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "1", "yes":
				return true, true
			case "false", "0", "no":
				return false, true
			}
		}
		return false, false
	}
	for _, key := range keys {
		if val, ok := m[key]; ok {
			if b, ok := lookup(val); ok {
				return b
			}
		}
	}
	normalized := make(map[string]any, len(m))
	for k, v := range m {
		normalized[normalizeKey(k)] = v
	}
	for _, key := range keys {
		if val, ok := normalized[normalizeKey(key)]; ok {
			if b, ok := lookup(val); ok {
				return b
			}
		}
	}
	return false
}

// MapField returns a nested object value when present.
func MapField(m map[string]any, keys ...string) map[string]any {
	if m == nil {
		return nil
	}
	for _, key := range keys {
		if val, ok := m[key]; ok {
			if nested, ok := val.(map[string]any); ok {
				return nested
			}
		}
	}
	return nil
}

// SliceField returns a nested array value when present.
func SliceField(m map[string]any, keys ...string) []any {
	if m == nil {
		return nil
	}
	for _, key := range keys {
		if val, ok := m[key]; ok {
			switch v := val.(type) {
			case []any:
				return v
			case []map[string]any:
				out := make([]any, len(v))
				for i := range v {
					out[i] = v[i]
				}
				return out
			}
		}
	}
	return nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool, float64, int, int64, json.Number:
		return fmt.Sprint(val)
	default:
		if b, err := json.Marshal(val); err == nil {
			s := string(b)
			if s == "null" {
				return ""
			}
			return s
		}
		return fmt.Sprint(val)
	}
}

func normalizeKey(s string) string {
	replaced := strings.ReplaceAll(s, "_", "")
	return strings.ToLower(replaced)
}

// CloneInput deep-copies a decoded input map so stored calls never alias
// caller-owned maps.
func CloneInput(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneInput(val)
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = cloneValue(val[i])
		}
		return out
	default:
		return val
	}
}
