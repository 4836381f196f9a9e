package toolcall

import (
	"encoding/json"
	"testing"
)

func TestStringField(t *testing.T) {
	input := map[string]any{
		"file_path": "/tmp/a.go",
		"timeout":   5000,
		"nested":    map[string]any{"x": 1},
	}

	if got := StringField(input, "file_path"); got != "/tmp/a.go" {
		t.Errorf("exact key = %q", got)
	}
	// First match wins across the alias list.
	if got := StringField(input, "path", "file_path"); got != "/tmp/a.go" {
		t.Errorf("alias fallback = %q", got)
	}
	// Key matching tolerates casing and underscores.
	if got := StringField(input, "filePath"); got != "/tmp/a.go" {
		t.Errorf("normalized key = %q", got)
	}
	// Non-string scalars stringify.
	if got := StringField(input, "timeout"); got != "5000" {
		t.Errorf("numeric = %q", got)
	}
	// Composite values come back as JSON.
	if got := StringField(input, "nested"); got != `{"x":1}` {
		t.Errorf("composite = %q", got)
	}
	if got := StringField(input, "missing"); got != "" {
		t.Errorf("missing = %q", got)
	}
	if got := StringField(nil, "anything"); got != "" {
		t.Errorf("nil input = %q", got)
	}
}

func TestIntField(t *testing.T) {
	input := map[string]any{
		"a": 7,
		"b": int64(8),
		"c": 9.0,
		"d": json.Number("10"),
		"e": "11",
		"f": "not a number",
	}
	for key, want := range map[string]int{"a": 7, "b": 8, "c": 9, "d": 10, "e": 11} {
		got, ok := IntField(input, key)
		if !ok {
			t.Errorf("IntField(%q) not ok", key)
			continue
		}
		if got != want {
			t.Errorf("IntField(%q) = %d, want %d", key, got, want)
		}
	}
	if _, ok := IntField(input, "f"); ok {
		t.Error("non-numeric string should not parse")
	}
	if _, ok := IntField(input, "missing"); ok {
		t.Error("missing key should not be ok")
	}
}

func TestBoolField(t *testing.T) {
	input := map[string]any{
		"a": true,
		"b": "true",
		"c": "1",
		"d": "no",
		"e": false,
	}
	for key, want := range map[string]bool{"a": true, "b": true, "c": true, "d": false, "e": false} {
		if got := BoolField(input, key); got != want {
			t.Errorf("BoolField(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestCloneInput(t *testing.T) {
	original := map[string]any{
		"list": []any{"a", "b"},
		"map":  map[string]any{"k": "v"},
	}
	clone := CloneInput(original)

	clone["list"].([]any)[0] = "mutated"
	clone["map"].(map[string]any)["k"] = "mutated"

	if original["list"].([]any)[0] != "a" {
		t.Error("clone shares list backing array with original")
	}
	if original["map"].(map[string]any)["k"] != "v" {
		t.Error("clone shares nested map with original")
	}
}
