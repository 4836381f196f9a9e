package display

import "strings"

const (
	// PreviewLimit caps input-side previews (write content, plans, prompts).
	PreviewLimit = 500
	// ResultLimit caps result-side previews (fetch, search, command output).
	ResultLimit = 2000

	truncatedMarker = "… (truncated)"
)

// Truncate hard-caps s at limit runes, appending the marker when anything
// was cut. The full text stays reachable through the call record; expanding
// is a UI toggle, never a refetch.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + truncatedMarker
}

// Truncated reports whether Truncate would cut s at limit.
func Truncated(s string, limit int) bool {
	return limit > 0 && len([]rune(s)) > limit
}

// CountLines counts content lines, ignoring one trailing newline so "a\n"
// and "a" both count as one.
func CountLines(s string) int {
	if s == "" {
		return 0
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Count(s, "\n") + 1
}
