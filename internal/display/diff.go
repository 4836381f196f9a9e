package display

import (
	"path/filepath"
	"strings"

	udiff "github.com/aymanbagabas/go-udiff"
)

// DiffStats computes a unified diff between two versions of a file along
// with its added/removed line counts. Identical inputs yield an empty diff
// and zero counts.
func DiffStats(fileName, before, after string) (string, int, int) {
	if before == after {
		return "", 0, 0
	}
	cleaned := strings.TrimSpace(fileName)
	cleaned = filepath.ToSlash(cleaned)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		cleaned = "file"
	}
	diff := udiff.Unified("a/"+cleaned, "b/"+cleaned, before, after)
	additions, removals := 0, 0
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}
		if strings.HasPrefix(line, "+") {
			additions++
		} else if strings.HasPrefix(line, "-") {
			removals++
		}
	}
	return diff, additions, removals
}
