package display

import (
	"strings"
	"testing"
)

func TestDiffStatsTrivialCases(t *testing.T) {
	// All-new content counts every line as added.
	_, added, removed := DiffStats("f.go", "", "a\nb\nc")
	if added != 3 || removed != 0 {
		t.Errorf("all-new: +%d -%d", added, removed)
	}

	// All-removed content counts every line as removed.
	_, added, removed = DiffStats("f.go", "a\nb", "")
	if added != 0 || removed != 2 {
		t.Errorf("all-removed: +%d -%d", added, removed)
	}

	// Identical content is a zero diff.
	diff, added, removed := DiffStats("f.go", "same", "same")
	if diff != "" || added != 0 || removed != 0 {
		t.Errorf("identical: %q +%d -%d", diff, added, removed)
	}
}

func TestDiffStatsSingleLineSwap(t *testing.T) {
	diff, added, removed := DiffStats("/f.ts", "x", "y")
	if added != 1 || removed != 1 {
		t.Errorf("swap: +%d -%d", added, removed)
	}
	if !strings.Contains(diff, "a/f.ts") || !strings.Contains(diff, "b/f.ts") {
		t.Errorf("diff header missing: %q", diff)
	}
}

func TestDiffStatsPartialChange(t *testing.T) {
	before := "one\ntwo\nthree\n"
	after := "one\n2\nthree\n"
	_, added, removed := DiffStats("n.txt", before, after)
	if added != 1 || removed != 1 {
		t.Errorf("partial: +%d -%d", added, removed)
	}
}

func TestTruncate(t *testing.T) {
	short := "hello"
	if got := Truncate(short, PreviewLimit); got != short {
		t.Errorf("short string changed: %q", got)
	}

	long := strings.Repeat("あ", PreviewLimit+10)
	got := Truncate(long, PreviewLimit)
	if !strings.HasSuffix(got, "… (truncated)") {
		t.Errorf("marker missing: %q", got[len(got)-30:])
	}
	if n := len([]rune(got)); n > PreviewLimit+len([]rune("… (truncated)")) {
		t.Errorf("truncated preview too long: %d runes", n)
	}

	if !Truncated(long, PreviewLimit) || Truncated(short, PreviewLimit) {
		t.Error("Truncated disagrees with Truncate")
	}
	if got := Truncate("anything", 0); got != "" {
		t.Errorf("zero limit = %q", got)
	}
}

func TestCountLines(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a\n", 1},
		{"a\nb", 2},
		{"a\nb\nc\n", 3},
	}
	for _, tc := range cases {
		if got := CountLines(tc.in); got != tc.want {
			t.Errorf("CountLines(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
