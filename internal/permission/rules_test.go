package permission

import "testing"

func TestParseRule(t *testing.T) {
	cases := []struct {
		in      string
		tool    string
		content string
	}{
		{"Bash", "Bash", ""},
		{"Bash(git *)", "Bash", "git *"},
		{"Bash(git diff:*)", "Bash", "git diff:*"},
		{"Read(/etc/**)", "Read", "/etc/**"},
		{"  WebFetch  ", "WebFetch", ""},
	}
	for _, tc := range cases {
		r := ParseRule(tc.in)
		if r.ToolName != tc.tool || r.RuleContent != tc.content {
			t.Errorf("ParseRule(%q) = %+v", tc.in, r)
		}
	}

	// String round-trips the compact form.
	r := Rule{ToolName: "Bash", RuleContent: "git diff:*"}
	if r.String() != "Bash(git diff:*)" {
		t.Errorf("String() = %q", r.String())
	}
	r = Rule{ToolName: "Read"}
	if r.String() != "Read" {
		t.Errorf("String() = %q", r.String())
	}
}

func TestRuleMatches(t *testing.T) {
	cases := []struct {
		rule      string
		tool      string
		specifier string
		want      bool
	}{
		// A bare tool rule covers every invocation of that tool.
		{"Bash", "Bash", "rm -rf /", true},
		{"Bash", "Read", "/etc/passwd", false},
		// Exact content match.
		{"Bash(ls)", "Bash", "ls", true},
		{"Bash(ls)", "Bash", "ls -la", false},
		// Command-prefix rules stop at a word boundary.
		{"Bash(git diff:*)", "Bash", "git diff", true},
		{"Bash(git diff:*)", "Bash", "git diff --stat HEAD", true},
		{"Bash(git diff:*)", "Bash", "git difftool", false},
		// Path rules use doublestar globs.
		{"Read(/etc/**)", "Read", "/etc/hosts", true},
		{"Read(/etc/**)", "Read", "/var/log/syslog", false},
		{"Edit(**/*.go)", "Edit", "internal/foo/bar.go", true},
		{"Edit(**/*.go)", "Edit", "README.md", false},
		// Tool names compare case-insensitively.
		{"bash(ls)", "Bash", "ls", true},
		// Content rules need a specifier to match against.
		{"Bash(git *)", "Bash", "", false},
	}
	for _, tc := range cases {
		rule := ParseRule(tc.rule)
		if got := rule.Matches(tc.tool, tc.specifier); got != tc.want {
			t.Errorf("%q.Matches(%q, %q) = %v, want %v", tc.rule, tc.tool, tc.specifier, got, tc.want)
		}
	}
}

func TestDirectoryCovered(t *testing.T) {
	dirs := []string{"/home/me/project", "/tmp/scratch/"}
	cases := []struct {
		path string
		want bool
	}{
		{"/home/me/project", true},
		{"/home/me/project/src/main.go", true},
		{"/home/me/projectile", false},
		{"/tmp/scratch/notes.txt", true},
		{"/etc/passwd", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := DirectoryCovered(dirs, tc.path); got != tc.want {
			t.Errorf("DirectoryCovered(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestParseModeAndDestination(t *testing.T) {
	if ParseMode("acceptEdits") != ModeAcceptEdits {
		t.Error("acceptEdits should parse")
	}
	if ParseMode("bizarre") != ModeDefault {
		t.Error("unknown mode should fall back to default")
	}
	if ParseMode("bypassPermissions") != ModeBypass {
		t.Error("bypassPermissions should parse")
	}

	if ParseDestination("userSettings") != DestUserSettings {
		t.Error("userSettings should parse")
	}
	if ParseDestination("") != DestSession {
		t.Error("empty destination should fall back to session")
	}
	if got := DestProjectSettings.Label(); got != "project settings" {
		t.Errorf("label = %q", got)
	}
	if got := Destination("workspaceSettings").Label(); got != "workspaceSettings" {
		t.Errorf("unknown destination label = %q", got)
	}
}

func TestModeCycle(t *testing.T) {
	m := ModeDefault
	seen := map[Mode]bool{}
	for i := 0; i < len(Modes); i++ {
		seen[m] = true
		m = m.Next()
	}
	if m != ModeDefault {
		t.Errorf("cycle should wrap, ended at %v", m)
	}
	if len(seen) != len(Modes) {
		t.Errorf("cycle visited %d modes, want %d", len(seen), len(Modes))
	}
}
