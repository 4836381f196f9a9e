package permission

import "testing"

func TestSuggestionLabel(t *testing.T) {
	cases := []struct {
		name string
		u    Update
		want string
	}{
		{
			"add single rule",
			Update{
				Type:        UpdateAddRules,
				Rules:       []Rule{{ToolName: "Bash", RuleContent: "git diff:*"}},
				Behavior:    BehaviorAllow,
				Destination: DestProjectSettings,
			},
			`Always allow "Bash(git diff:*)" in project settings`,
		},
		{
			"add deny rule",
			Update{
				Type:        UpdateAddRules,
				Rules:       []Rule{{ToolName: "WebFetch"}},
				Behavior:    BehaviorDeny,
				Destination: DestUserSettings,
			},
			`Always deny "WebFetch" in user settings`,
		},
		{
			"replace rules",
			Update{
				Type:        UpdateReplaceRules,
				Rules:       []Rule{{ToolName: "Bash", RuleContent: "ls:*"}, {ToolName: "Bash", RuleContent: "cat:*"}},
				Destination: DestSession,
			},
			"Replace the Bash rules in this session",
		},
		{
			"remove rules",
			Update{
				Type:        UpdateRemoveRules,
				Rules:       []Rule{{ToolName: "Edit", RuleContent: "**/*.md"}},
				Destination: DestProjectSettings,
			},
			`Forget "Edit(**/*.md)" in project settings`,
		},
		{
			"set mode",
			SetModeUpdate(ModeAcceptEdits),
			"Switch permission mode to accept edits",
		},
		{
			"add directories",
			Update{
				Type:        UpdateAddDirectories,
				Directories: []string{"/srv/app"},
				Destination: DestSession,
			},
			"Allow access to /srv/app in this session",
		},
		{
			"remove directories",
			Update{
				Type:        UpdateRemoveDirectories,
				Directories: []string{"/srv/app", "/tmp"},
				Destination: DestUserSettings,
			},
			"Remove access to /srv/app and /tmp in user settings",
		},
		{
			"unknown shape falls back",
			Update{Type: "grantSuperpowers", Destination: DestProjectSettings},
			"Apply to project settings",
		},
	}
	for _, tc := range cases {
		if got := SuggestionLabel(tc.u); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSuggestionLabelThreeRules(t *testing.T) {
	u := Update{
		Type: UpdateAddRules,
		Rules: []Rule{
			{ToolName: "Bash", RuleContent: "ls:*"},
			{ToolName: "Bash", RuleContent: "cat:*"},
			{ToolName: "Bash", RuleContent: "pwd"},
		},
		Destination: DestSession,
	}
	want := `Always allow "Bash(ls:*)", "Bash(cat:*)" and "Bash(pwd)" in this session`
	if got := SuggestionLabel(u); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
