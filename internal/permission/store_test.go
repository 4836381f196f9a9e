package permission

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreApplyAndEvaluate(t *testing.T) {
	s := NewStore()

	// Nothing configured: everything asks.
	if got := s.Evaluate("Bash", "git status"); got != DecisionAsk {
		t.Fatalf("empty store decision = %v", got)
	}

	err := s.Apply(Update{
		Type:        UpdateAddRules,
		Rules:       []Rule{{ToolName: "Bash", RuleContent: "git status"}},
		Behavior:    BehaviorAllow,
		Destination: DestSession,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := s.Evaluate("Bash", "git status"); got != DecisionAllow {
		t.Errorf("allowed rule decision = %v", got)
	}
	if got := s.Evaluate("Bash", "git push"); got != DecisionAsk {
		t.Errorf("unmatched command decision = %v", got)
	}

	// Deny wins over allow, even across destinations.
	err = s.Apply(Update{
		Type:        UpdateAddRules,
		Rules:       []Rule{{ToolName: "Bash"}},
		Behavior:    BehaviorDeny,
		Destination: DestUserSettings,
	})
	if err != nil {
		t.Fatalf("apply deny: %v", err)
	}
	if got := s.Evaluate("Bash", "git status"); got != DecisionDeny {
		t.Errorf("deny precedence decision = %v", got)
	}
}

func TestStoreReplaceAndRemoveRules(t *testing.T) {
	s := NewStore()
	s.Apply(Update{
		Type:  UpdateAddRules,
		Rules: []Rule{{ToolName: "Bash", RuleContent: "ls:*"}, {ToolName: "Read"}},
	})

	// Replace drops every rule for the named tools before adding.
	s.Apply(Update{
		Type:  UpdateReplaceRules,
		Rules: []Rule{{ToolName: "Bash", RuleContent: "git:*"}},
	})
	if got := s.Evaluate("Bash", "ls -la"); got != DecisionAsk {
		t.Errorf("replaced rule still matches: %v", got)
	}
	if got := s.Evaluate("Bash", "git log"); got != DecisionAllow {
		t.Errorf("replacement rule missing: %v", got)
	}
	if got := s.Evaluate("Read", "/etc/hosts"); got != DecisionAllow {
		t.Errorf("unrelated tool rule lost: %v", got)
	}

	s.Apply(Update{
		Type:  UpdateRemoveRules,
		Rules: []Rule{{ToolName: "Read"}},
	})
	if got := s.Evaluate("Read", "/etc/hosts"); got != DecisionAsk {
		t.Errorf("removed rule still matches: %v", got)
	}
}

func TestStoreDirectories(t *testing.T) {
	s := NewStore()
	s.Apply(Update{Type: UpdateAddDirectories, Directories: []string{"/srv/app"}})
	s.Apply(Update{Type: UpdateAddDirectories, Directories: []string{"/srv/app"}}) // duplicate ignored

	dirs := s.Directories()
	if len(dirs) != 1 || dirs[0] != "/srv/app" {
		t.Fatalf("dirs = %v", dirs)
	}

	s.Apply(Update{Type: UpdateRemoveDirectories, Directories: []string{"/srv/app"}})
	if len(s.Directories()) != 0 {
		t.Errorf("dirs after remove = %v", s.Directories())
	}
}

func TestStoreBypassMode(t *testing.T) {
	s := NewStore()
	s.Apply(Update{
		Type:     UpdateAddRules,
		Rules:    []Rule{{ToolName: "Bash"}},
		Behavior: BehaviorDeny,
	})

	// setMode bypassPermissions flips the skip flag as a side effect and
	// short-circuits even deny rules.
	if err := s.Apply(SetModeUpdate(ModeBypass)); err != nil {
		t.Fatalf("apply setMode: %v", err)
	}
	if !s.SkipRequests() {
		t.Fatal("skip flag should be raised by bypass mode")
	}
	if got := s.Evaluate("Bash", "anything"); got != DecisionAllow {
		t.Errorf("bypass decision = %v", got)
	}

	// Leaving bypass clears the flag.
	s.SetMode(ModeDefault)
	if s.SkipRequests() {
		t.Error("skip flag should clear on leaving bypass")
	}
	if got := s.Evaluate("Bash", "anything"); got != DecisionDeny {
		t.Errorf("post-bypass decision = %v", got)
	}
}

func TestStorePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s := NewStore()
	if err := s.Bind(DestProjectSettings, path); err != nil {
		t.Fatalf("bind: %v", err)
	}
	err := s.Apply(Update{
		Type:        UpdateAddRules,
		Rules:       []Rule{{ToolName: "Bash", RuleContent: "make:*"}},
		Destination: DestProjectSettings,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("settings file not written: %v", err)
	}

	// A fresh store bound to the same file picks the rule up.
	s2 := NewStore()
	if err := s2.Bind(DestProjectSettings, path); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if got := s2.Evaluate("Bash", "make test"); got != DecisionAllow {
		t.Errorf("persisted rule decision = %v", got)
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(settings.Permissions.Allow) != 0 {
		t.Errorf("settings = %+v", settings)
	}
}
