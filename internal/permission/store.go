package permission

import (
	"fmt"
	"sync"
)

// Decision is the outcome of evaluating the rule stores for one call.
type Decision int

const (
	// DecisionAsk means no rule matched and the user decides.
	DecisionAsk Decision = iota
	// DecisionAllow means an allow rule (or the skip flag) covers the call.
	DecisionAllow
	// DecisionDeny means a deny rule covers the call.
	DecisionDeny
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	default:
		return "ask"
	}
}

type ruleSet struct {
	allow []Rule
	deny  []Rule
	dirs  []string
}

// evalOrder is the precedence walk for rule evaluation: the most local
// scope wins within a behavior, deny beats allow across scopes.
var evalOrder = []Destination{DestSession, DestLocalSettings, DestProjectSettings, DestUserSettings}

// Store holds the permission state of one session: the mode, the
// skip-requests flag, and the rule sets per destination. Project and user
// destinations can be bound to settings files so applied updates persist.
type Store struct {
	mu    sync.RWMutex
	mode  Mode
	skip  bool
	sets  map[Destination]*ruleSet
	paths map[Destination]string
}

// NewStore returns a store with empty rule sets and the default mode.
func NewStore() *Store {
	s := &Store{
		mode:  ModeDefault,
		sets:  make(map[Destination]*ruleSet),
		paths: make(map[Destination]string),
	}
	for _, dest := range evalOrder {
		s.sets[dest] = &ruleSet{}
	}
	return s
}

// Bind attaches a settings file to a destination and loads its current
// contents. A defaultMode in the file takes effect only while the store is
// still in the default mode.
func (s *Store) Bind(dest Destination, path string) error {
	settings, err := LoadSettings(path)
	if err != nil {
		return fmt.Errorf("load %s settings: %w", dest.Label(), err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.set(dest)
	set.allow = set.allow[:0]
	set.deny = set.deny[:0]
	for _, raw := range settings.Permissions.Allow {
		set.allow = append(set.allow, ParseRule(raw))
	}
	for _, raw := range settings.Permissions.Deny {
		set.deny = append(set.deny, ParseRule(raw))
	}
	set.dirs = append(set.dirs[:0], settings.Directories...)
	s.paths[dest] = path
	if s.mode == ModeDefault && settings.Permissions.DefaultMode != "" {
		s.mode = ParseMode(settings.Permissions.DefaultMode)
		s.skip = s.mode == ModeBypass
	}
	return nil
}

func (s *Store) set(dest Destination) *ruleSet {
	if set, ok := s.sets[dest]; ok {
		return set
	}
	set := &ruleSet{}
	s.sets[dest] = set
	return set
}

// Mode returns the current permission mode.
func (s *Store) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode switches the permission mode. Entering bypassPermissions raises
// the skip flag, leaving it clears the flag again.
func (s *Store) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !m.Valid() {
		m = ModeDefault
	}
	s.mode = m
	s.skip = m == ModeBypass
}

// SkipRequests reports whether permission prompts are bypassed entirely.
func (s *Store) SkipRequests() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skip
}

// SetSkipRequests flips the session-local skip flag without touching the
// mode.
func (s *Store) SetSkipRequests(skip bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skip = skip
}

// Apply mutates the store according to the update and persists the touched
// destination when it is bound to a settings file.
func (s *Store) Apply(u Update) error {
	if u.Type == UpdateSetMode {
		s.SetMode(u.Mode)
		return nil
	}

	s.mu.Lock()
	dest := u.Destination
	if dest == "" {
		dest = DestSession
	}
	set := s.set(dest)
	switch u.Type {
	case UpdateAddRules:
		if u.Behavior == BehaviorDeny {
			set.deny = appendRules(set.deny, u.Rules)
		} else {
			set.allow = appendRules(set.allow, u.Rules)
		}
	case UpdateReplaceRules:
		tools := make(map[string]bool, len(u.Rules))
		for _, r := range u.Rules {
			tools[r.ToolName] = true
		}
		if u.Behavior == BehaviorDeny {
			set.deny = appendRules(dropTools(set.deny, tools), u.Rules)
		} else {
			set.allow = appendRules(dropTools(set.allow, tools), u.Rules)
		}
	case UpdateRemoveRules:
		if u.Behavior == BehaviorDeny {
			set.deny = dropRules(set.deny, u.Rules)
		} else {
			set.allow = dropRules(set.allow, u.Rules)
		}
	case UpdateAddDirectories:
		for _, dir := range u.Directories {
			if !contains(set.dirs, dir) {
				set.dirs = append(set.dirs, dir)
			}
		}
	case UpdateRemoveDirectories:
		var kept []string
		for _, dir := range set.dirs {
			if !contains(u.Directories, dir) {
				kept = append(kept, dir)
			}
		}
		set.dirs = kept
	default:
		s.mu.Unlock()
		return fmt.Errorf("unknown permission update type %q", u.Type)
	}
	path := s.paths[dest]
	settings := snapshotSettings(set, s.mode, dest)
	s.mu.Unlock()

	if path == "" {
		return nil
	}
	if err := SaveSettings(path, settings); err != nil {
		return fmt.Errorf("persist %s settings: %w", dest.Label(), err)
	}
	return nil
}

// Evaluate resolves a tool invocation against the rule stores. Deny rules
// win over allow rules, closer scopes are checked first, and the skip flag
// short-circuits everything.
func (s *Store) Evaluate(toolName, specifier string) Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.skip || s.mode == ModeBypass {
		return DecisionAllow
	}
	for _, dest := range evalOrder {
		if MatchAny(s.sets[dest].deny, toolName, specifier) {
			return DecisionDeny
		}
	}
	for _, dest := range evalOrder {
		if MatchAny(s.sets[dest].allow, toolName, specifier) {
			return DecisionAllow
		}
	}
	return DecisionAsk
}

// Rules returns copies of the allow and deny rules for a destination.
func (s *Store) Rules(dest Destination) (allow, deny []Rule) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.sets[dest]
	if set == nil {
		return nil, nil
	}
	return append([]Rule(nil), set.allow...), append([]Rule(nil), set.deny...)
}

// Directories returns the granted directories across all destinations.
func (s *Store) Directories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, dest := range evalOrder {
		out = append(out, s.sets[dest].dirs...)
	}
	return out
}

func appendRules(rules []Rule, add []Rule) []Rule {
	for _, r := range add {
		exists := false
		for _, have := range rules {
			if have == r {
				exists = true
				break
			}
		}
		if !exists {
			rules = append(rules, r)
		}
	}
	return rules
}

func dropTools(rules []Rule, tools map[string]bool) []Rule {
	var kept []Rule
	for _, r := range rules {
		if !tools[r.ToolName] {
			kept = append(kept, r)
		}
	}
	return kept
}

func dropRules(rules []Rule, remove []Rule) []Rule {
	var kept []Rule
	for _, r := range rules {
		drop := false
		for _, rm := range remove {
			if r == rm {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, r)
		}
	}
	return kept
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func snapshotSettings(set *ruleSet, mode Mode, dest Destination) Settings {
	var settings Settings
	for _, r := range set.allow {
		settings.Permissions.Allow = append(settings.Permissions.Allow, r.String())
	}
	for _, r := range set.deny {
		settings.Permissions.Deny = append(settings.Permissions.Deny, r.String())
	}
	settings.Directories = append(settings.Directories, set.dirs...)
	// The mode only persists user-side; per-project modes stay session-local.
	if dest == DestUserSettings && mode != ModeDefault && mode != ModeBypass {
		settings.Permissions.DefaultMode = string(mode)
	}
	return settings
}
