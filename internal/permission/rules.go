package permission

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Rule scopes a permission to one tool, optionally narrowed to matching
// invocations. RuleContent is a specifier pattern: a doublestar glob for
// path-shaped specifiers, or a "prefix:*" form for command prefixes.
type Rule struct {
	ToolName    string `json:"toolName"`
	RuleContent string `json:"ruleContent,omitempty"`
}

// ParseRule reads the settings-file form "Tool" or "Tool(content)".
func ParseRule(s string) Rule {
	trimmed := strings.TrimSpace(s)
	open := strings.IndexByte(trimmed, '(')
	if open < 0 || !strings.HasSuffix(trimmed, ")") {
		return Rule{ToolName: trimmed}
	}
	return Rule{
		ToolName:    strings.TrimSpace(trimmed[:open]),
		RuleContent: strings.TrimSpace(trimmed[open+1 : len(trimmed)-1]),
	}
}

// String renders the settings-file form.
func (r Rule) String() string {
	if r.RuleContent == "" {
		return r.ToolName
	}
	return fmt.Sprintf("%s(%s)", r.ToolName, r.RuleContent)
}

// Matches reports whether the rule covers an invocation of toolName with
// the given specifier (the command for shell tools, the path for file
// tools, empty when the tool has no natural specifier).
func (r Rule) Matches(toolName, specifier string) bool {
	if !strings.EqualFold(strings.TrimSpace(r.ToolName), strings.TrimSpace(toolName)) {
		return false
	}
	content := strings.TrimSpace(r.RuleContent)
	if content == "" {
		return true
	}
	spec := strings.TrimSpace(specifier)
	if spec == "" {
		return false
	}
	if content == spec {
		return true
	}
	// "git diff:*" style command-prefix rules. The prefix stops at a word
	// boundary so "git diff:*" does not cover "git difftool".
	if prefix, ok := strings.CutSuffix(content, ":*"); ok {
		return spec == prefix || strings.HasPrefix(spec, prefix+" ")
	}
	if ok, err := doublestar.Match(content, spec); err == nil && ok {
		return true
	}
	return false
}

// MatchAny reports whether any rule in the list covers the invocation.
func MatchAny(rules []Rule, toolName, specifier string) bool {
	for _, rule := range rules {
		if rule.Matches(toolName, specifier) {
			return true
		}
	}
	return false
}

// DirectoryCovered reports whether path sits under any of the granted
// directories. Grants may themselves be doublestar patterns.
func DirectoryCovered(dirs []string, path string) bool {
	cleaned := strings.TrimSpace(path)
	if cleaned == "" {
		return false
	}
	for _, dir := range dirs {
		d := strings.TrimRight(strings.TrimSpace(dir), "/")
		if d == "" {
			continue
		}
		if cleaned == d || strings.HasPrefix(cleaned, d+"/") {
			return true
		}
		if ok, err := doublestar.Match(d, cleaned); err == nil && ok {
			return true
		}
	}
	return false
}
