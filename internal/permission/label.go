package permission

import (
	"fmt"
	"strings"
)

// SuggestionLabel renders an update as one human sentence for the approval
// overlay. It is a pure function of the update; unrecognized shapes fall
// back to a generic sentence instead of erroring.
func SuggestionLabel(u Update) string {
	dest := u.Destination.Label()
	switch u.Type {
	case UpdateAddRules:
		verb := "Always allow"
		if u.Behavior == BehaviorDeny {
			verb = "Always deny"
		}
		return fmt.Sprintf("%s %s in %s", verb, ruleList(u.Rules), dest)
	case UpdateReplaceRules:
		return fmt.Sprintf("Replace the %s rules in %s", toolList(u.Rules), dest)
	case UpdateRemoveRules:
		return fmt.Sprintf("Forget %s in %s", ruleList(u.Rules), dest)
	case UpdateSetMode:
		return fmt.Sprintf("Switch permission mode to %s", u.Mode.Label())
	case UpdateAddDirectories:
		return fmt.Sprintf("Allow access to %s in %s", dirList(u.Directories), dest)
	case UpdateRemoveDirectories:
		return fmt.Sprintf("Remove access to %s in %s", dirList(u.Directories), dest)
	default:
		return fmt.Sprintf("Apply to %s", dest)
	}
}

func ruleList(rules []Rule) string {
	if len(rules) == 0 {
		return "this tool"
	}
	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		parts = append(parts, fmt.Sprintf("%q", r.String()))
	}
	return joinList(parts)
}

func toolList(rules []Rule) string {
	if len(rules) == 0 {
		return "existing"
	}
	seen := make(map[string]bool, len(rules))
	var parts []string
	for _, r := range rules {
		if r.ToolName == "" || seen[r.ToolName] {
			continue
		}
		seen[r.ToolName] = true
		parts = append(parts, r.ToolName)
	}
	if len(parts) == 0 {
		return "existing"
	}
	return joinList(parts)
}

func dirList(dirs []string) string {
	if len(dirs) == 0 {
		return "these directories"
	}
	return joinList(dirs)
}

func joinList(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}
