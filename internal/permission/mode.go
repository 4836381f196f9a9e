// Package permission defines the permission vocabulary shared by the
// backends and the interaction layer: modes, persistent rule updates,
// destinations, and the per-session store that evaluates them.
package permission

import "strings"

// Mode is the backend permission mode for a session.
type Mode string

const (
	ModeDefault     Mode = "default"
	ModeAcceptEdits Mode = "acceptEdits"
	ModePlan        Mode = "plan"
	ModeBypass      Mode = "bypassPermissions"
)

// Modes lists every mode in cycle order.
var Modes = []Mode{ModeDefault, ModeAcceptEdits, ModePlan, ModeBypass}

// ParseMode maps a wire string onto a Mode, defaulting to ModeDefault.
func ParseMode(s string) Mode {
	switch strings.TrimSpace(s) {
	case string(ModeAcceptEdits), "accept-edits", "accept_edits":
		return ModeAcceptEdits
	case string(ModePlan):
		return ModePlan
	case string(ModeBypass), "bypass", "yolo":
		return ModeBypass
	default:
		return ModeDefault
	}
}

// Label returns the human form of the mode.
func (m Mode) Label() string {
	switch m {
	case ModeAcceptEdits:
		return "accept edits"
	case ModePlan:
		return "plan"
	case ModeBypass:
		return "bypass permissions"
	default:
		return "default"
	}
}

// Next returns the mode after m in cycle order, wrapping around.
func (m Mode) Next() Mode {
	for i, mode := range Modes {
		if mode == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return ModeDefault
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	for _, mode := range Modes {
		if mode == m {
			return true
		}
	}
	return false
}
