package permission

import "strings"

// Destination names the persistence scope of an update.
type Destination string

const (
	DestSession         Destination = "session"
	DestProjectSettings Destination = "projectSettings"
	DestLocalSettings   Destination = "localSettings"
	DestUserSettings    Destination = "userSettings"
)

// ParseDestination maps a wire string onto a Destination, defaulting to the
// session scope.
func ParseDestination(s string) Destination {
	switch strings.TrimSpace(s) {
	case string(DestProjectSettings), "project":
		return DestProjectSettings
	case string(DestLocalSettings), "local":
		return DestLocalSettings
	case string(DestUserSettings), "user", "global":
		return DestUserSettings
	default:
		return DestSession
	}
}

// Label returns the human form of the destination. Unknown destinations
// render as-is so a newer backend vocabulary still produces a sentence.
func (d Destination) Label() string {
	switch d {
	case DestSession, "":
		return "this session"
	case DestProjectSettings:
		return "project settings"
	case DestLocalSettings:
		return "local project settings"
	case DestUserSettings:
		return "user settings"
	default:
		return string(d)
	}
}

// Behavior says whether matched rules allow or deny the call.
type Behavior string

const (
	BehaviorAllow Behavior = "allow"
	BehaviorDeny  Behavior = "deny"
)

// UpdateType discriminates the Update variants.
type UpdateType string

const (
	UpdateAddRules          UpdateType = "addRules"
	UpdateReplaceRules      UpdateType = "replaceRules"
	UpdateRemoveRules       UpdateType = "removeRules"
	UpdateSetMode           UpdateType = "setMode"
	UpdateAddDirectories    UpdateType = "addDirectories"
	UpdateRemoveDirectories UpdateType = "removeDirectories"
)

// Update is one suggested (or applied) permission change. It is a tagged
// variant: Type selects which payload fields are meaningful.
type Update struct {
	Type        UpdateType  `json:"type"`
	Rules       []Rule      `json:"rules,omitempty"`
	Behavior    Behavior    `json:"behavior,omitempty"`
	Mode        Mode        `json:"mode,omitempty"`
	Directories []string    `json:"directories,omitempty"`
	Destination Destination `json:"destination,omitempty"`
}

// SetModeUpdate builds the mode-switch variant.
func SetModeUpdate(mode Mode) Update {
	return Update{Type: UpdateSetMode, Mode: mode, Destination: DestSession}
}
