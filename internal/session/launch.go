package session

import (
	"fmt"
	"path/filepath"

	"toolview/internal/backend"
	"toolview/internal/backend/claude"
	"toolview/internal/backend/codex"
	"toolview/internal/credentials"
	"toolview/internal/logging"
	"toolview/internal/permission"
)

// LaunchSpec describes how to start a backend conversation.
type LaunchSpec struct {
	Kind    backend.Kind
	Command backend.Command
	Model   string
	Cwd     string
	// Resume continues an existing backend session by its backend ID.
	Resume string
	Mode   permission.Mode
	Title  string
	// UserSettings points at the user-scope permission settings file;
	// project and local scopes are derived from Cwd when it is set.
	UserSettings string
}

// Launch starts the backend subprocess for spec and wraps it in a
// Session with its permission scopes bound.
func Launch(spec LaunchSpec) (*Session, error) {
	perms := permission.NewStore()
	bind := func(dest permission.Destination, path string) {
		if path == "" {
			return
		}
		if err := perms.Bind(dest, path); err != nil {
			logging.Warn("loading permission settings", "path", path, "error", err)
		}
	}
	bind(permission.DestUserSettings, spec.UserSettings)
	if spec.Cwd != "" {
		bind(permission.DestProjectSettings, filepath.Join(spec.Cwd, ".toolview", "settings.yaml"))
		bind(permission.DestLocalSettings, filepath.Join(spec.Cwd, ".toolview", "settings.local.yaml"))
	}
	if spec.Mode.Valid() {
		perms.SetMode(spec.Mode)
	}

	command := spec.Command
	if command.Dir == "" {
		command.Dir = spec.Cwd
	}
	// A key stored in the keyring reaches the subprocess as environment;
	// an already-exported variable wins.
	command.Env = append(command.Env, credentials.EnvFor(spec.Kind)...)

	var b backend.Session
	switch spec.Kind {
	case backend.KindClaude:
		cs, err := claude.NewSession(claude.Options{
			Command: command,
			Model:   spec.Model,
			Mode:    spec.Mode,
			Resume:  spec.Resume,
		})
		if err != nil {
			return nil, err
		}
		b = cs
	case backend.KindCodex:
		b = codex.NewSession(codex.Options{
			Command: command,
			Model:   spec.Model,
			Mode:    spec.Mode,
			Resume:  spec.Resume,
		})
	default:
		return nil, fmt.Errorf("unknown backend kind %q", spec.Kind)
	}

	return New(b, Config{
		Kind:  spec.Kind,
		Title: spec.Title,
		Cwd:   spec.Cwd,
		Perms: perms,
	}), nil
}
