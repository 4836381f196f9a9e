// Package tui is the interactive terminal client: one live backend
// session, its transcript of prose and tool cards, and the overlays that
// mediate permission requests and question batches.
package tui

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea/v2"

	"toolview/config"
	"toolview/internal/backend"
	"toolview/internal/bridge"
	"toolview/internal/history"
	"toolview/internal/logging"
	"toolview/internal/permission"
	"toolview/internal/session"
)

// Options selects what the root command launches.
type Options struct {
	// Backend names a configured backend entry; empty picks the first
	// enabled one.
	Backend string
	Cwd     string
	Model   string
	Mode    string
	// Resume continues an existing backend session by its backend ID.
	Resume string
}

// Start launches the configured backend, wraps it in a session, and runs
// the terminal program until the user quits.
func Start(opts Options) error {
	if dir, err := config.GetLogsDir(); err == nil {
		if err := logging.EnableFileLogging(dir, logging.LevelInfo); err != nil {
			fmt.Fprintf(os.Stderr, "file logging disabled: %v\n", err)
		}
	}
	defer logging.Close()

	registry, err := config.LoadBackendRegistry()
	if err != nil {
		return err
	}
	var cfg *config.BackendConfig
	if opts.Backend != "" {
		cfg, err = registry.GetBackend(opts.Backend)
	} else {
		cfg, err = registry.DefaultBackend()
	}
	if err != nil {
		return err
	}
	kind, ok := cfg.BackendKind()
	if !ok {
		return fmt.Errorf("backend %q has unknown kind %q", cfg.Name, cfg.Kind)
	}

	cwd := opts.Cwd
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	mode := cfg.PermissionMode()
	if opts.Mode != "" {
		mode = permission.ParseMode(opts.Mode)
	}
	model := opts.Model
	if model == "" {
		model = cfg.Model
	}
	userSettings, _ := config.GetSettingsFile()

	sess, err := session.Launch(session.LaunchSpec{
		Kind:         kind,
		Command:      backend.Command{Path: cfg.Command, Args: cfg.Args, Env: cfg.EnvList()},
		Model:        model,
		Cwd:          cwd,
		Resume:       opts.Resume,
		Mode:         mode,
		UserSettings: userSettings,
	})
	if err != nil {
		return fmt.Errorf("launching %s: %w", cfg.Name, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store *history.Store
	var rec *history.Recorder
	if s, err := history.OpenDefault(); err != nil {
		logging.Warn("session history disabled", "error", err)
	} else {
		store = s
		rec = history.Record(ctx, store, sess)
		defer store.Close()
	}

	m := newModel(ctx, sess, store, bridge.Desktop{})
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, runErr := p.Run()

	cancel()
	if rec != nil {
		<-rec.Done()
	}
	if err := sess.Close(); err != nil {
		// The backend exiting noisily after a clean quit is log fodder,
		// not a user-facing failure.
		logging.Warn("closing session", "error", err)
	}
	return runErr
}
