package onboarding

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"toolview/config"
	"toolview/internal/backend"
	"toolview/internal/credentials"
	"toolview/internal/permission"
)

var (
	wizardPrimary = lipgloss.Color("#f7c0af")
	wizardMuted   = lipgloss.Color("240")

	wizardTitleStyle = lipgloss.NewStyle().Foreground(wizardPrimary).Bold(true)
	wizardHelpStyle  = lipgloss.NewStyle().Foreground(wizardMuted)
)

// ErrCancelled is returned when the user aborts the wizard.
var ErrCancelled = errors.New("setup cancelled")

// RunWizard walks through first-run configuration: which backend CLI to
// drive, its default permission mode, and an optional API key for the
// keyring. It writes the backend registry entry and marks onboarding
// complete.
func RunWizard() error {
	var (
		kindChoice string
		command    string
		modeChoice string
		apiKey     string
	)

	theme := wizardTheme()

	kindForm := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Toolview setup").
				Description("Toolview renders the tool calls, permission prompts and\nquestions of an AI coding assistant.\n\nPick the backend CLI it should drive."),
			huh.NewSelect[string]().
				Title("Backend").
				Options(
					huh.NewOption("Claude Code (claude)", string(backend.KindClaude)),
					huh.NewOption("Codex CLI (codex)", string(backend.KindCodex)),
				).
				Value(&kindChoice),
		),
	).WithTheme(theme)
	if err := kindForm.Run(); err != nil {
		return wizardErr(err)
	}

	kind, _ := backend.ParseKind(kindChoice)
	command = string(kind)

	detailForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Command").
				Description("Binary to launch; a bare name is resolved on PATH.").
				Value(&command).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("command cannot be empty")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Permission mode").
				Description("How tool authorization starts out for new sessions.").
				Options(
					huh.NewOption("Default (ask before sensitive tools)", string(permission.ModeDefault)),
					huh.NewOption("Accept edits (file changes pre-approved)", string(permission.ModeAcceptEdits)),
					huh.NewOption("Plan (read-only until a plan is approved)", string(permission.ModePlan)),
				).
				Value(&modeChoice),
			huh.NewInput().
				Title("API key (optional)").
				Description("Stored in the system keyring and passed to the backend\nas environment. Leave empty to use your shell's setup.").
				Password(true).
				Value(&apiKey),
		),
	).WithTheme(theme)
	if err := detailForm.Run(); err != nil {
		return wizardErr(err)
	}

	if key := strings.TrimSpace(apiKey); key != "" {
		if err := credentials.SetAPIKey(kind, key); err != nil {
			return fmt.Errorf("failed to store API key: %w", err)
		}
	}

	registry, err := config.LoadBackendRegistry()
	if err != nil {
		return err
	}
	entry := config.BackendConfig{
		Name:    string(kind),
		Kind:    string(kind),
		Command: strings.TrimSpace(command),
		Mode:    modeChoice,
		Enabled: true,
	}
	if err := registry.AddBackend(entry); err != nil {
		return err
	}
	if err := config.SaveBackendRegistry(registry); err != nil {
		return err
	}

	if err := SavePreferences(Preferences{
		OnboardingComplete: true,
		DefaultBackend:     entry.Name,
	}); err != nil {
		return err
	}

	fmt.Println(wizardTitleStyle.Render("Setup complete."))
	if _, err := exec.LookPath(entry.Command); err != nil {
		fmt.Println(wizardHelpStyle.Render(fmt.Sprintf("Note: %q is not on PATH yet; install it before starting a session.", entry.Command)))
	}
	fmt.Println(wizardHelpStyle.Render("Run 'tv' to start a session, or 'tv doctor' to check the install."))
	return nil
}

func wizardErr(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrCancelled
	}
	return err
}

func wizardTheme() *huh.Theme {
	theme := huh.ThemeBase16()
	theme.Focused.Title = theme.Focused.Title.Foreground(wizardPrimary).Bold(true)
	theme.Focused.SelectedOption = theme.Focused.SelectedOption.Foreground(wizardPrimary)
	theme.Focused.Description = theme.Focused.Description.Foreground(wizardMuted)
	theme.FieldSeparator = lipgloss.NewStyle().SetString("\n")
	return theme
}
