package onboarding

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"toolview/config"
)

// Preferences is the small yaml file recording one-time setup state.
type Preferences struct {
	OnboardingComplete bool   `yaml:"onboarding_complete"`
	DefaultBackend     string `yaml:"default_backend,omitempty"`
}

func preferencesPath() (string, error) {
	configDir, err := config.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "preferences.yaml"), nil
}

// LoadPreferences reads preferences.yaml. A missing file surfaces as
// os.ErrNotExist so callers can tell "never ran setup" from a bad file.
func LoadPreferences() (Preferences, error) {
	var prefs Preferences
	path, err := preferencesPath()
	if err != nil {
		return prefs, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return prefs, err
	}
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return prefs, fmt.Errorf("failed to parse preferences: %w", err)
	}
	return prefs, nil
}

// SavePreferences writes preferences.yaml, creating the config dir first.
func SavePreferences(prefs Preferences) error {
	path, err := preferencesPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// IsFirstRun reports whether setup has never completed. Any trouble
// reading the preferences counts as a first run.
func IsFirstRun() bool {
	prefs, err := LoadPreferences()
	if err != nil {
		return true
	}
	return !prefs.OnboardingComplete
}
