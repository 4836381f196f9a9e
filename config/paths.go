package config

import (
	"os"
	"path/filepath"
)

const AppName = "toolview"

// GetConfigDir returns ~/.config/toolview, creating it on first use.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(homeDir, ".config", AppName)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return configDir, nil
}

// GetBackendsFile returns the path to backends.yaml.
func GetBackendsFile() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "backends.yaml"), nil
}

// GetSettingsFile returns the user-scope permission settings path.
func GetSettingsFile() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "settings.yaml"), nil
}

// GetDatabasePath returns the path of the history database.
func GetDatabasePath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "toolview.db"), nil
}

// GetLogsDir returns the log directory, creating it on first use.
func GetLogsDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	logsDir := filepath.Join(configDir, "logs")

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return "", err
	}

	return logsDir, nil
}

// GetLogPath returns the application log file path.
func GetLogPath() (string, error) {
	logsDir, err := GetLogsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(logsDir, "toolview.log"), nil
}

// EnsureBackendsExists writes a starter backends.yaml when none exists.
func EnsureBackendsExists() error {
	backendsFile, err := GetBackendsFile()
	if err != nil {
		return err
	}

	if _, err := os.Stat(backendsFile); os.IsNotExist(err) {
		defaultConfig := `backends:
  - name: "claude"
    kind: "claude"
    command: "claude"
    enabled: true

  - name: "codex"
    kind: "codex"
    command: "codex"
    enabled: true
`

		if err := os.WriteFile(backendsFile, []byte(defaultConfig), 0644); err != nil {
			return err
		}
	}

	return nil
}
