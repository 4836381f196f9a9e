package permission

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings is the on-disk form of a persisted rule set. Rules use the
// compact "Tool(content)" notation.
type Settings struct {
	Permissions struct {
		Allow       []string `yaml:"allow,omitempty"`
		Deny        []string `yaml:"deny,omitempty"`
		DefaultMode string   `yaml:"defaultMode,omitempty"`
	} `yaml:"permissions"`
	Directories []string `yaml:"directories,omitempty"`
}

// LoadSettings reads a settings file. A missing file yields empty settings.
func LoadSettings(path string) (Settings, error) {
	var settings Settings
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse settings: %w", err)
	}
	return settings, nil
}

// SaveSettings writes a settings file, creating parent directories as
// needed.
func SaveSettings(path string, settings Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
