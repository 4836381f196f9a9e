package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"toolview/internal/backend"
	"toolview/internal/permission"
)

// BackendConfig describes one launchable backend CLI.
type BackendConfig struct {
	Name    string   `yaml:"name"`
	Kind    string   `yaml:"kind"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
	Model   string   `yaml:"model,omitempty"`
	// Mode is the initial permission mode; empty means default.
	Mode    string            `yaml:"mode,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	Enabled bool              `yaml:"enabled"`
}

// BackendKind resolves the configured kind string.
func (c BackendConfig) BackendKind() (backend.Kind, bool) {
	return backend.ParseKind(c.Kind)
}

// PermissionMode resolves the configured initial mode.
func (c BackendConfig) PermissionMode() permission.Mode {
	return permission.ParseMode(c.Mode)
}

// EnvList renders the env map as KEY=VALUE pairs in a stable order, with
// ${VAR} references expanded from the environment.
func (c BackendConfig) EnvList() []string {
	if len(c.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, expandEnvVars(c.Env[k])))
	}
	return out
}

// Validate checks the entry is launchable.
func (c BackendConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("backend name cannot be empty")
	}
	if _, ok := c.BackendKind(); !ok {
		return fmt.Errorf("backend %q has unknown kind %q", c.Name, c.Kind)
	}
	if strings.TrimSpace(c.Command) == "" {
		return fmt.Errorf("backend %q has no command", c.Name)
	}
	return nil
}

// BackendRegistry holds all configured backends.
type BackendRegistry struct {
	Backends []BackendConfig `yaml:"backends"`
}

// LoadBackendRegistry loads backends.yaml. A missing file yields the
// built-in defaults, and the stock claude entry is always present so a
// fresh install can start a session without any configuration.
func LoadBackendRegistry() (*BackendRegistry, error) {
	registryPath, err := GetBackendsFile()
	if err != nil {
		return nil, err
	}

	var registry BackendRegistry

	if _, err := os.Stat(registryPath); os.IsNotExist(err) {
		registry = BackendRegistry{}
	} else {
		data, err := os.ReadFile(registryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read backend registry: %w", err)
		}

		if err := yaml.Unmarshal(data, &registry); err != nil {
			return nil, fmt.Errorf("failed to parse backend registry: %w", err)
		}

		for i := range registry.Backends {
			registry.Backends[i].Command = expandEnvVars(registry.Backends[i].Command)
		}
	}

	hasClaude := false
	for _, b := range registry.Backends {
		if b.Kind == string(backend.KindClaude) {
			hasClaude = true
			break
		}
	}

	if !hasClaude {
		registry.Backends = append([]BackendConfig{{
			Name:    "claude",
			Kind:    string(backend.KindClaude),
			Command: "claude",
			Enabled: true,
		}}, registry.Backends...)
	}

	return &registry, nil
}

// SaveBackendRegistry writes the registry to backends.yaml.
func SaveBackendRegistry(registry *BackendRegistry) error {
	registryPath, err := GetBackendsFile()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(registry)
	if err != nil {
		return fmt.Errorf("failed to marshal backend registry: %w", err)
	}

	if err := os.WriteFile(registryPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write backend registry: %w", err)
	}

	return nil
}

// AddBackend adds or replaces a backend entry by name.
func (r *BackendRegistry) AddBackend(cfg BackendConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	for i, b := range r.Backends {
		if b.Name == cfg.Name {
			r.Backends[i] = cfg
			return nil
		}
	}

	r.Backends = append(r.Backends, cfg)
	return nil
}

// RemoveBackend removes a backend entry by name.
func (r *BackendRegistry) RemoveBackend(name string) error {
	for i, b := range r.Backends {
		if b.Name == name {
			r.Backends = append(r.Backends[:i], r.Backends[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("backend '%s' not found", name)
}

// GetBackend returns a backend entry by name.
func (r *BackendRegistry) GetBackend(name string) (*BackendConfig, error) {
	for _, b := range r.Backends {
		if b.Name == name {
			return &b, nil
		}
	}
	return nil, fmt.Errorf("backend '%s' not found", name)
}

// DefaultBackend returns the first enabled entry.
func (r *BackendRegistry) DefaultBackend() (*BackendConfig, error) {
	for _, b := range r.Backends {
		if b.Enabled {
			return &b, nil
		}
	}
	return nil, fmt.Errorf("no enabled backends configured")
}

// expandEnvVars expands environment variables in the format ${VAR_NAME}
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}

	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}
