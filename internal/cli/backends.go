package cli

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"toolview/config"
)

// AddBackend adds a new backend to the registry
func AddBackend(name, kind, command string, args []string, model string, enabled bool) error {
	registry, err := config.LoadBackendRegistry()
	if err != nil {
		return fmt.Errorf("failed to load backend registry: %w", err)
	}

	// Check if backend already exists
	existing, _ := registry.GetBackend(name)
	if existing != nil {
		fmt.Printf("Backend '%s' already exists. Updating...\n", name)
	}

	cfg := config.BackendConfig{
		Name:    name,
		Kind:    kind,
		Command: command,
		Args:    args,
		Model:   model,
		Enabled: enabled,
	}

	// Add or update backend
	if err := registry.AddBackend(cfg); err != nil {
		return err
	}

	if err := config.SaveBackendRegistry(registry); err != nil {
		return fmt.Errorf("failed to save backend registry: %w", err)
	}

	registryPath, _ := config.GetBackendsFile()

	if existing != nil {
		fmt.Printf("✓ Updated backend '%s'\n", name)
	} else {
		fmt.Printf("✓ Added backend '%s'\n", name)
	}

	fmt.Printf("  Kind: %s\n", kind)
	fmt.Printf("  Command: %s\n", command)
	if model != "" {
		fmt.Printf("  Model: %s\n", model)
	}
	fmt.Printf("  Enabled: %v\n", enabled)
	fmt.Printf("  Registry: %s\n", registryPath)

	return nil
}

// ListBackends lists all configured backends
func ListBackends() error {
	registry, err := config.LoadBackendRegistry()
	if err != nil {
		return fmt.Errorf("failed to load backend registry: %w", err)
	}

	if len(registry.Backends) == 0 {
		fmt.Println("No backends configured")
		registryPath, _ := config.GetBackendsFile()
		fmt.Printf("\nAdd a backend with: tv backends add <name> --kind <claude|codex> --command <binary>\n")
		fmt.Printf("Example: tv backends add claude --kind claude --command claude\n")
		fmt.Printf("Config file: %s\n", registryPath)
		return nil
	}

	fmt.Printf("%-15s %-10s %-10s %-25s %s\n", "NAME", "KIND", "STATUS", "COMMAND", "MODEL")
	fmt.Printf("%-15s %-10s %-10s %-25s %s\n", "----", "----", "------", "-------", "-----")

	for _, b := range registry.Backends {
		status := "disabled"
		if b.Enabled {
			status = "enabled"
		}

		model := b.Model
		if model == "" {
			model = "-"
		}

		command := b.Command
		if len(b.Args) > 0 {
			command += " " + strings.Join(b.Args, " ")
		}

		fmt.Printf("%-15s %-10s %-10s %-25s %s\n", b.Name, b.Kind, status, command, model)
	}

	fmt.Printf("\nTotal: %d backend(s)\n", len(registry.Backends))
	return nil
}

// RemoveBackend removes a backend from the registry
func RemoveBackend(name string, force bool) error {
	registry, err := config.LoadBackendRegistry()
	if err != nil {
		return fmt.Errorf("failed to load backend registry: %w", err)
	}

	// Check if backend exists
	cfg, err := registry.GetBackend(name)
	if err != nil {
		return err
	}

	// Confirm unless --force is used
	if !force {
		fmt.Printf("Remove backend '%s' (%s)? (y/N): ", name, cfg.Command)
		var response string
		fmt.Scanln(&response)
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := registry.RemoveBackend(name); err != nil {
		return err
	}

	if err := config.SaveBackendRegistry(registry); err != nil {
		return fmt.Errorf("failed to save backend registry: %w", err)
	}

	fmt.Printf("✓ Removed backend '%s'\n", name)
	return nil
}

// TestBackend checks that a backend's CLI is installed and responds
func TestBackend(name string) error {
	registry, err := config.LoadBackendRegistry()
	if err != nil {
		return fmt.Errorf("failed to load backend registry: %w", err)
	}

	cfg, err := registry.GetBackend(name)
	if err != nil {
		return err
	}

	fmt.Printf("Testing backend '%s'...\n", name)
	fmt.Printf("  Command: %s\n", cfg.Command)

	path, err := exec.LookPath(cfg.Command)
	if err != nil {
		fmt.Printf("✗ Binary not found: %v\n", err)
		fmt.Printf("\nTroubleshooting:\n")
		fmt.Printf("  - Check that %q is installed\n", cfg.Command)
		fmt.Printf("  - Verify it is on your PATH\n")
		return fmt.Errorf("backend test failed")
	}
	fmt.Printf("✓ Binary resolved: %s\n", path)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, cfg.Command, "--version").CombinedOutput()
	if err != nil {
		fmt.Printf("✗ Version probe failed: %v\n", err)
		if len(out) > 0 {
			fmt.Printf("  Output: %s\n", strings.TrimSpace(string(out)))
		}
		return fmt.Errorf("backend test failed")
	}

	fmt.Printf("✓ Version: %s\n", strings.TrimSpace(string(out)))

	if !cfg.Enabled {
		fmt.Printf("\nNote: Backend is currently disabled. Enable with:\n")
		fmt.Printf("  tv backends add %s --kind %s --command %s --enabled\n", name, cfg.Kind, cfg.Command)
	}

	return nil
}
