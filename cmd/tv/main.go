package main

import (
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/spf13/cobra"

	"toolview/internal/cli"
	"toolview/internal/onboarding"
	"toolview/internal/tui"
	"toolview/updater"
	"toolview/version"
)

var (
	tuiCPUProfilePath string
	rootBackend       string
	rootCwd           string
	rootModel         string
	rootMode          string
	rootResume        string
)

var rootCmd = &cobra.Command{
	Use:   "tv",
	Short: "Toolview",
	Run: func(cmd *cobra.Command, args []string) {
		// Check if this is the first run
		if onboarding.IsFirstRun() {
			fmt.Println("Welcome to Toolview! Let's get you set up.")
			if err := onboarding.RunWizard(); err != nil {
				log.Fatalf("Setup failed: %v", err)
			}
			return
		}

		var stopProfile func()
		if tuiCPUProfilePath != "" {
			cleanup, err := startTUICPUProfile(tuiCPUProfilePath)
			if err != nil {
				log.Fatalf("failed to start CPU profiling: %v", err)
			}
			stopProfile = cleanup
			defer func() {
				if stopProfile != nil {
					stopProfile()
				}
			}()
		}

		err := tui.Start(tui.Options{
			Backend: rootBackend,
			Cwd:     rootCwd,
			Model:   rootModel,
			Mode:    rootMode,
			Resume:  rootResume,
		})
		if err != nil {
			if stopProfile != nil {
				stopProfile()
				stopProfile = nil
			}
			log.Fatal(err)
		}
	},
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the setup wizard",
	Run: func(cmd *cobra.Command, args []string) {
		if err := onboarding.RunWizard(); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check installation and runtime health",
	Run: func(cmd *cobra.Command, args []string) {
		exitCode, err := cli.Doctor(cmd.OutOrStdout())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay [transcript.jsonl]",
	Short: "Render a recorded backend stream",
	Long: `Render a recorded backend JSONL stream through the display pipeline.

The transcript is the line stream a backend CLI wrote to stdout. Tool calls
render as the same cards the interactive view shows.

Examples:
  tv replay session.jsonl
  tv replay session.jsonl --json | jq -r .primary
  tv replay live.jsonl --follow --backend codex`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		backendName, _ := cmd.Flags().GetString("backend")
		jsonMode, _ := cmd.Flags().GetBool("json")
		follow, _ := cmd.Flags().GetBool("follow")

		err := cli.Replay(args[0], cli.ReplayOptions{
			Backend: backendName,
			JSON:    jsonMode,
			Follow:  follow,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Browse recorded sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sessions",
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.ListSessions(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print one recorded transcript",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.ShowSession(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a recorded session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		if err := cli.DeleteSession(args[0], force); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Manage backend CLI entries",
}

var backendsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured backends",
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.ListBackends(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var backendsAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add or update a backend entry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, _ := cmd.Flags().GetString("kind")
		command, _ := cmd.Flags().GetString("command")
		cmdArgs, _ := cmd.Flags().GetStringSlice("args")
		model, _ := cmd.Flags().GetString("model")
		enabled, _ := cmd.Flags().GetBool("enabled")

		if command == "" {
			command = args[0]
		}
		if err := cli.AddBackend(args[0], kind, command, cmdArgs, model, enabled); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var backendsRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a backend entry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		if err := cli.RemoveBackend(args[0], force); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var backendsTestCmd = &cobra.Command{
	Use:   "test [name]",
	Short: "Check that a backend CLI is installed and responds",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.TestBackend(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage secrets in the system keyring (backend API keys included)",
}

var secretCreateCmd = &cobra.Command{
	Use:   "create [name] [value]",
	Short: "Store a new secret value",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		value := ""
		if len(args) > 1 {
			value = args[1]
		}
		if err := cli.CreateSecret(name, value); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var secretUpdateCmd = &cobra.Command{
	Use:   "update [name] [value]",
	Short: "Replace a stored secret value",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		value := ""
		if len(args) > 1 {
			value = args[1]
		}
		if err := cli.UpdateSecret(name, value); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Remove a stored secret",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.DeleteSecret(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var secretReadCmd = &cobra.Command{
	Use:   "read [name]",
	Short: "Read a secret value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		value, err := cli.ReadSecret(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(value)
	},
}

var secretListCmd = &cobra.Command{
	Use:   "list",
	Short: "List secrets registered with toolview",
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.ListSecrets(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var secretStatusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Check whether a secret exists",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.SecretStatus(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Version information and update commands",
}

var versionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("toolview version %s\n", version.Get())
	},
}

var versionCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check for available updates",
	Run: func(cmd *cobra.Command, args []string) {
		includePrerelease, _ := cmd.Flags().GetBool("pre-release")
		fmt.Println("Checking for updates...")
		info, err := updater.CheckForUpdates(includePrerelease)
		if err != nil {
			// Handle "no releases" gracefully
			if strings.Contains(err.Error(), "no releases found") {
				fmt.Printf("Current version: %s\n", version.Get())
				fmt.Println("\n✓ No releases published yet on GitHub")
				return
			}
			fmt.Fprintf(os.Stderr, "Error checking for updates: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Current version: %s\n", info.CurrentVersion)
		fmt.Printf("Latest version:  %s\n", info.LatestVersion)

		if info.Available {
			fmt.Printf("\n✓ Update available!\n")
			fmt.Printf("Run 'tv version update' to install version %s\n", info.LatestVersion)
		} else {
			fmt.Println("\n✓ You are running the latest version")
		}
	},
}

var versionUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update to the latest version",
	Run: func(cmd *cobra.Command, args []string) {
		includePrerelease, _ := cmd.Flags().GetBool("pre-release")
		fmt.Println("Checking for updates...")
		info, err := updater.CheckForUpdates(includePrerelease)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error checking for updates: %v\n", err)
			os.Exit(1)
		}

		if !info.Available {
			fmt.Println("✓ You are already running the latest version")
			return
		}

		fmt.Printf("Current version: %s\n", info.CurrentVersion)
		fmt.Printf("Latest version:  %s\n\n", info.LatestVersion)
		fmt.Println("Downloading and installing update...")

		if err := updater.DownloadAndInstall(info); err != nil {
			fmt.Fprintf(os.Stderr, "Error installing update: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n✓ Successfully updated to version %s\n", info.LatestVersion)
	},
}

func startTUICPUProfile(path string) (func(), error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create cpu profile file: %w", err)
	}

	if err := pprof.StartCPUProfile(file); err != nil {
		file.Close()
		return nil, fmt.Errorf("start cpu profile: %w", err)
	}

	fmt.Printf("Recording TUI CPU profile to %s\n", path)

	return func() {
		pprof.StopCPUProfile()
		file.Close()
		fmt.Printf("Saved TUI CPU profile to %s\n", path)
	}, nil
}

func init() {
	// Disable the default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().StringVar(&tuiCPUProfilePath, "tui-cpuprofile", "", "Write TUI CPU profile to file")
	rootCmd.Flags().StringVarP(&rootBackend, "backend", "b", "", "Backend entry to launch (defaults to the first enabled one)")
	rootCmd.Flags().StringVar(&rootCwd, "cwd", "", "Working directory for the session")
	rootCmd.Flags().StringVar(&rootModel, "model", "", "Model override for this session")
	rootCmd.Flags().StringVar(&rootMode, "mode", "", "Initial permission mode (default|acceptEdits|bypassPermissions|plan)")
	rootCmd.Flags().StringVar(&rootResume, "resume", "", "Resume a backend session by its ID")

	replayCmd.Flags().String("backend", "", "Adapter to use (claude|codex; sniffed from the stream when omitted)")
	replayCmd.Flags().Bool("json", false, "Emit one JSON line per tool call instead of styled output")
	replayCmd.Flags().BoolP("follow", "f", false, "Keep reading as the transcript grows")

	sessionsDeleteCmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)

	backendsAddCmd.Flags().String("kind", "claude", "Backend kind (claude|codex)")
	backendsAddCmd.Flags().String("command", "", "Binary to launch (defaults to the entry name)")
	backendsAddCmd.Flags().StringSlice("args", nil, "Extra arguments for every launch")
	backendsAddCmd.Flags().String("model", "", "Default model for this backend")
	backendsAddCmd.Flags().Bool("enabled", true, "Enable the backend entry")
	backendsRemoveCmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")
	backendsCmd.AddCommand(backendsListCmd)
	backendsCmd.AddCommand(backendsAddCmd)
	backendsCmd.AddCommand(backendsRemoveCmd)
	backendsCmd.AddCommand(backendsTestCmd)

	secretCmd.AddCommand(secretCreateCmd)
	secretCmd.AddCommand(secretUpdateCmd)
	secretCmd.AddCommand(secretDeleteCmd)
	secretCmd.AddCommand(secretReadCmd)
	secretCmd.AddCommand(secretListCmd)
	secretCmd.AddCommand(secretStatusCmd)

	// Add version subcommands
	versionCheckCmd.Flags().Bool("pre-release", false, "Include pre-release versions")
	versionUpdateCmd.Flags().Bool("pre-release", false, "Include pre-release versions")
	versionCmd.AddCommand(versionShowCmd)
	versionCmd.AddCommand(versionCheckCmd)
	versionCmd.AddCommand(versionUpdateCmd)

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(backendsCmd)
	rootCmd.AddCommand(secretCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
