package doctor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"toolview/config"
	"toolview/internal/backend"
	"toolview/internal/credentials"
	"toolview/internal/onboarding"
	"toolview/internal/permission"
)

type Status string

const (
	StatusOK   Status = "OK"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

type CheckResult struct {
	Name    string
	Status  Status
	Summary string
	Details []string
	Actions []string
}

type Report struct {
	Checks []CheckResult
}

func (r Report) HasFailures() bool {
	for _, check := range r.Checks {
		if check.Status == StatusFail {
			return true
		}
	}
	return false
}

func (r Report) ExitCode() int {
	if r.HasFailures() {
		return 1
	}
	return 0
}

type configInfo struct {
	dir      string
	file     string
	backends []config.BackendConfig
}

func GenerateReport() Report {
	var checks []CheckResult

	checks = append(checks, checkMetadata())

	configResult, cfgInfo := checkConfig()
	checks = append(checks, configResult)

	checks = append(checks, checkBackendBinaries(cfgInfo))
	checks = append(checks, checkAuthentication())
	checks = append(checks, checkPermissionSettings())
	checks = append(checks, checkOnboarding())
	checks = append(checks, checkDataStore())
	checks = append(checks, checkEnvironment())

	return Report{Checks: checks}
}

func checkMetadata() CheckResult {
	result := CheckResult{Name: "Runtime Metadata", Status: StatusOK}

	execPath, err := os.Executable()
	if err != nil {
		result.Status = StatusWarn
		result.Summary = "Could not resolve executable path"
		result.Details = append(result.Details, err.Error())
		result.Actions = append(result.Actions, "re-run from installed binary path")
		return result
	}

	buildInfo, ok := debug.ReadBuildInfo()
	goVersion := runtime.Version()
	summaryParts := []string{fmt.Sprintf("go runtime %s", goVersion)}
	if ok && buildInfo != nil {
		if buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
			summaryParts = append(summaryParts, fmt.Sprintf("module %s", buildInfo.Main.Version))
		}
		if buildInfo.Main.Sum != "" {
			summaryParts = append(summaryParts, fmt.Sprintf("sum %s", buildInfo.Main.Sum))
		}
	}

	result.Summary = strings.Join(summaryParts, ", ")
	result.Details = append(result.Details,
		fmt.Sprintf("Executable: %s", execPath),
		fmt.Sprintf("OS/Arch: %s/%s", runtime.GOOS, runtime.GOARCH),
	)

	if ok && buildInfo != nil {
		if buildInfo.Main.Path != "" {
			result.Details = append(result.Details, fmt.Sprintf("Module: %s", buildInfo.Main.Path))
		}
		if buildInfo.Main.Version == "(devel)" {
			result.Details = append(result.Details, "Build from local sources")
		}
		if buildInfo.Settings != nil {
			for _, setting := range buildInfo.Settings {
				if setting.Key == "vcs.revision" && setting.Value != "" {
					result.Details = append(result.Details, fmt.Sprintf("VCS Revision: %s", setting.Value))
				}
				if setting.Key == "vcs.time" && setting.Value != "" {
					result.Details = append(result.Details, fmt.Sprintf("VCS Time: %s", setting.Value))
				}
			}
		}
	}

	return result
}

func checkConfig() (CheckResult, *configInfo) {
	result := CheckResult{Name: "Configuration", Status: StatusOK}
	info := &configInfo{}

	configDir, err := config.GetConfigDir()
	if err != nil {
		result.Status = StatusFail
		result.Summary = "Unable to resolve config directory"
		result.Details = append(result.Details, err.Error())
		result.Actions = append(result.Actions, "verify HOME is set and accessible")
		return result, nil
	}
	info.dir = configDir
	result.Details = append(result.Details, fmt.Sprintf("Config directory: %s", configDir))

	stat, err := os.Stat(configDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Status = StatusWarn
			result.Summary = "Config directory missing"
			result.Actions = append(result.Actions, "run 'tv setup' to create defaults")
		} else {
			result.Status = StatusFail
			result.Summary = "Cannot access config directory"
			result.Details = append(result.Details, err.Error())
			result.Actions = append(result.Actions, "fix permissions on config directory")
		}
		return result, info
	}
	if !stat.IsDir() {
		result.Status = StatusFail
		result.Summary = "Config path is not a directory"
		result.Actions = append(result.Actions, "remove conflicting file and rerun setup")
		return result, info
	}

	if err := checkDirWritable(configDir); err != nil {
		result.Status = StatusWarn
		result.Details = append(result.Details, fmt.Sprintf("Directory not writable: %v", err))
		result.Actions = append(result.Actions, "adjust permissions so toolview can write config")
	}

	backendsFile, err := config.GetBackendsFile()
	if err != nil {
		result.Status = StatusFail
		result.Summary = "Unable to resolve backends file"
		result.Details = append(result.Details, err.Error())
		return result, info
	}
	info.file = backendsFile
	result.Details = append(result.Details, fmt.Sprintf("Backends file: %s", backendsFile))

	if _, err := os.Stat(backendsFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Status = StatusWarn
			result.Summary = "backends.yaml not found (built-in defaults apply)"
			result.Actions = append(result.Actions, "run 'tv setup' or create backends.yaml")
			return result, info
		}
		result.Status = StatusFail
		result.Summary = "Unable to read backends.yaml"
		result.Details = append(result.Details, err.Error())
		return result, info
	}

	registry, err := config.LoadBackendRegistry()
	if err != nil {
		result.Status = StatusFail
		result.Summary = "Failed to parse backends.yaml"
		result.Details = append(result.Details, err.Error())
		result.Actions = append(result.Actions, "fix YAML syntax in backends.yaml")
		return result, info
	}

	info.backends = registry.Backends

	backendCount := len(registry.Backends)
	result.Summary = fmt.Sprintf("Config loaded (%d backends)", backendCount)
	if backendCount == 0 {
		result.Status = StatusWarn
		result.Details = append(result.Details, "No backends configured yet")
		result.Actions = append(result.Actions, "add backends to backends.yaml or run setup wizard")
	}

	return result, info
}

func checkDirWritable(dir string) error {
	file, err := os.CreateTemp(dir, "doctor-")
	if err != nil {
		return err
	}
	name := file.Name()
	file.Close()
	if err := os.Remove(name); err != nil {
		return err
	}
	return nil
}

func checkBackendBinaries(cfg *configInfo) CheckResult {
	result := CheckResult{Name: "Backend Binaries", Status: StatusOK}

	if cfg == nil || len(cfg.backends) == 0 {
		result.Status = StatusWarn
		result.Summary = "No backends configured"
		result.Actions = append(result.Actions, "run 'tv setup' or add entries to backends.yaml")
		return result
	}

	enabled := 0
	found := 0
	for _, b := range cfg.backends {
		if !b.Enabled {
			result.Details = append(result.Details, fmt.Sprintf("%s: disabled", b.Name))
			continue
		}
		enabled++
		path, err := exec.LookPath(b.Command)
		if err != nil {
			result.Status = StatusWarn
			result.Details = append(result.Details, fmt.Sprintf("%s: %q not found in PATH", b.Name, b.Command))
			result.Actions = append(result.Actions, fmt.Sprintf("install %s or adjust PATH", b.Command))
			continue
		}
		found++
		result.Details = append(result.Details, fmt.Sprintf("%s: %s", b.Name, path))
	}

	if enabled == 0 {
		result.Status = StatusWarn
		result.Summary = "All configured backends are disabled"
		result.Actions = append(result.Actions, "enable a backend in backends.yaml")
		return result
	}

	result.Summary = fmt.Sprintf("%d of %d enabled backends resolvable", found, enabled)
	return result
}

func checkAuthentication() CheckResult {
	result := CheckResult{Name: "Backend Authentication", Status: StatusOK}

	kinds := []backend.Kind{backend.KindClaude, backend.KindCodex}
	available := 0
	for _, kind := range kinds {
		keyName, err := credentials.APIKeyNameFor(kind)
		if err != nil {
			continue
		}
		if os.Getenv(keyName) != "" {
			available++
			result.Details = append(result.Details, fmt.Sprintf("%s: exported in environment", keyName))
			continue
		}
		stored, err := credentials.HasAPIKey(kind)
		if err != nil {
			result.Status = StatusFail
			result.Summary = "Unable to access system keyring"
			result.Details = append(result.Details, err.Error())
			result.Actions = append(result.Actions, "confirm keyring backend is available")
			return result
		}
		if stored {
			available++
			result.Details = append(result.Details, fmt.Sprintf("%s: stored in keyring", keyName))
		} else {
			result.Details = append(result.Details, fmt.Sprintf("%s: not set", keyName))
		}
	}

	result.Summary = fmt.Sprintf("%d of %d backend keys available", available, len(kinds))
	if available == 0 {
		result.Status = StatusWarn
		result.Summary = "No backend API keys configured"
		result.Actions = append(result.Actions, "run 'tv setup' or store a key with 'tv secret create'")
	}

	return result
}

func checkPermissionSettings() CheckResult {
	result := CheckResult{Name: "Permission Settings", Status: StatusOK}

	settingsFile, err := config.GetSettingsFile()
	if err != nil {
		result.Status = StatusWarn
		result.Summary = "Unable to resolve settings path"
		result.Details = append(result.Details, err.Error())
		return result
	}

	if _, err := os.Stat(settingsFile); errors.Is(err, os.ErrNotExist) {
		result.Summary = "No saved rules (defaults apply)"
		return result
	}

	settings, err := permission.LoadSettings(settingsFile)
	if err != nil {
		result.Status = StatusWarn
		result.Summary = "Failed to parse settings file"
		result.Details = append(result.Details, err.Error())
		result.Actions = append(result.Actions, fmt.Sprintf("fix or remove %s", settingsFile))
		return result
	}

	result.Summary = fmt.Sprintf("%d allow / %d deny rules",
		len(settings.Permissions.Allow), len(settings.Permissions.Deny))
	if settings.Permissions.DefaultMode != "" {
		result.Details = append(result.Details, fmt.Sprintf("Default mode: %s", settings.Permissions.DefaultMode))
	}
	if len(settings.Directories) > 0 {
		result.Details = append(result.Details, fmt.Sprintf("Extra directories: %d", len(settings.Directories)))
	}

	return result
}

func checkOnboarding() CheckResult {
	result := CheckResult{Name: "Onboarding", Status: StatusOK}

	prefs, err := onboarding.LoadPreferences()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Status = StatusWarn
			result.Summary = "Onboarding preferences not found"
			result.Actions = append(result.Actions, "run 'tv setup' to configure preferences")
			return result
		}
		result.Status = StatusWarn
		result.Summary = "Unable to read onboarding preferences"
		result.Details = append(result.Details, err.Error())
		result.Actions = append(result.Actions, "rerun 'tv setup' to regenerate preferences")
		return result
	}

	if prefs.OnboardingComplete {
		result.Summary = "Onboarding complete"
	} else {
		result.Status = StatusWarn
		result.Summary = "Onboarding incomplete"
		result.Actions = append(result.Actions, "run 'tv setup' to finish configuration")
	}

	return result
}

func checkDataStore() CheckResult {
	result := CheckResult{Name: "Data Store", Status: StatusOK}

	dbPath, err := config.GetDatabasePath()
	if err != nil {
		result.Status = StatusWarn
		result.Summary = "Unable to resolve database path"
		result.Details = append(result.Details, err.Error())
		return result
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Status = StatusWarn
			result.Summary = "Database file not initialized"
			result.Actions = append(result.Actions, "run 'tv' to create toolview.db")
			return result
		}
		result.Status = StatusWarn
		result.Summary = "Cannot read history database"
		result.Details = append(result.Details, err.Error())
		return result
	}

	result.Summary = "Database available"
	result.Details = append(result.Details,
		fmt.Sprintf("Path: %s", dbPath),
		fmt.Sprintf("Size: %s", formatBytes(info.Size())),
		fmt.Sprintf("Last modified: %s", info.ModTime().Format(time.RFC3339)),
	)

	return result
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

func checkEnvironment() CheckResult {
	result := CheckResult{Name: "Environment", Status: StatusOK}

	term := os.Getenv("TERM")
	switch {
	case term == "":
		result.Status = StatusWarn
		result.Summary = "TERM is not set"
		result.Actions = append(result.Actions, "run from an interactive terminal")
	case term == "dumb":
		result.Status = StatusWarn
		result.Summary = "TERM=dumb cannot render the interface"
		result.Actions = append(result.Actions, "use a terminal with cursor addressing")
	default:
		result.Summary = "Terminal prerequisites satisfied"
		result.Details = append(result.Details, fmt.Sprintf("TERM: %s", term))
	}

	if colorterm := os.Getenv("COLORTERM"); colorterm != "" {
		result.Details = append(result.Details, fmt.Sprintf("COLORTERM: %s", colorterm))
	}

	if runtime.GOOS == "linux" && !clipboardHelperPresent() {
		result.Details = append(result.Details, "No clipboard helper found (xclip, xsel, or wl-clipboard)")
		result.Actions = append(result.Actions, "install xclip or wl-clipboard to enable copy")
	}

	if logsDir, err := config.GetLogsDir(); err == nil {
		if err := checkDirWritable(logsDir); err != nil {
			result.Status = StatusWarn
			result.Details = append(result.Details, fmt.Sprintf("Logs directory not writable: %v", err))
		}
	}

	return result
}

func clipboardHelperPresent() bool {
	for _, tool := range []string{"xclip", "xsel", "wl-copy"} {
		if _, err := exec.LookPath(tool); err == nil {
			return true
		}
	}
	return false
}
