package version

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Get returns the build version, "dev" for unstamped builds.
func Get() string {
	if Version == "" {
		return "dev"
	}
	return Version
}
