// Package misc holds small process-wide identity helpers (name, version,
// git hash) used by logging and reporting setup.
package misc

var (
	appName = "diagconv"
	version = "dev"
	gitHash = "unknown"
)

// GetAppName returns the program's short name, used for log file naming and
// temp file name patterns.
func GetAppName() string {
	return appName
}

// GetVersion returns the build version string, overridden at link time via
// -ldflags "-X github.com/bburda42dot/diag-converter-sub001/misc.version=...".
func GetVersion() string {
	return version
}

// GetGitHash returns the build's source commit hash, overridden at link time.
func GetGitHash() string {
	return gitHash
}
