package version

import (
	"fmt"
)

var (
	// These are set at build time via ldflags
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// GetFullVersion returns version with commit and build info
func GetFullVersion() string {
	if Commit != "unknown" && Date != "unknown" {
		return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
	}

	return Version
}
