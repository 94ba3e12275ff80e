// Package version holds build-time version metadata.
package version

import "fmt"

// Set by the release pipeline via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns the human-readable version line.
func String() string {
	return fmt.Sprintf("harbordesk %s (commit %s, built %s)", Version, Commit, Date)
}
