// Package version holds build-time version information.
// These variables are set via -ldflags at build time.
package version

var (
	// GitRelease is the git tag or release version.
	GitRelease = "dev"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"
)
