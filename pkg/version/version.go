// Package version holds build-time version information.
package version

var (
	// Version is the semantic version, set via ldflags at build time.
	Version = "dev"
	// Commit is the git commit hash, set via ldflags at build time.
	Commit = "unknown"
	// BuildDate is the build timestamp, set via ldflags at build time.
	BuildDate = "unknown"
)
