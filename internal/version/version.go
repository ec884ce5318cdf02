// Package version carries build metadata stamped in at link time.
package version

var (
	// Version is the semantic version, overridden via ldflags on release builds.
	Version = "dev"
	// Commit is the short git hash of the build.
	Commit = "none"
	// BuildDate is the RFC 3339 timestamp of the build.
	BuildDate = "unknown"
)
