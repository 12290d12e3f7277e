// Package version exposes build-time version information.
package version

var (
	// Version is the current version of skillgate, set at build time.
	Version = "dev"

	// GitCommit is the git commit SHA that was built.
	GitCommit = "unknown"
)
