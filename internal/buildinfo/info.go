// Package buildinfo carries version details stamped in at build time.
package buildinfo

var (
	// Version is set via ldflags during release builds.
	Version = "dev"
	// Commit is set via ldflags during release builds.
	Commit = "none"
	// Date is set via ldflags during release builds.
	Date = "unknown"
)
