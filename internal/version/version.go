// Package version carries build identification, populated at link time
// via -ldflags.
package version

var (
	// Version is the release version; dev builds keep the fallback.
	Version = "v0.3.0"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)
