// Package version provides build metadata, set through -ldflags at release time.
package version

import (
	"fmt"
	"log/slog"
	"runtime"
)

var (
	// BuildVersion is the semantic version of the build
	BuildVersion = "0.1.0"

	// BuildCommit is the git commit hash of the build
	BuildCommit = "unknown"

	// BuildDate is the date and time of the build
	BuildDate = "unknown"
)

// String returns the one-line banner printed by -version.
func String() string {
	return fmt.Sprintf("parkmcp %s (commit %s, built %s, %s %s/%s)",
		BuildVersion, BuildCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// LogAttr groups the build metadata for structured startup logs.
func LogAttr() slog.Attr {
	return slog.Group("build",
		slog.String("version", BuildVersion),
		slog.String("commit", BuildCommit),
		slog.String("date", BuildDate),
		slog.String("go", runtime.Version()),
	)
}
