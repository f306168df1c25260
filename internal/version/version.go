// Package version carries build metadata stamped in by the linker:
//
//	go build -ldflags "-X github.com/abdul-hamid-achik/resize.cheap/internal/version.Version=v1.2.0"
package version

import "fmt"

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Full is the long form shown by `resize version`.
func Full() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate)
}

// Short is what services report in logs, health and app_info.
func Short() string { return Version }
