// Package version reports the build identity of backupradar binaries.
package version

import "fmt"

// Set with -ldflags "-X github.com/carverauto/backupradar/pkg/version.version=..."
//
//nolint:gochecknoglobals // injected at link time
var (
	version = "dev"
	buildID = "dev"
)

func GetVersion() string {
	return version
}

func GetBuildID() string {
	return buildID
}

// GetFullVersion returns version with build ID
func GetFullVersion() string {
	return version + " (build: " + buildID + ")"
}

// Banner is the one-line -version output for the named binary.
func Banner(binary string) string {
	return fmt.Sprintf("%s %s", binary, GetFullVersion())
}
