// Package version holds the build version, overridable at link time.
package version

// Version is the engine version reported by the API and backup manifests.
// Set with -ldflags "-X github.com/aristath/harmonia/internal/version.Version=v1.2.3".
var Version = "dev"
