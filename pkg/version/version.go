// Package version holds build information set through -ldflags.
package version

var (
	Version   = "v0.0.0-dev"
	GitCommit = "unknown"
)
