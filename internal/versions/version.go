// Package versions provides build version information for onto-registry.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const (
	unknownStr = "unknown"

	buildDateLayout = "2006-01-02 15:04:05 MST"
)

// Version information set by build using -ldflags
var (
	// Version is the current version of onto-registry
	Version = "dev"
	// Commit is the git commit hash of the build
	//nolint:goconst // This is a placeholder for the commit hash
	Commit = unknownStr
	// BuildDate is the date when the binary was built
	//nolint:goconst // This is a placeholder for the build date
	BuildDate = unknownStr
)

// VersionInfo represents the version information
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// String renders the version information as human-readable lines
func (v VersionInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Version:    %s\n", v.Version)
	fmt.Fprintf(&b, "Commit:     %s\n", v.Commit)
	fmt.Fprintf(&b, "Built:      %s\n", v.BuildDate)
	fmt.Fprintf(&b, "Go version: %s\n", v.GoVersion)
	fmt.Fprintf(&b, "Platform:   %s\n", v.Platform)
	return b.String()
}

// GetVersionInfo returns the version information
func GetVersionInfo() VersionInfo {
	var settings []debug.BuildSetting
	if info, ok := debug.ReadBuildInfo(); ok {
		settings = info.Settings
	}
	return resolve(Version, Commit, BuildDate, settings)
}

// resolve fills in development builds from VCS build settings
func resolve(version, commit, buildDate string, settings []debug.BuildSetting) VersionInfo {
	if strings.HasPrefix(version, "dev") {
		for _, s := range settings {
			switch {
			case s.Key == "vcs.revision" && commit == unknownStr:
				commit = s.Value
			case s.Key == "vcs.time" && buildDate == unknownStr:
				buildDate = s.Value
			}
		}
	}

	if t, err := time.Parse(time.RFC3339, buildDate); err == nil {
		buildDate = t.UTC().Format(buildDateLayout)
	}

	if version == "dev" {
		version = "build-" + shortCommit(commit)
	}

	return VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
