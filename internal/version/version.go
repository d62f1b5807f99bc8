// Package version reports the pagesmith build identity. Values are injected
// with -ldflags and fall back to the VCS settings embedded by the Go
// toolchain.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// These variables are set at build time using -ldflags, e.g.
//
//	-X github.com/conneroisu/pagesmith/internal/version.Version=v1.2.0
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// BuildInfo contains version and build information.
type BuildInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	Dirty     bool      `json:"dirty"`
}

// Get collects the build information of the running binary.
func Get() *BuildInfo {
	return fromSettings(vcsSettings())
}

func fromSettings(settings map[string]string) *BuildInfo {
	info := &BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: parseTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Dirty:     settings["vcs.modified"] == "true",
	}

	if info.GitCommit == "" || info.GitCommit == "unknown" {
		if rev, ok := settings["vcs.revision"]; ok {
			info.GitCommit = rev
		}
	}
	if info.BuildTime.IsZero() {
		info.BuildTime = parseTime(settings["vcs.time"])
	}
	if (info.Version == "" || info.Version == "dev") && len(info.GitCommit) >= 7 && info.GitCommit != "unknown" {
		info.Version = "dev-" + info.GitCommit[:7]
	}
	if info.Version == "" {
		info.Version = "dev"
	}

	return info
}

// IsRelease reports whether the binary was built from a tagged version.
func (b *BuildInfo) IsRelease() bool {
	return b.Version != "dev" && !strings.HasPrefix(b.Version, "dev-")
}

// Short returns the one-line form used by `pagesmith version`.
func (b *BuildInfo) Short() string {
	s := "pagesmith " + b.Version
	if b.IsRelease() && len(b.GitCommit) >= 7 && b.GitCommit != "unknown" {
		s += " (" + b.GitCommit[:7] + ")"
	}
	if b.Dirty {
		s += " (dirty)"
	}
	return s
}

func vcsSettings() map[string]string {
	settings := make(map[string]string)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return settings
	}
	for _, setting := range info.Settings {
		settings[setting.Key] = setting.Value
	}
	return settings
}

// parseTime accepts RFC3339 and a few common variants; anything else yields
// the zero time.
func parseTime(value string) time.Time {
	if value == "" || value == "unknown" {
		return time.Time{}
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
