package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time. When empty the VCS
	// revision recorded by the Go toolchain is used.
	Commit = ""
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = ""
)

// shortCommit is the length of a printed commit hash.
const shortCommit = 12

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns the version with commit and build time.
func Full() string {
	commit, built := Commit, BuildTime
	if commit == "" || built == "" {
		vcsCommit, vcsTime, modified := vcs()
		if commit == "" {
			commit = vcsCommit
			if modified {
				commit += "-dirty"
			}
		}

		if built == "" {
			built = vcsTime
		}
	}

	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, orUnknown(commit), orUnknown(built))
}

// vcs reads the revision stamped into the binary by go build.
func vcs() (revision, at string, modified bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", "", false
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
			if len(revision) > shortCommit {
				revision = revision[:shortCommit]
			}
		case "vcs.time":
			at = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}

	return revision, at, modified
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}

	return s
}
