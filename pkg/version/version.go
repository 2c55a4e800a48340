// Package version exposes the build's version derived from build metadata.
//
// Priority: -ldflags override > VCS info from debug.BuildInfo > "dev" fallback.
//
//	go build -ldflags "-X github.com/codeready-toolchain/crewviz/pkg/version.gitCommitOverride=$(git rev-parse HEAD)"
package version

import "runtime/debug"

// AppName is the application name used in version strings and the
// User-Agent sent to the message source.
const AppName = "crewviz"

// shortLen is the length of the reported commit hash.
const shortLen = 8

// gitCommitOverride is set via -ldflags for builds where .git is unavailable.
var gitCommitOverride string

// GitCommit is the short commit hash, or "dev" when build info has none
// (e.g. `go test`, builds outside a git checkout).
var GitCommit = resolveCommit(gitCommitOverride, readVCSRevision())

func readVCSRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

func resolveCommit(override, revision string) string {
	commit := override
	if commit == "" {
		commit = revision
	}
	if commit == "" {
		return "dev"
	}
	if len(commit) > shortLen {
		return commit[:shortLen]
	}
	return commit
}

// Full returns "crewviz/<commit>".
func Full() string {
	return AppName + "/" + GitCommit
}
