package api

import "github.com/MJE43/gridiron-dice/internal/match"

// Build metadata, overridden with -ldflags "-X ...api.EngineVersion=..."
var (
	EngineVersion = "dev"
	GitCommit     = "unknown"
	BuildTime     = "unknown"
)

// GetVersionInfo reports the build plus the match state schema it speaks.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		EngineVersion: EngineVersion,
		StateVersion:  match.Version,
		GitCommit:     GitCommit,
		BuildTime:     BuildTime,
	}
}
