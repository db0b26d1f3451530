// Package version reports build information for the service binaries.
//
// Version, BuildDate and GitCommit are set at build time:
//
//	go build -ldflags "-X github.com/information-sharing-networks/verifiedid-demo/internal/version.Version=v1.2.0"
package version

import (
	"runtime/debug"
)

var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Info holds the build metadata reported by --version and GET /version
type Info struct {
	Version   string `json:"version" example:"v1.0.0"`
	BuildDate string `json:"buildDate" example:"2026-01-28T10:00:00Z"`
	GitCommit string `json:"gitCommit" example:"3f2c1ab"`
}

// Get returns the build information.
// When the ldflags were not set, the VCS settings embedded by the go toolchain are used instead.
func Get() Info {
	info := Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
	}

	if info.GitCommit != "unknown" {
		return info
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if len(s.Value) > 7 {
				info.GitCommit = s.Value[:7]
			} else {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			info.BuildDate = s.Value
		}
	}
	return info
}
