package web

import "sync/atomic"

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

var buildInfo atomic.Pointer[BuildInfo]

func init() {
	buildInfo.Store(&BuildInfo{Version: "dev", Commit: "unknown", BuildTime: "unknown"})
}

// SetVersionInfo sets the build information reported by /health and /api/status
func SetVersionInfo(version, commit, buildTime string) {
	buildInfo.Store(&BuildInfo{Version: version, Commit: commit, BuildTime: buildTime})
}

// GetVersionInfo returns the current build information
func GetVersionInfo() BuildInfo {
	return *buildInfo.Load()
}
