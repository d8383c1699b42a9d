// Package misc provides program identification helpers.
package misc

import "runtime/debug"

const appName = "e2x"

// GetAppName returns short program name used for logs, temp files and reports.
func GetAppName() string {
	return appName
}

// GetVersion returns module version recorded in build info.
func GetVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "(devel)"
}

// GetGitHash returns vcs revision recorded in build info.
func GetGitHash() string {
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
