package config

import (
	"os"
	"strings"
)

// Environment variables recognized by FromEnv.
const (
	EnvLogLevel     = "INKSTORM_LOG_LEVEL"
	EnvLogFormat    = "INKSTORM_LOG_FORMAT"
	EnvDefaultBlock = "INKSTORM_DEFAULT_BLOCK"
	EnvToolPaths    = "INKSTORM_TOOL_PATHS"
)

// FromEnv overlays environment variables onto the settings. Variables
// that are unset or empty leave the field alone; INKSTORM_TOOL_PATHS is
// a list separated by the platform's path list separator and replaces
// the configured paths wholesale.
func FromEnv(s *Settings) {
	if v := os.Getenv(EnvLogLevel); v != "" {
		s.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		s.Log.Format = v
	}
	if v := os.Getenv(EnvDefaultBlock); v != "" {
		s.Editor.DefaultBlock = v
	}
	if v := os.Getenv(EnvToolPaths); v != "" {
		var paths []string
		for _, p := range strings.Split(v, string(os.PathListSeparator)) {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		s.Tools.Paths = paths
	}
}
