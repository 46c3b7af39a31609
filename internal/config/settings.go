// Package config loads editor settings from TOML or YAML files, layers
// environment overrides on top, and watches the file for live reload.
// A missing file is not an error; every field has a working default.
package config

import (
	"errors"
	"fmt"

	"github.com/dshills/inkstorm/internal/logging"
)

// Settings is the editor's file-backed configuration.
type Settings struct {
	Editor EditorSettings `toml:"editor" yaml:"editor"`
	Log    LogSettings    `toml:"log" yaml:"log"`
	Tools  ToolSettings   `toml:"tools" yaml:"tools"`
}

// EditorSettings configures the editor core.
type EditorSettings struct {
	// DefaultBlock names the block tool new blocks are created with.
	DefaultBlock string `toml:"default_block" yaml:"default_block"`
}

// LogSettings configures the logger.
type LogSettings struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// ToolSettings configures tool loading.
type ToolSettings struct {
	// Paths are the directories searched for tool scripts, in priority
	// order. Earlier paths shadow later ones on a name collision.
	Paths []string `toml:"paths" yaml:"paths"`

	// Options carries per-tool option overrides, layered over the
	// options the embedding code declared for the same tool.
	Options map[string]map[string]any `toml:"options" yaml:"options"`
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() Settings {
	return Settings{
		Editor: EditorSettings{DefaultBlock: "paragraph"},
		Log:    LogSettings{Level: "info", Format: "console"},
	}
}

// Validate checks the settings for values the editor cannot run with.
// All offending fields are reported, joined into a single error.
func (s *Settings) Validate() error {
	var invalid []error

	if !logging.ValidLevel(s.Log.Level) {
		invalid = append(invalid, fmt.Errorf("log.level %q: unknown level", s.Log.Level))
	}
	switch s.Log.Format {
	case "console", "json":
	default:
		invalid = append(invalid, fmt.Errorf("log.format %q: must be console or json", s.Log.Format))
	}
	if s.Editor.DefaultBlock == "" {
		invalid = append(invalid, errors.New("editor.default_block: must not be empty"))
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid settings: %w", errors.Join(invalid...))
	}
	return nil
}
