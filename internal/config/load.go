package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads settings from a TOML or YAML file, selected by extension.
// The file's values overlay the defaults; fields it omits keep theirs.
// An empty path or a file that does not exist yields the defaults.
func Load(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("reading config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &settings)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &settings)
	default:
		return settings, fmt.Errorf("config file %s: unsupported extension", path)
	}
	if err != nil {
		return DefaultSettings(), &ParseError{Path: path, Message: err.Error(), Err: err}
	}

	if err := settings.Validate(); err != nil {
		return DefaultSettings(), fmt.Errorf("config file %s: %w", path, err)
	}
	return settings, nil
}

// ParseError reports a configuration file that failed to parse.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
