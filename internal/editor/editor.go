// Package editor wires settings, built-in tools, and discovered tool
// scripts into a running tool registry, and models the block documents
// the tools operate on.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/dshills/inkstorm/internal/config"
	"github.com/dshills/inkstorm/internal/logging"
	"github.com/dshills/inkstorm/internal/tool"
	"github.com/dshills/inkstorm/internal/tool/builtin"
	"github.com/dshills/inkstorm/internal/tool/luatool"
)

// Options configures an Editor.
type Options struct {
	// ConfigPath is the settings file, TOML or YAML. Empty runs on
	// defaults.
	ConfigPath string

	// Tools are the embedding code's tool declarations. Declared names
	// shadow discovered scripts of the same name.
	Tools *tool.Config

	// ToolPaths are script directories searched before the configured
	// ones.
	ToolPaths []string

	// Version is reported to tools and stamped into saved documents.
	Version string

	// Watch reloads the editor when the config file changes.
	Watch bool

	// Logger overrides the settings-driven package logger. When set,
	// the settings' log section is ignored.
	Logger *bolt.Logger
}

// Editor owns the tool registry and its supporting machinery. Reload
// swaps in a freshly prepared registry, so view and handle lookups go
// through Registry() rather than holding the pointer.
type Editor struct {
	mu sync.RWMutex

	settings  config.Settings
	declared  *tool.Config
	toolPaths []string
	version   string

	registry  *tool.Registry
	providers []*luatool.Provider
	watcher   *config.Watcher
	log       *bolt.Logger

	configPath string
	managedLog bool
	closed     bool
}

// New builds an editor from the options. The registry is assembled but
// not prepared; call Prepare to run the tool startup sequence.
func New(opts Options) (*Editor, error) {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	config.FromEnv(&settings)

	log := opts.Logger
	managed := false
	if log == nil {
		logging.Init(logging.Config{Level: settings.Log.Level, Format: settings.Log.Format})
		log = logging.Get()
		managed = true
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}

	e := &Editor{
		settings:   settings,
		declared:   opts.Tools,
		toolPaths:  opts.ToolPaths,
		version:    version,
		log:        log,
		configPath: opts.ConfigPath,
		managedLog: managed,
	}
	e.registry, e.providers = e.assemble(settings)

	if opts.Watch && opts.ConfigPath != "" {
		w, werr := config.Watch(opts.ConfigPath, 0, e.onConfigChange, log)
		if werr != nil {
			log.Warn().Str("path", opts.ConfigPath).Err(werr).Msg("config watch unavailable")
		} else {
			e.watcher = w
		}
	}

	return e, nil
}

// assemble discovers scripts and builds a registry for the settings.
func (e *Editor) assemble(settings config.Settings) (*tool.Registry, []*luatool.Provider) {
	paths := append(append([]string{}, e.toolPaths...), settings.Tools.Paths...)
	providers := luatool.Discover(e.log, paths...)

	cfg := e.buildToolConfig(settings, providers)

	reg := tool.NewRegistry(tool.RegistryConfig{
		Tools:        cfg,
		Builtins:     builtin.Defaults(),
		DefaultBlock: settings.Editor.DefaultBlock,
		Logger:       e.log,
		Version:      e.version,
	})
	return reg, providers
}

// buildToolConfig layers the tool declarations: code-declared tools,
// then discovered scripts for names nothing declared, then the settings
// file's per-tool options over whichever entry they address.
func (e *Editor) buildToolConfig(settings config.Settings, providers []*luatool.Provider) *tool.Config {
	var cfg *tool.Config
	if e.declared != nil {
		cfg = e.declared.Clone()
	} else {
		cfg = tool.NewConfig()
	}

	defaults := builtin.Defaults()
	for _, p := range providers {
		if cfg.Has(p.Name()) || defaults.Has(p.Name()) {
			e.log.Debug().Str("tool", p.Name()).Msg("script shadowed by declared tool")
			continue
		}
		cfg.AddProvider(p.Name(), p)
	}

	names := make([]string, 0, len(settings.Tools.Options))
	for name := range settings.Tools.Options {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		over := settings.Tools.Options[name]
		switch {
		case cfg.Has(name):
			s, _ := cfg.Get(name)
			merged := config.DeepMerge(config.Clone(s.Options), over)
			cfg.Add(name, tool.Settings{Provider: s.Provider, Options: merged})
		case defaults.Has(name):
			cfg.Add(name, tool.Settings{Options: config.Clone(over)})
		default:
			e.log.Warn().Str("tool", name).Msg("options for unknown tool ignored")
		}
	}

	return cfg
}

// Prepare runs the tool startup sequence.
func (e *Editor) Prepare(ctx context.Context) error {
	reg := e.Registry()
	if err := reg.Prepare(ctx); err != nil {
		return err
	}
	e.log.Info().
		Str("version", e.version).
		Int("tools", reg.Count()).
		Msg("editor ready")
	return nil
}

// Registry returns the current tool registry. Reload replaces it, so
// callers should not cache the pointer across reloads.
func (e *Editor) Registry() *tool.Registry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry
}

// Settings returns the settings the editor currently runs with.
func (e *Editor) Settings() config.Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// Version returns the editor version.
func (e *Editor) Version() string {
	return e.version
}

// Reload re-reads the settings, rebuilds the registry, and swaps it in.
// The new registry is prepared before the old one is destroyed, and the
// old one keeps running when the reload fails.
func (e *Editor) Reload(ctx context.Context) error {
	e.mu.RLock()
	closed := e.closed
	old := e.registry
	e.mu.RUnlock()
	if closed {
		return errors.New("editor is shut down")
	}

	settings, err := config.Load(e.configPath)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	config.FromEnv(&settings)
	if e.managedLog {
		logging.SetLevel(settings.Log.Level)
	}

	reg, providers := e.assemble(settings)
	if old.Prepared() {
		if err := reg.Prepare(ctx); err != nil {
			closeProviders(providers)
			return fmt.Errorf("reload: %w", err)
		}
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		reg.Destroy(ctx)
		closeProviders(providers)
		return errors.New("editor is shut down")
	}
	oldProviders := e.providers
	e.settings = settings
	e.registry = reg
	e.providers = providers
	e.mu.Unlock()

	if err := old.Destroy(ctx); err != nil {
		e.log.Warn().Err(err).Msg("previous registry teardown reported failures")
	}
	closeProviders(oldProviders)

	e.log.Info().Msg("editor reloaded")
	return nil
}

// onConfigChange is the watcher callback.
func (e *Editor) onConfigChange() {
	if err := e.Reload(context.Background()); err != nil {
		e.log.Warn().Err(err).Msg("config reload failed, keeping previous configuration")
	}
}

// Shutdown stops the watcher, destroys the registry, and releases the
// script providers. Safe to call more than once.
func (e *Editor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	reg := e.registry
	providers := e.providers
	watcher := e.watcher
	e.mu.Unlock()

	var errs []error
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("watcher: %w", err))
		}
	}
	if err := reg.Destroy(ctx); err != nil {
		errs = append(errs, err)
	}
	closeProviders(providers)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown: %w", errors.Join(errs...))
	}
	e.log.Info().Msg("editor shut down")
	return nil
}

func closeProviders(providers []*luatool.Provider) {
	for _, p := range providers {
		p.Close()
	}
}
