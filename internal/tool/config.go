package tool

import (
	"errors"
	"fmt"
)

// Settings declares a single tool: the provider that constructs it and its
// option map. A bare declaration carries only the provider; a nil option
// map normalizes to an empty one.
type Settings struct {
	Provider Provider
	Options  map[string]any
}

// Config is an ordered set of tool declarations. Order matters: preparation
// runs in declaration order, and the filtered views iterate in it. Go maps
// do not preserve insertion order, so Config keeps a name list beside the
// entry map.
type Config struct {
	names   []string
	entries map[string]Settings
}

// NewConfig creates an empty tool configuration.
func NewConfig() *Config {
	return &Config{entries: make(map[string]Settings)}
}

// Add declares a tool. Redeclaring a name replaces its settings but keeps
// its original position. Add returns the config for chaining.
func (c *Config) Add(name string, s Settings) *Config {
	if _, exists := c.entries[name]; !exists {
		c.names = append(c.names, name)
	}
	c.entries[name] = s
	return c
}

// AddProvider declares a tool with no options.
func (c *Config) AddProvider(name string, p Provider) *Config {
	return c.Add(name, Settings{Provider: p})
}

// Get returns the settings declared for a name.
func (c *Config) Get(name string) (Settings, bool) {
	s, ok := c.entries[name]
	return s, ok
}

// Has reports whether a name is declared.
func (c *Config) Has(name string) bool {
	_, ok := c.entries[name]
	return ok
}

// Names returns the declared names in declaration order.
func (c *Config) Names() []string {
	return append([]string{}, c.names...)
}

// Len returns the number of declarations.
func (c *Config) Len() int {
	return len(c.names)
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := NewConfig()
	for _, name := range c.names {
		s := c.entries[name]
		clone.Add(name, Settings{Provider: s.Provider, Options: cloneOptions(s.Options)})
	}
	return clone
}

// Validate checks user declarations against the built-in defaults. Every
// name that is not a built-in must carry a provider. All offending entries
// are reported, joined into a single error.
func Validate(user, defaults *Config) error {
	if user == nil {
		return nil
	}

	var invalid []error
	for _, name := range user.names {
		if defaults != nil && defaults.Has(name) {
			continue
		}
		if user.entries[name].Provider == nil {
			invalid = append(invalid, fmt.Errorf("tool %q: %w", name, ErrNilProvider))
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTool, errors.Join(invalid...))
	}
	return nil
}

// Merge layers user declarations over the built-in defaults. Default
// entries come first in their canonical order; user-only names follow in
// declaration order. For a name present in both, the user's options are
// deep-merged over the default options and the user's provider, when set,
// replaces the default one. A user override of a default name keeps the
// default's position.
func Merge(user, defaults *Config) *Config {
	merged := NewConfig()

	if defaults != nil {
		for _, name := range defaults.names {
			def := defaults.entries[name]
			eff := Settings{Provider: def.Provider, Options: cloneOptions(def.Options)}
			if user != nil {
				if over, ok := user.entries[name]; ok {
					if over.Provider != nil {
						eff.Provider = over.Provider
					}
					eff.Options = deepMergeOptions(eff.Options, over.Options)
				}
			}
			merged.Add(name, eff)
		}
	}

	if user != nil {
		for _, name := range user.names {
			if merged.Has(name) {
				continue
			}
			s := user.entries[name]
			merged.Add(name, Settings{Provider: s.Provider, Options: cloneOptions(s.Options)})
		}
	}

	return merged
}

// Normalize validates the user configuration, merges the defaults beneath
// it, and produces the ordered descriptor list the registry prepares from.
// Names present in defaults are flagged internal, whether or not the user
// overrode them; user declarations cannot mark themselves internal.
func Normalize(user, defaults *Config) ([]*Descriptor, error) {
	if err := Validate(user, defaults); err != nil {
		return nil, err
	}

	merged := Merge(user, defaults)
	if merged.Len() == 0 {
		return nil, ErrNoTools
	}

	descs := make([]*Descriptor, 0, merged.Len())
	for _, name := range merged.names {
		s := merged.entries[name]
		internal := defaults != nil && defaults.Has(name)
		descs = append(descs, NewDescriptor(name, s.Provider, s.Options, internal))
	}
	return descs, nil
}

// deepMergeOptions recursively merges src over dst. Nested maps merge;
// other values are replaced. dst is returned for convenience.
func deepMergeOptions(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for key, srcVal := range src {
		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = deepMergeOptions(dstMap, srcMap)
			continue
		}
		if srcIsMap {
			dst[key] = cloneOptions(srcMap)
			continue
		}
		dst[key] = srcVal
	}
	return dst
}
