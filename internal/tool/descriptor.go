package tool

import "fmt"

// Descriptor is the normalized, immutable declaration of a single tool:
// its name, provider, effective options, and whether it is a built-in.
// Descriptors are produced by Normalize and never mutated afterwards.
type Descriptor struct {
	name     string
	provider Provider
	options  map[string]any
	internal bool
}

// NewDescriptor creates a descriptor. The options map is cloned so later
// changes by the caller cannot leak into the descriptor.
func NewDescriptor(name string, provider Provider, options map[string]any, internal bool) *Descriptor {
	return &Descriptor{
		name:     name,
		provider: provider,
		options:  cloneOptions(options),
		internal: internal,
	}
}

// Name returns the configured tool name.
func (d *Descriptor) Name() string {
	return d.name
}

// Provider returns the tool's provider.
func (d *Descriptor) Provider() Provider {
	return d.provider
}

// Kind returns the declared kind of the tool's provider.
func (d *Descriptor) Kind() Kind {
	if d.provider == nil {
		return Kind(-1)
	}
	return d.provider.Kind()
}

// Internal reports whether the tool is a built-in.
func (d *Descriptor) Internal() bool {
	return d.internal
}

// Options returns a copy of the tool's option map.
func (d *Descriptor) Options() map[string]any {
	return cloneOptions(d.options)
}

// Option returns a raw option value.
func (d *Descriptor) Option(key string) (any, bool) {
	v, ok := d.options[key]
	return v, ok
}

// OptionString returns a string option, or def when absent or mistyped.
func (d *Descriptor) OptionString(key, def string) string {
	if v, ok := d.options[key].(string); ok {
		return v
	}
	return def
}

// OptionBool returns a bool option, or def when absent or mistyped.
func (d *Descriptor) OptionBool(key string, def bool) bool {
	if v, ok := d.options[key].(bool); ok {
		return v
	}
	return def
}

// OptionInt returns an integer option, or def when absent or mistyped.
// Numeric values decoded from config files may arrive as int64 or float64.
func (d *Descriptor) OptionInt(key string, def int) int {
	switch v := d.options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// InlineToolbar decodes the "inlineToolbar" option. The option may be a
// bool enabling the default inline toolbar, or a list of inline tool names
// selecting a specific order. The returned order is nil when the option is
// boolean.
func (d *Descriptor) InlineToolbar() (enabled bool, order []string) {
	v, ok := d.options["inlineToolbar"]
	if !ok {
		return false, nil
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	case []string:
		return len(val) > 0, append([]string{}, val...)
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				order = append(order, s)
			}
		}
		return len(order) > 0, order
	default:
		return false, nil
	}
}

// String returns a short representation of the descriptor.
func (d *Descriptor) String() string {
	flavor := d.Kind().String()
	if d.internal {
		flavor += ", internal"
	}
	return fmt.Sprintf("%s (%s)", d.name, flavor)
}

// cloneOptions creates a deep copy of an option map.
func cloneOptions(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		switch val := v.(type) {
		case map[string]any:
			dst[k] = cloneOptions(val)
		case []any:
			cp := make([]any, len(val))
			for i, item := range val {
				if m, ok := item.(map[string]any); ok {
					cp[i] = cloneOptions(m)
				} else {
					cp[i] = item
				}
			}
			dst[k] = cp
		default:
			dst[k] = v
		}
	}
	return dst
}
