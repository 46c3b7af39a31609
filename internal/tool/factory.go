package tool

import "fmt"

// Factory maps a configured tool name to a concrete instance. The registry
// routes every settled preparation outcome through its factory; injecting a
// custom factory replaces instance construction wholesale.
type Factory interface {
	Produce(name string) (Tool, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(name string) (Tool, error)

// Produce calls f.
func (f FactoryFunc) Produce(name string) (Tool, error) {
	return f(name)
}

// providerFactory is the default factory: it constructs instances by
// calling each descriptor's provider with the shared environment.
type providerFactory struct {
	env   *Env
	descs map[string]*Descriptor
}

func newProviderFactory(env *Env, descs map[string]*Descriptor) *providerFactory {
	return &providerFactory{env: env, descs: descs}
}

// Produce constructs the instance for a normalized descriptor.
func (f *providerFactory) Produce(name string) (Tool, error) {
	d, ok := f.descs[name]
	if !ok {
		return nil, fmt.Errorf("tool %q: %w", name, ErrToolNotFound)
	}
	if d.Provider() == nil {
		return nil, fmt.Errorf("tool %q: %w", name, ErrNilProvider)
	}
	return d.Provider().New(f.env, d)
}
