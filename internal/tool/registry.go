package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/dshills/inkstorm/internal/observe"
)

// Registry owns the tool lifecycle: it normalizes the configuration, runs
// the preparation sequence, and tracks every configured tool in exactly one
// of two buckets. Available tools settled cleanly and hold a usable
// instance; unavailable tools carry the error that sidelined them.
type Registry struct {
	mu sync.RWMutex

	config  RegistryConfig
	env     *Env
	log     *bolt.Logger
	metrics *observe.Metrics
	factory Factory

	// Populated by Prepare, cleared by Reset/Destroy
	prepared    bool
	order       []string
	available   map[string]*Handle
	unavailable map[string]*Handle

	// Memoized filtered views (protected by mu)
	inlineView     map[string]InlineTool
	blockView      map[string]BlockTool
	internalView   map[string]*Handle
	internalByKind map[Kind]map[string]*Handle

	// Event handlers (protected by mu)
	handlers []EventHandler
}

// RegistryConfig configures the tool registry.
type RegistryConfig struct {
	// Tools are the user's tool declarations, in declaration order.
	Tools *Config

	// Builtins are the default declarations merged beneath Tools. Names
	// present here are flagged internal and exempt from validation.
	Builtins *Config

	// DefaultBlock is the name of the default block tool.
	DefaultBlock string

	// Logger overrides the package default logger.
	Logger *bolt.Logger

	// Metrics overrides the package default metric instruments.
	Metrics *observe.Metrics

	// Factory overrides provider-based instance construction.
	Factory Factory

	// Version is the editor version exposed to tool constructors.
	Version string
}

// DefaultRegistryConfig returns sensible default configuration.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Tools:        NewConfig(),
		DefaultBlock: "paragraph",
	}
}

// EventHandler handles registry events.
// Handlers must be non-blocking and should not call back into the Registry
// to avoid deadlocks. Panics in handlers are recovered.
type EventHandler func(event Event)

// Event represents a registry lifecycle event.
type Event struct {
	Type EventType
	Tool string
	Err  error
}

// EventType is the type of registry event.
type EventType int

const (
	// EventToolPrepared is emitted when a tool settles into the available bucket.
	EventToolPrepared EventType = iota
	// EventToolFailed is emitted when a tool settles into the unavailable bucket.
	EventToolFailed
	// EventRegistryReady is emitted when the full preparation sequence finishes.
	EventRegistryReady
	// EventRegistryDestroyed is emitted after destroy completes.
	EventRegistryDestroyed
)

// String returns a string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventToolPrepared:
		return "prepared"
	case EventToolFailed:
		return "failed"
	case EventRegistryReady:
		return "ready"
	case EventRegistryDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// NewRegistry creates a new tool registry.
func NewRegistry(config RegistryConfig) *Registry {
	if config.Tools == nil {
		config.Tools = NewConfig()
	}
	if config.DefaultBlock == "" {
		config.DefaultBlock = "paragraph"
	}

	env := &Env{
		Logger:  config.Logger,
		Metrics: config.Metrics,
		Version: config.Version,
	}
	env.populate()

	return &Registry{
		config:  config,
		env:     env,
		log:     env.Logger,
		metrics: env.Metrics,
		factory: config.Factory,
	}
}

// Env returns the shared environment handed to tool constructors.
func (r *Registry) Env() *Env {
	return r.env
}

// Prepare normalizes the configuration and runs the preparation sequence.
// Configuration errors surface here, before any instance is constructed.
// Per-tool preparation or construction failures never fail Prepare; the
// affected tools settle into the unavailable bucket instead.
func (r *Registry) Prepare(ctx context.Context) error {
	r.mu.Lock()
	if r.prepared {
		r.mu.Unlock()
		return ErrAlreadyPrepared
	}
	r.mu.Unlock()

	descs, err := Normalize(r.config.Tools, r.config.Builtins)
	if err != nil {
		r.log.Error().Err(err).Msg("tool configuration rejected")
		return err
	}

	byName := make(map[string]*Descriptor, len(descs))
	order := make([]string, 0, len(descs))
	for _, d := range descs {
		byName[d.Name()] = d
		order = append(order, d.Name())
	}

	factory := r.factory
	if factory == nil {
		factory = newProviderFactory(r.env, byName)
	}

	tasks := make([]Task, 0, len(descs))
	for _, d := range descs {
		tasks = append(tasks, r.prepareTask(d))
	}

	available := make(map[string]*Handle, len(descs))
	unavailable := make(map[string]*Handle)

	onSuccess := func(name string) {
		inst, cerr := factory.Produce(name)
		if cerr != nil {
			unavailable[name] = NewHandle(byName[name], nil, fmt.Errorf("construct: %w", cerr))
			r.log.Error().Str("tool", name).Err(cerr).Msg("tool construction failed")
			r.metrics.RecordToolPrepared(ctx, name, "error")
			r.emit(Event{Type: EventToolFailed, Tool: name, Err: cerr})
			return
		}
		available[name] = NewHandle(byName[name], inst, nil)
		r.log.Debug().Str("tool", name).Msg("tool prepared")
		r.metrics.RecordToolPrepared(ctx, name, "ok")
		r.emit(Event{Type: EventToolPrepared, Tool: name})
	}

	onFailure := func(name string, perr error) {
		// A failed tool still gets an instance when construction succeeds,
		// so callers can inspect it; the handle error keeps it unavailable.
		inst, cerr := factory.Produce(name)
		herr := perr
		if cerr != nil {
			inst = nil
			herr = errors.Join(perr, fmt.Errorf("construct: %w", cerr))
		}
		unavailable[name] = NewHandle(byName[name], inst, herr)
		r.log.Error().Str("tool", name).Err(perr).Msg("tool preparation failed")
		r.metrics.RecordToolPrepared(ctx, name, "error")
		r.emit(Event{Type: EventToolFailed, Tool: name, Err: perr})
	}

	if err := RunSequential(ctx, tasks, onSuccess, onFailure); err != nil {
		return fmt.Errorf("preparation aborted: %w", err)
	}

	r.mu.Lock()
	// Double-check - a concurrent Prepare may have committed first
	if r.prepared {
		r.mu.Unlock()
		return ErrAlreadyPrepared
	}
	r.order = order
	r.available = available
	r.unavailable = unavailable
	r.prepared = true
	r.clearViewsLocked()
	r.mu.Unlock()

	r.metrics.AddAvailable(ctx, int64(len(available)))
	r.log.Info().
		Int("available", len(available)).
		Int("unavailable", len(unavailable)).
		Msg("tool registry ready")
	r.emit(Event{Type: EventRegistryReady})
	return nil
}

// prepareTask derives the scheduler task for a descriptor. Providers
// without a preparation hook yield a nil Run, which the scheduler settles
// as an immediate success.
func (r *Registry) prepareTask(d *Descriptor) Task {
	p, ok := d.Provider().(Preparer)
	if !ok {
		return Task{Name: d.Name()}
	}

	name := d.Name()
	return Task{Name: name, Run: func(ctx context.Context) error {
		start := time.Now()
		err := p.Prepare(ctx, PrepareRequest{ToolName: name})
		status := "ok"
		if err != nil {
			status = "error"
		}
		r.metrics.RecordPrepareDuration(ctx, name, status, time.Since(start).Seconds())
		return err
	}}
}

// Prepared reports whether the preparation sequence has completed.
func (r *Registry) Prepared() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prepared
}

// Get returns the handle for a configured name, searching the available
// bucket first.
func (r *Registry) Get(name string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.available[name]; ok {
		return h, true
	}
	if h, ok := r.unavailable[name]; ok {
		return h, true
	}
	return nil, false
}

// Available returns a copy of the available bucket.
func (r *Registry) Available() map[string]*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyHandles(r.available)
}

// Unavailable returns a copy of the unavailable bucket.
func (r *Registry) Unavailable() map[string]*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyHandles(r.unavailable)
}

// Names returns all configured names in declaration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.order...)
}

// Count returns the number of available tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.available)
}

// Errors returns the terminal error of every unavailable tool.
func (r *Registry) Errors() map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	errs := make(map[string]error, len(r.unavailable))
	for name, h := range r.unavailable {
		if h.Err() != nil {
			errs[name] = h.Err()
		}
	}
	return errs
}

// DefaultTool returns the handle of the configured default block tool.
// It reports false when the name is absent, unavailable, or not a block
// tool; a missing default is not an error.
func (r *Registry) DefaultTool() (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.available[r.config.DefaultBlock]
	if !ok || h.Kind() != KindBlock {
		return nil, false
	}
	return h, true
}

// Inline returns the inline toolbar view: available tools declared inline
// that satisfy the full inline contract. The view is computed lazily,
// memoized, and shared between calls; callers must not modify it. Tools
// that declare inline but lack contract methods are logged once and
// excluded, while remaining available.
func (r *Registry) Inline() map[string]InlineTool {
	r.mu.RLock()
	if r.inlineView != nil {
		view := r.inlineView
		r.mu.RUnlock()
		return view
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inlineView != nil {
		return r.inlineView
	}

	view := make(map[string]InlineTool)
	for _, name := range r.order {
		h, ok := r.available[name]
		if !ok || h.Kind() != KindInline {
			continue
		}
		if missing := MissingInlineMethods(h.Tool()); len(missing) > 0 {
			r.log.Warn().
				Str("tool", name).
				Str("missing", strings.Join(missing, ", ")).
				Msg("inline tool lacks required methods, hidden from inline toolbar")
			continue
		}
		if it, ok := h.Tool().(InlineTool); ok {
			view[name] = it
		}
	}
	r.inlineView = view
	return view
}

// Block returns the block tool view: available tools declared block that
// satisfy the block contract. The view is memoized and shared between
// calls; callers must not modify it.
func (r *Registry) Block() map[string]BlockTool {
	r.mu.RLock()
	if r.blockView != nil {
		view := r.blockView
		r.mu.RUnlock()
		return view
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blockView != nil {
		return r.blockView
	}

	view := make(map[string]BlockTool)
	for _, name := range r.order {
		h, ok := r.available[name]
		if !ok || h.Kind() != KindBlock {
			continue
		}
		if !BlockCapable(h.Tool()) {
			r.log.Debug().Str("tool", name).Msg("block tool lacks contract methods, hidden from block view")
			continue
		}
		if bt, ok := h.Tool().(BlockTool); ok {
			view[name] = bt
		}
	}
	r.blockView = view
	return view
}

// Internal returns the view of available built-in tools. The view is
// memoized and shared between calls; callers must not modify it.
func (r *Registry) Internal() map[string]*Handle {
	r.mu.RLock()
	if r.internalView != nil {
		view := r.internalView
		r.mu.RUnlock()
		return view
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.internalView != nil {
		return r.internalView
	}

	view := make(map[string]*Handle)
	for _, name := range r.order {
		if h, ok := r.available[name]; ok && h.Internal() {
			view[name] = h
		}
	}
	r.internalView = view
	return view
}

// InternalByKind returns the available built-in tools of one kind. Views
// are memoized per kind and shared between calls; callers must not modify
// them.
func (r *Registry) InternalByKind(kind Kind) map[string]*Handle {
	r.mu.RLock()
	if view, ok := r.internalByKind[kind]; ok {
		r.mu.RUnlock()
		return view
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if view, ok := r.internalByKind[kind]; ok {
		return view
	}

	view := make(map[string]*Handle)
	for _, name := range r.order {
		if h, ok := r.available[name]; ok && h.Internal() && h.Kind() == kind {
			view[name] = h
		}
	}
	if r.internalByKind == nil {
		r.internalByKind = make(map[Kind]map[string]*Handle)
	}
	r.internalByKind[kind] = view
	return view
}

// Reset returns the registry to the unprepared state: buckets are cleared
// and every memoized view is invalidated, so Prepare may run again.
// Instances are not notified; use Destroy for a full teardown.
func (r *Registry) Reset() {
	r.mu.Lock()
	count := len(r.available)
	r.resetLocked()
	r.mu.Unlock()

	if count > 0 {
		r.metrics.AddAvailable(context.Background(), -int64(count))
	}
}

// Destroy tears the registry down: every available instance that declares
// a reset hook is reset concurrently, failures are isolated per tool, and
// the registry returns to the unprepared state. The joined reset errors
// are returned; destroy itself never short-circuits.
func (r *Registry) Destroy(ctx context.Context) error {
	r.mu.Lock()
	if !r.prepared {
		r.mu.Unlock()
		return nil
	}
	handles := make([]*Handle, 0, len(r.available))
	for _, name := range r.order {
		if h, ok := r.available[name]; ok {
			handles = append(handles, h)
		}
	}
	count := len(r.available)
	r.resetLocked()
	r.mu.Unlock()

	var wg sync.WaitGroup
	var dmu sync.Mutex
	var resetErrs []error

	record := func(name string, err error) {
		r.log.Warn().Str("tool", name).Err(err).Msg("tool reset failed")
		r.metrics.RecordResetFailure(ctx, name)
		dmu.Lock()
		resetErrs = append(resetErrs, fmt.Errorf("%s: %w", name, err))
		dmu.Unlock()
	}

	for _, h := range handles {
		res, ok := h.Tool().(Resetter)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(name string, res Resetter) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					record(name, fmt.Errorf("reset panic: %v", rec))
				}
			}()
			if err := res.Reset(ctx); err != nil {
				record(name, err)
			}
		}(h.Name(), res)
	}
	wg.Wait()

	r.metrics.AddAvailable(ctx, -int64(count))
	r.emit(Event{Type: EventRegistryDestroyed})

	if len(resetErrs) > 0 {
		return fmt.Errorf("failed to reset %d tools: %w", len(resetErrs), errors.Join(resetErrs...))
	}
	return nil
}

// Subscribe adds an event handler.
// Returns an unsubscribe function to remove the handler.
func (r *Registry) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}

	r.mu.Lock()
	r.handlers = append(r.handlers, handler)
	index := len(r.handlers) - 1
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		// Set to nil instead of removing to avoid index shifting issues
		if index < len(r.handlers) {
			r.handlers[index] = nil
		}
	}
}

// emit sends an event to all handlers.
// Handlers are called outside any locks and panics are recovered.
func (r *Registry) emit(event Event) {
	r.mu.RLock()
	handlers := make([]EventHandler, len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				recover() // Ignore panics from handlers
			}()
			handler(event)
		}()
	}
}

// resetLocked clears buckets and views. Must be called with mu held.
func (r *Registry) resetLocked() {
	r.prepared = false
	r.order = nil
	r.available = nil
	r.unavailable = nil
	r.clearViewsLocked()
}

// clearViewsLocked invalidates the memoized views. Must be called with mu
// held.
func (r *Registry) clearViewsLocked() {
	r.inlineView = nil
	r.blockView = nil
	r.internalView = nil
	r.internalByKind = nil
}

// copyHandles shallow-copies a handle bucket.
func copyHandles(src map[string]*Handle) map[string]*Handle {
	dst := make(map[string]*Handle, len(src))
	for name, h := range src {
		dst[name] = h
	}
	return dst
}
