package tool

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/dshills/inkstorm/internal/logging"
)

// quietRegistryConfig returns a registry config whose logger swallows
// output, keeping test runs readable.
func quietRegistryConfig() RegistryConfig {
	cfg := DefaultRegistryConfig()
	cfg.Logger = logging.New(logging.Config{Level: "error", Format: "json", Output: io.Discard})
	return cfg
}

// testProvider constructs fake instances for registry tests.
type testProvider struct {
	kind   Kind
	build  func(name string) Tool
	newErr error
}

func (p *testProvider) Kind() Kind { return p.kind }

func (p *testProvider) New(env *Env, d *Descriptor) (Tool, error) {
	if p.newErr != nil {
		return nil, p.newErr
	}
	if p.build != nil {
		return p.build(d.Name()), nil
	}
	switch p.kind {
	case KindInline:
		return &fakeInline{name: d.Name()}, nil
	case KindTune:
		return &fakeTune{name: d.Name()}, nil
	default:
		return &fakeBlock{name: d.Name()}, nil
	}
}

// preparingProvider adds a preparation hook to testProvider.
type preparingProvider struct {
	testProvider
	prepare func(ctx context.Context, req PrepareRequest) error
}

func (p *preparingProvider) Prepare(ctx context.Context, req PrepareRequest) error {
	if p.prepare == nil {
		return nil
	}
	return p.prepare(ctx, req)
}

// resettableBlock tracks reset calls on the instance.
type resettableBlock struct {
	fakeBlock
	mu       sync.Mutex
	resets   int
	resetErr error
	panics   bool
}

func (r *resettableBlock) Reset(ctx context.Context) error {
	r.mu.Lock()
	r.resets++
	r.mu.Unlock()
	if r.panics {
		panic("reset exploded")
	}
	return r.resetErr
}

func (r *resettableBlock) resetCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry(RegistryConfig{})

	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	env := r.Env()
	if env == nil || env.Logger == nil || env.Metrics == nil {
		t.Error("Env() not fully populated")
	}
}

func TestRegistryEnvVersion(t *testing.T) {
	cfg := quietRegistryConfig()
	cfg.Version = "1.2.3"

	r := NewRegistry(cfg)
	if got := r.Env().Version; got != "1.2.3" {
		t.Errorf("Env().Version = %q, want 1.2.3", got)
	}
}

func TestRegistryPrepare(t *testing.T) {
	cfg := quietRegistryConfig()
	cfg.Tools = NewConfig().
		AddProvider("mark", &testProvider{kind: KindInline}).
		AddProvider("body", &testProvider{kind: KindBlock})

	r := NewRegistry(cfg)
	if r.Prepared() {
		t.Error("Prepared() = true before Prepare")
	}

	if err := r.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if !r.Prepared() {
		t.Error("Prepared() = false after Prepare")
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
	if len(r.Unavailable()) != 0 {
		t.Errorf("Unavailable() has %d entries, want 0", len(r.Unavailable()))
	}

	h, ok := r.Get("mark")
	if !ok {
		t.Fatal("Get(mark) not found")
	}
	if !h.Usable() {
		t.Error("handle not usable")
	}
	if h.Kind() != KindInline {
		t.Errorf("Kind() = %v, want KindInline", h.Kind())
	}

	want := []string{"mark", "body"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRegistryPrepareTwice(t *testing.T) {
	cfg := quietRegistryConfig()
	cfg.Tools = NewConfig().AddProvider("mark", &testProvider{kind: KindInline})

	r := NewRegistry(cfg)
	ctx := context.Background()
	if err := r.Prepare(ctx); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if err := r.Prepare(ctx); !errors.Is(err, ErrAlreadyPrepared) {
		t.Errorf("second Prepare() error = %v, want ErrAlreadyPrepared", err)
	}
}

func TestRegistryPrepareInvalidConfig(t *testing.T) {
	cfg := quietRegistryConfig()
	cfg.Tools = NewConfig().Add("broken", Settings{})

	r := NewRegistry(cfg)
	err := r.Prepare(context.Background())
	if !errors.Is(err, ErrInvalidTool) {
		t.Fatalf("Prepare() error = %v, want ErrInvalidTool", err)
	}
	if r.Prepared() {
		t.Error("registry prepared despite rejected configuration")
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

func TestRegistryPrepareNoTools(t *testing.T) {
	r := NewRegistry(quietRegistryConfig())

	if err := r.Prepare(context.Background()); !errors.Is(err, ErrNoTools) {
		t.Errorf("Prepare() error = %v, want ErrNoTools", err)
	}
}

func TestRegistryFaultContainment(t *testing.T) {
	boom := errors.New("boom")
	cfg := quietRegistryConfig()
	cfg.Tools = NewConfig().
		AddProvider("steady", &testProvider{kind: KindInline}).
		AddProvider("flaky", &preparingProvider{
			testProvider: testProvider{kind: KindBlock},
			prepare: func(ctx context.Context, req PrepareRequest) error {
				return boom
			},
		}).
		AddProvider("late", &testProvider{kind: KindBlock})

	r := NewRegistry(cfg)

	var events []Event
	r.Subscribe(func(e Event) { events = append(events, e) })

	if err := r.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v, one bad tool must not fail Prepare", err)
	}

	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}

	h, ok := r.Get("flaky")
	if !ok {
		t.Fatal("Get(flaky) not found")
	}
	if h.Usable() {
		t.Error("failed tool reported usable")
	}
	if !errors.Is(h.Err(), boom) {
		t.Errorf("handle error = %v, want boom", h.Err())
	}
	if h.Tool() == nil {
		t.Error("failed tool lost its constructed instance")
	}

	errs := r.Errors()
	if !errors.Is(errs["flaky"], boom) {
		t.Errorf("Errors()[flaky] = %v, want boom", errs["flaky"])
	}
	if len(errs) != 1 {
		t.Errorf("Errors() has %d entries, want 1", len(errs))
	}

	var failed, prepared int
	for _, e := range events {
		switch e.Type {
		case EventToolFailed:
			failed++
			if e.Tool != "flaky" {
				t.Errorf("failed event for %q, want flaky", e.Tool)
			}
		case EventToolPrepared:
			prepared++
		}
	}
	if failed != 1 || prepared != 2 {
		t.Errorf("events: %d failed, %d prepared; want 1, 2", failed, prepared)
	}
	if len(events) == 0 || events[len(events)-1].Type != EventRegistryReady {
		t.Error("last event is not EventRegistryReady")
	}
}

func TestRegistryPreparePanicContained(t *testing.T) {
	cfg := quietRegistryConfig()
	cfg.Tools = NewConfig().
		AddProvider("wild", &preparingProvider{
			testProvider: testProvider{kind: KindBlock},
			prepare: func(ctx context.Context, req PrepareRequest) error {
				panic("hook exploded")
			},
		}).
		AddProvider("tame", &testProvider{kind: KindBlock})

	r := NewRegistry(cfg)
	if err := r.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	h, ok := r.Get("wild")
	if !ok || h.Usable() {
		t.Fatal("panicking tool should be registered unavailable")
	}
	if h.Err() == nil || !strings.Contains(h.Err().Error(), "hook exploded") {
		t.Errorf("handle error = %v, want recovered panic", h.Err())
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistryConstructFailure(t *testing.T) {
	boom := errors.New("no instance")
	cfg := quietRegistryConfig()
	cfg.Tools = NewConfig().AddProvider("hollow", &testProvider{kind: KindBlock, newErr: boom})

	r := NewRegistry(cfg)
	if err := r.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	h, ok := r.Get("hollow")
	if !ok {
		t.Fatal("Get(hollow) not found")
	}
	if h.Usable() || h.Tool() != nil {
		t.Error("construction failure should leave no instance")
	}
	if !errors.Is(h.Err(), boom) {
		t.Errorf("handle error = %v, want wrapped boom", h.Err())
	}
}

func TestRegistryPrepareOrder(t *testing.T) {
	var order []string
	rec := func(kind Kind) Provider {
		return &preparingProvider{
			testProvider: testProvider{kind: kind},
			prepare: func(ctx context.Context, req PrepareRequest) error {
				order = append(order, req.ToolName)
				return nil
			},
		}
	}

	cfg := quietRegistryConfig()
	cfg.Builtins = NewConfig().
		AddProvider("bold", rec(KindInline)).
		AddProvider("italic", rec(KindInline))
	cfg.Tools = NewConfig().AddProvider("glossary", rec(KindBlock))

	r := NewRegistry(cfg)
	if err := r.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	want := []string{"bold", "italic", "glossary"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("preparation order = %v, want %v", order, want)
	}
}

func TestRegistryPrepareCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := quietRegistryConfig()
	cfg.Tools = NewConfig().
		AddProvider("first", &preparingProvider{
			testProvider: testProvider{kind: KindInline},
			prepare: func(ctx context.Context, req PrepareRequest) error {
				cancel()
				return nil
			},
		}).
		AddProvider("second", &testProvider{kind: KindBlock})

	r := NewRegistry(cfg)
	err := r.Prepare(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Prepare() error = %v, want context.Canceled", err)
	}
	if r.Prepared() {
		t.Error("registry prepared after aborted startup")
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

func TestRegistryInlineView(t *testing.T) {
	cfg := quietRegistryConfig()
	cfg.Tools = NewConfig().
		AddProvider("mark", &testProvider{kind: KindInline}).
		AddProvider("half", &testProvider{kind: KindInline, build: func(name string) Tool {
			return &renderOnly{name: name}
		}}).
		AddProvider("body", &testProvider{kind: KindBlock})

	r := NewRegistry(cfg)
	if err := r.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	view := r.Inline()
	if len(view) != 1 {
		t.Fatalf("Inline() has %d tools, want 1", len(view))
	}
	if _, ok := view["mark"]; !ok {
		t.Error("Inline() missing mark")
	}

	// Excluded from the view, still available.
	if _, ok := r.Get("half"); !ok {
		t.Fatal("half vanished from the registry")
	}
	if _, ok := r.Available()["half"]; !ok {
		t.Error("half should remain in the available bucket")
	}

	// Repeated calls return the same map.
	again := r.Inline()
	if reflect.ValueOf(view).Pointer() != reflect.ValueOf(again).Pointer() {
		t.Error("Inline() recomputed the memoized view")
	}
}

func TestRegistryBlockView(t *testing.T) {
	cfg := quietRegistryConfig()
	cfg.Tools = NewConfig().
		AddProvider("body", &testProvider{kind: KindBlock}).
		AddProvider("husk", &testProvider{kind: KindBlock, build: func(name string) Tool {
			return &bareTool{name: name}
		}}).
		AddProvider("mark", &testProvider{kind: KindInline})

	r := NewRegistry(cfg)
	if err := r.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	view := r.Block()
	if len(view) != 1 {
		t.Fatalf("Block() has %d tools, want 1", len(view))
	}
	if _, ok := view["body"]; !ok {
		t.Error("Block() missing body")
	}

	again := r.Block()
	if reflect.ValueOf(view).Pointer() != reflect.ValueOf(again).Pointer() {
		t.Error("Block() recomputed the memoized view")
	}
}

func TestRegistryInternalViews(t *testing.T) {
	cfg := quietRegistryConfig()
	cfg.Builtins = NewConfig().
		AddProvider("bold", &testProvider{kind: KindInline}).
		AddProvider("paragraph", &testProvider{kind: KindBlock})
	cfg.Tools = NewConfig().AddProvider("glossary", &testProvider{kind: KindBlock})

	r := NewRegistry(cfg)
	if err := r.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	internal := r.Internal()
	if len(internal) != 2 {
		t.Fatalf("Internal() has %d tools, want 2", len(internal))
	}
	if _, ok := internal["glossary"]; ok {
		t.Error("user tool leaked into the internal view")
	}

	blocks := r.InternalByKind(KindBlock)
	if len(blocks) != 1 {
		t.Fatalf("InternalByKind(KindBlock) has %d tools, want 1", len(blocks))
	}
	if _, ok := blocks["paragraph"]; !ok {
		t.Error("InternalByKind(KindBlock) missing paragraph")
	}

	inlines := r.InternalByKind(KindInline)
	if _, ok := inlines["bold"]; !ok || len(inlines) != 1 {
		t.Errorf("InternalByKind(KindInline) = %v, want bold only", inlines)
	}

	if reflect.ValueOf(blocks).Pointer() != reflect.ValueOf(r.InternalByKind(KindBlock)).Pointer() {
		t.Error("InternalByKind recomputed the memoized view")
	}
}

func TestRegistryDefaultTool(t *testing.T) {
	builtins := func() *Config {
		return NewConfig().
			AddProvider("bold", &testProvider{kind: KindInline}).
			AddProvider("paragraph", &testProvider{kind: KindBlock})
	}

	cfg := quietRegistryConfig()
	cfg.Builtins = builtins()
	r := NewRegistry(cfg)
	if err := r.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	h, ok := r.DefaultTool()
	if !ok {
		t.Fatal("DefaultTool() not found")
	}
	if h.Name() != "paragraph" {
		t.Errorf("DefaultTool() = %q, want paragraph", h.Name())
	}

	cfg = quietRegistryConfig()
	cfg.Builtins = builtins()
	cfg.DefaultBlock = "missing"
	r = NewRegistry(cfg)
	if err := r.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if _, ok := r.DefaultTool(); ok {
		t.Error("DefaultTool() found for missing name")
	}

	cfg = quietRegistryConfig()
	cfg.Builtins = builtins()
	cfg.DefaultBlock = "bold"
	r = NewRegistry(cfg)
	if err := r.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if _, ok := r.DefaultTool(); ok {
		t.Error("DefaultTool() returned a non-block tool")
	}
}

func TestRegistryReset(t *testing.T) {
	cfg := quietRegistryConfig()
	cfg.Tools = NewConfig().AddProvider("mark", &testProvider{kind: KindInline})

	r := NewRegistry(cfg)
	ctx := context.Background()
	if err := r.Prepare(ctx); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	r.Reset()

	if r.Prepared() {
		t.Error("Prepared() = true after Reset")
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}

	if err := r.Prepare(ctx); err != nil {
		t.Fatalf("Prepare() after Reset error = %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d after re-prepare, want 1", r.Count())
	}
}

func TestRegistryDestroy(t *testing.T) {
	instances := make(map[string]*resettableBlock)
	build := func(name string) Tool {
		rb := &resettableBlock{fakeBlock: fakeBlock{name: name}}
		instances[name] = rb
		return rb
	}

	cfg := quietRegistryConfig()
	cfg.Tools = NewConfig().
		AddProvider("alpha", &testProvider{kind: KindBlock, build: build}).
		AddProvider("beta", &testProvider{kind: KindBlock, build: build}).
		AddProvider("mark", &testProvider{kind: KindInline})

	r := NewRegistry(cfg)
	ctx := context.Background()
	if err := r.Prepare(ctx); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if err := r.Destroy(ctx); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}

	for name, rb := range instances {
		if rb.resetCount() != 1 {
			t.Errorf("%s reset %d times, want 1", name, rb.resetCount())
		}
	}
	if r.Prepared() || r.Count() != 0 {
		t.Error("registry not cleared after Destroy")
	}

	// Destroy on an unprepared registry is a no-op.
	if err := r.Destroy(ctx); err != nil {
		t.Errorf("second Destroy() error = %v", err)
	}
}

func TestRegistryDestroyCollectsFailures(t *testing.T) {
	errFlaky := errors.New("cleanup refused")
	instances := make(map[string]*resettableBlock)
	build := func(name string) Tool {
		rb := &resettableBlock{fakeBlock: fakeBlock{name: name}}
		switch name {
		case "flaky":
			rb.resetErr = errFlaky
		case "wild":
			rb.panics = true
		}
		instances[name] = rb
		return rb
	}

	cfg := quietRegistryConfig()
	cfg.Tools = NewConfig().
		AddProvider("flaky", &testProvider{kind: KindBlock, build: build}).
		AddProvider("steady", &testProvider{kind: KindBlock, build: build}).
		AddProvider("wild", &testProvider{kind: KindBlock, build: build})

	r := NewRegistry(cfg)
	ctx := context.Background()
	if err := r.Prepare(ctx); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	err := r.Destroy(ctx)
	if err == nil {
		t.Fatal("Destroy() = nil, want aggregate error")
	}
	if !errors.Is(err, errFlaky) {
		t.Errorf("aggregate %v does not wrap the reset error", err)
	}
	if !strings.Contains(err.Error(), "reset exploded") {
		t.Errorf("aggregate %v missing recovered panic", err)
	}
	if !strings.Contains(err.Error(), "2 tools") {
		t.Errorf("aggregate %v does not count both failures", err)
	}

	// The clean tool was still reset.
	if instances["steady"].resetCount() != 1 {
		t.Error("failures prevented reset of the clean tool")
	}
	if r.Prepared() {
		t.Error("registry still prepared after failed Destroy")
	}
}

func TestRegistrySubscribe(t *testing.T) {
	cfg := quietRegistryConfig()
	cfg.Tools = NewConfig().AddProvider("mark", &testProvider{kind: KindInline})

	r := NewRegistry(cfg)

	var events []Event
	unsubscribe := r.Subscribe(func(e Event) { events = append(events, e) })

	// A panicking handler must not disturb the lifecycle.
	r.Subscribe(func(e Event) { panic("handler exploded") })

	ctx := context.Background()
	if err := r.Prepare(ctx); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != EventToolPrepared || events[0].Tool != "mark" {
		t.Errorf("first event = %+v, want prepared mark", events[0])
	}
	if events[1].Type != EventRegistryReady {
		t.Errorf("second event = %+v, want ready", events[1])
	}

	unsubscribe()
	if err := r.Destroy(ctx); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if len(events) != 2 {
		t.Errorf("events delivered after unsubscribe: %d", len(events))
	}
}

func TestRegistrySubscribeNilHandler(t *testing.T) {
	r := NewRegistry(quietRegistryConfig())
	unsubscribe := r.Subscribe(nil)
	if unsubscribe == nil {
		t.Fatal("Subscribe(nil) returned nil")
	}
	unsubscribe()
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		typ  EventType
		want string
	}{
		{EventToolPrepared, "prepared"},
		{EventToolFailed, "failed"},
		{EventRegistryReady, "ready"},
		{EventRegistryDestroyed, "destroyed"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("EventType(%d).String() = %q, want %q", int(tt.typ), got, tt.want)
		}
	}
}

func TestRegistryAvailableReturnsCopy(t *testing.T) {
	cfg := quietRegistryConfig()
	cfg.Tools = NewConfig().AddProvider("mark", &testProvider{kind: KindInline})

	r := NewRegistry(cfg)
	if err := r.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	snapshot := r.Available()
	delete(snapshot, "mark")

	if r.Count() != 1 {
		t.Error("mutating the snapshot changed the registry")
	}
	if _, ok := r.Get("mark"); !ok {
		t.Error("Get(mark) lost after snapshot mutation")
	}
}

func TestRegistryGetMiss(t *testing.T) {
	r := NewRegistry(quietRegistryConfig())
	if _, ok := r.Get("nothing"); ok {
		t.Error("Get() found a tool in an empty registry")
	}
}
