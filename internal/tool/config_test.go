package tool

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestConfigAddKeepsOrder(t *testing.T) {
	c := NewConfig().
		AddProvider("gamma", &staticProvider{}).
		AddProvider("alpha", &staticProvider{}).
		AddProvider("beta", &staticProvider{})

	want := []string{"gamma", "alpha", "beta"}
	if got := c.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestConfigRedeclareKeepsPosition(t *testing.T) {
	first := &staticProvider{kind: KindBlock}
	second := &staticProvider{kind: KindInline}

	c := NewConfig().
		AddProvider("alpha", first).
		AddProvider("beta", first).
		AddProvider("alpha", second)

	want := []string{"alpha", "beta"}
	if got := c.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	s, ok := c.Get("alpha")
	if !ok {
		t.Fatal("Get(alpha) not found")
	}
	if s.Provider != second {
		t.Error("redeclare did not replace settings")
	}
}

func TestConfigClone(t *testing.T) {
	orig := NewConfig().Add("alpha", Settings{
		Provider: &staticProvider{},
		Options:  map[string]any{"depth": map[string]any{"key": "original"}},
	})

	clone := orig.Clone()
	clone.AddProvider("beta", &staticProvider{})

	if orig.Has("beta") {
		t.Error("adding to clone changed the original")
	}

	s, _ := orig.Get("alpha")
	s.Options["depth"].(map[string]any)["key"] = "mutated"
	cs, _ := clone.Get("alpha")
	if got := cs.Options["depth"].(map[string]any)["key"]; got != "original" {
		t.Errorf("clone options changed through original: %v", got)
	}
}

func TestValidateReportsAllOffenders(t *testing.T) {
	defaults := NewConfig().AddProvider("paragraph", &staticProvider{kind: KindBlock})
	user := NewConfig().
		Add("alpha", Settings{}).
		Add("beta", Settings{}).
		AddProvider("gamma", &staticProvider{})

	err := Validate(user, defaults)
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	if !errors.Is(err, ErrInvalidTool) {
		t.Errorf("error %v does not wrap ErrInvalidTool", err)
	}
	if !errors.Is(err, ErrNilProvider) {
		t.Errorf("error %v does not wrap ErrNilProvider", err)
	}

	msg := err.Error()
	if !strings.Contains(msg, "alpha") || !strings.Contains(msg, "beta") {
		t.Errorf("error %q does not name both offenders", msg)
	}
	if strings.Contains(msg, "gamma") {
		t.Errorf("error %q names a valid entry", msg)
	}
}

func TestValidateAllowsBuiltinOverride(t *testing.T) {
	defaults := NewConfig().AddProvider("paragraph", &staticProvider{kind: KindBlock})
	user := NewConfig().Add("paragraph", Settings{Options: map[string]any{"placeholder": "Write…"}})

	if err := Validate(user, defaults); err != nil {
		t.Errorf("Validate() = %v, want nil for built-in override", err)
	}
}

func TestValidateNilConfigs(t *testing.T) {
	if err := Validate(nil, nil); err != nil {
		t.Errorf("Validate(nil, nil) = %v, want nil", err)
	}
	if err := Validate(nil, NewConfig()); err != nil {
		t.Errorf("Validate(nil, defaults) = %v, want nil", err)
	}
}

func TestMergeCanonicalOrder(t *testing.T) {
	defaults := NewConfig().
		AddProvider("bold", &staticProvider{kind: KindInline}).
		AddProvider("paragraph", &staticProvider{kind: KindBlock})
	user := NewConfig().
		AddProvider("glossary", &staticProvider{kind: KindBlock}).
		Add("paragraph", Settings{Options: map[string]any{"placeholder": "Type here"}})

	merged := Merge(user, defaults)

	// Defaults keep their canonical positions even when overridden;
	// user-only names follow in declaration order.
	want := []string{"bold", "paragraph", "glossary"}
	if got := merged.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestMergeOptionsLayering(t *testing.T) {
	defaults := NewConfig().Add("paragraph", Settings{
		Provider: &staticProvider{kind: KindBlock},
		Options: map[string]any{
			"inlineToolbar": true,
			"limits":        map[string]any{"min": 1, "max": 10},
		},
	})
	user := NewConfig().Add("paragraph", Settings{
		Options: map[string]any{
			"placeholder": "Type here",
			"limits":      map[string]any{"max": 100},
		},
	})

	merged := Merge(user, defaults)
	s, ok := merged.Get("paragraph")
	if !ok {
		t.Fatal("merged config missing paragraph")
	}

	if s.Provider == nil {
		t.Error("default provider dropped when user set none")
	}
	if got := s.Options["inlineToolbar"]; got != true {
		t.Errorf("inlineToolbar = %v, want true from defaults", got)
	}
	if got := s.Options["placeholder"]; got != "Type here" {
		t.Errorf("placeholder = %v, want user value", got)
	}

	limits := s.Options["limits"].(map[string]any)
	if got := limits["min"]; got != 1 {
		t.Errorf("limits.min = %v, want 1 from defaults", got)
	}
	if got := limits["max"]; got != 100 {
		t.Errorf("limits.max = %v, want 100 from user", got)
	}
}

func TestMergeUserProviderWins(t *testing.T) {
	defProvider := &staticProvider{kind: KindBlock}
	userProvider := &staticProvider{kind: KindBlock}

	defaults := NewConfig().AddProvider("paragraph", defProvider)
	user := NewConfig().AddProvider("paragraph", userProvider)

	merged := Merge(user, defaults)
	s, _ := merged.Get("paragraph")
	if s.Provider != userProvider {
		t.Error("user provider did not replace the default")
	}
}

func TestNormalize(t *testing.T) {
	defaults := NewConfig().
		AddProvider("bold", &staticProvider{kind: KindInline}).
		AddProvider("paragraph", &staticProvider{kind: KindBlock})
	user := NewConfig().AddProvider("glossary", &staticProvider{kind: KindBlock})

	descs, err := Normalize(user, defaults)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if len(descs) != 3 {
		t.Fatalf("Normalize() returned %d descriptors, want 3", len(descs))
	}

	byName := make(map[string]*Descriptor, len(descs))
	for _, d := range descs {
		byName[d.Name()] = d
	}
	if !byName["bold"].Internal() || !byName["paragraph"].Internal() {
		t.Error("default names not flagged internal")
	}
	if byName["glossary"].Internal() {
		t.Error("user tool flagged internal")
	}
}

func TestNormalizeOverriddenBuiltinStaysInternal(t *testing.T) {
	defaults := NewConfig().AddProvider("paragraph", &staticProvider{kind: KindBlock})
	user := NewConfig().AddProvider("paragraph", &staticProvider{kind: KindBlock})

	descs, err := Normalize(user, defaults)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(descs) != 1 || !descs[0].Internal() {
		t.Error("overridden built-in lost its internal flag")
	}
}

func TestNormalizeEmpty(t *testing.T) {
	_, err := Normalize(NewConfig(), NewConfig())
	if !errors.Is(err, ErrNoTools) {
		t.Errorf("Normalize() error = %v, want ErrNoTools", err)
	}

	_, err = Normalize(nil, nil)
	if !errors.Is(err, ErrNoTools) {
		t.Errorf("Normalize(nil, nil) error = %v, want ErrNoTools", err)
	}
}

func TestNormalizeInvalid(t *testing.T) {
	user := NewConfig().Add("broken", Settings{})

	_, err := Normalize(user, nil)
	if !errors.Is(err, ErrInvalidTool) {
		t.Errorf("Normalize() error = %v, want ErrInvalidTool", err)
	}
}
