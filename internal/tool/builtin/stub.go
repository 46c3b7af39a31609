package builtin

import "github.com/dshills/inkstorm/internal/tool"

// Stub returns the provider for the built-in stub block tool, the stand-in
// for blocks whose tool is unavailable.
func Stub() tool.Provider { return stubProvider{} }

type stubProvider struct{}

func (stubProvider) Kind() tool.Kind { return tool.KindBlock }

func (stubProvider) New(env *tool.Env, d *tool.Descriptor) (tool.Tool, error) {
	return &stubTool{}, nil
}

// stubTool carries the data of an unavailable block. Its data round-trips
// untouched, so nothing is lost between load and save while the real tool
// is missing.
type stubTool struct{}

func (*stubTool) Name() string { return "stub" }

func (*stubTool) Render(data map[string]any) (string, error) {
	return `<div class="stub">The block can not be displayed correctly.</div>`, nil
}

func (*stubTool) Save(data map[string]any) (map[string]any, error) {
	return data, nil
}
