package builtin

import "github.com/dshills/inkstorm/internal/tool"

// Bold returns the provider for the built-in bold inline tool.
func Bold() tool.Provider { return boldProvider{} }

type boldProvider struct{}

func (boldProvider) Kind() tool.Kind { return tool.KindInline }

func (boldProvider) New(env *tool.Env, d *tool.Descriptor) (tool.Tool, error) {
	return &boldTool{}, nil
}

// boldTool toggles the bold format on the selection.
type boldTool struct{}

func (*boldTool) Name() string { return "bold" }

func (*boldTool) Render() tool.Control {
	return tool.Control{Icon: "bold", Title: "Bold", Shortcut: "CMD+B"}
}

func (*boldTool) Surround(sel *tool.Selection) error {
	return toggleFormat(sel, "bold", nil)
}

func (*boldTool) CheckState(sel *tool.Selection) bool {
	return hasFormat(sel, "bold")
}
