package builtin

import "github.com/dshills/inkstorm/internal/tool"

// Italic returns the provider for the built-in italic inline tool.
func Italic() tool.Provider { return italicProvider{} }

type italicProvider struct{}

func (italicProvider) Kind() tool.Kind { return tool.KindInline }

func (italicProvider) New(env *tool.Env, d *tool.Descriptor) (tool.Tool, error) {
	return &italicTool{}, nil
}

// italicTool toggles the italic format on the selection.
type italicTool struct{}

func (*italicTool) Name() string { return "italic" }

func (*italicTool) Render() tool.Control {
	return tool.Control{Icon: "italic", Title: "Italic", Shortcut: "CMD+I"}
}

func (*italicTool) Surround(sel *tool.Selection) error {
	return toggleFormat(sel, "italic", nil)
}

func (*italicTool) CheckState(sel *tool.Selection) bool {
	return hasFormat(sel, "italic")
}
