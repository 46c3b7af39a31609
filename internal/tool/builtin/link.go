package builtin

import "github.com/dshills/inkstorm/internal/tool"

// Link returns the provider for the built-in link inline tool.
func Link() tool.Provider { return linkProvider{} }

type linkProvider struct{}

func (linkProvider) Kind() tool.Kind { return tool.KindInline }

func (linkProvider) New(env *tool.Env, d *tool.Descriptor) (tool.Tool, error) {
	return &linkTool{href: d.OptionString("href", "")}, nil
}

// linkTool wraps the selection in a link format. The default target comes
// from the tool options; with no configured href the mark carries no
// attributes until a caller fills them in.
type linkTool struct {
	href string
}

func (*linkTool) Name() string { return "link" }

func (*linkTool) Render() tool.Control {
	return tool.Control{Icon: "link", Title: "Link", Shortcut: "CMD+K"}
}

func (l *linkTool) Surround(sel *tool.Selection) error {
	var attrs map[string]any
	if l.href != "" {
		attrs = map[string]any{"href": l.href}
	}
	return toggleFormat(sel, "link", attrs)
}

func (l *linkTool) CheckState(sel *tool.Selection) bool {
	return hasFormat(sel, "link")
}
