// Package builtin provides the tools every editor carries: the bold,
// italic, and link inline formats, the paragraph block, and the stub block
// that stands in for unavailable tools. The registry merges user
// declarations over these defaults, so users can reconfigure a built-in by
// name without providing their own implementation.
package builtin

import "github.com/dshills/inkstorm/internal/tool"

// Defaults returns the built-in tool declarations in canonical order.
// Names declared here are the editor's internal tools; none of them
// carries a preparation hook.
func Defaults() *tool.Config {
	return tool.NewConfig().
		AddProvider("bold", Bold()).
		AddProvider("italic", Italic()).
		AddProvider("link", Link()).
		Add("paragraph", tool.Settings{
			Provider: Paragraph(),
			Options:  map[string]any{"inlineToolbar": true},
		}).
		AddProvider("stub", Stub())
}
