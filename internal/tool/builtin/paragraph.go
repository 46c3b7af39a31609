package builtin

import (
	"html"
	"strings"

	"github.com/dshills/inkstorm/internal/tool"
)

// Paragraph returns the provider for the built-in paragraph block tool.
func Paragraph() tool.Provider { return paragraphProvider{} }

type paragraphProvider struct{}

func (paragraphProvider) Kind() tool.Kind { return tool.KindBlock }

func (paragraphProvider) New(env *tool.Env, d *tool.Descriptor) (tool.Tool, error) {
	return &paragraphTool{
		placeholder:   d.OptionString("placeholder", ""),
		preserveBlank: d.OptionBool("preserveBlank", false),
	}, nil
}

// paragraphTool is the default text block.
type paragraphTool struct {
	placeholder   string
	preserveBlank bool
}

func (*paragraphTool) Name() string { return "paragraph" }

func (p *paragraphTool) Render(data map[string]any) (string, error) {
	text, _ := data["text"].(string)
	if text == "" && p.placeholder != "" {
		return `<p class="placeholder">` + html.EscapeString(p.placeholder) + `</p>`, nil
	}
	return "<p>" + html.EscapeString(text) + "</p>", nil
}

// Save normalizes block data down to its text. Blank paragraphs are
// discarded unless preserveBlank is set.
func (p *paragraphTool) Save(data map[string]any) (map[string]any, error) {
	text, _ := data["text"].(string)
	if strings.TrimSpace(text) == "" && !p.preserveBlank {
		return nil, nil
	}
	return map[string]any{"text": text}, nil
}
