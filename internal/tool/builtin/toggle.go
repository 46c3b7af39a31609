package builtin

import "github.com/dshills/inkstorm/internal/tool"

// toggleFormat applies or removes a format over the selection. A covered
// range loses the format; anything else gains it. Carets are left alone.
func toggleFormat(sel *tool.Selection, format string, attrs map[string]any) error {
	if err := sel.Validate(); err != nil {
		return err
	}
	if sel.From == sel.To {
		return nil
	}
	if sel.Fragment.Covered(format, sel.From, sel.To) {
		sel.Fragment.RemoveMark(format, sel.From, sel.To)
		return nil
	}
	sel.Fragment.AddMark(tool.Mark{Format: format, From: sel.From, To: sel.To, Attrs: attrs})
	return nil
}

// hasFormat reports whether the selection is fully covered by the format.
func hasFormat(sel *tool.Selection, format string) bool {
	if sel.Validate() != nil {
		return false
	}
	return sel.Fragment.Covered(format, sel.From, sel.To)
}
