package tool

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Mark is a formatting span over a fragment's text.
// Offsets are rune positions; the span covers [From, To).
type Mark struct {
	Format string
	From   int
	To     int

	// Attrs carries format-specific attributes (e.g. a link href).
	Attrs map[string]any
}

// Fragment is a run of rich text: plain text plus format marks.
type Fragment struct {
	Text  string
	Marks []Mark
}

// NewFragment creates a fragment with the given plain text and no marks.
func NewFragment(text string) *Fragment {
	return &Fragment{Text: text}
}

// RuneLen returns the fragment length in runes.
func (f *Fragment) RuneLen() int {
	return utf8.RuneCountInString(f.Text)
}

// Covered reports whether every rune in [from, to) carries a mark of the
// given format. A zero-width range reports whether a mark of the format
// contains the caret position.
func (f *Fragment) Covered(format string, from, to int) bool {
	if from == to {
		for _, m := range f.Marks {
			if m.Format == format && m.From <= from && from < m.To {
				return true
			}
		}
		return false
	}

	// Collect and sort spans of the format, then walk the range.
	spans := f.spansOf(format)
	pos := from
	for _, m := range spans {
		if m.To <= pos {
			continue
		}
		if m.From > pos {
			return false
		}
		pos = m.To
		if pos >= to {
			return true
		}
	}
	return pos >= to
}

// AddMark adds a mark and normalizes the mark list: spans of the same format
// with equal attributes are merged when they overlap or touch.
func (f *Fragment) AddMark(m Mark) {
	f.Marks = append(f.Marks, m)
	f.normalize()
}

// RemoveMark removes the given format from the range [from, to), splitting
// marks that extend past the range.
func (f *Fragment) RemoveMark(format string, from, to int) {
	out := make([]Mark, 0, len(f.Marks))
	for _, m := range f.Marks {
		if m.Format != format || m.To <= from || m.From >= to {
			out = append(out, m)
			continue
		}
		if m.From < from {
			out = append(out, Mark{Format: m.Format, From: m.From, To: from, Attrs: m.Attrs})
		}
		if m.To > to {
			out = append(out, Mark{Format: m.Format, From: to, To: m.To, Attrs: m.Attrs})
		}
	}
	f.Marks = out
	f.normalize()
}

// spansOf returns the marks of a format sorted by start offset.
func (f *Fragment) spansOf(format string) []Mark {
	var spans []Mark
	for _, m := range f.Marks {
		if m.Format == format {
			spans = append(spans, m)
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].From < spans[j].From })
	return spans
}

// normalize sorts marks and merges same-format spans with equal attributes
// that overlap or touch.
func (f *Fragment) normalize() {
	if len(f.Marks) < 2 {
		return
	}

	sort.SliceStable(f.Marks, func(i, j int) bool {
		if f.Marks[i].Format != f.Marks[j].Format {
			return f.Marks[i].Format < f.Marks[j].Format
		}
		return f.Marks[i].From < f.Marks[j].From
	})

	out := f.Marks[:0]
	for _, m := range f.Marks {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if last.Format == m.Format && m.From <= last.To && attrsEqual(last.Attrs, m.Attrs) {
				if m.To > last.To {
					last.To = m.To
				}
				continue
			}
		}
		out = append(out, m)
	}
	f.Marks = out
}

// attrsEqual compares two attribute maps for equality.
func attrsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || va != vb {
			return false
		}
	}
	return true
}

// Selection addresses a rune range within a fragment. From and To are rune
// offsets with From <= To; a zero-width selection is a caret.
type Selection struct {
	Fragment *Fragment
	From     int
	To       int
}

// NewSelection creates a selection over the fragment.
func NewSelection(f *Fragment, from, to int) *Selection {
	return &Selection{Fragment: f, From: from, To: to}
}

// Validate checks that the selection addresses a valid range.
func (s *Selection) Validate() error {
	if s == nil || s.Fragment == nil {
		return fmt.Errorf("%w: nil selection", ErrInvalidSelection)
	}
	if s.From < 0 || s.To < s.From || s.To > s.Fragment.RuneLen() {
		return fmt.Errorf("%w: [%d, %d) in %d runes", ErrInvalidSelection, s.From, s.To, s.Fragment.RuneLen())
	}
	return nil
}

// Text returns the selected text.
func (s *Selection) Text() string {
	if s == nil || s.Fragment == nil {
		return ""
	}
	runes := []rune(s.Fragment.Text)
	if s.From < 0 || s.To > len(runes) || s.From > s.To {
		return ""
	}
	return string(runes[s.From:s.To])
}
