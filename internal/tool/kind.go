package tool

import "fmt"

// Kind classifies what a tool contributes to the editor.
type Kind int

// Tool kinds.
const (
	// KindBlock - Tool provides a structural block (paragraph, heading, ...).
	KindBlock Kind = iota

	// KindInline - Tool formats text inside a block via the inline toolbar.
	KindInline

	// KindTune - Tool decorates an existing block with extra behavior.
	KindTune
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindBlock:
		return "block"
	case KindInline:
		return "inline"
	case KindTune:
		return "tune"
	default:
		return "unknown"
	}
}

// IsValid returns true if the kind is one of the known variants.
func (k Kind) IsValid() bool {
	return k == KindBlock || k == KindInline || k == KindTune
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "block":
		return KindBlock, nil
	case "inline":
		return KindInline, nil
	case "tune":
		return KindTune, nil
	default:
		return KindBlock, fmt.Errorf("unknown tool kind %q", s)
	}
}
