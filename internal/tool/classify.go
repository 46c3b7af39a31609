package tool

// Narrow probes for the inline contract. Checking the three methods
// individually lets the registry name exactly which ones a tool lacks.
type inlineRenderer interface {
	Render() Control
}

type inlineSurrounder interface {
	Surround(sel *Selection) error
}

type inlineStateChecker interface {
	CheckState(sel *Selection) bool
}

// MissingInlineMethods reports which inline contract methods t lacks.
// Wrapper instances that self-report through IncompleteTool are trusted
// over structural probes, since a wrapper can carry the methods while its
// backing implementation does not.
func MissingInlineMethods(t Tool) []string {
	if t == nil {
		return []string{"Render", "Surround", "CheckState"}
	}
	if inc, ok := t.(IncompleteTool); ok {
		if missing := inc.MissingMethods(); len(missing) > 0 {
			return missing
		}
	}

	var missing []string
	if _, ok := t.(inlineRenderer); !ok {
		missing = append(missing, "Render")
	}
	if _, ok := t.(inlineSurrounder); !ok {
		missing = append(missing, "Surround")
	}
	if _, ok := t.(inlineStateChecker); !ok {
		missing = append(missing, "CheckState")
	}
	return missing
}

// InlineCapable reports whether t satisfies the full inline contract.
func InlineCapable(t Tool) bool {
	return len(MissingInlineMethods(t)) == 0
}

// BlockCapable reports whether t satisfies the block contract. Wrapper
// self-reports are honored the same way as for inline tools.
func BlockCapable(t Tool) bool {
	if t == nil {
		return false
	}
	if inc, ok := t.(IncompleteTool); ok {
		if len(inc.MissingMethods()) > 0 {
			return false
		}
	}
	_, ok := t.(BlockTool)
	return ok
}
