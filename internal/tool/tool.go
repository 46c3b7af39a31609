// Package tool implements the editor's tool engine: capability contracts,
// configuration normalization, sequential preparation, and the registry that
// tracks which tools are available for use.
//
// A tool is declared by name with a Provider and an option map. During
// startup the registry validates the declarations, merges built-in defaults
// beneath them, runs each provider's optional preparation hook strictly in
// declaration order, and sorts every tool into the available or unavailable
// bucket. Per-tool failures are contained; only configuration errors abort
// startup.
package tool

import "context"

// Tool is a constructed tool instance. Richer behavior is expressed through
// the per-kind contracts (InlineTool, BlockTool, Tune) and the optional
// Resetter hook.
type Tool interface {
	// Name returns the configured tool name.
	Name() string
}

// Control describes a toolbar entry for a tool. Rendering the actual UI is
// the frontend's concern; the engine only carries the descriptor.
type Control struct {
	Icon     string
	Title    string
	Shortcut string
}

// InlineTool is the contract for inline formatting tools. All three methods
// are required for a tool to appear in the inline toolbar view; a tool
// declared inline that lacks any of them stays usable but is excluded from
// that view.
type InlineTool interface {
	Tool

	// Render returns the tool's inline toolbar control.
	Render() Control

	// Surround applies or removes the tool's formatting over the selection.
	Surround(sel *Selection) error

	// CheckState reports whether the selection is already formatted by this
	// tool.
	CheckState(sel *Selection) bool
}

// BlockTool is the contract for structural block tools. Block data is opaque
// to the engine; Render and Save are invoked by the document layer.
type BlockTool interface {
	Tool

	// Render produces the display text for a block's data.
	Render(data map[string]any) (string, error)

	// Save normalizes block data for serialization. Returning a nil map
	// discards the block.
	Save(data map[string]any) (map[string]any, error)
}

// Tune is the contract for block decoration tools. Tune behavior is opaque
// to the engine.
type Tune interface {
	Tool

	// Render returns the tune's menu control.
	Render() Control

	// Apply transforms a block's data with the tune's decoration.
	Apply(data map[string]any) (map[string]any, error)
}

// Provider constructs tool instances. It is the declared side of a tool:
// the kind it announces and the constructor the factory calls once per
// configured name.
type Provider interface {
	// Kind reports the variant this provider's tools belong to.
	Kind() Kind

	// New constructs the tool instance for the given descriptor.
	New(env *Env, d *Descriptor) (Tool, error)
}

// PrepareRequest carries the arguments for a provider's preparation hook.
type PrepareRequest struct {
	// ToolName is the configured name the hook is being prepared for.
	ToolName string
}

// Preparer is an optional provider hook that runs before instance
// construction. Hooks run strictly in declaration order; an error or panic
// marks the tool unavailable without stopping the remaining sequence.
type Preparer interface {
	Prepare(ctx context.Context, req PrepareRequest) error
}

// Resetter is an optional instance hook invoked during registry destroy.
// Resets run concurrently and failures are isolated per tool.
type Resetter interface {
	Reset(ctx context.Context) error
}

// IncompleteTool is implemented by wrapper instances (scripted tools) that
// can self-report contract methods their backing implementation lacks. The
// registry excludes such instances from the corresponding filtered view and
// logs the missing names.
type IncompleteTool interface {
	MissingMethods() []string
}
