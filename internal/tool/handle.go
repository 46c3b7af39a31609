package tool

// Handle binds a configured tool's descriptor to its constructed instance
// and terminal preparation error. Handles are immutable: once the registry
// routes a tool into a bucket, its handle never changes.
type Handle struct {
	desc *Descriptor
	tool Tool
	err  error
}

// NewHandle creates a handle. tool may be nil when construction failed.
func NewHandle(desc *Descriptor, tool Tool, err error) *Handle {
	return &Handle{desc: desc, tool: tool, err: err}
}

// Name returns the configured tool name.
func (h *Handle) Name() string {
	return h.desc.Name()
}

// Descriptor returns the tool's normalized descriptor.
func (h *Handle) Descriptor() *Descriptor {
	return h.desc
}

// Tool returns the constructed instance. It may be nil for an unavailable
// tool whose construction failed.
func (h *Handle) Tool() Tool {
	return h.tool
}

// Err returns the preparation or construction error, if any.
func (h *Handle) Err() error {
	return h.err
}

// Kind returns the tool's declared kind.
func (h *Handle) Kind() Kind {
	return h.desc.Kind()
}

// Internal reports whether the tool is a built-in.
func (h *Handle) Internal() bool {
	return h.desc.Internal()
}

// Usable reports whether the tool settled without error and has an
// instance.
func (h *Handle) Usable() bool {
	return h.err == nil && h.tool != nil
}
