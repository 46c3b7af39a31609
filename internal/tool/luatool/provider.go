package luatool

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/inkstorm/internal/tool"
)

// Provider loads one tool from a Lua script. The script is probed once at
// construction: its kind global decides the contract, and the probe's
// function inventory applies to every instance. Each New call runs the
// script again in a fresh state, so instances share no globals.
type Provider struct {
	name string
	path string
	kind tool.Kind
	has  map[string]bool

	// probe keeps the first state alive for the prepare hook
	probe *State
}

// NewProvider loads and probes a tool script. The probe sees empty
// options; the real declaration arrives per instance through New.
func NewProvider(name, path string) (*Provider, error) {
	st := NewState()
	b := NewBridge(st.L)
	st.SetGlobal("options", b.ToLuaValue(map[string]any{}))
	st.SetGlobal("tool_name", lua.LString(name))

	if err := st.DoFile(path); err != nil {
		st.Close()
		return nil, fmt.Errorf("load script %s: %w", path, err)
	}

	ks, ok := st.GetGlobal("kind").(lua.LString)
	if !ok {
		st.Close()
		return nil, fmt.Errorf("%w: %s declares no kind", ErrBadScript, path)
	}
	kind, err := tool.ParseKind(string(ks))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrBadScript, path, err)
	}

	p := &Provider{
		name:  name,
		path:  path,
		kind:  kind,
		has:   make(map[string]bool),
		probe: st,
	}
	for _, fn := range append(kindFunctions(kind), "prepare", "reset") {
		p.has[fn] = st.HasFunction(fn)
	}
	return p, nil
}

// kindFunctions lists the script functions a kind's contract expects.
func kindFunctions(k tool.Kind) []string {
	switch k {
	case tool.KindInline:
		return []string{"render", "surround", "check_state"}
	case tool.KindTune:
		return []string{"render", "apply"}
	default:
		return []string{"render", "save"}
	}
}

// Name returns the tool name the script was discovered under.
func (p *Provider) Name() string { return p.name }

// Path returns the script path.
func (p *Provider) Path() string { return p.path }

// Kind returns the kind the script declares.
func (p *Provider) Kind() tool.Kind { return p.kind }

// Prepare runs the script's prepare function in the probe state. Scripts
// without the hook prepare as an immediate success.
func (p *Provider) Prepare(ctx context.Context, req tool.PrepareRequest) error {
	if !p.has["prepare"] {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b := NewBridge(p.probe.L)
	arg := b.ToLuaValue(map[string]any{"tool": req.ToolName})
	_, err := p.probe.Call("prepare", arg)
	return err
}

// New runs the script in a fresh state and wraps it in the contract the
// declared kind expects. The declaration's options and tool name are set
// as globals before the script body runs.
func (p *Provider) New(env *tool.Env, d *tool.Descriptor) (tool.Tool, error) {
	st := NewState()
	b := NewBridge(st.L)
	st.SetGlobal("options", b.ToLuaValue(d.Options()))
	st.SetGlobal("tool_name", lua.LString(d.Name()))

	if err := st.DoFile(p.path); err != nil {
		st.Close()
		return nil, fmt.Errorf("load script %s: %w", p.path, err)
	}

	base := scriptTool{name: d.Name(), state: st, bridge: b, has: p.has}
	switch p.kind {
	case tool.KindInline:
		return &inlineScript{scriptTool: base}, nil
	case tool.KindTune:
		return &tuneScript{scriptTool: base}, nil
	default:
		return &blockScript{scriptTool: base}, nil
	}
}

// Close releases the probe state.
func (p *Provider) Close() error {
	return p.probe.Close()
}

// scriptTool is the shared core of script-backed tool instances.
type scriptTool struct {
	name   string
	state  *State
	bridge *Bridge
	has    map[string]bool
}

func (t *scriptTool) Name() string { return t.name }

// Reset runs the script's reset hook when present and releases the
// instance's Lua state. The instance is unusable afterward.
func (t *scriptTool) Reset(ctx context.Context) error {
	var callErr error
	if t.has["reset"] && !t.state.IsClosed() {
		if err := ctx.Err(); err != nil {
			t.state.Close()
			return err
		}
		_, callErr = t.state.Call("reset")
	}
	if err := t.state.Close(); err != nil && callErr == nil {
		callErr = err
	}
	return callErr
}

// selectionArg builds the {text, from, to} table scripts receive.
func (t *scriptTool) selectionArg(sel *tool.Selection) lua.LValue {
	return t.bridge.ToLuaValue(map[string]any{
		"text": sel.Text(),
		"from": sel.From,
		"to":   sel.To,
	})
}

// control reads a script render() result into a Control. Failures fall
// back to a control titled after the tool.
func (t *scriptTool) control() tool.Control {
	c := tool.Control{Title: t.name}
	if !t.has["render"] {
		return c
	}
	results, err := t.state.Call("render")
	if err != nil || len(results) == 0 {
		return c
	}
	ct, ok := results[0].(*lua.LTable)
	if !ok {
		return c
	}
	if icon, ok := t.bridge.GetTableString(ct, "icon"); ok {
		c.Icon = icon
	}
	if title, ok := t.bridge.GetTableString(ct, "title"); ok {
		c.Title = title
	}
	if shortcut, ok := t.bridge.GetTableString(ct, "shortcut"); ok {
		c.Shortcut = shortcut
	}
	return c
}

// applyEdits applies a single edit table or an array of them to the
// selection's fragment.
func (t *scriptTool) applyEdits(sel *tool.Selection, edits *lua.LTable) error {
	if edits.RawGetInt(1) != lua.LNil {
		var applyErr error
		edits.ForEach(func(_, v lua.LValue) {
			if applyErr != nil {
				return
			}
			et, ok := v.(*lua.LTable)
			if !ok {
				applyErr = fmt.Errorf("%w: edit list holds %s", ErrBadResult, v.Type())
				return
			}
			applyErr = t.applyEdit(sel, et)
		})
		return applyErr
	}
	return t.applyEdit(sel, edits)
}

// applyEdit applies one {action, format, from, to, attrs} edit. Omitted
// bounds default to the selection; the default action is add.
func (t *scriptTool) applyEdit(sel *tool.Selection, edit *lua.LTable) error {
	format, ok := t.bridge.GetTableString(edit, "format")
	if !ok {
		return fmt.Errorf("%w: edit without format", ErrBadResult)
	}

	from, to := sel.From, sel.To
	if n, ok := t.bridge.GetTableInt(edit, "from"); ok {
		from = n
	}
	if n, ok := t.bridge.GetTableInt(edit, "to"); ok {
		to = n
	}

	action, _ := t.bridge.GetTableString(edit, "action")
	switch action {
	case "", "add":
		var attrs map[string]any
		if raw := t.bridge.ToGoValue(edit.RawGetString("attrs")); raw != nil {
			attrs, _ = raw.(map[string]any)
		}
		sel.Fragment.AddMark(tool.Mark{Format: format, From: from, To: to, Attrs: attrs})
	case "remove":
		sel.Fragment.RemoveMark(format, from, to)
	default:
		return fmt.Errorf("%w: unknown edit action %q", ErrBadResult, action)
	}
	return nil
}

// inlineScript adapts a kind="inline" script to the inline contract.
type inlineScript struct {
	scriptTool
}

// MissingMethods reports the contract methods whose script functions are
// absent.
func (t *inlineScript) MissingMethods() []string {
	var missing []string
	if !t.has["render"] {
		missing = append(missing, "Render")
	}
	if !t.has["surround"] {
		missing = append(missing, "Surround")
	}
	if !t.has["check_state"] {
		missing = append(missing, "CheckState")
	}
	return missing
}

func (t *inlineScript) Render() tool.Control {
	return t.control()
}

// Surround hands the selection to the script and applies the mark edits
// it returns. A nil result means the script chose to do nothing.
func (t *inlineScript) Surround(sel *tool.Selection) error {
	if !t.has["surround"] {
		return fmt.Errorf("%w: surround", ErrMissingFunction)
	}
	if err := sel.Validate(); err != nil {
		return err
	}

	results, err := t.state.Call("surround", t.selectionArg(sel))
	if err != nil {
		return err
	}
	if len(results) == 0 || results[0] == lua.LNil {
		return nil
	}
	edits, ok := results[0].(*lua.LTable)
	if !ok {
		return fmt.Errorf("%w: surround returned %s", ErrBadResult, results[0].Type())
	}
	return t.applyEdits(sel, edits)
}

func (t *inlineScript) CheckState(sel *tool.Selection) bool {
	if !t.has["check_state"] || sel.Validate() != nil {
		return false
	}
	results, err := t.state.Call("check_state", t.selectionArg(sel))
	if err != nil || len(results) == 0 {
		return false
	}
	return lua.LVAsBool(results[0])
}

// blockScript adapts a kind="block" script to the block contract.
type blockScript struct {
	scriptTool
}

func (t *blockScript) MissingMethods() []string {
	var missing []string
	if !t.has["render"] {
		missing = append(missing, "Render")
	}
	if !t.has["save"] {
		missing = append(missing, "Save")
	}
	return missing
}

func (t *blockScript) Render(data map[string]any) (string, error) {
	if !t.has["render"] {
		return "", fmt.Errorf("%w: render", ErrMissingFunction)
	}
	results, err := t.state.Call("render", t.bridge.ToLuaValue(data))
	if err != nil {
		return "", err
	}
	if len(results) == 0 || results[0] == lua.LNil {
		return "", nil
	}
	markup, ok := results[0].(lua.LString)
	if !ok {
		return "", fmt.Errorf("%w: render returned %s", ErrBadResult, results[0].Type())
	}
	return string(markup), nil
}

// Save passes the block data to the script. A nil result discards the
// block, matching the block contract.
func (t *blockScript) Save(data map[string]any) (map[string]any, error) {
	if !t.has["save"] {
		return nil, fmt.Errorf("%w: save", ErrMissingFunction)
	}
	results, err := t.state.Call("save", t.bridge.ToLuaValue(data))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || results[0] == lua.LNil {
		return nil, nil
	}
	out := t.bridge.ToGoValue(results[0])
	m, ok := out.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: save returned %T", ErrBadResult, out)
	}
	return m, nil
}

// tuneScript adapts a kind="tune" script to the tune contract.
type tuneScript struct {
	scriptTool
}

func (t *tuneScript) MissingMethods() []string {
	var missing []string
	if !t.has["render"] {
		missing = append(missing, "Render")
	}
	if !t.has["apply"] {
		missing = append(missing, "Apply")
	}
	return missing
}

func (t *tuneScript) Render() tool.Control {
	return t.control()
}

func (t *tuneScript) Apply(data map[string]any) (map[string]any, error) {
	if !t.has["apply"] {
		return nil, fmt.Errorf("%w: apply", ErrMissingFunction)
	}
	results, err := t.state.Call("apply", t.bridge.ToLuaValue(data))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || results[0] == lua.LNil {
		return nil, nil
	}
	out := t.bridge.ToGoValue(results[0])
	m, ok := out.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: apply returned %T", ErrBadResult, out)
	}
	return m, nil
}
