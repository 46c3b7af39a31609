package editor

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/inkstorm/internal/tool"
)

// Block is one unit of document content: a stable ID, the name of the
// block tool that owns it, and the tool-shaped data map.
type Block struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Document is an ordered sequence of blocks. A document belongs to one
// goroutine at a time; it carries no locking of its own.
type Document struct {
	blocks []Block
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{}
}

// AddBlock appends a block of the given type with a fresh ID.
func (d *Document) AddBlock(blockType string, data map[string]any) Block {
	b := Block{ID: uuid.NewString(), Type: blockType, Data: data}
	d.blocks = append(d.blocks, b)
	return b
}

// Blocks returns a copy of the document's blocks in order.
func (d *Document) Blocks() []Block {
	return append([]Block{}, d.blocks...)
}

// Len returns the number of blocks.
func (d *Document) Len() int {
	return len(d.blocks)
}

// InsertDefault appends an empty block of the registry's default block
// type.
func (e *Editor) InsertDefault(d *Document) (Block, error) {
	h, ok := e.Registry().DefaultTool()
	if !ok {
		return Block{}, fmt.Errorf("default block tool: %w", tool.ErrToolNotFound)
	}
	return d.AddBlock(h.Name(), map[string]any{}), nil
}

// SavedDocument is the persistent form of a document.
type SavedDocument struct {
	Time    int64        `json:"time"`
	Version string       `json:"version"`
	Blocks  []SavedBlock `json:"blocks"`
}

// SavedBlock is one saved block.
type SavedBlock struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// SaveDocument runs every block through its tool's save. Blocks whose
// tool returns nil are discarded. Blocks whose tool is missing or
// failing are preserved verbatim through the stub tool, original type
// and data intact, so nothing is lost across a save round trip.
func (e *Editor) SaveDocument(d *Document) (*SavedDocument, error) {
	reg := e.Registry()
	if !reg.Prepared() {
		return nil, tool.ErrNotPrepared
	}

	blocks := reg.Block()
	out := &SavedDocument{Time: time.Now().UnixMilli(), Version: e.version}

	for _, b := range d.blocks {
		bt, ok := blocks[b.Type]
		if !ok {
			e.log.Warn().Str("tool", b.Type).Str("block", b.ID).Msg("tool unavailable, block preserved")
			out.Blocks = append(out.Blocks, e.preserveBlock(blocks, b))
			continue
		}

		data, err := bt.Save(b.Data)
		if err != nil {
			e.log.Warn().Str("tool", b.Type).Str("block", b.ID).Err(err).Msg("block save failed, block preserved")
			out.Blocks = append(out.Blocks, e.preserveBlock(blocks, b))
			continue
		}
		if data == nil {
			continue
		}
		out.Blocks = append(out.Blocks, SavedBlock{ID: b.ID, Type: b.Type, Data: data})
	}

	return out, nil
}

// preserveBlock carries a block through the stub tool unchanged.
func (e *Editor) preserveBlock(blocks map[string]tool.BlockTool, b Block) SavedBlock {
	if stub, ok := blocks["stub"]; ok {
		if data, err := stub.Save(b.Data); err == nil {
			return SavedBlock{ID: b.ID, Type: b.Type, Data: data}
		}
	}
	return SavedBlock{ID: b.ID, Type: b.Type, Data: b.Data}
}

// RenderDocument produces display markup per block, in order. Blocks
// whose tool is missing or failing render through the stub tool.
func (e *Editor) RenderDocument(d *Document) ([]string, error) {
	reg := e.Registry()
	if !reg.Prepared() {
		return nil, tool.ErrNotPrepared
	}

	blocks := reg.Block()
	stub := blocks["stub"]

	out := make([]string, 0, len(d.blocks))
	for _, b := range d.blocks {
		out = append(out, e.renderBlock(blocks, stub, b))
	}
	return out, nil
}

func (e *Editor) renderBlock(blocks map[string]tool.BlockTool, stub tool.BlockTool, b Block) string {
	bt, ok := blocks[b.Type]
	if !ok {
		bt = stub
	}
	if bt == nil {
		return ""
	}

	markup, err := bt.Render(b.Data)
	if err != nil {
		e.log.Warn().Str("tool", b.Type).Str("block", b.ID).Err(err).Msg("block render failed")
		if stub != nil && bt != stub {
			if m, serr := stub.Render(b.Data); serr == nil {
				return m
			}
		}
		return ""
	}
	return markup
}
