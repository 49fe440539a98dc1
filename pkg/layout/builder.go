package layout

import (
	"time"

	"github.com/jheling/blockwork/pkg/block"
	"github.com/jheling/blockwork/pkg/errors"
	"github.com/jheling/blockwork/pkg/observability"
	"github.com/jheling/blockwork/pkg/workspace"
)

// Builder constructs layout trees mirroring model trees. Chains follow the
// visible block on each connection: the connected target when there is one,
// the shadow otherwise.
type Builder struct {
	engine *Engine
}

// NewBuilder returns a builder measuring with the given engine.
func NewBuilder(engine *Engine) (*Builder, error) {
	if engine == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "layout builder requires an engine")
	}
	return &Builder{engine: engine}, nil
}

// BuildWorkspaceLayout builds a complete layout tree for ws, with one block
// group layout per top-level block positioned at that block's workspace
// position.
func (b *Builder) BuildWorkspaceLayout(ws *workspace.Workspace) (*WorkspaceLayout, error) {
	if ws == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "cannot build layout for nil workspace")
	}
	start := time.Now()
	observability.Layout().OnBuildStart(ws.UUID(), len(ws.AllBlocks()))

	l := newWorkspaceLayout(b.engine, ws)
	for _, root := range ws.TopLevelBlocks() {
		g, err := b.BuildBlockGroupLayout(root)
		if err != nil {
			observability.Layout().OnBuildComplete(ws.UUID(), time.Since(start), err)
			return nil, err
		}
		g.MoveToWorkspacePosition(root.Position())
		l.AppendBlockGroupLayout(g)
	}
	observability.Layout().OnBuildComplete(ws.UUID(), time.Since(start), nil)
	return l, nil
}

// BuildBlockGroupLayout builds a group layout for the chain starting at
// root, following next connections.
func (b *Builder) BuildBlockGroupLayout(root *block.Block) (*BlockGroupLayout, error) {
	if root == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "cannot build group layout for nil block")
	}
	g := newBlockGroupLayout(b.engine)
	if err := b.buildChainInto(g, root); err != nil {
		return nil, err
	}
	return g, nil
}

// BuildBlockLayout builds the layout for a single block and, recursively,
// for every visible block hanging off its inputs.
func (b *Builder) BuildBlockLayout(blk *block.Block) (*BlockLayout, error) {
	if blk == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "cannot build layout for nil block")
	}
	bl := newBlockLayout(b.engine, blk)
	for _, il := range bl.InputLayouts() {
		conn := il.Input().Connection()
		if conn == nil {
			continue
		}
		child := conn.TargetBlock()
		if child == nil {
			child = conn.ShadowBlock()
		}
		if child == nil {
			continue
		}
		if err := b.buildChainInto(il.Group(), child); err != nil {
			return nil, err
		}
	}
	return bl, nil
}

func (b *Builder) buildChainInto(g *BlockGroupLayout, first *block.Block) error {
	for cur := first; cur != nil; cur = visibleNext(cur) {
		bl, err := b.BuildBlockLayout(cur)
		if err != nil {
			return err
		}
		g.appendBlockLayouts([]*BlockLayout{bl})
	}
	return nil
}

// visibleNext returns the block rendered below cur in its chain.
func visibleNext(cur *block.Block) *block.Block {
	nc := cur.NextConnection()
	if nc == nil {
		return nil
	}
	if t := nc.TargetBlock(); t != nil {
		return t
	}
	return nc.ShadowBlock()
}
