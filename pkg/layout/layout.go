package layout

import (
	"github.com/google/uuid"

	"github.com/jheling/blockwork/pkg/block"
)

// base is the geometry every layout node carries: identity, engine, a parent
// link for deriving absolute positions, a position relative to that parent,
// and the node's measured size including its children.
type base struct {
	uuid     string
	engine   *Engine
	parent   *base
	relative block.WorkspacePoint
	size     block.WorkspaceSize
}

func newBase(engine *Engine) base {
	return base{uuid: uuid.NewString(), engine: engine}
}

// UUID returns the layout node's stable identifier.
func (b *base) UUID() string { return b.uuid }

// Engine returns the engine this node measures with.
func (b *base) Engine() *Engine { return b.engine }

// RelativePosition returns the node's position relative to its parent.
func (b *base) RelativePosition() block.WorkspacePoint { return b.relative }

// Size returns the node's extent, children included.
func (b *base) Size() block.WorkspaceSize { return b.size }

// AbsolutePosition returns the node's position in workspace coordinates,
// derived by summing relative positions up the ancestor chain.
func (b *base) AbsolutePosition() block.WorkspacePoint {
	position := b.relative
	for p := b.parent; p != nil; p = p.parent {
		position = position.Offset(p.relative)
	}
	return position
}

// adopt makes b the parent of child. orphan severs the link; nodes keep
// their relative position either way.
func (b *base) adopt(child *base)  { child.parent = b }
func (b *base) orphan(child *base) { child.parent = nil }

// extent returns the bottom-right corner of a node placed at position with
// the given size, used when accumulating canvas bounds.
func extent(position block.WorkspacePoint, size block.WorkspaceSize) block.WorkspaceSize {
	return block.WorkspaceSize{Width: position.X + size.Width, Height: position.Y + size.Height}
}
