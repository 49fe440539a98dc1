package layout

import (
	"sort"

	"github.com/jheling/blockwork/pkg/block"
	"github.com/jheling/blockwork/pkg/workspace"
)

// WorkspaceLayout is the root of a layout tree. It owns one block group
// layout per top-level block, in draw order, and a registry resolving any
// block in the workspace to its layout.
type WorkspaceLayout struct {
	base
	workspace *workspace.Workspace
	groups    []*BlockGroupLayout
	registry  map[string]*BlockLayout
}

func newWorkspaceLayout(engine *Engine, ws *workspace.Workspace) *WorkspaceLayout {
	return &WorkspaceLayout{
		base:      newBase(engine),
		workspace: ws,
		registry:  make(map[string]*BlockLayout),
	}
}

// Workspace returns the workspace this layout mirrors.
func (l *WorkspaceLayout) Workspace() *workspace.Workspace { return l.workspace }

// BlockGroupLayouts returns the top-level groups in draw order: the last
// group renders on top.
func (l *WorkspaceLayout) BlockGroupLayouts() []*BlockGroupLayout { return l.groups }

// LayoutForBlock returns the layout of b anywhere in the workspace, or nil
// if b has none.
func (l *WorkspaceLayout) LayoutForBlock(b *block.Block) *BlockLayout {
	if b == nil {
		return nil
	}
	return l.registry[b.UUID()]
}

// AllBlockLayouts returns every registered block layout, ordered by block
// UUID.
func (l *WorkspaceLayout) AllBlockLayouts() []*BlockLayout {
	out := make([]*BlockLayout, 0, len(l.registry))
	for _, bl := range l.registry {
		out = append(out, bl)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Block().UUID() < out[j].Block().UUID()
	})
	return out
}

// AppendBlockGroupLayout adds g as the topmost group and registers every
// block layout in its subtree.
func (l *WorkspaceLayout) AppendBlockGroupLayout(g *BlockGroupLayout) {
	l.adopt(&g.base)
	l.groups = append(l.groups, g)
	l.registerBlockTree(g)
}

// RemoveBlockGroupLayout removes g and unregisters its subtree. Removing a
// group that is not present is a no-op.
func (l *WorkspaceLayout) RemoveBlockGroupLayout(g *BlockGroupLayout) {
	for i, candidate := range l.groups {
		if candidate == g {
			l.groups = append(l.groups[:i], l.groups[i+1:]...)
			l.orphan(&g.base)
			l.unregisterBlockTree(g)
			return
		}
	}
}

// BringToFront moves g to the end of the draw order.
func (l *WorkspaceLayout) BringToFront(g *BlockGroupLayout) {
	for i, candidate := range l.groups {
		if candidate == g {
			l.groups = append(l.groups[:i], l.groups[i+1:]...)
			l.groups = append(l.groups, g)
			return
		}
	}
}

func (l *WorkspaceLayout) registerBlockTree(g *BlockGroupLayout) {
	for _, bl := range g.BlockLayouts() {
		l.registerBlockLayout(bl)
	}
}

func (l *WorkspaceLayout) registerBlockLayout(bl *BlockLayout) {
	l.registry[bl.Block().UUID()] = bl
	for _, il := range bl.InputLayouts() {
		if grp := il.Group(); grp != nil {
			l.registerBlockTree(grp)
		}
	}
}

func (l *WorkspaceLayout) unregisterBlockTree(g *BlockGroupLayout) {
	for _, bl := range g.BlockLayouts() {
		l.unregisterBlockLayout(bl)
	}
}

func (l *WorkspaceLayout) unregisterBlockLayout(bl *BlockLayout) {
	delete(l.registry, bl.Block().UUID())
	for _, il := range bl.InputLayouts() {
		if grp := il.Group(); grp != nil {
			l.unregisterBlockTree(grp)
		}
	}
}

// PerformLayout measures every group, resizes the canvas to their union,
// and pushes fresh absolute positions into every tracked connection.
func (l *WorkspaceLayout) PerformLayout() {
	var size block.WorkspaceSize
	for _, g := range l.groups {
		g.PerformLayout()
		size = size.Union(extent(g.RelativePosition(), g.Size()))
	}
	l.size = size
	for _, bl := range l.registry {
		bl.refreshConnectionPositions()
	}
}
