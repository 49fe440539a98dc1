package layout

import (
	"github.com/jheling/blockwork/pkg/block"
)

// BlockGroupLayout holds a vertical chain of block layouts: a root block
// followed by its next-chained successors. Top-level groups live in the
// WorkspaceLayout, where the group's relative position is the chain's
// workspace position; nested groups live inside an InputLayout slot.
type BlockGroupLayout struct {
	base
	blocks []*BlockLayout
}

func newBlockGroupLayout(engine *Engine) *BlockGroupLayout {
	return &BlockGroupLayout{base: newBase(engine)}
}

// BlockLayouts returns the chain, first block first.
func (l *BlockGroupLayout) BlockLayouts() []*BlockLayout { return l.blocks }

// FirstBlockLayout returns the chain's first layout, or nil when empty.
func (l *BlockGroupLayout) FirstBlockLayout() *BlockLayout {
	if len(l.blocks) == 0 {
		return nil
	}
	return l.blocks[0]
}

// Empty reports whether the group holds no block layouts.
func (l *BlockGroupLayout) Empty() bool { return len(l.blocks) == 0 }

// MoveToWorkspacePosition repositions the group. Meaningful for top-level
// groups, whose relative position is their workspace position.
func (l *BlockGroupLayout) MoveToWorkspacePosition(p block.WorkspacePoint) {
	l.relative = p
}

// appendBlockLayouts adopts detached layouts at the end of the chain.
func (l *BlockGroupLayout) appendBlockLayouts(layouts []*BlockLayout) {
	for _, bl := range layouts {
		l.base.adopt(&bl.base)
		bl.group = l
		l.blocks = append(l.blocks, bl)
	}
}

func (l *BlockGroupLayout) indexOf(bl *BlockLayout) int {
	for i, existing := range l.blocks {
		if existing == bl {
			return i
		}
	}
	return -1
}

// detachStartingFrom removes bl and every layout after it from the chain
// and returns them, detached and in order. Returns nil if bl is not here.
func (l *BlockGroupLayout) detachStartingFrom(bl *BlockLayout) []*BlockLayout {
	idx := l.indexOf(bl)
	if idx < 0 {
		return nil
	}
	detached := append([]*BlockLayout(nil), l.blocks[idx:]...)
	l.blocks = l.blocks[:idx]
	for _, d := range detached {
		l.base.orphan(&d.base)
		d.group = nil
	}
	return detached
}

// ClaimWithFollowers moves bl and every layout following it in its current
// group into this group, appended in order. The subtrees move as-is; nothing
// is rebuilt.
func (l *BlockGroupLayout) ClaimWithFollowers(bl *BlockLayout) {
	if bl.group == l {
		return
	}
	var moved []*BlockLayout
	if src := bl.group; src != nil {
		moved = src.detachStartingFrom(bl)
	} else {
		moved = []*BlockLayout{bl}
	}
	l.appendBlockLayouts(moved)
}

// replaceBlockLayout swaps old for rebuilt at the same chain position.
// Returns false if old is not in this group.
func (l *BlockGroupLayout) replaceBlockLayout(old, rebuilt *BlockLayout) bool {
	idx := l.indexOf(old)
	if idx < 0 {
		return false
	}
	l.base.orphan(&old.base)
	old.group = nil
	l.base.adopt(&rebuilt.base)
	rebuilt.group = l
	l.blocks[idx] = rebuilt
	return true
}

// PerformLayout measures each block layout and stacks the chain vertically.
func (l *BlockGroupLayout) PerformLayout() {
	y, width := 0.0, 0.0
	for _, bl := range l.blocks {
		bl.PerformLayout()
		bl.relative = block.WorkspacePoint{Y: y}
		size := bl.Size()
		y += size.Height
		if size.Width > width {
			width = size.Width
		}
	}
	l.size = block.WorkspaceSize{Width: width, Height: y}
}
