package layout

import (
	"github.com/jheling/blockwork/pkg/block"
)

// BlockLayout measures one block: its input rows, an optional mutator
// button, and the offsets of its connections within the block's box. Sizes
// are bounding boxes: a block's size includes its statement and value
// children, a group's size includes its whole chain.
type BlockLayout struct {
	base
	block   *block.Block
	inputs  []*InputLayout
	mutator *MutatorLayout
	group   *BlockGroupLayout

	connectionOffsets map[*block.Connection]block.WorkspacePoint
}

func newBlockLayout(engine *Engine, b *block.Block) *BlockLayout {
	l := &BlockLayout{
		base:              newBase(engine),
		block:             b,
		connectionOffsets: make(map[*block.Connection]block.WorkspacePoint),
	}
	for _, input := range b.Inputs() {
		il := newInputLayout(engine, input)
		l.base.adopt(&il.base)
		l.inputs = append(l.inputs, il)
	}
	if m := b.Mutator(); m != nil {
		l.mutator = newMutatorLayout(engine, m)
		l.base.adopt(&l.mutator.base)
	}
	return l
}

// Block returns the measured block.
func (l *BlockLayout) Block() *block.Block { return l.block }

// Group returns the block group layout containing this block, or nil while
// detached mid-claim.
func (l *BlockLayout) Group() *BlockGroupLayout { return l.group }

// InputLayouts returns the block's input layouts, in input order.
func (l *BlockLayout) InputLayouts() []*InputLayout { return l.inputs }

// InputLayoutFor returns the layout of the given input, or nil.
func (l *BlockLayout) InputLayoutFor(input *block.Input) *InputLayout {
	for _, il := range l.inputs {
		if il.Input() == input {
			return il
		}
	}
	return nil
}

// MutatorLayout returns the block's mutator button layout, or nil.
func (l *BlockLayout) MutatorLayout() *MutatorLayout { return l.mutator }

// ConnectionOffset returns the offset of conn within the block's box, as
// computed by the last layout pass.
func (l *BlockLayout) ConnectionOffset(conn *block.Connection) (block.WorkspacePoint, bool) {
	offset, ok := l.connectionOffsets[conn]
	return offset, ok
}

// PerformLayout measures the block. In inline mode value and dummy inputs
// flow into shared rows and statement inputs break rows; otherwise every
// input gets its own row.
func (l *BlockLayout) PerformLayout() {
	cfg := l.engine.Config()
	inline := l.block.InputsInline()

	for _, il := range l.inputs {
		il.PerformLayout(inline)
	}
	if l.mutator != nil {
		l.mutator.PerformLayout()
	}

	var rows [][]*InputLayout
	for _, il := range l.inputs {
		statement := il.Input().Type() == block.InputTypeStatement
		start := len(rows) == 0 || statement || !inline
		if !start {
			if prev := rows[len(rows)-1]; len(prev) > 0 &&
				prev[len(prev)-1].Input().Type() == block.InputTypeStatement {
				start = true
			}
		}
		if start {
			rows = append(rows, []*InputLayout{il})
		} else {
			rows[len(rows)-1] = append(rows[len(rows)-1], il)
		}
	}

	x0 := 0.0
	if l.block.OutputConnection() != nil {
		x0 = cfg.PuzzleTabWidth
	}

	y := 0.0
	width := cfg.MinBlockWidth
	for ri, row := range rows {
		x := x0
		rowHeight := 0.0
		for i, il := range row {
			if i > 0 {
				x += cfg.XSeparator
			}
			il.relative = block.WorkspacePoint{X: x, Y: y}
			x += il.Size().Width
			if h := il.Size().Height; h > rowHeight {
				rowHeight = h
			}
		}
		if ri == 0 && l.mutator != nil {
			x += cfg.XSeparator
			l.mutator.relative = block.WorkspacePoint{X: x, Y: y}
			x += l.mutator.Size().Width
			if h := l.mutator.Size().Height; h > rowHeight {
				rowHeight = h
			}
		}
		if rowHeight < cfg.MinRowHeight {
			rowHeight = cfg.MinRowHeight
		}
		if x > width {
			width = x
		}
		y += rowHeight
	}
	if y < cfg.MinRowHeight {
		y = cfg.MinRowHeight
	}
	l.size = block.WorkspaceSize{Width: width, Height: y}

	l.computeConnectionOffsets()
}

// computeConnectionOffsets places each connection within the block's box.
// A superior connection and its connected inferior resolve to the same
// workspace point: the child's plug offset inside its group mirrors the
// parent's socket offset.
func (l *BlockLayout) computeConnectionOffsets() {
	cfg := l.engine.Config()
	clear(l.connectionOffsets)
	if c := l.block.PreviousConnection(); c != nil {
		l.connectionOffsets[c] = block.WorkspacePoint{X: cfg.NotchWidth}
	}
	if c := l.block.NextConnection(); c != nil {
		l.connectionOffsets[c] = block.WorkspacePoint{X: cfg.NotchWidth, Y: l.size.Height}
	}
	if c := l.block.OutputConnection(); c != nil {
		l.connectionOffsets[c] = block.WorkspacePoint{Y: cfg.PuzzleTabHeight / 2}
	}
	for _, il := range l.inputs {
		conn := il.Input().Connection()
		if conn == nil {
			continue
		}
		slot := il.RelativePosition().Offset(il.Group().RelativePosition())
		switch il.Input().Type() {
		case block.InputTypeValue:
			l.connectionOffsets[conn] = slot.Add(0, cfg.PuzzleTabHeight/2)
		case block.InputTypeStatement:
			l.connectionOffsets[conn] = slot.Add(cfg.NotchWidth, 0)
		}
	}
}

// refreshConnectionPositions pushes the block's absolute position into its
// connections so spatial indexes stay current.
func (l *BlockLayout) refreshConnectionPositions() {
	absolute := l.AbsolutePosition()
	for conn, offset := range l.connectionOffsets {
		conn.MoveToPosition(absolute, offset)
	}
}
