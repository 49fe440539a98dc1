package layout

import (
	"github.com/jheling/blockwork/pkg/block"
)

// InputLayout measures one input row: the input's fields laid out left to
// right, followed by the child slot for value and statement inputs. The
// child slot is a BlockGroupLayout that exists even while empty, so
// reconnection can claim layouts into it without rebuilding.
type InputLayout struct {
	base
	input  *block.Input
	fields []*FieldLayout
	group  *BlockGroupLayout // nil for dummy inputs
}

func newInputLayout(engine *Engine, input *block.Input) *InputLayout {
	l := &InputLayout{base: newBase(engine), input: input}
	for _, field := range input.Fields() {
		fl := newFieldLayout(engine, field)
		l.base.adopt(&fl.base)
		l.fields = append(l.fields, fl)
	}
	if input.Type() != block.InputTypeDummy {
		l.group = newBlockGroupLayout(engine)
		l.base.adopt(&l.group.base)
	}
	return l
}

// Input returns the measured input.
func (l *InputLayout) Input() *block.Input { return l.input }

// FieldLayouts returns the layouts of the input's fields, in field order.
func (l *InputLayout) FieldLayouts() []*FieldLayout { return l.fields }

// Group returns the input's child slot, or nil for dummy inputs.
func (l *InputLayout) Group() *BlockGroupLayout { return l.group }

// PerformLayout measures fields and the child slot and arranges them within
// the row. inline selects the compact value-slot shape. Invisible inputs
// collapse to zero size.
func (l *InputLayout) PerformLayout(inline bool) {
	cfg := l.engine.Config()
	if !l.input.Visible() {
		l.size = block.WorkspaceSizeZero
		return
	}

	fieldsWidth, fieldsHeight := 0.0, 0.0
	for _, fl := range l.fields {
		fl.PerformLayout()
		if fieldsWidth > 0 {
			fieldsWidth += cfg.XSeparator
		}
		fl.relative = block.WorkspacePoint{X: fieldsWidth}
		fieldsWidth += fl.Size().Width
		if h := fl.Size().Height; h > fieldsHeight {
			fieldsHeight = h
		}
	}

	var child block.WorkspaceSize
	if l.group != nil {
		l.group.PerformLayout()
		child = l.group.Size()
	}

	slotX := fieldsWidth
	if fieldsWidth > 0 {
		slotX += cfg.XSeparator
	}

	switch l.input.Type() {
	case block.InputTypeValue:
		if inline {
			slotWidth := child.Width + 2*cfg.InlinePaddingX
			if child.Width == 0 {
				slotWidth = cfg.EmptyInputWidth
			}
			slotHeight := child.Height + 2*cfg.InlinePaddingY
			if slotHeight < cfg.MinRowHeight {
				slotHeight = cfg.MinRowHeight
			}
			l.group.relative = block.WorkspacePoint{X: slotX + cfg.InlinePaddingX, Y: cfg.InlinePaddingY}
			l.size = block.WorkspaceSize{
				Width:  slotX + slotWidth,
				Height: maxFloat(fieldsHeight, slotHeight),
			}
		} else {
			l.group.relative = block.WorkspacePoint{X: slotX + cfg.PuzzleTabWidth}
			l.size = block.WorkspaceSize{
				Width:  slotX + cfg.PuzzleTabWidth + child.Width,
				Height: maxFloat(fieldsHeight, maxFloat(child.Height, cfg.MinRowHeight)),
			}
		}
	case block.InputTypeStatement:
		l.group.relative = block.WorkspacePoint{X: cfg.StatementIndent}
		height := maxFloat(fieldsHeight, maxFloat(child.Height, cfg.StatementMinHeight))
		l.size = block.WorkspaceSize{
			Width:  maxFloat(fieldsWidth, cfg.StatementIndent+child.Width),
			Height: height + cfg.NotchHeight,
		}
	default:
		l.size = block.WorkspaceSize{
			Width:  fieldsWidth,
			Height: maxFloat(fieldsHeight, cfg.MinRowHeight),
		}
	}

	// Center fields vertically within the row.
	for _, fl := range l.fields {
		fl.relative.Y = (l.size.Height - fl.Size().Height) / 2
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
