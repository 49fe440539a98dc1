package layout

import (
	"strconv"
	"unicode/utf8"

	"github.com/jheling/blockwork/pkg/block"
)

// FieldLayout measures one field. Text-bearing fields are estimated from
// their display text length; checkboxes, color swatches, and images have
// fixed or intrinsic sizes.
type FieldLayout struct {
	base
	field *block.Field
}

func newFieldLayout(engine *Engine, field *block.Field) *FieldLayout {
	return &FieldLayout{base: newBase(engine), field: field}
}

// Field returns the measured field.
func (l *FieldLayout) Field() *block.Field { return l.field }

// PerformLayout recomputes the field's size from its current value.
func (l *FieldLayout) PerformLayout() {
	cfg := l.engine.Config()
	switch l.field.Kind() {
	case block.FieldCheckbox:
		l.size = block.WorkspaceSize{Width: cfg.FieldHeight, Height: cfg.FieldHeight}
	case block.FieldColor:
		l.size = block.WorkspaceSize{Width: cfg.FieldColorWidth, Height: cfg.FieldHeight}
	case block.FieldImage:
		l.size = l.field.ImageSize()
	default:
		width := float64(utf8.RuneCountInString(l.displayText()))*cfg.FieldCharWidth +
			2*cfg.FieldPaddingX
		if l.field.Kind() == block.FieldDropdown {
			// Room for the dropdown arrow.
			width += cfg.FieldHeight / 2
		}
		l.size = block.WorkspaceSize{Width: width, Height: cfg.FieldHeight}
	}
}

func (l *FieldLayout) displayText() string {
	switch f := l.field; f.Kind() {
	case block.FieldNumber:
		return strconv.FormatFloat(f.Number(), 'f', -1, 64)
	case block.FieldAngle:
		return strconv.Itoa(f.Angle())
	case block.FieldDropdown:
		return f.SelectedOption().DisplayName
	default:
		return f.Text()
	}
}
