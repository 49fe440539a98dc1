package layout

import (
	"github.com/jheling/blockwork/pkg/block"
)

// MutatorLayout reserves space for a block's mutator button. The button is
// a fixed square; reshaping itself goes through the coordinator, not the
// layout tree.
type MutatorLayout struct {
	base
	mutator *block.Mutator
}

func newMutatorLayout(engine *Engine, m *block.Mutator) *MutatorLayout {
	return &MutatorLayout{base: newBase(engine), mutator: m}
}

// Mutator returns the mutator the button belongs to.
func (l *MutatorLayout) Mutator() *block.Mutator { return l.mutator }

// PerformLayout sizes the button.
func (l *MutatorLayout) PerformLayout() {
	side := l.engine.Config().MutatorButtonSize
	l.size = block.WorkspaceSize{Width: side, Height: side}
}
