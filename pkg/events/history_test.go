package events

import (
	"fmt"
	"testing"

	"github.com/jheling/blockwork/pkg/block"
	"github.com/jheling/blockwork/pkg/workspace"
)

type scriptedApplier struct {
	applied []Event
	err     error
}

func (a *scriptedApplier) ApplyEvent(e Event) error {
	if a.err != nil {
		return a.err
	}
	a.applied = append(a.applied, e)
	return nil
}

func newTestHistory(t *testing.T) (*Manager, *History, *scriptedApplier) {
	t.Helper()
	m := NewManager()
	applier := &scriptedApplier{}
	return m, NewHistory(m, applier), applier
}

func TestHistoryRecordsSteps(t *testing.T) {
	ws := newTestWorkspace(t)
	b := newStatementBlock(t, "block-1")
	m, h, _ := newTestHistory(t)

	m.Enqueue(fieldChange(t, ws, b, "NUM", "1", "2"))
	m.Flush()
	m.Enqueue(fieldChange(t, ws, b, "VAR", "x", "y"))
	m.Flush()
	if got := h.UndoDepth(); got != 2 {
		t.Fatalf("UndoDepth() after two ungrouped events = %d, want 2", got)
	}

	if err := m.Group(func() error {
		m.Enqueue(fieldChange(t, ws, b, "NUM", "2", "3"))
		m.Enqueue(fieldChange(t, ws, b, "VAR", "y", "z"))
		return nil
	}); err != nil {
		t.Fatalf("Group: %v", err)
	}
	if got := h.UndoDepth(); got != 3 {
		t.Fatalf("UndoDepth() after grouped pair = %d, want 3", got)
	}
}

func TestUndoAppliesInversesInReverse(t *testing.T) {
	ws := newTestWorkspace(t)
	b := newStatementBlock(t, "block-1")
	m, h, applier := newTestHistory(t)

	if err := m.Group(func() error {
		m.Enqueue(fieldChange(t, ws, b, "NUM", "1", "2"))
		move, err := NewMove(ws, b)
		if err != nil {
			return err
		}
		b.SetPosition(block.WorkspacePoint{X: 4, Y: 4})
		if err := move.RecordNew(b); err != nil {
			return err
		}
		m.Enqueue(move)
		return nil
	}); err != nil {
		t.Fatalf("Group: %v", err)
	}

	if err := h.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if len(applier.applied) != 2 {
		t.Fatalf("applied %d events, want 2", len(applier.applied))
	}
	move, ok := applier.applied[0].(*Move)
	if !ok {
		t.Fatalf("applied[0] = %T, want *Move", applier.applied[0])
	}
	if got, want := move.NewPosition, (block.WorkspacePoint{}); got != want {
		t.Errorf("undo move NewPosition = %v, want %v", got, want)
	}
	change, ok := applier.applied[1].(*Change)
	if !ok {
		t.Fatalf("applied[1] = %T, want *Change", applier.applied[1])
	}
	if change.OldValue != "2" || change.NewValue != "1" {
		t.Errorf("undo delta = (%q, %q), want (%q, %q)", change.OldValue, change.NewValue, "2", "1")
	}

	if h.CanUndo() {
		t.Error("CanUndo() = true after undoing the only step")
	}
	if !h.CanRedo() {
		t.Error("CanRedo() = false after undo")
	}
}

func TestRedoAppliesForwardInOrder(t *testing.T) {
	ws := newTestWorkspace(t)
	b := newStatementBlock(t, "block-1")
	m, h, applier := newTestHistory(t)

	if err := m.Group(func() error {
		m.Enqueue(fieldChange(t, ws, b, "NUM", "1", "2"))
		m.Enqueue(fieldChange(t, ws, b, "VAR", "x", "y"))
		return nil
	}); err != nil {
		t.Fatalf("Group: %v", err)
	}
	if err := h.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}

	applier.applied = nil
	if err := h.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if len(applier.applied) != 2 {
		t.Fatalf("applied %d events, want 2", len(applier.applied))
	}
	first := applier.applied[0].(*Change)
	second := applier.applied[1].(*Change)
	if first.FieldName != "NUM" || first.NewValue != "2" {
		t.Errorf("redo[0] = (%q, %q), want NUM forward to 2", first.FieldName, first.NewValue)
	}
	if second.FieldName != "VAR" || second.NewValue != "y" {
		t.Errorf("redo[1] = (%q, %q), want VAR forward to y", second.FieldName, second.NewValue)
	}
	if got := h.UndoDepth(); got != 1 {
		t.Errorf("UndoDepth() after redo = %d, want 1", got)
	}
	if h.CanRedo() {
		t.Error("CanRedo() = true after redoing the only step")
	}
}

func TestNewEventClearsRedo(t *testing.T) {
	ws := newTestWorkspace(t)
	b := newStatementBlock(t, "block-1")
	m, h, _ := newTestHistory(t)

	m.Enqueue(fieldChange(t, ws, b, "NUM", "1", "2"))
	m.Flush()
	if err := h.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if !h.CanRedo() {
		t.Fatal("CanRedo() = false after undo")
	}

	m.Enqueue(fieldChange(t, ws, b, "NUM", "1", "3"))
	m.Flush()
	if h.CanRedo() {
		t.Error("CanRedo() = true after a fresh event")
	}
}

// echoApplier mimics a coordinator that records fresh events while replaying
// history; those must not grow the undo stack again.
type echoApplier struct {
	t  *testing.T
	m  *Manager
	ws *workspace.Workspace
	b  *block.Block
}

func (a *echoApplier) ApplyEvent(e Event) error {
	a.m.Enqueue(fieldChange(a.t, a.ws, a.b, "VAR", "x", "y"))
	a.m.Flush()
	return nil
}

func TestHistoryIgnoresReplayEvents(t *testing.T) {
	ws := newTestWorkspace(t)
	b := newStatementBlock(t, "block-1")
	m := NewManager()
	h := NewHistory(m, &echoApplier{t: t, m: m, ws: ws, b: b})

	m.Enqueue(fieldChange(t, ws, b, "NUM", "1", "2"))
	m.Flush()
	if err := h.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}

	if got := h.UndoDepth(); got != 0 {
		t.Errorf("UndoDepth() = %d, want 0: replay events were re-recorded", got)
	}
	if got := h.RedoDepth(); got != 1 {
		t.Errorf("RedoDepth() = %d, want 1", got)
	}
}

func TestUndoErrorAbandonsStep(t *testing.T) {
	ws := newTestWorkspace(t)
	b := newStatementBlock(t, "block-1")
	m, h, applier := newTestHistory(t)

	m.Enqueue(fieldChange(t, ws, b, "NUM", "1", "2"))
	m.Flush()

	applier.err = fmt.Errorf("apply failed")
	if err := h.Undo(); err == nil {
		t.Fatal("Undo() = nil, want error")
	}
	if h.CanUndo() || h.CanRedo() {
		t.Errorf("after failed undo CanUndo() = %t, CanRedo() = %t, want false, false",
			h.CanUndo(), h.CanRedo())
	}
}

func TestUndoRedoOnEmptyHistory(t *testing.T) {
	_, h, applier := newTestHistory(t)
	if err := h.Undo(); err != nil {
		t.Errorf("Undo() on empty history = %v, want nil", err)
	}
	if err := h.Redo(); err != nil {
		t.Errorf("Redo() on empty history = %v, want nil", err)
	}
	if len(applier.applied) != 0 {
		t.Errorf("applied %d events, want 0", len(applier.applied))
	}
}

func TestHistoryClear(t *testing.T) {
	ws := newTestWorkspace(t)
	b := newStatementBlock(t, "block-1")
	m, h, _ := newTestHistory(t)

	m.Enqueue(fieldChange(t, ws, b, "NUM", "1", "2"))
	m.Flush()
	if err := h.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	m.Enqueue(fieldChange(t, ws, b, "VAR", "x", "y"))
	m.Flush()

	h.Clear()
	if h.CanUndo() || h.CanRedo() {
		t.Errorf("after Clear CanUndo() = %t, CanRedo() = %t, want false, false",
			h.CanUndo(), h.CanRedo())
	}
}
