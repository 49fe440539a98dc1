package events

// Applier carries an event's forward semantics back into a workspace:
// rebuild the tree for a Create, remove it for a Delete, reconnect or
// reposition for a Move, re-apply the delta for a Change. Undo is applying
// the inverse event forward, so one method covers both directions.
type Applier interface {
	ApplyEvent(e Event) error
}

// History turns a manager's event stream into undo and redo stacks.
// Consecutive events sharing a group ID form one undo step. Events fired
// while the history itself is replaying are not re-recorded.
type History struct {
	manager *Manager
	applier Applier

	undo     [][]Event
	redo     [][]Event
	applying bool
}

// NewHistory registers a history on manager. Undo and redo replay events
// through applier.
func NewHistory(manager *Manager, applier Applier) *History {
	h := &History{manager: manager, applier: applier}
	manager.AddListener(h)
	return h
}

// EventFired records e as undoable. A fresh user action invalidates
// whatever was redoable.
func (h *History) EventFired(e Event) {
	if h.applying {
		return
	}
	h.redo = nil
	if id := e.GroupID(); id != "" && len(h.undo) > 0 {
		last := h.undo[len(h.undo)-1]
		if last[0].GroupID() == id {
			h.undo[len(h.undo)-1] = append(last, e)
			return
		}
	}
	h.undo = append(h.undo, []Event{e})
}

// CanUndo reports whether an undo step is available.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether a redo step is available.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// UndoDepth returns the number of available undo steps.
func (h *History) UndoDepth() int { return len(h.undo) }

// RedoDepth returns the number of available redo steps.
func (h *History) RedoDepth() int { return len(h.redo) }

// Undo reverts the most recent step by applying each of its events'
// inverses in reverse chronological order. With nothing to undo it returns
// nil. On an applier error the remaining events of the step are abandoned
// and the step does not become redoable.
func (h *History) Undo() error {
	if len(h.undo) == 0 {
		return nil
	}
	group := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]

	h.applying = true
	defer func() {
		// Deliver the replay's echo events while still marked as applying,
		// so they reach listeners without re-entering the stacks.
		h.manager.Flush()
		h.applying = false
	}()
	for i := len(group) - 1; i >= 0; i-- {
		if err := h.applier.ApplyEvent(group[i].Inverse()); err != nil {
			return err
		}
	}
	h.redo = append(h.redo, group)
	return nil
}

// Redo re-applies the most recently undone step in chronological order.
// With nothing to redo it returns nil.
func (h *History) Redo() error {
	if len(h.redo) == 0 {
		return nil
	}
	group := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]

	h.applying = true
	defer func() {
		h.manager.Flush()
		h.applying = false
	}()
	for _, e := range group {
		if err := h.applier.ApplyEvent(e); err != nil {
			return err
		}
	}
	h.undo = append(h.undo, group)
	return nil
}

// Clear drops both stacks.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}
