package events

import "github.com/google/uuid"

// Sink accepts events from mutating code. Coordinators and editing surfaces
// take a Sink explicitly instead of reaching for process-global state, so
// independent workbenches keep independent histories.
type Sink interface {
	// Enqueue appends an event to the pending queue, stamping it with the
	// current group.
	Enqueue(e Event)
	// Flush merges and delivers all pending events to listeners.
	Flush()
	// Group runs fn inside a fresh event group. The group is closed and
	// pending events are flushed even when fn returns an error.
	Group(fn func() error) error
}

// Listener receives events as the manager fires them.
type Listener interface {
	EventFired(e Event)
}

// Manager is the canonical [Sink]: a FIFO queue of pending events plus a
// stack of open group IDs. Flushing merges adjacent same-subject events,
// drops no-op deltas, and delivers the rest to listeners in order.
//
// Manager is not safe for concurrent use; drive it from the goroutine that
// owns the workspace it records.
type Manager struct {
	pending   []Event
	groups    []string
	listeners []Listener

	enabled       bool
	firing        bool
	fireRequested bool
}

// NewManager returns an enabled manager with no listeners.
func NewManager() *Manager {
	return &Manager{enabled: true}
}

// Enqueue appends e to the pending queue. Events without a group are
// stamped with the innermost open group. Enqueue is a no-op while the
// manager is disabled.
func (m *Manager) Enqueue(e Event) {
	if !m.enabled || e == nil {
		return
	}
	if e.GroupID() == "" {
		if id := m.CurrentGroupID(); id != "" {
			e.setGroup(id)
		}
	}
	m.pending = append(m.pending, e)
}

// Flush merges and delivers all pending events in FIFO order. A Flush call
// made while a flush is already running does not recurse; it schedules one
// additional delivery pass after the current pass completes.
func (m *Manager) Flush() {
	if m.firing {
		m.fireRequested = true
		return
	}
	m.firing = true
	defer func() { m.firing = false }()

	for again := true; again; {
		for _, e := range m.drainAndMerge() {
			for _, l := range m.listeners {
				l.EventFired(e)
			}
		}
		again = m.fireRequested
		m.fireRequested = false
	}
}

// drainAndMerge empties the pending queue, collapsing adjacent mergeable
// events and dropping no-op deltas.
func (m *Manager) drainAndMerge() []Event {
	pending := m.pending
	m.pending = nil

	var out []Event
	for _, e := range pending {
		if len(out) > 0 {
			if combined, ok := merged(out[len(out)-1], e); ok {
				out[len(out)-1] = combined
				continue
			}
		}
		out = append(out, e)
	}

	kept := out[:0]
	for _, e := range out {
		if !e.isNoOp() {
			kept = append(kept, e)
		}
	}
	return kept
}

// PushNewGroup opens a fresh event group and returns its generated ID.
func (m *Manager) PushNewGroup() string {
	id := uuid.NewString()
	m.PushGroup(id)
	return id
}

// PushGroup opens an event group with the given ID. Replaying code uses
// this to stamp regenerated events with the group they originally carried.
func (m *Manager) PushGroup(id string) {
	m.groups = append(m.groups, id)
}

// PopGroup closes the innermost open group. Popping with no open group is
// a no-op.
func (m *Manager) PopGroup() {
	if len(m.groups) > 0 {
		m.groups = m.groups[:len(m.groups)-1]
	}
}

// CurrentGroupID returns the innermost open group ID, or "" when no group
// is open.
func (m *Manager) CurrentGroupID() string {
	if len(m.groups) == 0 {
		return ""
	}
	return m.groups[len(m.groups)-1]
}

// Group runs fn inside a fresh group and flushes afterwards. The group is
// popped and the flush happens even when fn returns an error, so a failed
// operation still delivers whatever events it recorded before failing.
func (m *Manager) Group(fn func() error) error {
	m.PushNewGroup()
	defer func() {
		m.PopGroup()
		m.Flush()
	}()
	return fn()
}

// SetEnabled toggles event recording. While disabled, Enqueue drops events
// on the floor; pending events from before stay queued.
func (m *Manager) SetEnabled(enabled bool) {
	m.enabled = enabled
}

// Enabled reports whether the manager is recording events.
func (m *Manager) Enabled() bool {
	return m.enabled
}

// PendingEvents returns a copy of the not-yet-flushed queue.
func (m *Manager) PendingEvents() []Event {
	out := make([]Event, len(m.pending))
	copy(out, m.pending)
	return out
}

// AddListener registers l for flushed events.
func (m *Manager) AddListener(l Listener) {
	if l == nil {
		return
	}
	m.listeners = append(m.listeners, l)
}

// RemoveListener unregisters l.
func (m *Manager) RemoveListener(l Listener) {
	for i, existing := range m.listeners {
		if existing == l {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}
