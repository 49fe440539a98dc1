package layout

import (
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/jheling/blockwork/pkg/block"
	"github.com/jheling/blockwork/pkg/errors"
	"github.com/jheling/blockwork/pkg/events"
)

type eventRecorder struct {
	events []events.Event
}

func (r *eventRecorder) EventFired(e events.Event) { r.events = append(r.events, e) }

func movesOf(r *eventRecorder, blockID string) []*events.Move {
	var out []*events.Move
	for _, e := range r.events {
		if m, ok := e.(*events.Move); ok && m.BlockID() == blockID {
			out = append(out, m)
		}
	}
	return out
}

func changesOf(r *eventRecorder, element events.ChangeElement) []*events.Change {
	var out []*events.Change
	for _, e := range r.events {
		if c, ok := e.(*events.Change); ok && c.Element == element {
			out = append(out, c)
		}
	}
	return out
}

func newTestCoordinator(t *testing.T, opts *CoordinatorOptions) (*Coordinator, *eventRecorder) {
	t.Helper()
	if opts == nil {
		opts = &CoordinatorOptions{}
	}
	if opts.Workspace == nil {
		opts.Workspace = newTestWorkspace(t)
	}
	manager := events.NewManager()
	opts.Sink = manager
	opts.Logger = log.New(io.Discard)
	rec := &eventRecorder{}
	manager.AddListener(rec)
	c, err := NewCoordinator(opts)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	return c, rec
}

func chainUUIDs(g *BlockGroupLayout) string {
	var ids []string
	for _, bl := range g.BlockLayouts() {
		ids = append(ids, bl.Block().UUID())
	}
	return strings.Join(ids, ",")
}

func TestCoordinatorAddRemoveBlockTree(t *testing.T) {
	f := defaultFactory(t)
	c, rec := newTestCoordinator(t, nil)
	p := makeBlock(t, f, "text_print", "p-1")
	p.SetPosition(block.WorkspacePoint{X: 10, Y: 20})

	if err := c.AddBlockTree(p); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	if !c.Workspace().ContainsBlock(p) {
		t.Error("workspace does not contain the added block")
	}
	if got := len(c.WorkspaceLayout().BlockGroupLayouts()); got != 1 {
		t.Errorf("got %d groups, want 1", got)
	}
	if c.WorkspaceLayout().LayoutForBlock(p) == nil {
		t.Error("added block got no layout")
	}
	// previous, next, and the TEXT value socket.
	if got := c.ConnectionManager().TrackedCount(); got != 3 {
		t.Errorf("tracked %d connections, want 3", got)
	}
	var creates int
	for _, e := range rec.events {
		if _, ok := e.(*events.Create); ok {
			creates++
		}
	}
	if creates != 1 {
		t.Errorf("got %d create events, want 1", creates)
	}

	if err := c.RemoveBlockTree(p); err != nil {
		t.Fatalf("RemoveBlockTree: %v", err)
	}
	if c.Workspace().BlockCount() != 0 {
		t.Error("workspace not empty after removal")
	}
	if got := len(c.WorkspaceLayout().BlockGroupLayouts()); got != 0 {
		t.Errorf("got %d groups after removal, want 0", got)
	}
	if got := c.ConnectionManager().TrackedCount(); got != 0 {
		t.Errorf("tracked %d connections after removal, want 0", got)
	}
	var deletes int
	for _, e := range rec.events {
		if _, ok := e.(*events.Delete); ok {
			deletes++
		}
	}
	if deletes != 1 {
		t.Errorf("got %d delete events, want 1", deletes)
	}
}

func TestCoordinatorAddBlockTreesAllOrNothing(t *testing.T) {
	f := defaultFactory(t)
	c, _ := newTestCoordinator(t, nil)
	a := makeBlock(t, f, "text_print", "a-1")
	if err := c.AddBlockTree(a); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}

	x := makeBlock(t, f, "text_print", "x-1")
	dup := makeBlock(t, f, "text_print", "a-1")
	if err := c.AddBlockTrees([]*block.Block{x, dup}); err == nil {
		t.Fatal("AddBlockTrees with a duplicate UUID succeeded")
	}
	if _, ok := c.Workspace().BlockByUUID("x-1"); ok {
		t.Error("batch partially applied: x-1 was added")
	}
	if c.WorkspaceLayout().LayoutForBlock(x) != nil {
		t.Error("rejected block got a layout")
	}
	if got := len(c.WorkspaceLayout().BlockGroupLayouts()); got != 1 {
		t.Errorf("got %d groups, want 1", got)
	}
}

func TestCoordinatorConnectStatementChain(t *testing.T) {
	f := defaultFactory(t)
	c, rec := newTestCoordinator(t, nil)
	a := makeBlock(t, f, "text_print", "a-1")
	a.SetPosition(block.WorkspacePoint{X: 10, Y: 20})
	b := makeBlock(t, f, "text_print", "b-1")
	b.SetPosition(block.WorkspacePoint{X: 200, Y: 200})
	if err := c.AddBlockTree(a); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	if err := c.AddBlockTree(b); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	rec.events = nil

	if err := c.Connect(a.NextConnection(), b.PreviousConnection()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if b.ParentBlock() != a {
		t.Error("b is not parented to a")
	}
	groups := c.WorkspaceLayout().BlockGroupLayouts()
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if got, want := chainUUIDs(groups[0]), "a-1,b-1"; got != want {
		t.Errorf("chain = %s, want %s", got, want)
	}
	bl := c.WorkspaceLayout().LayoutForBlock(b)
	if got, want := bl.AbsolutePosition(), (block.WorkspacePoint{X: 10, Y: 45}); got != want {
		t.Errorf("b absolute position = %v, want %v", got, want)
	}
	if got, want := a.NextConnection().Position(), b.PreviousConnection().Position(); got != want {
		t.Errorf("bonded connections at %v and %v, want equal", got, want)
	}

	moves := movesOf(rec, "b-1")
	if len(moves) != 1 {
		t.Fatalf("got %d move events for b, want 1", len(moves))
	}
	m := moves[0]
	if m.OldParentID != "" || m.OldPosition != (block.WorkspacePoint{X: 200, Y: 200}) {
		t.Errorf("move old state = (%q, %v), want top level at (200, 200)", m.OldParentID, m.OldPosition)
	}
	if m.NewParentID != "a-1" || m.NewInputName != "" {
		t.Errorf("move new state = (%q, %q), want parent a-1 via next", m.NewParentID, m.NewInputName)
	}
}

func TestCoordinatorConnectAcceptsEitherOrder(t *testing.T) {
	f := defaultFactory(t)
	c, _ := newTestCoordinator(t, nil)
	a := makeBlock(t, f, "text_print", "a-1")
	b := makeBlock(t, f, "text_print", "b-1")
	if err := c.AddBlockTree(a); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	if err := c.AddBlockTree(b); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}

	if err := c.Connect(b.PreviousConnection(), a.NextConnection()); err != nil {
		t.Fatalf("Connect(inferior, superior): %v", err)
	}
	if b.ParentBlock() != a {
		t.Error("b is not parented to a")
	}
	// Reconnecting an existing bond is a no-op.
	if err := c.Connect(a.NextConnection(), b.PreviousConnection()); err != nil {
		t.Fatalf("Connect on existing bond: %v", err)
	}
}

func TestCoordinatorConnectValidationLeavesStateUntouched(t *testing.T) {
	f := defaultFactory(t)
	c, _ := newTestCoordinator(t, nil)
	a := makeBlock(t, f, "text_print", "a-1")
	n := makeBlock(t, f, "math_number", "n-1")
	if err := c.AddBlockTree(a); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	if err := c.AddBlockTree(n); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}

	err := c.Connect(a.NextConnection(), n.OutputConnection())
	if !errors.Is(err, errors.ErrCodeConnectionInvalid) {
		t.Errorf("Connect(next, output): err = %v, want %s", err, errors.ErrCodeConnectionInvalid)
	}
	err = c.Connect(a.NextConnection(), a.NextConnection())
	if !errors.Is(err, errors.ErrCodeConnectionInvalid) {
		t.Errorf("Connect(next, next): err = %v, want %s", err, errors.ErrCodeConnectionInvalid)
	}

	loose := makeBlock(t, f, "text_print", "x-1")
	err = c.Connect(a.NextConnection(), loose.PreviousConnection())
	if !errors.Is(err, errors.ErrCodeIllegalState) {
		t.Errorf("Connect to un-added block: err = %v, want %s", err, errors.ErrCodeIllegalState)
	}

	if a.NextConnection().Connected() {
		t.Error("failed connects left a live bond")
	}
	if got := len(c.WorkspaceLayout().BlockGroupLayouts()); got != 2 {
		t.Errorf("got %d groups, want 2", got)
	}
}

func TestCoordinatorDisconnectExposesShadowAndKeepsPosition(t *testing.T) {
	f := defaultFactory(t)
	c, rec := newTestCoordinator(t, nil)

	p := makeBlock(t, f, "text_print", "c-1")
	p.SetPosition(block.WorkspacePoint{X: 10, Y: 20})
	s := makeShadowBlock(t, f, "math_number", "s-1")
	textConn := inputConnection(t, p, "TEXT")
	if err := textConn.ConnectShadowTo(s.OutputConnection()); err != nil {
		t.Fatalf("ConnectShadowTo: %v", err)
	}
	if err := c.AddBlockTree(p); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}

	layout := c.WorkspaceLayout()
	if layout.LayoutForBlock(s) == nil {
		t.Fatal("unobscured shadow got no layout")
	}
	if !c.ConnectionManager().Tracked(s.OutputConnection()) {
		t.Error("unobscured shadow's output is not tracked")
	}

	d := makeBlock(t, f, "math_number", "d-1")
	d.SetPosition(block.WorkspacePoint{X: 200, Y: 200})
	if err := c.AddBlockTree(d); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	if err := c.Connect(textConn, d.OutputConnection()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// The real child obscures the shadow: no layout, no tracked plug.
	if layout.LayoutForBlock(s) != nil {
		t.Error("obscured shadow still has a layout")
	}
	if c.ConnectionManager().Tracked(s.OutputConnection()) {
		t.Error("obscured shadow's output is still tracked")
	}
	slot := layout.LayoutForBlock(p).InputLayoutFor(p.FirstInput("TEXT")).Group()
	if layout.LayoutForBlock(d).Group() != slot {
		t.Error("connected child is not in the input's slot group")
	}
	if got := len(layout.BlockGroupLayouts()); got != 1 {
		t.Errorf("got %d groups, want 1", got)
	}
	dAbs := layout.LayoutForBlock(d).AbsolutePosition()
	if want := (block.WorkspacePoint{X: 78, Y: 20}); dAbs != want {
		t.Errorf("seated child at %v, want %v", dAbs, want)
	}

	rec.events = nil
	if err := c.Disconnect(textConn); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	// The detached chain keeps its on-canvas position as a new top level.
	if got := len(layout.BlockGroupLayouts()); got != 2 {
		t.Errorf("got %d groups after disconnect, want 2", got)
	}
	if got := d.Position(); got != dAbs {
		t.Errorf("detached block at %v, want %v", got, dAbs)
	}
	if layout.LayoutForBlock(d).Group() == slot {
		t.Error("detached child still sits in the slot group")
	}

	// The shadow steps back in.
	sl := layout.LayoutForBlock(s)
	if sl == nil {
		t.Fatal("shadow got no layout after disconnect")
	}
	if sl.Group() != slot {
		t.Error("rematerialized shadow is not in the slot group")
	}
	if !c.ConnectionManager().Tracked(s.OutputConnection()) {
		t.Error("rematerialized shadow's output is not tracked")
	}

	moves := movesOf(rec, "d-1")
	if len(moves) != 1 {
		t.Fatalf("got %d move events for d, want 1", len(moves))
	}
	m := moves[0]
	if m.OldParentID != "c-1" || m.OldInputName != "TEXT" {
		t.Errorf("move old state = (%q, %q), want (c-1, TEXT)", m.OldParentID, m.OldInputName)
	}
	if m.NewParentID != "" || m.NewPosition != dAbs {
		t.Errorf("move new state = (%q, %v), want top level at %v", m.NewParentID, m.NewPosition, dAbs)
	}
}

func TestCoordinatorConnectDisplacesAndResplices(t *testing.T) {
	f := defaultFactory(t)
	c, rec := newTestCoordinator(t, nil)
	a := makeBlock(t, f, "text_print", "a-1")
	b := makeBlock(t, f, "text_print", "b-1")
	b.SetPosition(block.WorkspacePoint{X: 100, Y: 100})
	d := makeBlock(t, f, "text_print", "c-1")
	d.SetPosition(block.WorkspacePoint{X: 300, Y: 300})
	for _, blk := range []*block.Block{a, b, d} {
		if err := c.AddBlockTree(blk); err != nil {
			t.Fatalf("AddBlockTree: %v", err)
		}
	}
	if err := c.Connect(a.NextConnection(), b.PreviousConnection()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	rec.events = nil

	// Wedging c between a and b pushes b onto c's tail.
	if err := c.Connect(a.NextConnection(), d.PreviousConnection()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	groups := c.WorkspaceLayout().BlockGroupLayouts()
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if got, want := chainUUIDs(groups[0]), "a-1,c-1,b-1"; got != want {
		t.Errorf("chain = %s, want %s", got, want)
	}
	if d.ParentBlock() != a {
		t.Error("c is not parented to a")
	}
	if b.ParentBlock() != d {
		t.Error("b is not parented to c")
	}
	if got, want := c.WorkspaceLayout().LayoutForBlock(b).AbsolutePosition(), (block.WorkspacePoint{Y: 50}); got != want {
		t.Errorf("b absolute position = %v, want %v", got, want)
	}

	if got := len(movesOf(rec, "c-1")); got != 1 {
		t.Errorf("got %d move events for c, want 1", got)
	}
	moves := movesOf(rec, "b-1")
	if len(moves) != 1 {
		t.Fatalf("got %d move events for b, want 1", len(moves))
	}
	if m := moves[0]; m.OldParentID != "a-1" || m.NewParentID != "c-1" {
		t.Errorf("b moved %q -> %q, want a-1 -> c-1", m.OldParentID, m.NewParentID)
	}
}

func TestCoordinatorConnectBumpsUnseatableDisplaced(t *testing.T) {
	f := defaultFactory(t)
	c, _ := newTestCoordinator(t, nil)
	vs := makeBlock(t, f, "variables_set", "vs-1")
	vs.SetPosition(block.WorkspacePoint{X: 10, Y: 10})
	n1 := makeBlock(t, f, "math_number", "n-1")
	n1.SetPosition(block.WorkspacePoint{X: 200, Y: 10})
	n2 := makeBlock(t, f, "math_number", "n-2")
	n2.SetPosition(block.WorkspacePoint{X: 200, Y: 60})
	for _, blk := range []*block.Block{vs, n1, n2} {
		if err := c.AddBlockTree(blk); err != nil {
			t.Fatalf("AddBlockTree: %v", err)
		}
	}
	valueConn := inputConnection(t, vs, "VALUE")
	if err := c.Connect(valueConn, n1.OutputConnection()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	before := c.WorkspaceLayout().LayoutForBlock(n1).AbsolutePosition()

	// A number block has no value socket of its own, so n1 cannot ride along.
	if err := c.Connect(valueConn, n2.OutputConnection()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if valueConn.TargetBlock() != n2 {
		t.Error("n2 did not take the socket")
	}
	if n1.ParentBlock() != nil {
		t.Error("displaced n1 still has a parent")
	}
	if got := len(c.WorkspaceLayout().BlockGroupLayouts()); got != 2 {
		t.Errorf("got %d groups, want 2", got)
	}
	if got, want := n1.Position(), before.Add(25, 25); got != want {
		t.Errorf("bumped n1 to %v, want %v", got, want)
	}
}

func TestCoordinatorSetFieldValue(t *testing.T) {
	f := defaultFactory(t)
	c, rec := newTestCoordinator(t, nil)
	n := makeBlock(t, f, "math_number", "n-1")
	if err := c.AddBlockTree(n); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	rec.events = nil

	if err := c.SetFieldValue(n, "NUM", "42"); err != nil {
		t.Fatalf("SetFieldValue: %v", err)
	}
	got, _ := n.FirstField("NUM").SerializedText()
	if got != "42" {
		t.Errorf("field value = %q, want %q", got, "42")
	}
	changes := changesOf(rec, events.ChangeField)
	if len(changes) != 1 {
		t.Fatalf("got %d field change events, want 1", len(changes))
	}
	if ch := changes[0]; ch.FieldName != "NUM" || ch.OldValue != "0" || ch.NewValue != "42" {
		t.Errorf("change = (%q, %q -> %q), want (NUM, 0 -> 42)", ch.FieldName, ch.OldValue, ch.NewValue)
	}

	// Setting the current value again is silent.
	rec.events = nil
	if err := c.SetFieldValue(n, "NUM", "42"); err != nil {
		t.Fatalf("SetFieldValue repeat: %v", err)
	}
	if len(rec.events) != 0 {
		t.Errorf("got %d events for a no-op set, want 0", len(rec.events))
	}

	if err := c.SetFieldValue(n, "BOGUS", "1"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("SetFieldValue(BOGUS): err = %v, want %s", err, errors.ErrCodeNotFound)
	}
}

func TestCoordinatorSetCommentDisabledInline(t *testing.T) {
	f := defaultFactory(t)
	c, rec := newTestCoordinator(t, nil)
	ar := makeBlock(t, f, "math_arithmetic", "ar-1")
	if err := c.AddBlockTree(ar); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	rec.events = nil

	if err := c.SetComment(ar, "halve it"); err != nil {
		t.Fatalf("SetComment: %v", err)
	}
	if ar.Comment() != "halve it" {
		t.Errorf("comment = %q, want %q", ar.Comment(), "halve it")
	}
	if err := c.SetDisabled(ar, true); err != nil {
		t.Fatalf("SetDisabled: %v", err)
	}
	if !ar.Disabled() {
		t.Error("block not disabled")
	}

	bl := c.WorkspaceLayout().LayoutForBlock(ar)
	aRow := bl.InputLayoutFor(ar.FirstInput("A")).RelativePosition().Y
	bRow := bl.InputLayoutFor(ar.FirstInput("B")).RelativePosition().Y
	if aRow != bRow {
		t.Fatalf("inline inputs on different rows: %g and %g", aRow, bRow)
	}
	if err := c.SetInputsInline(ar, false); err != nil {
		t.Fatalf("SetInputsInline: %v", err)
	}
	bl = c.WorkspaceLayout().LayoutForBlock(ar)
	aRow = bl.InputLayoutFor(ar.FirstInput("A")).RelativePosition().Y
	bRow = bl.InputLayoutFor(ar.FirstInput("B")).RelativePosition().Y
	if bRow <= aRow {
		t.Errorf("external inputs share a row: A at %g, B at %g", aRow, bRow)
	}

	if got := len(changesOf(rec, events.ChangeComment)); got != 1 {
		t.Errorf("got %d comment changes, want 1", got)
	}
	if got := len(changesOf(rec, events.ChangeDisabled)); got != 1 {
		t.Errorf("got %d disabled changes, want 1", got)
	}
	inlines := changesOf(rec, events.ChangeInline)
	if len(inlines) != 1 {
		t.Fatalf("got %d inline changes, want 1", len(inlines))
	}
	if ch := inlines[0]; ch.OldValue != "true" || ch.NewValue != "false" {
		t.Errorf("inline change = %q -> %q, want true -> false", ch.OldValue, ch.NewValue)
	}
}

func TestCoordinatorCopyBlockTree(t *testing.T) {
	f := defaultFactory(t)
	c, rec := newTestCoordinator(t, nil)
	a := makeBlock(t, f, "text_print", "a-1")
	a.SetPosition(block.WorkspacePoint{X: 10, Y: 20})
	b := makeBlock(t, f, "math_number", "b-1")
	connectPair(t, inputConnection(t, a, "TEXT"), b.OutputConnection())
	if err := c.AddBlockTree(a); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	rec.events = nil

	copyRoot, err := c.CopyBlockTree(a, true, block.WorkspacePoint{X: 50, Y: 60})
	if err != nil {
		t.Fatalf("CopyBlockTree: %v", err)
	}
	if copyRoot == a || copyRoot.UUID() == a.UUID() {
		t.Error("copy is not a fresh block")
	}
	if got, want := copyRoot.Position(), (block.WorkspacePoint{X: 50, Y: 60}); got != want {
		t.Errorf("copy position = %v, want %v", got, want)
	}
	if got := len(c.WorkspaceLayout().BlockGroupLayouts()); got != 2 {
		t.Errorf("got %d groups, want 2", got)
	}
	cl := c.WorkspaceLayout().LayoutForBlock(copyRoot)
	if cl == nil {
		t.Fatal("copy got no layout")
	}
	if got := len(cl.Group().BlockLayouts()); got != 1 {
		t.Errorf("copied chain has %d stacked layouts, want 1", got)
	}
	var creates int
	for _, e := range rec.events {
		if _, ok := e.(*events.Create); ok {
			creates++
		}
	}
	if creates != 1 {
		t.Errorf("got %d create events, want 1", creates)
	}
}

func TestCoordinatorRemoveAllBlocks(t *testing.T) {
	f := defaultFactory(t)
	c, rec := newTestCoordinator(t, nil)
	a := makeBlock(t, f, "text_print", "a-1")
	n := makeBlock(t, f, "math_number", "n-1")
	if err := c.AddBlockTree(a); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	if err := c.AddBlockTree(n); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	rec.events = nil

	if err := c.RemoveAllBlocks(); err != nil {
		t.Fatalf("RemoveAllBlocks: %v", err)
	}
	if got := c.Workspace().BlockCount(); got != 0 {
		t.Errorf("workspace holds %d blocks, want 0", got)
	}
	if got := len(c.WorkspaceLayout().BlockGroupLayouts()); got != 0 {
		t.Errorf("got %d groups, want 0", got)
	}
	if got := c.ConnectionManager().TrackedCount(); got != 0 {
		t.Errorf("tracked %d connections, want 0", got)
	}
	var deletes int
	for _, e := range rec.events {
		if _, ok := e.(*events.Delete); ok {
			deletes++
		}
	}
	if deletes != 2 {
		t.Errorf("got %d delete events, want 2", deletes)
	}
}

func TestCoordinatorPerformMutationGrowAndShrink(t *testing.T) {
	f := defaultFactory(t)
	c, rec := newTestCoordinator(t, &CoordinatorOptions{Factory: f})
	manager := c.Sink().(*events.Manager)
	history := events.NewHistory(manager, c)

	ifb := makeBlock(t, f, "controls_if", "if-1")
	ifb.SetPosition(block.WorkspacePoint{X: 10, Y: 10})
	if err := c.AddBlockTree(ifb); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}

	err := c.PerformMutation(ifb, func(m *block.Mutator) error {
		if err := m.SetElseIfCount(2); err != nil {
			return err
		}
		return m.SetElseStatement(true)
	})
	if err != nil {
		t.Fatalf("PerformMutation(grow): %v", err)
	}
	for _, name := range []string{"IF1", "DO1", "IF2", "DO2", "ELSE"} {
		if ifb.FirstInput(name) == nil {
			t.Fatalf("grown block is missing input %q", name)
		}
	}
	bl := c.WorkspaceLayout().LayoutForBlock(ifb)
	if bl.InputLayoutFor(ifb.FirstInput("IF2")) == nil {
		t.Fatal("grown layout is missing the IF2 row")
	}

	bool1 := makeBlock(t, f, "logic_boolean", "bool-1")
	bool1.SetPosition(block.WorkspacePoint{X: 300, Y: 10})
	bool2 := makeBlock(t, f, "logic_boolean", "bool-2")
	bool2.SetPosition(block.WorkspacePoint{X: 300, Y: 60})
	for _, blk := range []*block.Block{bool1, bool2} {
		if err := c.AddBlockTree(blk); err != nil {
			t.Fatalf("AddBlockTree: %v", err)
		}
	}
	if err := c.Connect(inputConnection(t, ifb, "IF1"), bool1.OutputConnection()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.Connect(inputConnection(t, ifb, "IF2"), bool2.OutputConnection()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	before := c.WorkspaceLayout().LayoutForBlock(bool2).AbsolutePosition()
	rec.events = nil

	err = c.PerformMutation(ifb, func(m *block.Mutator) error {
		return m.SetElseIfCount(1)
	})
	if err != nil {
		t.Fatalf("PerformMutation(shrink): %v", err)
	}

	if ifb.FirstInput("IF2") != nil {
		t.Error("shrunk block still has input IF2")
	}
	for _, name := range []string{"IF1", "DO1", "ELSE"} {
		if ifb.FirstInput(name) == nil {
			t.Errorf("shrunk block is missing input %q", name)
		}
	}
	if got := inputConnection(t, ifb, "IF1").TargetBlock(); got != bool1 {
		t.Errorf("IF1 holds %v, want bool-1", got)
	}
	bl = c.WorkspaceLayout().LayoutForBlock(ifb)
	slot := bl.InputLayoutFor(ifb.FirstInput("IF1")).Group()
	if c.WorkspaceLayout().LayoutForBlock(bool1).Group() != slot {
		t.Error("bool-1's layout is not in the rebuilt IF1 slot")
	}

	// The evicted condition lands as its own tree where it last sat.
	if bool2.ParentBlock() != nil {
		t.Error("bool-2 still has a parent")
	}
	if got := bool2.Position(); got != before {
		t.Errorf("bool-2 at %v, want %v", got, before)
	}
	if got := len(c.WorkspaceLayout().BlockGroupLayouts()); got != 2 {
		t.Errorf("got %d groups, want 2", got)
	}

	if got := len(movesOf(rec, "bool-1")); got != 0 {
		t.Errorf("got %d move events for the reseated child, want 0", got)
	}
	evicted := movesOf(rec, "bool-2")
	if len(evicted) != 1 {
		t.Fatalf("got %d move events for the evicted child, want 1", len(evicted))
	}
	if m := evicted[0]; m.OldParentID != "if-1" || m.OldInputName != "IF2" ||
		m.NewParentID != "" || m.NewPosition != before {
		t.Errorf("evicted move = (%q/%q -> %q/%v), want (if-1/IF2 -> top level at %v)",
			m.OldParentID, m.OldInputName, m.NewParentID, m.NewPosition, before)
	}
	mutations := changesOf(rec, events.ChangeMutation)
	if len(mutations) != 1 {
		t.Fatalf("got %d mutation change events, want 1", len(mutations))
	}
	ch := mutations[0]
	if !strings.Contains(ch.OldValue, `elseif="2"`) || !strings.Contains(ch.NewValue, `elseif="1"`) {
		t.Errorf("mutation change = %q -> %q, want elseif 2 -> 1", ch.OldValue, ch.NewValue)
	}

	// Undoing the shrink restores the row and reseats the evicted child.
	if err := history.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if ifb.FirstInput("IF2") == nil {
		t.Fatal("undo did not restore input IF2")
	}
	if got := inputConnection(t, ifb, "IF2").TargetBlock(); got != bool2 {
		t.Errorf("IF2 holds %v after undo, want bool-2", got)
	}
	if got := len(c.WorkspaceLayout().BlockGroupLayouts()); got != 1 {
		t.Errorf("got %d groups after undo, want 1", got)
	}
}

func TestCoordinatorVariableRenameUpdatesFields(t *testing.T) {
	f := defaultFactory(t)
	nm := block.NewNameManager()
	nm.AddName("item")
	c, rec := newTestCoordinator(t, &CoordinatorOptions{Variables: nm})
	vs := makeBlock(t, f, "variables_set", "vs-1")
	vs.SetPosition(block.WorkspacePoint{X: 10, Y: 10})
	vg := makeBlock(t, f, "variables_get", "vg-1")
	vg.SetPosition(block.WorkspacePoint{X: 200, Y: 10})
	if err := c.AddBlockTree(vs); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	if err := c.AddBlockTree(vg); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	rec.events = nil

	nm.RenameName("item", "total")

	if got := vs.FirstField("VAR").Text(); got != "total" {
		t.Errorf("setter field = %q, want %q", got, "total")
	}
	if got := vg.FirstField("VAR").Text(); got != "total" {
		t.Errorf("getter field = %q, want %q", got, "total")
	}
	changes := changesOf(rec, events.ChangeField)
	if len(changes) != 2 {
		t.Fatalf("got %d field change events, want 2", len(changes))
	}
	for _, ch := range changes {
		if ch.FieldName != "VAR" || ch.OldValue != "item" || ch.NewValue != "total" {
			t.Errorf("change = (%q, %q -> %q), want (VAR, item -> total)",
				ch.FieldName, ch.OldValue, ch.NewValue)
		}
	}
	if changes[0].GroupID() == "" || changes[0].GroupID() != changes[1].GroupID() {
		t.Error("rename changes are not grouped into one undo step")
	}
}

func TestCoordinatorVariableRemovalRemovesReferencingTrees(t *testing.T) {
	f := defaultFactory(t)
	nm := block.NewNameManager()
	nm.AddName("item")
	c, _ := newTestCoordinator(t, &CoordinatorOptions{Variables: nm})

	vs := makeBlock(t, f, "variables_set", "vs-1")
	vs.SetPosition(block.WorkspacePoint{X: 10, Y: 10})
	vg := makeBlock(t, f, "variables_get", "vg-1")
	connectPair(t, inputConnection(t, vs, "VALUE"), vg.OutputConnection())
	p := makeBlock(t, f, "text_print", "p-1")
	p.SetPosition(block.WorkspacePoint{X: 300, Y: 300})
	if err := c.AddBlockTree(vs); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	if err := c.AddBlockTree(p); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}

	nm.RemoveName("item")

	if _, ok := c.Workspace().BlockByUUID("vs-1"); ok {
		t.Error("setter tree survived the variable removal")
	}
	if _, ok := c.Workspace().BlockByUUID("vg-1"); ok {
		t.Error("nested getter survived the variable removal")
	}
	if _, ok := c.Workspace().BlockByUUID("p-1"); !ok {
		t.Error("unrelated tree was removed")
	}
	if got := len(c.WorkspaceLayout().BlockGroupLayouts()); got != 1 {
		t.Errorf("got %d groups, want 1", got)
	}
	if got := c.ConnectionManager().TrackedCount(); got != 3 {
		t.Errorf("tracked %d connections, want 3", got)
	}
}

func TestCoordinatorUndoRedoRoundTrip(t *testing.T) {
	f := defaultFactory(t)
	c, _ := newTestCoordinator(t, &CoordinatorOptions{Factory: f})
	manager := c.Sink().(*events.Manager)
	history := events.NewHistory(manager, c)

	a := makeBlock(t, f, "text_print", "a-1")
	a.SetPosition(block.WorkspacePoint{X: 10, Y: 20})
	b := makeBlock(t, f, "text_print", "b-1")
	b.SetPosition(block.WorkspacePoint{X: 200, Y: 200})
	if err := c.AddBlockTree(a); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	if err := c.AddBlockTree(b); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}
	if err := c.Connect(a.NextConnection(), b.PreviousConnection()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if got := history.UndoDepth(); got != 3 {
		t.Fatalf("UndoDepth() = %d, want 3", got)
	}

	// Undo the connect: b returns to where it was picked up.
	if err := history.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if a.NextConnection().Connected() {
		t.Error("a is still connected after undo")
	}
	if got, want := b.Position(), (block.WorkspacePoint{X: 200, Y: 200}); got != want {
		t.Errorf("b at %v after undo, want %v", got, want)
	}
	if got := len(c.WorkspaceLayout().BlockGroupLayouts()); got != 2 {
		t.Errorf("got %d groups after undo, want 2", got)
	}

	// Undo the add: b leaves the workspace entirely.
	if err := history.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if _, ok := c.Workspace().BlockByUUID("b-1"); ok {
		t.Error("b still in the workspace after undoing its add")
	}
	if got := len(c.WorkspaceLayout().BlockGroupLayouts()); got != 1 {
		t.Errorf("got %d groups, want 1", got)
	}

	// Redo the add: b comes back under its old identity.
	if err := history.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	b2, ok := c.Workspace().BlockByUUID("b-1")
	if !ok {
		t.Fatal("b did not come back on redo")
	}
	if got, want := b2.Position(), (block.WorkspacePoint{X: 200, Y: 200}); got != want {
		t.Errorf("restored b at %v, want %v", got, want)
	}
	if c.WorkspaceLayout().LayoutForBlock(b2) == nil {
		t.Error("restored b got no layout")
	}

	// Redo the connect: the chain reforms.
	if err := history.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if b2.ParentBlock() != a {
		t.Error("b is not parented to a after redo")
	}
	if got := len(c.WorkspaceLayout().BlockGroupLayouts()); got != 1 {
		t.Errorf("got %d groups after redo, want 1", got)
	}
	if history.CanRedo() {
		t.Error("CanRedo() = true with nothing left to redo")
	}
}

func TestCoordinatorApplyFieldChange(t *testing.T) {
	f := defaultFactory(t)
	c, _ := newTestCoordinator(t, nil)
	n := makeBlock(t, f, "math_number", "n-1")
	if err := c.AddBlockTree(n); err != nil {
		t.Fatalf("AddBlockTree: %v", err)
	}

	e, err := events.NewFieldChange(c.Workspace(), n, "NUM", "0", "7")
	if err != nil {
		t.Fatalf("NewFieldChange: %v", err)
	}
	if err := c.ApplyEvent(e); err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	got, _ := n.FirstField("NUM").SerializedText()
	if got != "7" {
		t.Errorf("field value = %q, want %q", got, "7")
	}
}
