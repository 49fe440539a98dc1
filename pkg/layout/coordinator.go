package layout

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/jheling/blockwork/pkg/block"
	"github.com/jheling/blockwork/pkg/errors"
	"github.com/jheling/blockwork/pkg/events"
	"github.com/jheling/blockwork/pkg/io"
	"github.com/jheling/blockwork/pkg/workspace"
)

// CoordinatorOptions configures a [Coordinator].
type CoordinatorOptions struct {
	// Workspace is the workspace to coordinate. Required.
	Workspace *workspace.Workspace
	// Engine measures the layout tree; nil uses a default engine.
	Engine *Engine
	// Sink records mutation events; nil creates a private manager.
	Sink events.Sink
	// Factory rebuilds block trees when creation events are applied.
	// Without a factory, applying a creation event fails.
	Factory *block.BlockFactory
	// Variables, when set, is observed for name lifecycle changes so blocks
	// referencing a renamed or removed variable follow along.
	Variables *block.NameManager
	// Logger receives warnings from best-effort paths; nil uses log.Default().
	Logger *log.Logger
}

// ValidateAndSetDefaults checks option consistency and fills in defaults.
func (o *CoordinatorOptions) ValidateAndSetDefaults() error {
	if o.Workspace == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "coordinator requires a workspace")
	}
	if o.Engine == nil {
		engine, err := NewEngine(nil)
		if err != nil {
			return err
		}
		o.Engine = engine
	}
	if o.Sink == nil {
		o.Sink = events.NewManager()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return nil
}

// Coordinator is the single mutation path for a workspace and its layout
// tree. Every operation mutates the model, synchronizes the layout tree and
// connection index, and records events into the sink, in that order. Each
// public operation closes over one event group, so one call is one undo
// step.
//
// A coordinator is not safe for concurrent use.
type Coordinator struct {
	workspace *workspace.Workspace
	engine    *Engine
	layout    *WorkspaceLayout
	builder   *Builder
	conns     *ConnectionManager
	bumper    *BlockBumper
	sink      events.Sink
	factory   *block.BlockFactory
	variables *block.NameManager
	logger    *log.Logger
}

// NewCoordinator builds the layout tree for the workspace's current content
// and starts tracking its connections.
func NewCoordinator(opts *CoordinatorOptions) (*Coordinator, error) {
	if opts == nil {
		opts = &CoordinatorOptions{}
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	builder, err := NewBuilder(opts.Engine)
	if err != nil {
		return nil, err
	}
	l, err := builder.BuildWorkspaceLayout(opts.Workspace)
	if err != nil {
		return nil, err
	}
	c := &Coordinator{
		workspace: opts.Workspace,
		engine:    opts.Engine,
		layout:    l,
		builder:   builder,
		conns:     NewConnectionManager(),
		sink:      opts.Sink,
		factory:   opts.Factory,
		variables: opts.Variables,
		logger:    opts.Logger,
	}
	c.bumper = newBlockBumper(l, c.conns)
	for _, g := range l.BlockGroupLayouts() {
		c.trackGroup(g)
	}
	if c.variables != nil {
		c.variables.AddListener(c)
	}
	l.PerformLayout()
	return c, nil
}

// Workspace returns the coordinated workspace.
func (c *Coordinator) Workspace() *workspace.Workspace { return c.workspace }

// WorkspaceLayout returns the layout tree kept in sync by this coordinator.
func (c *Coordinator) WorkspaceLayout() *WorkspaceLayout { return c.layout }

// ConnectionManager returns the coordinator's connection index.
func (c *Coordinator) ConnectionManager() *ConnectionManager { return c.conns }

// Sink returns the event sink operations record into.
func (c *Coordinator) Sink() events.Sink { return c.sink }

// Close detaches the coordinator from the observed name manager. The
// workspace and layout tree stay valid.
func (c *Coordinator) Close() {
	if c.variables != nil {
		c.variables.RemoveListener(c)
		c.variables = nil
	}
}

// AddBlockTree adds the tree rooted at root to the workspace, builds its
// layout at the root's position, and records a creation event.
func (c *Coordinator) AddBlockTree(root *block.Block) error {
	return c.sink.Group(func() error { return c.addBlockTree(root) })
}

// AddBlockTrees adds whole trees in one batch and one event group. The
// batch keeps the workspace's all-or-nothing semantics: any invalid root
// aborts everything.
func (c *Coordinator) AddBlockTrees(roots []*block.Block) error {
	return c.sink.Group(func() error {
		if err := c.workspace.AddBlockTrees(roots); err != nil {
			return err
		}
		for _, root := range roots {
			if err := c.attachTreeLayout(root); err != nil {
				return err
			}
			if err := c.enqueueCreate(root); err != nil {
				return err
			}
		}
		c.layout.PerformLayout()
		return nil
	})
}

// RemoveBlockTree removes the top-level tree rooted at root, recording a
// deletion event capturing the tree as it was.
func (c *Coordinator) RemoveBlockTree(root *block.Block) error {
	return c.sink.Group(func() error { return c.removeBlockTree(root) })
}

// RemoveAllBlocks removes every tree in the workspace as one undo step.
func (c *Coordinator) RemoveAllBlocks() error {
	return c.sink.Group(func() error {
		for _, root := range c.workspace.TopLevelBlocks() {
			if err := c.removeBlockTree(root); err != nil {
				return err
			}
		}
		return nil
	})
}

// CopyBlockTree deep-copies a tree into the workspace at position and
// returns the copy's root.
func (c *Coordinator) CopyBlockTree(root *block.Block, editable bool, position block.WorkspacePoint) (*block.Block, error) {
	var copied *block.Block
	err := c.sink.Group(func() error {
		result, err := c.workspace.CopyBlockTree(root, editable, position)
		if err != nil {
			return err
		}
		copied = result
		if err := c.attachTreeLayout(copied); err != nil {
			return err
		}
		if err := c.enqueueCreate(copied); err != nil {
			return err
		}
		c.layout.PerformLayout()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return copied, nil
}

// Connect bonds two connections, one superior and one inferior, in either
// argument order. An occupied superior socket has its occupant displaced:
// the occupant is re-spliced onto the end of the connected chain when it
// fits there, and bumped clear of the socket otherwise. Validation failures
// leave everything untouched.
func (c *Coordinator) Connect(a, b *block.Connection) error {
	return c.sink.Group(func() error { return c.connect(a, b) })
}

// Disconnect severs conn from its target. The inferior side's chain becomes
// a new top-level tree holding its absolute position, and the superior
// side's shadow, if any, becomes visible. Disconnecting a loose connection
// is a no-op.
func (c *Coordinator) Disconnect(conn *block.Connection) error {
	return c.sink.Group(func() error { return c.disconnect(conn) })
}

// SetFieldValue sets the named field on b from its serialized text form and
// records a field change event. Setting a field to its current value
// records nothing.
func (c *Coordinator) SetFieldValue(b *block.Block, fieldName, value string) error {
	return c.sink.Group(func() error { return c.setFieldValue(b, fieldName, value) })
}

// SetComment sets b's comment text.
func (c *Coordinator) SetComment(b *block.Block, text string) error {
	return c.sink.Group(func() error { return c.setComment(b, text) })
}

// SetDisabled sets b's disabled flag.
func (c *Coordinator) SetDisabled(b *block.Block, disabled bool) error {
	return c.sink.Group(func() error { return c.setDisabled(b, disabled) })
}

// SetInputsInline sets b's inline-inputs flag and relays out its tree.
func (c *Coordinator) SetInputsInline(b *block.Block, inline bool) error {
	return c.sink.Group(func() error { return c.setInputsInline(b, inline) })
}

// PerformMutation reshapes b through its mutator. configure adjusts the
// mutator's desired state; the coordinator detaches the children seated in
// mutator-owned inputs, reconciles the block's shape, and reseats the
// children on the surviving same-name inputs. Children whose input is gone
// become top-level trees at their old position, with a warning. The applied
// mutation delta is recorded as a change event.
func (c *Coordinator) PerformMutation(b *block.Block, configure func(m *block.Mutator) error) error {
	return c.sink.Group(func() error { return c.performMutation(b, configure) })
}

func (c *Coordinator) addBlockTree(root *block.Block) error {
	if err := c.workspace.AddBlockTree(root); err != nil {
		return err
	}
	if err := c.attachTreeLayout(root); err != nil {
		return err
	}
	if err := c.enqueueCreate(root); err != nil {
		return err
	}
	c.layout.PerformLayout()
	return nil
}

func (c *Coordinator) removeBlockTree(root *block.Block) error {
	if root == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "cannot remove a nil block tree")
	}
	e, err := events.NewDelete(c.workspace, root)
	if err != nil {
		return err
	}
	if err := c.workspace.RemoveBlockTree(root); err != nil {
		return err
	}
	if err := c.detachTreeLayout(root); err != nil {
		return err
	}
	c.sink.Enqueue(e)
	c.layout.PerformLayout()
	return nil
}

func (c *Coordinator) connect(a, b *block.Connection) error {
	if a == nil || b == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "connect requires two connections")
	}
	superior, inferior := a, b
	if !superior.Superior() {
		superior, inferior = inferior, superior
	}
	if !superior.Superior() || inferior.Superior() {
		return errors.New(errors.ErrCodeConnectionInvalid,
			"connect requires one superior and one inferior connection, got %s and %s",
			a.Type(), b.Type())
	}
	// validate up front so failures leave the model untouched; occupied
	// sockets are legal here because the occupant is displaced below
	result := superior.CanConnectWithReasonTo(inferior)
	result &^= block.ReasonMustDisconnect
	if err := result.Error(); err != nil {
		return err
	}
	inferiorBlock := inferior.SourceBlock()
	if !c.workspace.ContainsBlock(inferiorBlock) || !c.workspace.ContainsBlock(superior.SourceBlock()) {
		return errors.New(errors.ErrCodeIllegalState,
			"cannot connect blocks that are not in the coordinated workspace")
	}
	if superior.Target() == inferior {
		return nil
	}

	displaced := superior.Target()
	oldParent := inferior.Target()

	moveEvt, err := events.NewMove(c.workspace, inferiorBlock)
	if err != nil {
		return err
	}
	var displacedEvt *events.Move
	if displaced != nil {
		displacedEvt, err = events.NewMove(c.workspace, displaced.SourceBlock())
		if err != nil {
			return err
		}
	}

	if oldParent != nil {
		inferior.Disconnect()
		if err := c.updateLayoutTree(inferior); err != nil {
			return err
		}
		if err := c.materializeShadow(oldParent); err != nil {
			return err
		}
	}
	if displaced != nil {
		displaced.Disconnect()
		if err := c.updateLayoutTree(displaced); err != nil {
			return err
		}
	}

	if err := superior.ConnectTo(inferior); err != nil {
		return err
	}
	c.dematerializeShadow(superior)
	if err := c.updateLayoutTree(inferior); err != nil {
		return err
	}
	if bl := c.layout.LayoutForBlock(inferiorBlock.RootBlock()); bl != nil && bl.Group() != nil {
		c.layout.BringToFront(bl.Group())
	}
	if err := moveEvt.RecordNew(inferiorBlock); err != nil {
		return err
	}
	c.sink.Enqueue(moveEvt)

	if displaced != nil {
		c.resettleDisplaced(superior, inferior, displaced, displacedEvt)
	}
	c.layout.PerformLayout()
	return nil
}

// resettleDisplaced finds a new seat for the chain that was pushed out of a
// socket: the end of the newly connected chain when it fits, otherwise its
// own spot clear of the socket. The displaced chain is never dropped.
func (c *Coordinator) resettleDisplaced(superior, inferior, displaced *block.Connection, moveEvt *events.Move) {
	var tail *block.Connection
	switch superior.Type() {
	case block.NextStatement:
		if last := inferior.SourceBlock().LastBlockInChain(); last != nil {
			tail = last.NextConnection()
		}
	case block.InputValue:
		tail = inferior.SourceBlock().LastInputValueConnectionInChain()
	}

	respliced := false
	if tail != nil && !tail.Connected() && tail.CanConnectTo(displaced) {
		if err := tail.ConnectTo(displaced); err == nil {
			respliced = true
			c.dematerializeShadow(tail)
			if err := c.updateLayoutTree(displaced); err != nil {
				c.logger.Warn("displaced chain lost its layout while re-splicing",
					"block", displaced.SourceBlock().UUID(), "err", err)
			}
		}
	}
	if !respliced {
		if bl := c.layout.LayoutForBlock(displaced.SourceBlock()); bl != nil {
			c.bumper.BumpAwayFrom(bl.Group(), superior)
		}
	}
	if moveEvt != nil {
		if err := moveEvt.RecordNew(displaced.SourceBlock()); err == nil {
			c.sink.Enqueue(moveEvt)
		}
	}
}

func (c *Coordinator) disconnect(conn *block.Connection) error {
	if conn == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "cannot disconnect a nil connection")
	}
	target := conn.Target()
	if target == nil {
		return nil
	}
	superior, inferior := conn, target
	if !superior.Superior() {
		superior, inferior = inferior, superior
	}
	moveEvt, err := events.NewMove(c.workspace, inferior.SourceBlock())
	if err != nil {
		return err
	}
	inferior.Disconnect()
	if err := c.updateLayoutTree(inferior); err != nil {
		return err
	}
	if err := c.materializeShadow(superior); err != nil {
		return err
	}
	if err := moveEvt.RecordNew(inferior.SourceBlock()); err != nil {
		return err
	}
	c.sink.Enqueue(moveEvt)
	c.layout.PerformLayout()
	return nil
}

func (c *Coordinator) setFieldValue(b *block.Block, fieldName, value string) error {
	if b == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "cannot set a field on a nil block")
	}
	if !c.workspace.ContainsBlock(b) {
		return errors.New(errors.ErrCodeIllegalState, "block %s is not in this workspace", b)
	}
	field := b.FirstField(fieldName)
	if field == nil {
		return errors.New(errors.ErrCodeNotFound, "block %s has no field %q", b, fieldName)
	}
	old, ok := field.SerializedText()
	if !ok {
		return errors.New(errors.ErrCodeInvalidArgument,
			"field %q of kind %s has no serialized form", fieldName, field.Kind())
	}
	if old == value {
		return nil
	}
	if err := field.SetValueFromSerializedText(value); err != nil {
		return err
	}
	e, err := events.NewFieldChange(c.workspace, b, fieldName, old, value)
	if err != nil {
		return err
	}
	c.sink.Enqueue(e)
	c.layout.PerformLayout()
	return nil
}

func (c *Coordinator) setComment(b *block.Block, text string) error {
	if b == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "cannot set a comment on a nil block")
	}
	old := b.Comment()
	if old == text {
		return nil
	}
	b.SetComment(text)
	e, err := events.NewCommentChange(c.workspace, b, old, text)
	if err != nil {
		return err
	}
	c.sink.Enqueue(e)
	return nil
}

func (c *Coordinator) setDisabled(b *block.Block, disabled bool) error {
	if b == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "cannot disable a nil block")
	}
	old := b.Disabled()
	if old == disabled {
		return nil
	}
	b.SetDisabled(disabled)
	e, err := events.NewDisabledChange(c.workspace, b, old, disabled)
	if err != nil {
		return err
	}
	c.sink.Enqueue(e)
	return nil
}

func (c *Coordinator) setInputsInline(b *block.Block, inline bool) error {
	if b == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "cannot set inline inputs on a nil block")
	}
	old := b.InputsInline()
	if old == inline {
		return nil
	}
	b.SetInputsInline(inline)
	e, err := events.NewInlineChange(c.workspace, b, old, inline)
	if err != nil {
		return err
	}
	c.sink.Enqueue(e)
	c.layout.PerformLayout()
	return nil
}

func (c *Coordinator) performMutation(b *block.Block, configure func(m *block.Mutator) error) error {
	if b == nil || configure == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "mutation requires a block and a configure function")
	}
	if !c.workspace.ContainsBlock(b) {
		return errors.New(errors.ErrCodeIllegalState, "block %s is not in this workspace", b)
	}
	m := b.Mutator()
	if m == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "block %s has no mutator", b)
	}
	bl := c.layout.LayoutForBlock(b)
	if bl == nil || bl.Group() == nil {
		return errors.New(errors.ErrCodeIllegalState, "block %s has no layout", b)
	}
	group := bl.Group()

	oldXML, err := io.MarshalMutation(m.ToMutation())
	if err != nil {
		return err
	}

	// remember who sits in the mutator's inputs before the shape changes
	type seat struct {
		inputName string
		child     *block.Connection
		position  block.WorkspacePoint
		moveEvt   *events.Move
	}
	var seats []seat
	for _, input := range m.SortedMutatorInputs() {
		conn := input.Connection()
		if conn == nil || conn.Target() == nil {
			continue
		}
		child := conn.Target()
		s := seat{inputName: input.Name(), child: child}
		if childLayout := c.layout.LayoutForBlock(child.SourceBlock()); childLayout != nil {
			s.position = childLayout.AbsolutePosition()
		}
		s.moveEvt, err = events.NewMove(c.workspace, child.SourceBlock())
		if err != nil {
			return err
		}
		seats = append(seats, s)
	}

	if err := configure(m); err != nil {
		return err
	}

	for _, s := range seats {
		s.child.Disconnect()
	}
	if err := m.MutateBlock(); err != nil {
		// reshape failed with children already detached; reseat them so the
		// model stays whole, then surface the failure
		for _, s := range seats {
			if input := b.FirstInput(s.inputName); input != nil && input.Connection() != nil {
				if rerr := input.Connection().ConnectTo(s.child); rerr != nil {
					c.logger.Warn("could not reseat child after failed mutation",
						"block", b.UUID(), "input", s.inputName, "err", rerr)
				}
			}
		}
		return err
	}

	// reseat children on surviving same-name inputs
	var orphans []seat
	for _, s := range seats {
		reseated := false
		if input := b.FirstInput(s.inputName); input != nil && input.Connection() != nil && !input.Connection().Connected() {
			if err := input.Connection().ConnectTo(s.child); err == nil {
				reseated = true
			} else {
				c.logger.Warn("mutation could not reconnect a child",
					"block", b.UUID(), "input", s.inputName, "err", err)
			}
		} else {
			c.logger.Warn("mutation removed an occupied input",
				"block", b.UUID(), "input", s.inputName)
		}
		if !reseated {
			orphans = append(orphans, s)
		}
	}

	// the block's shape changed; rebuild its layout subtree in place
	c.untrackLayout(bl)
	c.layout.unregisterBlockLayout(bl)
	rebuilt, err := c.builder.BuildBlockLayout(b)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIllegalState, err,
			"rebuild layout after mutating block %s", b)
	}
	group.replaceBlockLayout(bl, rebuilt)
	c.layout.registerBlockLayout(rebuilt)
	c.trackLayout(rebuilt)

	// children that lost their seat become top-level trees where they were
	for _, o := range orphans {
		root := o.child.SourceBlock()
		if c.layout.LayoutForBlock(root) != nil {
			continue
		}
		g, err := c.builder.BuildBlockGroupLayout(root)
		if err != nil {
			c.logger.Warn("could not rebuild layout for an orphaned chain",
				"block", root.UUID(), "err", err)
			continue
		}
		g.MoveToWorkspacePosition(o.position)
		root.SetPosition(o.position)
		c.layout.AppendBlockGroupLayout(g)
		c.trackGroup(g)
	}

	// record seat moves only now that orphans hold their final positions
	for _, s := range seats {
		if err := s.moveEvt.RecordNew(s.child.SourceBlock()); err == nil {
			c.sink.Enqueue(s.moveEvt)
		}
	}

	newXML, err := io.MarshalMutation(m.ToMutation())
	if err != nil {
		return err
	}
	if !bytes.Equal(oldXML, newXML) {
		e, err := events.NewMutationChange(c.workspace, b, string(oldXML), string(newXML))
		if err != nil {
			return err
		}
		c.sink.Enqueue(e)
	}
	c.layout.PerformLayout()
	return nil
}

// updateLayoutTree re-homes the layout of the block owning inferior after
// its connection changed. Connected blocks move, with their followers, into
// the slot group of the new parent; disconnected blocks become a new
// top-level group holding their last absolute position. Only inferior
// connections move a block between groups.
func (c *Coordinator) updateLayoutTree(inferior *block.Connection) error {
	if inferior.Type() != block.PreviousStatement && inferior.Type() != block.OutputValue {
		return nil
	}
	b := inferior.SourceBlock()
	if b == nil || !c.workspace.ContainsBlock(b) {
		return errors.New(errors.ErrCodeIllegalState,
			"connection %s does not belong to a workspace block", inferior.UUID())
	}
	bl := c.layout.LayoutForBlock(b)
	if bl == nil {
		return errors.New(errors.ErrCodeIllegalState, "block %s has no layout", b)
	}
	oldGroup := bl.Group()

	if target := inferior.Target(); target != nil {
		parentLayout := c.layout.LayoutForBlock(target.SourceBlock())
		if parentLayout == nil {
			return errors.New(errors.ErrCodeIllegalState,
				"parent block %s has no layout", target.SourceBlock())
		}
		dest := parentLayout.Group()
		if input := target.SourceInput(); input != nil {
			il := parentLayout.InputLayoutFor(input)
			if il == nil || il.Group() == nil {
				return errors.New(errors.ErrCodeIllegalState,
					"input %q of block %s has no slot group", input.Name(), target.SourceBlock())
			}
			dest = il.Group()
		}
		if dest == nil {
			return errors.New(errors.ErrCodeIllegalState,
				"parent block %s is not part of a group", target.SourceBlock())
		}
		dest.ClaimWithFollowers(bl)
	} else {
		position := bl.AbsolutePosition()
		g := newBlockGroupLayout(c.engine)
		g.ClaimWithFollowers(bl)
		g.MoveToWorkspacePosition(position)
		b.SetPosition(position)
		c.layout.AppendBlockGroupLayout(g)
	}
	c.pruneEmptiedGroup(oldGroup)
	return nil
}

// pruneEmptiedGroup drops a top-level group whose last block moved away.
// Emptied input slot groups stay in place for future children.
func (c *Coordinator) pruneEmptiedGroup(g *BlockGroupLayout) {
	if g == nil || !g.Empty() {
		return
	}
	c.layout.RemoveBlockGroupLayout(g)
}

// materializeShadow makes the shadow chain behind superior visible after
// its real occupant left: the shadow chain gets layouts in the vacated slot
// and its connections join the index.
func (c *Coordinator) materializeShadow(superior *block.Connection) error {
	shadowRoot := superior.ShadowBlock()
	if shadowRoot == nil || superior.Connected() {
		return nil
	}
	if c.layout.LayoutForBlock(shadowRoot) != nil {
		return nil
	}
	parentLayout := c.layout.LayoutForBlock(superior.SourceBlock())
	if parentLayout == nil {
		return errors.New(errors.ErrCodeIllegalState,
			"block %s has no layout", superior.SourceBlock())
	}
	target := parentLayout.Group()
	if input := superior.SourceInput(); input != nil {
		il := parentLayout.InputLayoutFor(input)
		if il == nil || il.Group() == nil {
			return errors.New(errors.ErrCodeIllegalState,
				"input %q of block %s has no slot group", input.Name(), superior.SourceBlock())
		}
		target = il.Group()
	}
	if target == nil {
		return errors.New(errors.ErrCodeIllegalState,
			"block %s is not part of a group", superior.SourceBlock())
	}
	if err := c.builder.buildChainInto(target, shadowRoot); err != nil {
		return err
	}
	c.layout.registerBlockTree(target)
	c.trackGroup(target)
	return nil
}

// dematerializeShadow hides the shadow chain behind superior once a real
// block occupies it: its layouts leave the tree and its connections leave
// the index.
func (c *Coordinator) dematerializeShadow(superior *block.Connection) {
	shadowRoot := superior.ShadowBlock()
	if shadowRoot == nil {
		return
	}
	bl := c.layout.LayoutForBlock(shadowRoot)
	if bl == nil || bl.Group() == nil {
		return
	}
	detached := bl.Group().detachStartingFrom(bl)
	for _, d := range detached {
		c.layout.unregisterBlockLayout(d)
		c.untrackLayout(d)
	}
}

func (c *Coordinator) attachTreeLayout(root *block.Block) error {
	g, err := c.builder.BuildBlockGroupLayout(root)
	if err != nil {
		return err
	}
	g.MoveToWorkspacePosition(root.Position())
	c.layout.AppendBlockGroupLayout(g)
	c.trackGroup(g)
	return nil
}

func (c *Coordinator) detachTreeLayout(root *block.Block) error {
	bl := c.layout.LayoutForBlock(root)
	if bl == nil || bl.Group() == nil {
		return errors.New(errors.ErrCodeIllegalState, "block %s has no layout", root)
	}
	g := bl.Group()
	c.untrackGroup(g)
	c.layout.RemoveBlockGroupLayout(g)
	return nil
}

func (c *Coordinator) enqueueCreate(root *block.Block) error {
	e, err := events.NewCreate(c.workspace, root)
	if err != nil {
		return err
	}
	c.sink.Enqueue(e)
	return nil
}

func (c *Coordinator) trackGroup(g *BlockGroupLayout) {
	for _, bl := range g.BlockLayouts() {
		c.trackLayout(bl)
	}
}

func (c *Coordinator) untrackGroup(g *BlockGroupLayout) {
	for _, bl := range g.BlockLayouts() {
		c.untrackLayout(bl)
	}
}

func (c *Coordinator) trackLayout(bl *BlockLayout) {
	for _, conn := range bl.Block().DirectConnections() {
		c.conns.Track(conn)
	}
	for _, il := range bl.InputLayouts() {
		if g := il.Group(); g != nil {
			c.trackGroup(g)
		}
	}
}

func (c *Coordinator) untrackLayout(bl *BlockLayout) {
	for _, conn := range bl.Block().DirectConnections() {
		c.conns.Untrack(conn)
	}
	for _, il := range bl.InputLayouts() {
		if g := il.Group(); g != nil {
			c.untrackGroup(g)
		}
	}
}

// ApplyEvent applies one event's forward semantics, making the coordinator
// an [events.Applier] so a history can drive undo and redo through the
// ordinary mutation path.
func (c *Coordinator) ApplyEvent(e events.Event) error {
	switch ev := e.(type) {
	case *events.Create:
		return c.applyCreate(ev)
	case *events.Delete:
		return c.applyDelete(ev)
	case *events.Move:
		return c.applyMove(ev)
	case *events.Change:
		return c.applyChange(ev)
	default:
		return errors.New(errors.ErrCodeInvalidArgument, "unknown event type %T", e)
	}
}

func (c *Coordinator) applyCreate(ev *events.Create) error {
	if c.factory == nil {
		return errors.New(errors.ErrCodeIllegalState,
			"cannot apply a creation event without a block factory")
	}
	root, err := io.UnmarshalBlockTree(ev.XML, c.factory)
	if err != nil {
		return err
	}
	return c.addBlockTree(root)
}

func (c *Coordinator) applyDelete(ev *events.Delete) error {
	b, ok := c.workspace.BlockByUUID(ev.BlockID())
	if !ok {
		return errors.New(errors.ErrCodeNotFound,
			"deletion event names unknown block %q", ev.BlockID())
	}
	if !b.TopLevel() {
		if err := c.disconnect(b.InferiorConnection()); err != nil {
			return err
		}
	}
	return c.removeBlockTree(b)
}

func (c *Coordinator) applyMove(ev *events.Move) error {
	b, ok := c.workspace.BlockByUUID(ev.BlockID())
	if !ok {
		return errors.New(errors.ErrCodeNotFound,
			"move event names unknown block %q", ev.BlockID())
	}
	if ev.NewParentID != "" {
		parent, ok := c.workspace.BlockByUUID(ev.NewParentID)
		if !ok {
			return errors.New(errors.ErrCodeNotFound,
				"move event names unknown parent %q", ev.NewParentID)
		}
		var superior *block.Connection
		if ev.NewInputName != "" {
			input := parent.FirstInput(ev.NewInputName)
			if input == nil || input.Connection() == nil {
				return errors.New(errors.ErrCodeNotFound,
					"parent %s has no connectable input %q", parent, ev.NewInputName)
			}
			superior = input.Connection()
		} else {
			superior = parent.NextConnection()
			if superior == nil {
				return errors.New(errors.ErrCodeIllegalState,
					"parent %s has no next connection", parent)
			}
		}
		inferior := b.InferiorConnection()
		if inferior == nil {
			return errors.New(errors.ErrCodeIllegalState,
				"block %s has no inferior connection to move", b)
		}
		return c.connect(superior, inferior)
	}

	moveEvt, err := events.NewMove(c.workspace, b)
	if err != nil {
		return err
	}
	if inferior := b.InferiorConnection(); inferior != nil && inferior.Target() != nil {
		if err := c.disconnect(inferior); err != nil {
			return err
		}
	}
	bl := c.layout.LayoutForBlock(b)
	if bl == nil || bl.Group() == nil {
		return errors.New(errors.ErrCodeIllegalState, "block %s has no layout", b)
	}
	bl.Group().MoveToWorkspacePosition(ev.NewPosition)
	b.SetPosition(ev.NewPosition)
	if err := moveEvt.RecordNew(b); err == nil {
		c.sink.Enqueue(moveEvt)
	}
	c.layout.PerformLayout()
	return nil
}

func (c *Coordinator) applyChange(ev *events.Change) error {
	b, ok := c.workspace.BlockByUUID(ev.BlockID())
	if !ok {
		return errors.New(errors.ErrCodeNotFound,
			"change event names unknown block %q", ev.BlockID())
	}
	switch ev.Element {
	case events.ChangeField:
		return c.setFieldValue(b, ev.FieldName, ev.NewValue)
	case events.ChangeComment:
		return c.setComment(b, ev.NewValue)
	case events.ChangeDisabled:
		v, err := strconv.ParseBool(ev.NewValue)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidArgument, err, "parse disabled value %q", ev.NewValue)
		}
		return c.setDisabled(b, v)
	case events.ChangeInline:
		v, err := strconv.ParseBool(ev.NewValue)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidArgument, err, "parse inline value %q", ev.NewValue)
		}
		return c.setInputsInline(b, v)
	case events.ChangeMutation:
		mutation, err := io.UnmarshalMutation([]byte(ev.NewValue))
		if err != nil {
			return err
		}
		if mutation == nil {
			mutation = &block.Mutation{}
		}
		return c.performMutation(b, func(m *block.Mutator) error {
			return m.UpdateFromMutation(mutation)
		})
	default:
		return errors.New(errors.ErrCodeInvalidArgument, "unknown change element %q", ev.Element)
	}
}

// DidAddName implements [block.NameManagerListener]. Creating a name does
// not touch any existing block.
func (c *Coordinator) DidAddName(nm *block.NameManager, name string) {}

// DidRenameName implements [block.NameManagerListener]: every variable
// field holding the old name follows the rename, as one undo step.
func (c *Coordinator) DidRenameName(nm *block.NameManager, oldName, newName string) {
	err := c.sink.Group(func() error {
		for _, b := range c.workspace.VariableBlocks(oldName) {
			for _, field := range variableFields(b, oldName) {
				old := field.Text()
				if err := field.SetText(newName); err != nil {
					c.logger.Warn("could not rename a variable field",
						"block", b.UUID(), "field", field.Name(), "err", err)
					continue
				}
				e, err := events.NewFieldChange(c.workspace, b, field.Name(), old, newName)
				if err != nil {
					return err
				}
				c.sink.Enqueue(e)
			}
		}
		c.layout.PerformLayout()
		return nil
	})
	if err != nil {
		c.logger.Warn("variable rename did not fully propagate",
			"old", oldName, "new", newName, "err", err)
	}
}

// DidRemoveName implements [block.NameManagerListener]: every tree rooted
// at a block referencing the removed name leaves the workspace, as one undo
// step.
func (c *Coordinator) DidRemoveName(nm *block.NameManager, name string) {
	err := c.sink.Group(func() error {
		for _, b := range c.workspace.VariableBlocks(name) {
			if !c.workspace.ContainsBlock(b) {
				continue // removed along with an earlier tree
			}
			if inferior := b.InferiorConnection(); inferior != nil && inferior.Target() != nil {
				if err := c.disconnect(inferior); err != nil {
					return err
				}
			}
			if err := c.removeBlockTree(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("variable removal did not fully propagate",
			"name", name, "err", err)
	}
}

func variableFields(b *block.Block, name string) []*block.Field {
	var out []*block.Field
	for _, input := range b.Inputs() {
		for _, field := range input.Fields() {
			if field.Kind() == block.FieldVariable && strings.EqualFold(field.Text(), name) {
				out = append(out, field)
			}
		}
	}
	return out
}
