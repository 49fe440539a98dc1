package block

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jheling/blockwork/pkg/errors"
)

// Style carries presentation hints parsed from a block definition.
type Style struct {
	// HatType is non-empty for blocks rendered with a hat, such as event
	// handler blocks ("cap" in the JSON definition format).
	HatType string
}

// BlockListener is notified after a block's own attributes change (flags,
// position, inline mode, comment). Structural changes to connections are
// reported through connection and workspace listeners instead.
type BlockListener interface {
	DidUpdateBlock(b *Block)
}

// Block is one node in the program graph: a named, colored unit with an
// ordered list of inputs and up to three block-level connections. Blocks
// reachable from a top-level block through input connections and next
// connections form a tree; shadow blocks hang off the same connections as a
// lower-priority substructure.
type Block struct {
	uuid         string
	name         string
	color        string
	inputs       []*Input
	inputsInline bool
	position     WorkspacePoint
	shadow       bool

	output   *Connection
	previous *Connection
	next     *Connection

	mutator *Mutator
	style   Style
	comment string

	editable  bool
	movable   bool
	deletable bool
	disabled  bool

	listeners []BlockListener
}

// UUID returns the block's globally unique identifier.
func (b *Block) UUID() string { return b.uuid }

// Name returns the block's type identifier, such as "controls_if".
func (b *Block) Name() string { return b.name }

// Color returns the block's color as "#rrggbb".
func (b *Block) Color() string { return b.color }

// Inputs returns the block's inputs in display order.
func (b *Block) Inputs() []*Input { return b.inputs }

// InputsInline reports whether value inputs render on a single line.
func (b *Block) InputsInline() bool { return b.inputsInline }

// SetInputsInline toggles single-line rendering of value inputs.
func (b *Block) SetInputsInline(inline bool) {
	if b.inputsInline == inline {
		return
	}
	b.inputsInline = inline
	b.notifyDidUpdate()
}

// Position returns the block's workspace position. Only meaningful for
// top-level blocks; connected blocks derive their position from the parent.
func (b *Block) Position() WorkspacePoint { return b.position }

// SetPosition moves the block to an absolute workspace position.
func (b *Block) SetPosition(position WorkspacePoint) {
	if b.position == position {
		return
	}
	b.position = position
	b.notifyDidUpdate()
}

// Shadow reports whether this is a shadow block: a placeholder rendered when
// nothing real is connected, replaced on user edit.
func (b *Block) Shadow() bool { return b.shadow }

// OutputConnection returns the block's output connection, or nil.
func (b *Block) OutputConnection() *Connection { return b.output }

// PreviousConnection returns the block's previous connection, or nil.
func (b *Block) PreviousConnection() *Connection { return b.previous }

// NextConnection returns the block's next connection, or nil.
func (b *Block) NextConnection() *Connection { return b.next }

// InferiorConnection returns the connection that attaches this block to a
// parent: the output connection if present, else the previous connection,
// else nil. A block never has both.
func (b *Block) InferiorConnection() *Connection {
	if b.output != nil {
		return b.output
	}
	return b.previous
}

// Mutator returns the block's mutator, or nil.
func (b *Block) Mutator() *Mutator { return b.mutator }

// Style returns the block's presentation hints.
func (b *Block) Style() Style { return b.style }

// Comment returns the block's comment text.
func (b *Block) Comment() string { return b.comment }

// SetComment updates the block's comment text.
func (b *Block) SetComment(comment string) {
	if b.comment == comment {
		return
	}
	b.comment = comment
	b.notifyDidUpdate()
}

// Editable reports whether the block's fields may be edited.
func (b *Block) Editable() bool { return b.editable }

// SetEditable toggles field editability.
func (b *Block) SetEditable(editable bool) {
	if b.editable == editable {
		return
	}
	b.editable = editable
	b.notifyDidUpdate()
}

// Movable reports whether the block may be repositioned.
func (b *Block) Movable() bool { return b.movable }

// SetMovable toggles whether the block may be repositioned.
func (b *Block) SetMovable(movable bool) {
	if b.movable == movable {
		return
	}
	b.movable = movable
	b.notifyDidUpdate()
}

// Deletable reports whether the block may be removed by the user.
func (b *Block) Deletable() bool { return b.deletable }

// SetDeletable toggles whether the block may be removed by the user.
func (b *Block) SetDeletable(deletable bool) {
	if b.deletable == deletable {
		return
	}
	b.deletable = deletable
	b.notifyDidUpdate()
}

// Disabled reports whether the block is excluded from execution.
func (b *Block) Disabled() bool { return b.disabled }

// SetDisabled toggles whether the block is excluded from execution.
func (b *Block) SetDisabled(disabled bool) {
	if b.disabled == disabled {
		return
	}
	b.disabled = disabled
	b.notifyDidUpdate()
}

// Draggable reports whether the block may be dragged. Shadow blocks are
// never draggable.
func (b *Block) Draggable() bool { return b.movable && !b.shadow }

// TopLevel reports whether the block is a tree root: neither its previous
// nor its output connection is attached to a target or shadow.
func (b *Block) TopLevel() bool {
	for _, c := range []*Connection{b.previous, b.output} {
		if c != nil && (c.Connected() || c.ShadowConnected()) {
			return false
		}
	}
	return true
}

// ParentConnection returns the superior connection this block hangs off, or
// nil for top-level blocks.
func (b *Block) ParentConnection() *Connection {
	inferior := b.InferiorConnection()
	if inferior == nil {
		return nil
	}
	if inferior.Target() != nil {
		return inferior.Target()
	}
	return inferior.Shadow()
}

// ParentBlock returns the block this one is connected under, or nil.
func (b *Block) ParentBlock() *Block {
	parent := b.ParentConnection()
	if parent == nil {
		return nil
	}
	return parent.SourceBlock()
}

// RootBlock walks parent links to the top-level block of this tree.
func (b *Block) RootBlock() *Block {
	root := b
	for {
		parent := root.ParentBlock()
		if parent == nil {
			return root
		}
		root = parent
	}
}

// NextBlock returns the block attached to the next connection, or nil.
func (b *Block) NextBlock() *Block {
	if b.next == nil {
		return nil
	}
	return b.next.TargetBlock()
}

// PreviousBlock returns the block the previous connection is attached to, or
// nil.
func (b *Block) PreviousBlock() *Block {
	if b.previous == nil {
		return nil
	}
	return b.previous.TargetBlock()
}

// LastBlockInChain follows next connections to the end of this block's
// statement chain.
func (b *Block) LastBlockInChain() *Block {
	last := b
	for {
		next := last.NextBlock()
		if next == nil {
			return last
		}
		last = next
	}
}

// AllBlocksForTree returns this block and every block transitively attached
// below it, shadow branches included, in depth-first order.
func (b *Block) AllBlocksForTree() []*Block {
	blocks := []*Block{b}
	for _, input := range b.inputs {
		if input.connection == nil {
			continue
		}
		if child := input.connection.TargetBlock(); child != nil {
			blocks = append(blocks, child.AllBlocksForTree()...)
		}
		if shadow := input.connection.ShadowBlock(); shadow != nil {
			blocks = append(blocks, shadow.AllBlocksForTree()...)
		}
	}
	if b.next != nil {
		if child := b.next.TargetBlock(); child != nil {
			blocks = append(blocks, child.AllBlocksForTree()...)
		}
		if shadow := b.next.ShadowBlock(); shadow != nil {
			blocks = append(blocks, shadow.AllBlocksForTree()...)
		}
	}
	return blocks
}

// DirectConnections returns the block's own connections: output, previous,
// next, and every input connection.
func (b *Block) DirectConnections() []*Connection {
	connections := make([]*Connection, 0, len(b.inputs)+3)
	for _, c := range []*Connection{b.output, b.previous, b.next} {
		if c != nil {
			connections = append(connections, c)
		}
	}
	for _, input := range b.inputs {
		if input.connection != nil {
			connections = append(connections, input.connection)
		}
	}
	return connections
}

// AllConnectionsForTree returns the direct connections of every block in
// this block's tree, shadow branches included.
func (b *Block) AllConnectionsForTree() []*Connection {
	var connections []*Connection
	for _, child := range b.AllBlocksForTree() {
		connections = append(connections, child.DirectConnections()...)
	}
	return connections
}

// AppendInput adds an input to the end of the block's input list.
func (b *Block) AppendInput(input *Input) {
	input.setSourceBlock(b)
	b.inputs = append(b.inputs, input)
}

// InsertInput adds an input at the given position in the block's input
// list.
func (b *Block) InsertInput(input *Input, index int) error {
	if index < 0 || index > len(b.inputs) {
		return errors.New(errors.ErrCodeInvalidArgument,
			"input index %d out of range [0, %d]", index, len(b.inputs))
	}
	input.setSourceBlock(b)
	b.inputs = append(b.inputs, nil)
	copy(b.inputs[index+1:], b.inputs[index:])
	b.inputs[index] = input
	return nil
}

// inputIndex returns the position of the named input, or -1.
func (b *Block) inputIndex(name string) int {
	for i, input := range b.inputs {
		if input.name == name {
			return i
		}
	}
	return -1
}

// RemoveInput detaches an input from the block. Returns an ILLEGAL_STATE
// error when the input still has a block connected or does not belong to
// this block.
func (b *Block) RemoveInput(input *Input) error {
	if input.connection != nil && input.connection.Connected() {
		return errors.New(errors.ErrCodeIllegalState,
			"cannot remove input %q while a block is connected to it", input.name)
	}
	for i, candidate := range b.inputs {
		if candidate == input {
			b.inputs = append(b.inputs[:i], b.inputs[i+1:]...)
			input.sourceBlock = nil
			if input.connection != nil {
				input.connection.sourceBlock = nil
			}
			return nil
		}
	}
	return errors.New(errors.ErrCodeIllegalState,
		"input %q does not belong to block %q", input.name, b.name)
}

// FirstInput returns the first input with the given name, or nil.
func (b *Block) FirstInput(name string) *Input {
	for _, input := range b.inputs {
		if input.name == name {
			return input
		}
	}
	return nil
}

// FirstField returns the first field with the given name across all inputs,
// or nil. Field names are assumed unique per block but not enforced.
func (b *Block) FirstField(name string) *Field {
	for _, input := range b.inputs {
		if field := input.FieldByName(name); field != nil {
			return field
		}
	}
	return nil
}

// OnlyValueInput returns the block's value input if it has exactly one, or
// nil otherwise.
func (b *Block) OnlyValueInput() *Input {
	var only *Input
	for _, input := range b.inputs {
		if input.typ == InputTypeValue {
			if only != nil {
				return nil
			}
			only = input
		}
	}
	return only
}

// LastInputValueConnectionInChain follows single-value-input blocks downward
// and returns the deepest open value connection. Returns nil as soon as a
// block in the chain has zero or multiple value inputs.
func (b *Block) LastInputValueConnectionInChain() *Connection {
	current := b
	for current != nil {
		only := current.OnlyValueInput()
		if only == nil || only.connection == nil {
			return nil
		}
		target := only.connection.TargetBlock()
		if target == nil {
			return only.connection
		}
		current = target
	}
	return nil
}

// AddListener subscribes to block attribute updates.
func (b *Block) AddListener(l BlockListener) {
	b.listeners = append(b.listeners, l)
}

// RemoveListener unsubscribes a previously added listener.
func (b *Block) RemoveListener(l BlockListener) {
	for i, candidate := range b.listeners {
		if candidate == l {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

func (b *Block) notifyDidUpdate() {
	for _, l := range b.listeners {
		l.DidUpdateBlock(b)
	}
}

// DeepCopyResult holds the outcome of copying a block tree: the new root,
// every copied block, and the mapping from original to copy UUIDs.
type DeepCopyResult struct {
	Root      *Block
	AllBlocks []*Block
	UUIDMap   map[string]string
}

// DeepCopy clones this block and everything attached below it. Copies get
// fresh UUIDs and fresh connection objects, reconnected isomorphically to
// the original's shape, shadow links included. Listeners are not copied.
func (b *Block) DeepCopy() (*DeepCopyResult, error) {
	result := &DeepCopyResult{UUIDMap: make(map[string]string)}
	root, err := b.copyTree(result)
	if err != nil {
		return nil, err
	}
	result.Root = root
	return result, nil
}

func (b *Block) copyTree(result *DeepCopyResult) (*Block, error) {
	clone := &Block{
		uuid:         uuid.NewString(),
		name:         b.name,
		color:        b.color,
		inputsInline: b.inputsInline,
		position:     b.position,
		shadow:       b.shadow,
		style:        b.style,
		comment:      b.comment,
		editable:     b.editable,
		movable:      b.movable,
		deletable:    b.deletable,
		disabled:     b.disabled,
	}
	if b.output != nil {
		clone.output = NewConnection(OutputValue)
		clone.output.sourceBlock = clone
		clone.output.typeChecks = append([]string(nil), b.output.typeChecks...)
	}
	if b.previous != nil {
		clone.previous = NewConnection(PreviousStatement)
		clone.previous.sourceBlock = clone
		clone.previous.typeChecks = append([]string(nil), b.previous.typeChecks...)
	}
	if b.next != nil {
		clone.next = NewConnection(NextStatement)
		clone.next.sourceBlock = clone
		clone.next.typeChecks = append([]string(nil), b.next.typeChecks...)
	}
	if b.mutator != nil {
		clone.mutator = b.mutator.copyFor(clone)
	}
	for _, input := range b.inputs {
		cloneInput := NewInput(input.typ, input.name)
		cloneInput.alignment = input.alignment
		cloneInput.visible = input.visible
		if input.connection != nil && cloneInput.connection != nil {
			cloneInput.connection.typeChecks = append([]string(nil), input.connection.typeChecks...)
		}
		for _, field := range input.fields {
			cloneInput.AppendField(field.Copy())
		}
		clone.AppendInput(cloneInput)

		if input.connection == nil {
			continue
		}
		if err := copyChildren(input.connection, cloneInput.connection, result); err != nil {
			return nil, err
		}
	}
	if b.next != nil {
		if err := copyChildren(b.next, clone.next, result); err != nil {
			return nil, err
		}
	}
	result.AllBlocks = append(result.AllBlocks, clone)
	result.UUIDMap[b.uuid] = clone.uuid
	return clone, nil
}

// copyChildren clones the target and shadow subtrees hanging off original
// and attaches the clones to cloned.
func copyChildren(original, cloned *Connection, result *DeepCopyResult) error {
	if child := original.TargetBlock(); child != nil {
		childClone, err := child.copyTree(result)
		if err != nil {
			return err
		}
		if err := cloned.ConnectTo(childClone.InferiorConnection()); err != nil {
			return err
		}
	}
	if shadow := original.ShadowBlock(); shadow != nil {
		shadowClone, err := shadow.copyTree(result)
		if err != nil {
			return err
		}
		if err := cloned.ConnectShadowTo(shadowClone.InferiorConnection()); err != nil {
			return err
		}
	}
	return nil
}

func (b *Block) String() string {
	return fmt.Sprintf("%s(%s)", b.name, b.uuid)
}
