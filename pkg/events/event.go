package events

import (
	"strconv"

	"github.com/jheling/blockwork/pkg/block"
	"github.com/jheling/blockwork/pkg/errors"
	"github.com/jheling/blockwork/pkg/io"
	"github.com/jheling/blockwork/pkg/workspace"
)

// Event is one recorded workspace change. The variant set is closed: every
// event is a [Create], [Delete], [Move], or [Change], and merge, discard,
// and inversion logic is total over those four kinds.
type Event interface {
	// WorkspaceID identifies the workspace the change happened in.
	WorkspaceID() string
	// BlockID identifies the primary block the change applies to.
	BlockID() string
	// GroupID ties the event to an undo group; empty means ungrouped.
	GroupID() string
	// Inverse returns an event whose forward application undoes this one.
	Inverse() Event

	setGroup(id string)
	isNoOp() bool
}

type base struct {
	workspaceID string
	blockID     string
	groupID     string
}

func (b *base) WorkspaceID() string { return b.workspaceID }
func (b *base) BlockID() string     { return b.blockID }
func (b *base) GroupID() string     { return b.groupID }
func (b *base) setGroup(id string)  { b.groupID = id }

// Create records a block tree being added to a workspace. It captures the
// tree's XML snapshot and every UUID in the tree, enough to rebuild the
// tree on redo and to remove it on undo.
type Create struct {
	base
	BlockIDs []string
	XML      []byte
}

// NewCreate captures the tree rooted at root as a creation event. Call it
// after the tree is fully assembled so the snapshot is complete.
func NewCreate(ws *workspace.Workspace, root *block.Block) (*Create, error) {
	b, ids, xml, err := captureTree(ws, root)
	if err != nil {
		return nil, err
	}
	return &Create{base: b, BlockIDs: ids, XML: xml}, nil
}

func (e *Create) Inverse() Event {
	return &Delete{base: e.base, BlockIDs: e.BlockIDs, XML: e.XML}
}

func (e *Create) isNoOp() bool { return false }

// Delete records a block tree being removed from a workspace. The snapshot
// is captured before removal so undo can rebuild the tree.
type Delete struct {
	base
	BlockIDs []string
	XML      []byte
}

// NewDelete captures the tree rooted at root as a deletion event. Call it
// before the tree is actually removed.
func NewDelete(ws *workspace.Workspace, root *block.Block) (*Delete, error) {
	b, ids, xml, err := captureTree(ws, root)
	if err != nil {
		return nil, err
	}
	return &Delete{base: b, BlockIDs: ids, XML: xml}, nil
}

func (e *Delete) Inverse() Event {
	return &Create{base: e.base, BlockIDs: e.BlockIDs, XML: e.XML}
}

func (e *Delete) isNoOp() bool { return false }

func captureTree(ws *workspace.Workspace, root *block.Block) (base, []string, []byte, error) {
	if ws == nil || root == nil {
		return base{}, nil, nil, errors.New(errors.ErrCodeInvalidArgument,
			"event needs a workspace and a block")
	}
	xml, err := io.MarshalBlockTree(root)
	if err != nil {
		return base{}, nil, nil, err
	}
	blocks := root.AllBlocksForTree()
	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.UUID()
	}
	return base{workspaceID: ws.UUID(), blockID: root.UUID()}, ids, xml, nil
}

// Move records a block changing parents or workspace position. The old
// state is captured at construction; [Move.RecordNew] captures the new
// state once the move completed. A move whose new state was never recorded
// is treated as a no-op and discarded at flush time.
type Move struct {
	base
	OldParentID  string
	OldInputName string
	OldPosition  block.WorkspacePoint
	NewParentID  string
	NewInputName string
	NewPosition  block.WorkspacePoint

	recordedNew bool
}

// NewMove captures b's current parentage or position as the move's old
// state.
func NewMove(ws *workspace.Workspace, b *block.Block) (*Move, error) {
	if ws == nil || b == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument,
			"event needs a workspace and a block")
	}
	e := &Move{base: base{workspaceID: ws.UUID(), blockID: b.UUID()}}
	e.OldParentID, e.OldInputName, e.OldPosition = moveState(b)
	return e, nil
}

// RecordNew captures b's state after the move. b must be the block the
// event was created for.
func (e *Move) RecordNew(b *block.Block) error {
	if b == nil || b.UUID() != e.blockID {
		return errors.New(errors.ErrCodeIllegalState,
			"move event for block %q cannot record state of %v", e.blockID, b)
	}
	e.NewParentID, e.NewInputName, e.NewPosition = moveState(b)
	e.recordedNew = true
	return nil
}

func (e *Move) Inverse() Event {
	inv := *e
	inv.OldParentID, inv.NewParentID = e.NewParentID, e.OldParentID
	inv.OldInputName, inv.NewInputName = e.NewInputName, e.OldInputName
	inv.OldPosition, inv.NewPosition = e.NewPosition, e.OldPosition
	return &inv
}

func (e *Move) isNoOp() bool {
	if !e.recordedNew {
		return true
	}
	return e.OldParentID == e.NewParentID &&
		e.OldInputName == e.NewInputName &&
		e.OldPosition == e.NewPosition
}

// moveState reports where a block currently lives: its parent block and
// input when connected, or its workspace position when top-level.
func moveState(b *block.Block) (parentID, inputName string, position block.WorkspacePoint) {
	if pc := b.ParentConnection(); pc != nil && pc.Target() != nil {
		target := pc.Target()
		parentID = target.SourceBlock().UUID()
		if input := target.SourceInput(); input != nil {
			inputName = input.Name()
		}
		return parentID, inputName, block.WorkspacePoint{}
	}
	return "", "", b.Position()
}

// ChangeElement names the aspect of a block a [Change] event touched.
type ChangeElement string

const (
	ChangeField    ChangeElement = "field"
	ChangeComment  ChangeElement = "comment"
	ChangeDisabled ChangeElement = "disabled"
	ChangeInline   ChangeElement = "inline"
	ChangeMutation ChangeElement = "mutation"
)

// Change records a non-structural edit on a single block: a field value, the
// comment text, the disabled flag, the inline-inputs flag, or the applied
// mutation. Values are carried in their serialized text form.
type Change struct {
	base
	Element   ChangeElement
	FieldName string
	OldValue  string
	NewValue  string
}

func newChange(ws *workspace.Workspace, b *block.Block, element ChangeElement, fieldName, oldValue, newValue string) (*Change, error) {
	if ws == nil || b == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument,
			"event needs a workspace and a block")
	}
	return &Change{
		base:      base{workspaceID: ws.UUID(), blockID: b.UUID()},
		Element:   element,
		FieldName: fieldName,
		OldValue:  oldValue,
		NewValue:  newValue,
	}, nil
}

// NewFieldChange records a field value change in serialized text form.
func NewFieldChange(ws *workspace.Workspace, b *block.Block, fieldName, oldValue, newValue string) (*Change, error) {
	return newChange(ws, b, ChangeField, fieldName, oldValue, newValue)
}

// NewCommentChange records a comment text change.
func NewCommentChange(ws *workspace.Workspace, b *block.Block, oldValue, newValue string) (*Change, error) {
	return newChange(ws, b, ChangeComment, "", oldValue, newValue)
}

// NewDisabledChange records the disabled flag flipping.
func NewDisabledChange(ws *workspace.Workspace, b *block.Block, oldValue, newValue bool) (*Change, error) {
	return newChange(ws, b, ChangeDisabled, "", strconv.FormatBool(oldValue), strconv.FormatBool(newValue))
}

// NewInlineChange records the inline-inputs flag flipping.
func NewInlineChange(ws *workspace.Workspace, b *block.Block, oldValue, newValue bool) (*Change, error) {
	return newChange(ws, b, ChangeInline, "", strconv.FormatBool(oldValue), strconv.FormatBool(newValue))
}

// NewMutationChange records the applied mutation changing, in serialized
// XML form.
func NewMutationChange(ws *workspace.Workspace, b *block.Block, oldXML, newXML string) (*Change, error) {
	return newChange(ws, b, ChangeMutation, "", oldXML, newXML)
}

func (e *Change) Inverse() Event {
	inv := *e
	inv.OldValue, inv.NewValue = e.NewValue, e.OldValue
	return &inv
}

func (e *Change) isNoOp() bool { return e.OldValue == e.NewValue }

// merged collapses two chronologically adjacent events into one when they
// describe the same subject within the same group: consecutive moves of one
// block become a single old-to-final move, consecutive changes of one
// element become a single old-to-final delta.
func merged(first, second Event) (Event, bool) {
	switch a := first.(type) {
	case *Move:
		b, ok := second.(*Move)
		if !ok || a.blockID != b.blockID || a.groupID != b.groupID {
			return nil, false
		}
		out := *a
		out.NewParentID = b.NewParentID
		out.NewInputName = b.NewInputName
		out.NewPosition = b.NewPosition
		out.recordedNew = a.recordedNew && b.recordedNew
		return &out, true
	case *Change:
		b, ok := second.(*Change)
		if !ok || a.blockID != b.blockID || a.groupID != b.groupID ||
			a.Element != b.Element || a.FieldName != b.FieldName {
			return nil, false
		}
		out := *a
		out.NewValue = b.NewValue
		return &out, true
	default:
		return nil, false
	}
}
