package io

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"

	"github.com/jheling/blockwork/pkg/block"
	"github.com/jheling/blockwork/pkg/errors"
	"github.com/jheling/blockwork/pkg/workspace"
)

// ReadBlocks decodes an <xml> document from r and builds its block trees
// with f, returning the tree roots in document order. The roots are not
// added to any workspace. ReadBlocks does not close r.
func ReadBlocks(r io.Reader, f *block.BlockFactory) ([]*block.Block, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read xml")
	}
	return UnmarshalBlocks(data, f)
}

// UnmarshalBlocks decodes an <xml> document from data and builds its block
// trees with f. Block UUIDs present in the document are preserved.
func UnmarshalBlocks(data []byte, f *block.BlockFactory) ([]*block.Block, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseXML, err, "decode xml")
	}
	if len(doc.Shadows) > 0 {
		return nil, errors.New(errors.ErrCodeParseXML,
			"shadow blocks cannot appear at the document's top level")
	}
	var roots []*block.Block
	for _, el := range doc.Blocks {
		root, err := buildBlock(f, el, false)
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	return roots, nil
}

// UnmarshalBlockTree decodes a document holding exactly one block tree,
// the counterpart of [MarshalBlockTree].
func UnmarshalBlockTree(data []byte, f *block.BlockFactory) (*block.Block, error) {
	roots, err := UnmarshalBlocks(data, f)
	if err != nil {
		return nil, err
	}
	if len(roots) != 1 {
		return nil, errors.New(errors.ErrCodeParseXML,
			"expected exactly one block tree, found %d", len(roots))
	}
	return roots[0], nil
}

// UnmarshalMutation decodes a standalone <mutation> element, the
// counterpart of [MarshalMutation]. Empty data yields a nil mutation.
func UnmarshalMutation(data []byte) (*block.Mutation, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var el mutationElement
	if err := xml.Unmarshal(data, &el); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseXML, err, "decode mutation xml")
	}
	return el.toModelMutation(), nil
}

// ReadWorkspace decodes an <xml> document from r into a fresh workspace.
//
// ReadWorkspace returns an error if:
//   - The XML is malformed or the root element is not <xml>
//   - A block references an unknown type, field, input, or mutation
//   - A connection in the document is invalid (wrong type, type-check
//     mismatch, shadow rules violated)
//   - Two blocks share a UUID
//
// Errors are wrapped with context naming the block that caused the problem.
func ReadWorkspace(r io.Reader, f *block.BlockFactory) (*workspace.Workspace, error) {
	roots, err := ReadBlocks(r, f)
	if err != nil {
		return nil, err
	}
	ws, err := workspace.New(nil)
	if err != nil {
		return nil, err
	}
	if len(roots) > 0 {
		if err := ws.AddBlockTrees(roots); err != nil {
			return nil, err
		}
	}
	return ws, nil
}

// ImportWorkspace reads an XML file at path and returns the decoded
// workspace. This is a convenience wrapper around [ReadWorkspace] for
// file-based input.
func ImportWorkspace(path string, f *block.BlockFactory) (*workspace.Workspace, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open %s", path)
	}
	defer file.Close()
	return ReadWorkspace(file, f)
}

// buildBlock materializes one wire element and its whole subtree. The
// mutation is applied before fields and children are wired so that
// mutator-created inputs exist by the time they are referenced.
func buildBlock(f *block.BlockFactory, el *blockElement, shadow bool) (*block.Block, error) {
	if el.Type == "" {
		return nil, errors.New(errors.ErrCodeParseXML, "block element is missing a type attribute")
	}
	b, err := f.MakeBlockWithUUID(el.Type, el.ID, shadow)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseXML, err, "block %q", el.Type)
	}

	if el.X != "" || el.Y != "" {
		x, err := parseCoordinate(el.X, el.Type)
		if err != nil {
			return nil, err
		}
		y, err := parseCoordinate(el.Y, el.Type)
		if err != nil {
			return nil, err
		}
		b.SetPosition(block.WorkspacePoint{X: x, Y: y})
	}
	if err := applyFlags(b, el); err != nil {
		return nil, err
	}
	b.SetComment(el.Comment)

	if el.Mutation != nil {
		m := b.Mutator()
		if m == nil {
			return nil, errors.New(errors.ErrCodeParseXML,
				"block %q carries a mutation but has no mutator", el.Type)
		}
		if err := m.UpdateFromMutation(el.Mutation.toModelMutation()); err != nil {
			return nil, err
		}
		if err := m.MutateBlock(); err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "applying mutation of block %q", el.Type)
		}
	}

	for _, fe := range el.Fields {
		field := b.FirstField(fe.Name)
		if field == nil {
			return nil, errors.New(errors.ErrCodeParseXML,
				"block %q has no field named %q", el.Type, fe.Name)
		}
		if err := field.SetValueFromSerializedText(fe.Value); err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err,
				"field %q of block %q", fe.Name, el.Type)
		}
	}

	for _, slot := range el.Values {
		if err := wireSlot(f, b, slot, block.InputTypeValue); err != nil {
			return nil, err
		}
	}
	for _, slot := range el.Statements {
		if err := wireSlot(f, b, slot, block.InputTypeStatement); err != nil {
			return nil, err
		}
	}
	if el.Next != nil {
		next := b.NextConnection()
		if next == nil {
			return nil, errors.New(errors.ErrCodeParseXML,
				"block %q has a <next> element but no next connection", el.Type)
		}
		if err := wireChildren(f, b, next, el.Next.Shadow, el.Next.Block); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func applyFlags(b *block.Block, el *blockElement) error {
	flags := []struct {
		value string
		apply func(bool)
	}{
		{el.Inline, b.SetInputsInline},
		{el.Disabled, b.SetDisabled},
		{el.Deletable, b.SetDeletable},
		{el.Movable, b.SetMovable},
		{el.Editable, b.SetEditable},
	}
	for _, flag := range flags {
		if flag.value == "" {
			continue
		}
		v, err := strconv.ParseBool(flag.value)
		if err != nil {
			return errors.Wrap(errors.ErrCodeParseXML, err, "block %q", el.Type)
		}
		flag.apply(v)
	}
	return nil
}

func wireSlot(f *block.BlockFactory, parent *block.Block, slot slotElement, inputType block.InputType) error {
	input := parent.FirstInput(slot.Name)
	if input == nil || input.Type() != inputType || input.Connection() == nil {
		return errors.New(errors.ErrCodeParseXML,
			"block %q has no %s input named %q", parent.Name(), inputType, slot.Name)
	}
	return wireChildren(f, parent, input.Connection(), slot.Shadow, slot.Block)
}

// wireChildren attaches a slot's children to conn. A <shadow> child under a
// real parent becomes the connection's shadow bond; inside a shadow tree the
// nested shadows are ordinary targets. A real <block> child under a shadow
// parent is malformed.
func wireChildren(f *block.BlockFactory, parent *block.Block, conn *block.Connection, shadowEl, blockEl *blockElement) error {
	if blockEl != nil {
		if parent.Shadow() {
			return errors.New(errors.ErrCodeParseXML,
				"non-shadow block %q nested inside shadow block %q", blockEl.Type, parent.Name())
		}
		child, err := buildBlock(f, blockEl, false)
		if err != nil {
			return err
		}
		if err := connectChild(conn, child, false); err != nil {
			return err
		}
	}
	if shadowEl != nil {
		child, err := buildBlock(f, shadowEl, true)
		if err != nil {
			return err
		}
		if err := connectChild(conn, child, !parent.Shadow()); err != nil {
			return err
		}
	}
	return nil
}

func connectChild(conn *block.Connection, child *block.Block, asShadow bool) error {
	var inferior *block.Connection
	switch conn.Type() {
	case block.InputValue:
		inferior = child.OutputConnection()
	case block.NextStatement:
		inferior = child.PreviousConnection()
	}
	if inferior == nil {
		return errors.New(errors.ErrCodeParseXML,
			"block %q cannot attach to a %s connection", child.Name(), conn.Type())
	}
	var err error
	if asShadow {
		err = conn.ConnectShadowTo(inferior)
	} else {
		err = conn.ConnectTo(inferior)
	}
	if err != nil {
		return errors.Wrap(errors.GetCode(err), err, "connecting block %q", child.Name())
	}
	return nil
}

func parseCoordinate(value, blockType string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeParseXML, err, "block %q position", blockType)
	}
	return v, nil
}
