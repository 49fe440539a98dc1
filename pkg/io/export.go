package io

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"strconv"

	"github.com/jheling/blockwork/pkg/block"
	"github.com/jheling/blockwork/pkg/errors"
	"github.com/jheling/blockwork/pkg/workspace"
)

// MarshalWorkspace serializes every block tree in ws to an <xml> document.
// Trees appear in block-UUID order, so equal workspaces produce equal bytes.
// The output can be re-imported with [ReadWorkspace] for round-trip
// processing.
func MarshalWorkspace(ws *workspace.Workspace) ([]byte, error) {
	if ws == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "cannot marshal a nil workspace")
	}
	doc := &document{Xmlns: Namespace}
	for _, root := range ws.TopLevelBlocks() {
		doc.Blocks = append(doc.Blocks, blockToElement(root, true))
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode workspace xml")
	}
	return out, nil
}

// WriteWorkspace encodes ws as XML and writes it to w.
func WriteWorkspace(ws *workspace.Workspace, w io.Writer) error {
	data, err := MarshalWorkspace(ws)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write workspace xml")
	}
	return nil
}

// ExportWorkspace writes ws to an XML file at path.
// This is a convenience wrapper around [WriteWorkspace] for file-based output.
func ExportWorkspace(ws *workspace.Workspace, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", path)
	}
	defer f.Close()
	return WriteWorkspace(ws, f)
}

// MarshalBlockTree serializes the tree rooted at root to an <xml> document
// holding a single <block> element. Shadow blocks cannot be tree roots.
func MarshalBlockTree(root *block.Block) ([]byte, error) {
	if root == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "cannot marshal a nil block tree")
	}
	if root.Shadow() {
		return nil, errors.New(errors.ErrCodeIllegalState,
			"shadow block %s cannot be serialized as a tree root", root)
	}
	doc := &document{
		Xmlns:  Namespace,
		Blocks: []*blockElement{blockToElement(root, true)},
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode block tree xml")
	}
	return out, nil
}

// MarshalMutation serializes one <mutation> element on its own, the form
// change events carry for mutator reshapes. A nil mutation yields nil.
func MarshalMutation(m *block.Mutation) ([]byte, error) {
	el := fromModelMutation(m)
	if el == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	start := xml.StartElement{Name: xml.Name{Local: "mutation"}}
	if err := enc.EncodeElement(el, start); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode mutation xml")
	}
	if err := enc.Flush(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode mutation xml")
	}
	return buf.Bytes(), nil
}

// WriteBlockTree encodes the tree rooted at root as XML and writes it to w.
func WriteBlockTree(root *block.Block, w io.Writer) error {
	data, err := MarshalBlockTree(root)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write block tree xml")
	}
	return nil
}

// blockToElement converts one block and everything below it to wire form.
// Position is written for top-level roots only; nested positions are implied
// by the tree shape.
func blockToElement(b *block.Block, topLevel bool) *blockElement {
	el := &blockElement{
		Type:   b.Name(),
		ID:     b.UUID(),
		Inline: strconv.FormatBool(b.InputsInline()),
	}
	if topLevel {
		el.X = formatCoordinate(b.Position().X)
		el.Y = formatCoordinate(b.Position().Y)
	}
	if b.Disabled() {
		el.Disabled = "true"
	}
	if !b.Deletable() {
		el.Deletable = "false"
	}
	if !b.Movable() {
		el.Movable = "false"
	}
	if !b.Editable() {
		el.Editable = "false"
	}
	if m := b.Mutator(); m != nil {
		el.Mutation = fromModelMutation(m.ToMutation())
	}
	el.Comment = b.Comment()

	for _, input := range b.Inputs() {
		for _, field := range input.Fields() {
			if text, ok := field.SerializedText(); ok {
				el.Fields = append(el.Fields, fieldElement{Name: field.Name(), Value: text})
			}
		}
		conn := input.Connection()
		if conn == nil {
			continue
		}
		slot := slotElement{Name: input.Name()}
		fillChildren(conn, &slot.Shadow, &slot.Block)
		if slot.Shadow == nil && slot.Block == nil {
			continue
		}
		switch input.Type() {
		case block.InputTypeValue:
			el.Values = append(el.Values, slot)
		case block.InputTypeStatement:
			el.Statements = append(el.Statements, slot)
		}
	}

	if next := b.NextConnection(); next != nil {
		nextEl := &nextElement{}
		fillChildren(next, &nextEl.Shadow, &nextEl.Block)
		if nextEl.Shadow != nil || nextEl.Block != nil {
			el.Next = nextEl
		}
	}
	return el
}

// fillChildren serializes a connection's shadow and target children. The
// element kind follows the child's own shadow flag: inside a shadow tree the
// nested children are plain targets yet still serialize as <shadow>.
func fillChildren(conn *block.Connection, shadow, target **blockElement) {
	if sb := conn.ShadowBlock(); sb != nil {
		*shadow = blockToElement(sb, false)
	}
	if tb := conn.TargetBlock(); tb != nil {
		child := blockToElement(tb, false)
		if tb.Shadow() {
			*shadow = child
		} else {
			*target = child
		}
	}
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
