package io

import (
	"encoding/xml"

	"github.com/jheling/blockwork/pkg/block"
)

// Namespace is the XML namespace written on exported documents. It matches
// the namespace used by the web Blockly ecosystem so exported workspaces can
// be consumed by external tools.
const Namespace = "https://developers.google.com/blockly/xml"

// document is the root <xml> element of a serialized workspace.
type document struct {
	XMLName xml.Name        `xml:"xml"`
	Xmlns   string          `xml:"xmlns,attr,omitempty"`
	Blocks  []*blockElement `xml:"block"`
	Shadows []*blockElement `xml:"shadow"`
}

// blockElement is one serialized block. The same shape serves both <block>
// and <shadow> elements; the parent slot decides the element name.
type blockElement struct {
	Type       string           `xml:"type,attr"`
	ID         string           `xml:"id,attr,omitempty"`
	X          string           `xml:"x,attr,omitempty"`
	Y          string           `xml:"y,attr,omitempty"`
	Inline     string           `xml:"inline,attr,omitempty"`
	Disabled   string           `xml:"disabled,attr,omitempty"`
	Deletable  string           `xml:"deletable,attr,omitempty"`
	Movable    string           `xml:"movable,attr,omitempty"`
	Editable   string           `xml:"editable,attr,omitempty"`
	Mutation   *mutationElement `xml:"mutation"`
	Comment    string           `xml:"comment,omitempty"`
	Fields     []fieldElement   `xml:"field"`
	Values     []slotElement    `xml:"value"`
	Statements []slotElement    `xml:"statement"`
	Next       *nextElement     `xml:"next"`
}

type fieldElement struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// slotElement is a <value> or <statement> child naming an input. A slot may
// carry a shadow child and a real child at the same time.
type slotElement struct {
	Name   string        `xml:"name,attr"`
	Shadow *blockElement `xml:"shadow"`
	Block  *blockElement `xml:"block"`
}

type nextElement struct {
	Shadow *blockElement `xml:"shadow"`
	Block  *blockElement `xml:"block"`
}

// mutationElement carries mutator-specific attributes plus optional <arg>
// children. The attribute set is open (elseif, else, name, statements,
// value, ...), so it round-trips attributes generically instead of naming
// them in struct tags.
type mutationElement struct {
	attrs []xml.Attr
	args  []argElement
}

type argElement struct {
	Name string `xml:"name,attr"`
	ID   string `xml:"id,attr,omitempty"`
}

func (m *mutationElement) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = append(start.Attr, m.attrs...)
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, arg := range m.args {
		if err := e.EncodeElement(arg, xml.StartElement{Name: xml.Name{Local: "arg"}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

func (m *mutationElement) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Space == "" && attr.Name.Local != "xmlns" {
			m.attrs = append(m.attrs, attr)
		}
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "arg" {
				var arg argElement
				if err := d.DecodeElement(&arg, &t); err != nil {
					return err
				}
				m.args = append(m.args, arg)
			} else if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// toModelMutation converts a wire mutation to the model form consumed by
// [block.Mutator.UpdateFromMutation].
func (m *mutationElement) toModelMutation() *block.Mutation {
	mutation := &block.Mutation{}
	for _, attr := range m.attrs {
		mutation.Attributes = append(mutation.Attributes, block.MutationAttribute{
			Name:  attr.Name.Local,
			Value: attr.Value,
		})
	}
	for _, arg := range m.args {
		mutation.Args = append(mutation.Args, block.MutationArg{Name: arg.Name, ID: arg.ID})
	}
	return mutation
}

// fromModelMutation converts a model mutation to its wire form. A nil model
// mutation yields nil, omitting the <mutation> element entirely.
func fromModelMutation(mutation *block.Mutation) *mutationElement {
	if mutation == nil {
		return nil
	}
	el := &mutationElement{}
	for _, attr := range mutation.Attributes {
		el.attrs = append(el.attrs, xml.Attr{
			Name:  xml.Name{Local: attr.Name},
			Value: attr.Value,
		})
	}
	for _, arg := range mutation.Args {
		el.args = append(el.args, argElement{Name: arg.Name, ID: arg.ID})
	}
	return el
}
