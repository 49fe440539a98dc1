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

// CustomCategory marks a category whose content is produced by the runtime
// instead of by its XML children.
type CustomCategory string

const (
	CustomNone      CustomCategory = ""
	CustomVariable  CustomCategory = "VARIABLE"
	CustomProcedure CustomCategory = "PROCEDURE"
)

// DefaultSeparatorGap is the spacing used for a <sep> element without an
// explicit gap attribute.
const DefaultSeparatorGap = 24

// Toolbox is an ordered list of block categories presented to the user.
type Toolbox struct {
	categories []*Category
}

// NewToolbox returns an empty toolbox.
func NewToolbox() *Toolbox {
	return &Toolbox{}
}

// Categories returns the toolbox's categories in declaration order.
func (t *Toolbox) Categories() []*Category {
	return t.categories
}

// AddCategory appends an empty category. Each category keeps its block trees
// in a dedicated read-only workspace so identity and tree invariants hold
// for toolbox content too.
func (t *Toolbox) AddCategory(name, color string) (*Category, error) {
	ws, err := workspace.New(&workspace.Options{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	c := &Category{Name: name, Color: color, workspace: ws}
	t.categories = append(t.categories, c)
	return c, nil
}

// Category is one named group of toolbox entries.
type Category struct {
	Name   string
	Color  string
	Custom CustomCategory

	items     []Item
	workspace *workspace.Workspace
}

// Item is a single category entry: a block tree, or a separator when Root
// is nil.
type Item struct {
	Root *block.Block
	Gap  float64
}

// Items returns the category's entries in declaration order.
func (c *Category) Items() []Item {
	return c.items
}

// Workspace returns the workspace backing this category's block trees.
func (c *Category) Workspace() *workspace.Workspace {
	return c.workspace
}

// AddBlockTree appends a block tree entry, registering the tree with the
// category's workspace.
func (c *Category) AddBlockTree(root *block.Block) error {
	if err := c.workspace.AddBlockTree(root); err != nil {
		return err
	}
	c.items = append(c.items, Item{Root: root})
	return nil
}

// AddGap appends a separator entry.
func (c *Category) AddGap(gap float64) {
	c.items = append(c.items, Item{Gap: gap})
}

// ReadToolbox decodes a toolbox document from r, building block trees with
// f. ReadToolbox does not close r.
func ReadToolbox(r io.Reader, f *block.BlockFactory) (*Toolbox, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read toolbox xml")
	}
	return UnmarshalToolbox(data, f)
}

// ImportToolbox reads a toolbox XML file at path. This is a convenience
// wrapper around [ReadToolbox] for file-based input.
func ImportToolbox(path string, f *block.BlockFactory) (*Toolbox, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open %s", path)
	}
	defer file.Close()
	return ReadToolbox(file, f)
}

// UnmarshalToolbox decodes a toolbox document from data.
//
// The root element must be <toolbox> or <xml>. It either holds <category>
// elements (each with nested <block> and <sep> children) or holds loose
// <block> and <sep> elements, which are grouped into a single synthesized
// default category. Mixing both forms is malformed, and categories cannot
// nest.
func UnmarshalToolbox(data []byte, f *block.BlockFactory) (*Toolbox, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	root, err := findRootElement(decoder)
	if err != nil {
		return nil, err
	}
	if root.Name.Local != "toolbox" && root.Name.Local != "xml" {
		return nil, errors.New(errors.ErrCodeParseXML,
			"toolbox root element must be <toolbox> or <xml>, found <%s>", root.Name.Local)
	}

	toolbox := NewToolbox()
	// defaultCategory collects loose top-level entries; it stays nil while
	// the document uses explicit categories.
	var defaultCategory *Category
	sawCategory := false
	for {
		tok, err := decoder.Token()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeParseXML, err, "decode toolbox xml")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "category":
				if defaultCategory != nil {
					return nil, errMixedToolbox()
				}
				sawCategory = true
				if err := parseCategory(decoder, t, f, toolbox); err != nil {
					return nil, err
				}
			case "block", "sep":
				if sawCategory {
					return nil, errMixedToolbox()
				}
				if defaultCategory == nil {
					defaultCategory, err = toolbox.AddCategory("", "")
					if err != nil {
						return nil, err
					}
				}
				if err := parseCategoryItem(decoder, t, f, defaultCategory); err != nil {
					return nil, err
				}
			default:
				return nil, errors.New(errors.ErrCodeParseXML,
					"unexpected <%s> element in toolbox", t.Name.Local)
			}
		case xml.EndElement:
			return toolbox, nil
		}
	}
}

func errMixedToolbox() error {
	return errors.New(errors.ErrCodeParseXML,
		"toolbox cannot mix categories with loose top-level blocks")
}

// findRootElement skips prolog tokens up to the document's root element.
func findRootElement(decoder *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := decoder.Token()
		if err != nil {
			return xml.StartElement{}, errors.Wrap(errors.ErrCodeParseXML, err, "decode toolbox xml")
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

func parseCategory(decoder *xml.Decoder, start xml.StartElement, f *block.BlockFactory, toolbox *Toolbox) error {
	var name, color string
	custom := CustomNone
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "name":
			name = attr.Value
		case "colour":
			color = attr.Value
		case "custom":
			custom = CustomCategory(attr.Value)
			if custom != CustomVariable && custom != CustomProcedure {
				return errors.New(errors.ErrCodeParseXML,
					"category %q has unknown custom type %q", name, attr.Value)
			}
		}
	}
	category, err := toolbox.AddCategory(name, color)
	if err != nil {
		return err
	}
	category.Custom = custom

	for {
		tok, err := decoder.Token()
		if err != nil {
			return errors.Wrap(errors.ErrCodeParseXML, err, "decode category %q", name)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "category" {
				return errors.New(errors.ErrCodeParseXML,
					"category %q contains a nested category; categories cannot nest", name)
			}
			if err := parseCategoryItem(decoder, t, f, category); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func parseCategoryItem(decoder *xml.Decoder, start xml.StartElement, f *block.BlockFactory, category *Category) error {
	switch start.Name.Local {
	case "block":
		var el blockElement
		if err := decoder.DecodeElement(&el, &start); err != nil {
			return errors.Wrap(errors.ErrCodeParseXML, err, "decode toolbox block")
		}
		root, err := buildBlock(f, &el, false)
		if err != nil {
			return err
		}
		return category.AddBlockTree(root)
	case "sep":
		gap := float64(DefaultSeparatorGap)
		for _, attr := range start.Attr {
			if attr.Name.Local == "gap" {
				v, err := strconv.ParseFloat(attr.Value, 64)
				if err != nil {
					return errors.Wrap(errors.ErrCodeParseXML, err, "sep gap %q", attr.Value)
				}
				gap = v
			}
		}
		category.AddGap(gap)
		return decoder.Skip()
	default:
		return errors.New(errors.ErrCodeParseXML,
			"unexpected <%s> element in category %q", start.Name.Local, category.Name)
	}
}
