package block

// InputType identifies the shape of an input row on a block.
type InputType int

const (
	// InputTypeValue accepts one child block by its output connection.
	InputTypeValue InputType = iota
	// InputTypeStatement accepts a chain of child blocks by the first
	// block's previous connection.
	InputTypeStatement
	// InputTypeDummy holds fields only and accepts no child block.
	InputTypeDummy
)

func (t InputType) String() string {
	switch t {
	case InputTypeValue:
		return "value"
	case InputTypeStatement:
		return "statement"
	case InputTypeDummy:
		return "dummy"
	default:
		return "unknown"
	}
}

// InputAlignment positions an input's fields horizontally within the block.
type InputAlignment int

const (
	AlignLeft   InputAlignment = -1
	AlignCenter InputAlignment = 0
	AlignRight  InputAlignment = 1
)

// Input is a row on a block: an ordered list of fields, optionally followed
// by a connection that accepts a child block. Value inputs carry an
// InputValue connection, statement inputs carry a NextStatement connection,
// dummy inputs carry none.
type Input struct {
	typ        InputType
	name       string
	fields     []*Field
	connection *Connection
	alignment  InputAlignment
	visible    bool

	sourceBlock *Block
}

// NewInput creates an input of the given type. Value and statement inputs
// are created with their superior-side connection attached.
func NewInput(typ InputType, name string) *Input {
	input := &Input{typ: typ, name: name, visible: true, alignment: AlignLeft}
	switch typ {
	case InputTypeValue:
		input.connection = NewConnection(InputValue)
	case InputTypeStatement:
		input.connection = NewConnection(NextStatement)
	}
	if input.connection != nil {
		input.connection.sourceInput = input
	}
	return input
}

// Type returns the input's shape.
func (i *Input) Type() InputType { return i.typ }

// Name returns the input's name, unique per block by convention. Dummy
// inputs may be unnamed.
func (i *Input) Name() string { return i.name }

// Fields returns the input's fields in display order.
func (i *Input) Fields() []*Field { return i.fields }

// Connection returns the input's child-accepting connection, or nil for
// dummy inputs.
func (i *Input) Connection() *Connection { return i.connection }

// SourceBlock returns the block this input belongs to.
func (i *Input) SourceBlock() *Block { return i.sourceBlock }

// Alignment returns the horizontal alignment of the input's fields.
func (i *Input) Alignment() InputAlignment { return i.alignment }

// SetAlignment updates the horizontal alignment of the input's fields.
func (i *Input) SetAlignment(alignment InputAlignment) { i.alignment = alignment }

// Visible reports whether the input is rendered.
func (i *Input) Visible() bool { return i.visible }

// SetVisible toggles whether the input is rendered.
func (i *Input) SetVisible(visible bool) { i.visible = visible }

// AppendField adds a field to the end of the input's field list.
func (i *Input) AppendField(field *Field) {
	i.fields = append(i.fields, field)
}

// FieldByName returns the input's field with the given name, or nil.
func (i *Input) FieldByName(name string) *Field {
	for _, field := range i.fields {
		if field.name == name {
			return field
		}
	}
	return nil
}

// ConnectedBlock returns the child block attached to this input, or nil.
func (i *Input) ConnectedBlock() *Block {
	if i.connection == nil {
		return nil
	}
	return i.connection.TargetBlock()
}

// ConnectedShadowBlock returns the shadow child attached to this input, or
// nil.
func (i *Input) ConnectedShadowBlock() *Block {
	if i.connection == nil {
		return nil
	}
	return i.connection.ShadowBlock()
}

// setSourceBlock wires the input and its connection to the owning block.
func (i *Input) setSourceBlock(b *Block) {
	i.sourceBlock = b
	if i.connection != nil {
		i.connection.sourceBlock = b
	}
}
