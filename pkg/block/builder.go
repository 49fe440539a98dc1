package block

import (
	"github.com/google/uuid"

	"github.com/jheling/blockwork/pkg/errors"
)

// DefaultColor is used for blocks whose definition does not specify one.
const DefaultColor = "#888888"

// BlockBuilder assembles Block instances from a reusable template. Inputs,
// fields, and the mutator added to the builder are prototypes: every call to
// MakeBlock deep-copies them so built blocks never share state.
type BlockBuilder struct {
	Name         string
	Color        string
	InputsInline bool
	Position     WorkspacePoint
	Style        Style
	Comment      string
	Editable     bool
	Movable      bool
	Deletable    bool
	Disabled     bool

	outputEnabled   bool
	outputChecks    []string
	previousEnabled bool
	previousChecks  []string
	nextEnabled     bool
	nextChecks      []string

	inputs     []*Input
	mutator    *Mutator
	extensions []Extension
}

// NewBlockBuilder creates a builder for blocks of the given type name.
func NewBlockBuilder(name string) *BlockBuilder {
	return &BlockBuilder{
		Name:      name,
		Color:     DefaultColor,
		Editable:  true,
		Movable:   true,
		Deletable: true,
	}
}

// SetOutputConnection enables or disables the output connection. A block may
// not have both an output and a previous connection; enabling the second one
// returns an INVALID_ARGUMENT error.
func (bb *BlockBuilder) SetOutputConnection(enabled bool, typeChecks []string) error {
	if enabled && bb.previousEnabled {
		return errors.New(errors.ErrCodeInvalidArgument,
			"block %q cannot have both an output and a previous connection", bb.Name)
	}
	bb.outputEnabled = enabled
	bb.outputChecks = typeChecks
	return nil
}

// SetPreviousConnection enables or disables the previous connection. Returns
// an INVALID_ARGUMENT error when an output connection is already enabled.
func (bb *BlockBuilder) SetPreviousConnection(enabled bool, typeChecks []string) error {
	if enabled && bb.outputEnabled {
		return errors.New(errors.ErrCodeInvalidArgument,
			"block %q cannot have both an output and a previous connection", bb.Name)
	}
	bb.previousEnabled = enabled
	bb.previousChecks = typeChecks
	return nil
}

// SetNextConnection enables or disables the next connection.
func (bb *BlockBuilder) SetNextConnection(enabled bool, typeChecks []string) {
	bb.nextEnabled = enabled
	bb.nextChecks = typeChecks
}

// OutputConnectionEnabled reports whether built blocks get an output
// connection.
func (bb *BlockBuilder) OutputConnectionEnabled() bool { return bb.outputEnabled }

// PreviousConnectionEnabled reports whether built blocks get a previous
// connection.
func (bb *BlockBuilder) PreviousConnectionEnabled() bool { return bb.previousEnabled }

// NextConnectionEnabled reports whether built blocks get a next connection.
func (bb *BlockBuilder) NextConnectionEnabled() bool { return bb.nextEnabled }

// AddInput appends an input prototype to the template.
func (bb *BlockBuilder) AddInput(input *Input) {
	bb.inputs = append(bb.inputs, input)
}

// Inputs returns the input prototypes added so far.
func (bb *BlockBuilder) Inputs() []*Input { return bb.inputs }

// SetMutator attaches a mutator prototype to the template.
func (bb *BlockBuilder) SetMutator(m *Mutator) { bb.mutator = m }

// AddExtension appends an extension run on every built block.
func (bb *BlockBuilder) AddExtension(extension Extension) {
	bb.extensions = append(bb.extensions, extension)
}

// MakeBlock builds a new block from the template. An empty uuidString
// assigns a fresh UUID; a non-empty one is used verbatim (deserialization).
func (bb *BlockBuilder) MakeBlock(shadow bool, uuidString string) (*Block, error) {
	if bb.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "block name must not be empty")
	}
	if uuidString == "" {
		uuidString = uuid.NewString()
	}
	color := bb.Color
	if color == "" {
		color = DefaultColor
	}
	b := &Block{
		uuid:         uuidString,
		name:         bb.Name,
		color:        color,
		inputsInline: bb.InputsInline,
		position:     bb.Position,
		shadow:       shadow,
		style:        bb.Style,
		comment:      bb.Comment,
		editable:     bb.Editable,
		movable:      bb.Movable,
		deletable:    bb.Deletable,
		disabled:     bb.Disabled,
	}
	if bb.outputEnabled {
		b.output = NewConnection(OutputValue)
		b.output.sourceBlock = b
		b.output.typeChecks = append([]string(nil), bb.outputChecks...)
	}
	if bb.previousEnabled {
		b.previous = NewConnection(PreviousStatement)
		b.previous.sourceBlock = b
		b.previous.typeChecks = append([]string(nil), bb.previousChecks...)
	}
	if bb.nextEnabled {
		b.next = NewConnection(NextStatement)
		b.next.sourceBlock = b
		b.next.typeChecks = append([]string(nil), bb.nextChecks...)
	}
	for _, proto := range bb.inputs {
		b.AppendInput(cloneInputPrototype(proto))
	}
	if bb.mutator != nil {
		b.mutator = bb.mutator.copyFor(b)
	}
	return b, nil
}

func cloneInputPrototype(proto *Input) *Input {
	input := NewInput(proto.typ, proto.name)
	input.alignment = proto.alignment
	input.visible = proto.visible
	if proto.connection != nil && input.connection != nil {
		input.connection.typeChecks = append([]string(nil), proto.connection.typeChecks...)
	}
	for _, field := range proto.fields {
		input.AppendField(field.Copy())
	}
	return input
}
