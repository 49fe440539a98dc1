package block

import (
	"github.com/jheling/blockwork/pkg/errors"
)

// MutatorKind identifies the variant of a mutator. Mutators are a closed set
// so that reshape and serialization logic stays total over the kinds.
type MutatorKind int

const (
	// MutatorIfElse grows and shrinks the else-if/else arms of an if block.
	MutatorIfElse MutatorKind = iota
	// MutatorProcedureDefinition reshapes a procedure definition block to
	// its parameter list and statement body.
	MutatorProcedureDefinition
	// MutatorProcedureCaller reshapes a procedure call block to the called
	// procedure's parameter list.
	MutatorProcedureCaller
	// MutatorIfReturn toggles the return-value input of an early-return
	// block inside a procedure body.
	MutatorIfReturn
)

func (k MutatorKind) String() string {
	switch k {
	case MutatorIfElse:
		return "if_else"
	case MutatorProcedureDefinition:
		return "procedure_definition"
	case MutatorProcedureCaller:
		return "procedure_caller"
	case MutatorIfReturn:
		return "if_return"
	default:
		return "unknown"
	}
}

// ProcedureParameter is one named parameter of a procedure, with a stable id
// that survives renames.
type ProcedureParameter struct {
	Name string
	UUID string
}

// MutationAttribute is one attribute on a serialized <mutation> element.
type MutationAttribute struct {
	Name  string
	Value string
}

// MutationArg is one <arg> child of a serialized <mutation> element.
type MutationArg struct {
	Name string
	ID   string
}

// Mutation is the serialized form of a mutator's applied configuration, the
// content of a block's <mutation> element.
type Mutation struct {
	Attributes []MutationAttribute
	Args       []MutationArg
}

// Attribute returns the named attribute's value and whether it is present.
func (m *Mutation) Attribute(name string) (string, bool) {
	for _, attr := range m.Attributes {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

func (m *Mutation) setAttribute(name, value string) {
	m.Attributes = append(m.Attributes, MutationAttribute{Name: name, Value: value})
}

// Mutator reshapes a block's inputs from external configuration. Setters
// record the desired configuration; MutateBlock reconciles the block's
// actual inputs to match and then marks the configuration applied.
// Serialization persists only the applied configuration.
type Mutator struct {
	kind  MutatorKind
	block *Block

	elseIfCount          int
	appliedElseIfCount   int
	elseStatement        bool
	appliedElseStatement bool

	procedureName          string
	appliedProcedureName   string
	parameters             []ProcedureParameter
	appliedParameters      []ProcedureParameter
	allowStatements        bool
	appliedAllowStatements bool
	returnsValue           bool

	hasReturnValue        bool
	appliedHasReturnValue bool
}

// NewMutatorIfElse creates a mutator for variable-arity if blocks.
func NewMutatorIfElse() *Mutator {
	return &Mutator{kind: MutatorIfElse}
}

// NewMutatorProcedureDefinition creates a mutator for procedure definition
// blocks. returnsValue distinguishes definitions with a return value, which
// may also toggle their statement body off.
func NewMutatorProcedureDefinition(returnsValue bool) *Mutator {
	return &Mutator{
		kind:            MutatorProcedureDefinition,
		allowStatements: true,
		returnsValue:    returnsValue,
	}
}

// NewMutatorProcedureCaller creates a mutator for procedure call blocks.
func NewMutatorProcedureCaller() *Mutator {
	return &Mutator{kind: MutatorProcedureCaller}
}

// NewMutatorIfReturn creates a mutator for early-return blocks.
func NewMutatorIfReturn() *Mutator {
	return &Mutator{kind: MutatorIfReturn}
}

// Kind returns the mutator's variant.
func (m *Mutator) Kind() MutatorKind { return m.kind }

// Block returns the block this mutator reshapes, or nil when unattached.
func (m *Mutator) Block() *Block { return m.block }

// MutateBlock reconciles the block's inputs with the desired configuration.
// It is idempotent: when desired equals applied it changes nothing. The
// caller must disconnect mutator-owned inputs first; reshaping an input with
// a block still connected fails.
func (m *Mutator) MutateBlock() error {
	if m.block == nil {
		return errors.New(errors.ErrCodeIllegalState,
			"%s mutator is not attached to a block", m.kind)
	}
	switch m.kind {
	case MutatorIfElse:
		return m.mutateIfElse()
	case MutatorProcedureDefinition:
		return m.mutateProcedureDefinition()
	case MutatorProcedureCaller:
		return m.mutateProcedureCaller()
	case MutatorIfReturn:
		return m.mutateIfReturn()
	default:
		return errors.New(errors.ErrCodeIllegalState, "unknown mutator kind %d", int(m.kind))
	}
}

// SortedMutatorInputs returns the inputs currently owned by the mutator, in
// a stable order derived from the applied configuration. Used to disconnect
// children before a reshape and reconnect them after.
func (m *Mutator) SortedMutatorInputs() []*Input {
	if m.block == nil {
		return nil
	}
	switch m.kind {
	case MutatorIfElse:
		return m.sortedIfElseInputs()
	case MutatorProcedureDefinition:
		return m.sortedProcedureDefinitionInputs()
	case MutatorProcedureCaller:
		return m.sortedProcedureCallerInputs()
	case MutatorIfReturn:
		return m.sortedIfReturnInputs()
	default:
		return nil
	}
}

// ToMutation serializes the applied configuration, or returns nil when the
// configuration matches the block's default shape and needs no element.
func (m *Mutator) ToMutation() *Mutation {
	switch m.kind {
	case MutatorIfElse:
		return m.ifElseMutation()
	case MutatorProcedureDefinition:
		return m.procedureDefinitionMutation()
	case MutatorProcedureCaller:
		return m.procedureCallerMutation()
	case MutatorIfReturn:
		return m.ifReturnMutation()
	default:
		return nil
	}
}

// UpdateFromMutation loads a serialized configuration into the desired
// state. The block's shape is unchanged until MutateBlock runs.
func (m *Mutator) UpdateFromMutation(mutation *Mutation) error {
	if mutation == nil {
		return errors.New(errors.ErrCodeParseXML, "mutation element is nil")
	}
	switch m.kind {
	case MutatorIfElse:
		return m.updateIfElse(mutation)
	case MutatorProcedureDefinition:
		return m.updateProcedureDefinition(mutation)
	case MutatorProcedureCaller:
		return m.updateProcedureCaller(mutation)
	case MutatorIfReturn:
		return m.updateIfReturn(mutation)
	default:
		return errors.New(errors.ErrCodeParseXML, "unknown mutator kind %d", int(m.kind))
	}
}

// copyFor clones the mutator, desired and applied state included, attached
// to the given block.
func (m *Mutator) copyFor(b *Block) *Mutator {
	clone := *m
	clone.block = b
	clone.parameters = append([]ProcedureParameter(nil), m.parameters...)
	clone.appliedParameters = append([]ProcedureParameter(nil), m.appliedParameters...)
	return &clone
}

func (m *Mutator) attachTo(b *Block) { m.block = b }
