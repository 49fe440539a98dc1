package block

import (
	"fmt"
	"strings"

	"github.com/jheling/blockwork/pkg/errors"
)

// Input and field names used by the procedure mutators. NAME and RETURN
// belong to the block definitions; STACK, the ARG inputs, and VALUE are
// mutator-owned.
const (
	procedureNameField   = "NAME"
	procedureParamsField = "PARAMS"
	stackInputName       = "STACK"
	returnInputName      = "RETURN"
	ifReturnValueInput   = "VALUE"
	argInputPrefix       = "ARG"
)

// ProcedureName returns the desired procedure name of a caller mutator.
func (m *Mutator) ProcedureName() string { return m.procedureName }

// SetProcedureName records the procedure a caller block invokes.
func (m *Mutator) SetProcedureName(name string) error {
	if m.kind != MutatorProcedureCaller {
		return m.wrongKindError("SetProcedureName")
	}
	m.procedureName = name
	return nil
}

// Parameters returns the desired parameter list.
func (m *Mutator) Parameters() []ProcedureParameter { return m.parameters }

// AppliedParameters returns the parameter list present on the block.
func (m *Mutator) AppliedParameters() []ProcedureParameter { return m.appliedParameters }

// SetParameters records the desired parameter list of a procedure
// definition or caller.
func (m *Mutator) SetParameters(parameters []ProcedureParameter) error {
	if m.kind != MutatorProcedureDefinition && m.kind != MutatorProcedureCaller {
		return m.wrongKindError("SetParameters")
	}
	m.parameters = append([]ProcedureParameter(nil), parameters...)
	return nil
}

// AllowStatements reports whether the definition's statement body is
// desired.
func (m *Mutator) AllowStatements() bool { return m.allowStatements }

// SetAllowStatements records whether a procedure definition keeps its
// statement body. Only definitions with a return value may drop it.
func (m *Mutator) SetAllowStatements(allow bool) error {
	if m.kind != MutatorProcedureDefinition {
		return m.wrongKindError("SetAllowStatements")
	}
	if !allow && !m.returnsValue {
		return errors.New(errors.ErrCodeInvalidArgument,
			"a procedure definition without a return value cannot drop its statement body")
	}
	m.allowStatements = allow
	return nil
}

// ReturnsValue reports whether the definition block has a return value.
func (m *Mutator) ReturnsValue() bool { return m.returnsValue }

// HasReturnValue reports whether an early-return block carries a value.
func (m *Mutator) HasReturnValue() bool { return m.hasReturnValue }

// SetHasReturnValue records whether an early-return block carries a value,
// matching the enclosing procedure's shape.
func (m *Mutator) SetHasReturnValue(has bool) error {
	if m.kind != MutatorIfReturn {
		return m.wrongKindError("SetHasReturnValue")
	}
	m.hasReturnValue = has
	return nil
}

func (m *Mutator) mutateProcedureDefinition() error {
	if parametersEqual(m.parameters, m.appliedParameters) &&
		m.allowStatements == m.appliedAllowStatements {
		return nil
	}
	b := m.block

	if params := b.FirstField(procedureParamsField); params != nil {
		if err := params.SetText(parameterSummary(m.parameters)); err != nil {
			return err
		}
	}
	stack := b.FirstInput(stackInputName)
	switch {
	case m.allowStatements && stack == nil:
		stack = NewInput(InputTypeStatement, stackInputName)
		if index := b.inputIndex(returnInputName); index >= 0 {
			if err := b.InsertInput(stack, index); err != nil {
				return err
			}
		} else {
			b.AppendInput(stack)
		}
	case !m.allowStatements && stack != nil:
		if err := b.RemoveInput(stack); err != nil {
			return err
		}
	}

	m.appliedParameters = append([]ProcedureParameter(nil), m.parameters...)
	m.appliedAllowStatements = m.allowStatements
	return nil
}

func (m *Mutator) sortedProcedureDefinitionInputs() []*Input {
	if !m.appliedAllowStatements {
		return nil
	}
	if input := m.block.FirstInput(stackInputName); input != nil {
		return []*Input{input}
	}
	return nil
}

func (m *Mutator) procedureDefinitionMutation() *Mutation {
	if len(m.appliedParameters) == 0 && m.appliedAllowStatements {
		return nil
	}
	mutation := &Mutation{}
	if !m.appliedAllowStatements {
		mutation.setAttribute("statements", "false")
	}
	for _, param := range m.appliedParameters {
		mutation.Args = append(mutation.Args, MutationArg{Name: param.Name, ID: param.UUID})
	}
	return mutation
}

func (m *Mutator) updateProcedureDefinition(mutation *Mutation) error {
	allowStatements := true
	if raw, ok := mutation.Attribute("statements"); ok {
		allowStatements = raw != "false"
	}
	if !allowStatements && !m.returnsValue {
		return errors.New(errors.ErrCodeParseXML,
			"mutation drops the statement body of a procedure without a return value")
	}
	m.allowStatements = allowStatements
	m.parameters = parametersFromArgs(mutation.Args)
	return nil
}

func (m *Mutator) mutateProcedureCaller() error {
	if m.procedureName == m.appliedProcedureName &&
		parametersEqual(m.parameters, m.appliedParameters) {
		return nil
	}
	b := m.block

	if name := b.FirstField(procedureNameField); name != nil {
		if err := name.SetText(m.procedureName); err != nil {
			return err
		}
	}
	for i := len(m.parameters); ; i++ {
		input := b.FirstInput(argInputName(i))
		if input == nil {
			break
		}
		if err := b.RemoveInput(input); err != nil {
			return err
		}
	}
	for i, param := range m.parameters {
		input := b.FirstInput(argInputName(i))
		if input == nil {
			input = NewInput(InputTypeValue, argInputName(i))
			input.SetAlignment(AlignRight)
			input.AppendField(NewFieldLabel("", param.Name))
			b.AppendInput(input)
			continue
		}
		if len(input.fields) > 0 && input.fields[0].kind == FieldLabel {
			if err := input.fields[0].SetText(param.Name); err != nil {
				return err
			}
		}
	}

	m.appliedProcedureName = m.procedureName
	m.appliedParameters = append([]ProcedureParameter(nil), m.parameters...)
	return nil
}

func (m *Mutator) sortedProcedureCallerInputs() []*Input {
	var inputs []*Input
	for i := range m.appliedParameters {
		if input := m.block.FirstInput(argInputName(i)); input != nil {
			inputs = append(inputs, input)
		}
	}
	return inputs
}

func (m *Mutator) procedureCallerMutation() *Mutation {
	mutation := &Mutation{}
	mutation.setAttribute("name", m.appliedProcedureName)
	for _, param := range m.appliedParameters {
		mutation.Args = append(mutation.Args, MutationArg{Name: param.Name, ID: param.UUID})
	}
	return mutation
}

func (m *Mutator) updateProcedureCaller(mutation *Mutation) error {
	name, ok := mutation.Attribute("name")
	if !ok || name == "" {
		return errors.New(errors.ErrCodeParseXML,
			"procedure caller mutation is missing its name attribute")
	}
	m.procedureName = name
	m.parameters = parametersFromArgs(mutation.Args)
	return nil
}

func (m *Mutator) mutateIfReturn() error {
	if m.hasReturnValue == m.appliedHasReturnValue {
		return nil
	}
	b := m.block

	value := b.FirstInput(ifReturnValueInput)
	switch {
	case m.hasReturnValue && value == nil:
		input := NewInput(InputTypeValue, ifReturnValueInput)
		input.AppendField(NewFieldLabel("", "return"))
		b.AppendInput(input)
	case !m.hasReturnValue && value != nil:
		if err := b.RemoveInput(value); err != nil {
			return err
		}
	}

	m.appliedHasReturnValue = m.hasReturnValue
	return nil
}

func (m *Mutator) sortedIfReturnInputs() []*Input {
	if !m.appliedHasReturnValue {
		return nil
	}
	if input := m.block.FirstInput(ifReturnValueInput); input != nil {
		return []*Input{input}
	}
	return nil
}

func (m *Mutator) ifReturnMutation() *Mutation {
	mutation := &Mutation{}
	if m.appliedHasReturnValue {
		mutation.setAttribute("value", "1")
	} else {
		mutation.setAttribute("value", "0")
	}
	return mutation
}

func (m *Mutator) updateIfReturn(mutation *Mutation) error {
	raw, _ := mutation.Attribute("value")
	m.hasReturnValue = raw == "1" || raw == "true"
	return nil
}

func parametersEqual(a, b []ProcedureParameter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func parametersFromArgs(args []MutationArg) []ProcedureParameter {
	parameters := make([]ProcedureParameter, 0, len(args))
	for _, arg := range args {
		parameters = append(parameters, ProcedureParameter{Name: arg.Name, UUID: arg.ID})
	}
	return parameters
}

func parameterSummary(parameters []ProcedureParameter) string {
	if len(parameters) == 0 {
		return ""
	}
	names := make([]string, len(parameters))
	for i, param := range parameters {
		names[i] = param.Name
	}
	return "with: " + strings.Join(names, ", ")
}

func argInputName(i int) string { return fmt.Sprintf("%s%d", argInputPrefix, i) }
