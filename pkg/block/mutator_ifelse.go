package block

import (
	"fmt"
	"strconv"

	"github.com/jheling/blockwork/pkg/errors"
)

// Input names owned by the if/else mutator. The base IF/DO pair belongs to
// the block definition; the mutator owns IF1/DO1 upward and ELSE.
const (
	ifInputPrefix = "IF"
	doInputPrefix = "DO"
	elseInputName = "ELSE"
	booleanCheck  = "Boolean"
)

// ElseIfCount returns the desired number of else-if arms.
func (m *Mutator) ElseIfCount() int { return m.elseIfCount }

// AppliedElseIfCount returns the number of else-if arms present on the
// block.
func (m *Mutator) AppliedElseIfCount() int { return m.appliedElseIfCount }

// SetElseIfCount records the desired number of else-if arms. The block is
// reshaped on the next MutateBlock.
func (m *Mutator) SetElseIfCount(count int) error {
	if m.kind != MutatorIfElse {
		return m.wrongKindError("SetElseIfCount")
	}
	if count < 0 {
		return errors.New(errors.ErrCodeInvalidArgument,
			"else-if count must not be negative, got %d", count)
	}
	m.elseIfCount = count
	return nil
}

// ElseStatement reports whether an else arm is desired.
func (m *Mutator) ElseStatement() bool { return m.elseStatement }

// AppliedElseStatement reports whether an else arm is present on the block.
func (m *Mutator) AppliedElseStatement() bool { return m.appliedElseStatement }

// SetElseStatement records whether an else arm is desired.
func (m *Mutator) SetElseStatement(present bool) error {
	if m.kind != MutatorIfElse {
		return m.wrongKindError("SetElseStatement")
	}
	m.elseStatement = present
	return nil
}

// mutateIfElse reconciles the block's else-if and else inputs with the
// desired configuration. Input names are re-derived from indices on every
// pass, so leftover inputs from a previously interrupted reshape are swept
// up rather than duplicated. The ELSE input is detached first and appended
// last so it always trails the numbered arms.
func (m *Mutator) mutateIfElse() error {
	if m.elseIfCount == m.appliedElseIfCount && m.elseStatement == m.appliedElseStatement {
		return nil
	}
	b := m.block

	if elseInput := b.FirstInput(elseInputName); elseInput != nil {
		if err := b.RemoveInput(elseInput); err != nil {
			return err
		}
	}
	for i := m.elseIfCount + 1; ; i++ {
		ifInput := b.FirstInput(ifInputName(i))
		doInput := b.FirstInput(doInputName(i))
		if ifInput == nil && doInput == nil {
			break
		}
		if ifInput != nil {
			if err := b.RemoveInput(ifInput); err != nil {
				return err
			}
		}
		if doInput != nil {
			if err := b.RemoveInput(doInput); err != nil {
				return err
			}
		}
	}
	for i := 1; i <= m.elseIfCount; i++ {
		if b.FirstInput(ifInputName(i)) == nil {
			input := NewInput(InputTypeValue, ifInputName(i))
			input.connection.typeChecks = []string{booleanCheck}
			input.AppendField(NewFieldLabel("", "else if"))
			b.AppendInput(input)
		}
		if b.FirstInput(doInputName(i)) == nil {
			input := NewInput(InputTypeStatement, doInputName(i))
			input.AppendField(NewFieldLabel("", "do"))
			b.AppendInput(input)
		}
	}
	if m.elseStatement {
		input := NewInput(InputTypeStatement, elseInputName)
		input.AppendField(NewFieldLabel("", "else"))
		b.AppendInput(input)
	}

	m.appliedElseIfCount = m.elseIfCount
	m.appliedElseStatement = m.elseStatement
	return nil
}

func (m *Mutator) sortedIfElseInputs() []*Input {
	var inputs []*Input
	for i := 1; i <= m.appliedElseIfCount; i++ {
		if input := m.block.FirstInput(ifInputName(i)); input != nil {
			inputs = append(inputs, input)
		}
		if input := m.block.FirstInput(doInputName(i)); input != nil {
			inputs = append(inputs, input)
		}
	}
	if m.appliedElseStatement {
		if input := m.block.FirstInput(elseInputName); input != nil {
			inputs = append(inputs, input)
		}
	}
	return inputs
}

func (m *Mutator) ifElseMutation() *Mutation {
	if m.appliedElseIfCount == 0 && !m.appliedElseStatement {
		return nil
	}
	mutation := &Mutation{}
	if m.appliedElseIfCount > 0 {
		mutation.setAttribute("elseif", strconv.Itoa(m.appliedElseIfCount))
	}
	if m.appliedElseStatement {
		mutation.setAttribute("else", "1")
	}
	return mutation
}

func (m *Mutator) updateIfElse(mutation *Mutation) error {
	elseIfCount := 0
	if raw, ok := mutation.Attribute("elseif"); ok {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return errors.New(errors.ErrCodeParseXML,
				"mutation attribute elseif has invalid value %q", raw)
		}
		elseIfCount = parsed
	}
	elseStatement := false
	if raw, ok := mutation.Attribute("else"); ok {
		elseStatement = raw == "1" || raw == "true"
	}
	m.elseIfCount = elseIfCount
	m.elseStatement = elseStatement
	return nil
}

func (m *Mutator) wrongKindError(op string) error {
	return errors.New(errors.ErrCodeIllegalState,
		"%s called on mutator of kind %s", op, m.kind)
}

func ifInputName(i int) string { return fmt.Sprintf("%s%d", ifInputPrefix, i) }
func doInputName(i int) string { return fmt.Sprintf("%s%d", doInputPrefix, i) }
