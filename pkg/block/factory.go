package block

import (
	"embed"
	"encoding/json"
	"os"
	"path"
	"sort"

	"github.com/jheling/blockwork/pkg/errors"
)

// Definitions for the standard block library, embedded so a factory can be
// populated without external files.
//
//go:embed definitions/*.json
var defaultDefinitions embed.FS

// MutatorFactory constructs a fresh mutator prototype for a registered
// mutator name.
type MutatorFactory func() *Mutator

// Extension customizes a block right after construction, resolved by name
// from a definition's "extensions" list.
type Extension func(b *Block) error

// Mutator names resolvable from JSON definitions out of the box.
const (
	MutatorNameIfElse                     = "if_else_mutator"
	MutatorNameProcedureDefinition        = "procedure_definition_mutator"
	MutatorNameProcedureDefinitionReturns = "procedure_definition_returns_mutator"
	MutatorNameProcedureCaller            = "procedure_caller_mutator"
	MutatorNameIfReturn                   = "if_return_mutator"
)

// BlockFactory maps block type names to builders loaded from JSON
// definitions, and resolves the mutator and extension names those
// definitions reference.
type BlockFactory struct {
	builders   map[string]*BlockBuilder
	mutators   map[string]MutatorFactory
	extensions map[string]Extension
}

// NewBlockFactory creates a factory with the standard mutators registered
// and no definitions loaded.
func NewBlockFactory() *BlockFactory {
	f := &BlockFactory{
		builders:   make(map[string]*BlockBuilder),
		mutators:   make(map[string]MutatorFactory),
		extensions: make(map[string]Extension),
	}
	f.RegisterMutator(MutatorNameIfElse, NewMutatorIfElse)
	f.RegisterMutator(MutatorNameProcedureDefinition, func() *Mutator {
		return NewMutatorProcedureDefinition(false)
	})
	f.RegisterMutator(MutatorNameProcedureDefinitionReturns, func() *Mutator {
		return NewMutatorProcedureDefinition(true)
	})
	f.RegisterMutator(MutatorNameProcedureCaller, NewMutatorProcedureCaller)
	f.RegisterMutator(MutatorNameIfReturn, NewMutatorIfReturn)
	return f
}

// RegisterMutator makes a mutator constructor resolvable from definitions.
func (f *BlockFactory) RegisterMutator(name string, factory MutatorFactory) {
	f.mutators[name] = factory
}

// RegisterExtension makes an extension resolvable from definitions.
func (f *BlockFactory) RegisterExtension(name string, extension Extension) {
	f.extensions[name] = extension
}

// LoadDefinitions parses a JSON document holding one definition object or an
// array of them. Later definitions replace earlier ones of the same type
// name.
func (f *BlockFactory) LoadDefinitions(data []byte) error {
	var defs []map[string]any
	if err := json.Unmarshal(data, &defs); err != nil {
		var single map[string]any
		if err := json.Unmarshal(data, &single); err != nil {
			return errors.Wrap(errors.ErrCodeParseJSON, err,
				"block definitions are not valid JSON")
		}
		defs = []map[string]any{single}
	}
	for _, def := range defs {
		bb, err := f.builderFromDefinition(def)
		if err != nil {
			return err
		}
		f.builders[bb.Name] = bb
	}
	return nil
}

// LoadDefinitionsFromFile reads and parses one definition file.
func (f *BlockFactory) LoadDefinitionsFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeFileNotFound, err,
				"block definition file %q", filePath)
		}
		return errors.Wrap(errors.ErrCodeInternal, err,
			"reading block definition file %q", filePath)
	}
	if err := f.LoadDefinitions(data); err != nil {
		return errors.Wrap(errors.GetCode(err), err, "file %q", filePath)
	}
	return nil
}

// LoadDefaultDefinitions loads the embedded standard block library: logic,
// loops, math, text, colour, variables, and procedures.
func (f *BlockFactory) LoadDefaultDefinitions() error {
	entries, err := defaultDefinitions.ReadDir("definitions")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "embedded block definitions")
	}
	for _, entry := range entries {
		data, err := defaultDefinitions.ReadFile(path.Join("definitions", entry.Name()))
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err,
				"embedded block definitions: %s", entry.Name())
		}
		if err := f.LoadDefinitions(data); err != nil {
			return errors.Wrap(errors.GetCode(err), err, "file %q", entry.Name())
		}
	}
	return nil
}

// BlockNames returns the loaded block type names, sorted.
func (f *BlockFactory) BlockNames() []string {
	names := make([]string, 0, len(f.builders))
	for name := range f.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuilderForName returns the builder for a block type name.
func (f *BlockFactory) BuilderForName(name string) (*BlockBuilder, bool) {
	bb, ok := f.builders[name]
	return bb, ok
}

// MakeBlock builds a new block of the named type with a fresh UUID.
func (f *BlockFactory) MakeBlock(name string) (*Block, error) {
	return f.makeBlock(name, false, "")
}

// MakeBlockWithUUID builds a block of the named type with a caller-chosen
// UUID, optionally as a shadow block. Used by deserialization.
func (f *BlockFactory) MakeBlockWithUUID(name, uuidString string, shadow bool) (*Block, error) {
	return f.makeBlock(name, shadow, uuidString)
}

func (f *BlockFactory) makeBlock(name string, shadow bool, uuidString string) (*Block, error) {
	bb, ok := f.builders[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidArgument,
			"no block definition named %q", name)
	}
	b, err := bb.MakeBlock(shadow, uuidString)
	if err != nil {
		return nil, err
	}
	if b.mutator != nil {
		if err := b.mutator.MutateBlock(); err != nil {
			return nil, err
		}
	}
	for _, extension := range bb.extensions {
		if err := extension(b); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDefinition, err,
				"extension on block %q", name)
		}
	}
	return b, nil
}
