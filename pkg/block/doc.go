// Package block provides the program graph model: blocks, inputs, fields,
// and the connections linking them into trees.
//
// # Overview
//
// A program is a forest of block trees. Each [Block] carries an ordered list
// of [Input] rows; each input holds display [Field] values and, for value
// and statement inputs, a [Connection] that accepts a child block. Blocks
// chain vertically through previous/next connections and nest horizontally
// through input/output connections. Shadow blocks occupy connections as
// placeholders and are displaced the moment something real connects.
//
// # Building Blocks
//
// Blocks are built from JSON definitions loaded into a [BlockFactory]:
//
//	factory := block.NewBlockFactory()
//	if err := factory.LoadDefaultDefinitions(); err != nil { ... }
//	b, err := factory.MakeBlock("controls_if")
//
// A definition's message strings ("if %1", "do %1") interpolate into label
// fields and inputs; its mutator and extension names resolve against the
// factory's registries at load time. [BlockBuilder] is the lower-level
// template used by the factory, available directly for programmatic block
// shapes.
//
// # Connections
//
// [Connection.ConnectTo] validates before linking and reports every violated
// rule at once in a [CheckResult] bit set: self-connection, wrong type,
// incompatible type checks, already-connected, shadow mismatches. Successful
// connects link both sides symmetrically; [Connection.Disconnect] unlinks
// them. Shadow links follow the same shape through
// [Connection.ConnectShadowTo] with one extra rule: the inferior side must
// belong to a shadow block and the superior side must not.
//
// # Mutators
//
// A [Mutator] reshapes its block's inputs from staged configuration: setters
// record the desired shape, [Mutator.MutateBlock] reconciles the block to
// match and marks the configuration applied. Serialization persists only
// applied state. The four variants (if/else arity, procedure definition,
// procedure caller, early return) are a closed set dispatched by
// [MutatorKind].
//
// # Concurrency
//
// The model is single-threaded by design. All mutation is expected to run on
// one goroutine; see the workspace and layout packages for the orchestration
// that keeps higher-level structures in sync.
package block
