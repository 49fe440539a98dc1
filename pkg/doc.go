// Package pkg provides the core libraries for blockwork, a Blockly-style
// block-program graph engine.
//
// # Overview
//
// blockwork models visual block programs the way the web Blockly ecosystem
// does: blocks carry inputs, fields, and typed connections; workspaces hold
// trees of connected blocks; a layout engine derives pixel geometry from the
// model; an event log makes every mutation undoable. The pkg directory is
// organized into four main areas:
//
//  1. [block] + [workspace] - The model (blocks, connections, containers)
//  2. [layout] + [events] - Derived state (geometry sync, undo/redo history)
//  3. [io] + [store] + [render] - Serialization, persistence, visualization
//  4. [errors] + [observability] + [buildinfo] - Cross-cutting support
//
// # Architecture
//
// The typical data flow through blockwork:
//
//	Block definition JSON + workspace XML
//	         ↓
//	    [block] package (factory builds typed block trees)
//	         ↓
//	    [workspace] package (container enforcing tree invariants)
//	         ↓
//	    [layout] package (coordinator keeps geometry + events in lockstep)
//	         ↓
//	    XML / snapshot store / DOT / SVG / PNG output
//
// # Quick Start
//
// Load definitions, import a workspace, and compute its geometry:
//
//	import (
//	    "github.com/jheling/blockwork/pkg/block"
//	    blockio "github.com/jheling/blockwork/pkg/io"
//	    "github.com/jheling/blockwork/pkg/layout"
//	)
//
//	// 1. Load block definitions
//	factory := block.NewBlockFactory()
//	_ = factory.LoadDefaultDefinitions()
//
//	// 2. Import a workspace document
//	ws, _ := blockio.ImportWorkspace("program.xml", factory)
//
//	// 3. Build and measure the layout tree
//	engine, _ := layout.NewEngine(nil)
//	builder, _ := layout.NewBuilder(engine)
//	wl, _ := builder.BuildWorkspaceLayout(ws)
//	wl.PerformLayout()
//
// # Main Packages
//
// ## Model
//
// [block] - Block, Input, Field, and Connection types, the BlockBuilder, and
// the JSON definition factory. Fields and mutators are closed tagged
// variants; connections enforce the superior/inferior bonding rules.
//
// [workspace] - The Workspace container: UUID-keyed block map, capacity
// limit, all-or-nothing batch add/remove, deep copy, and listeners.
//
// ## Derived State
//
// [layout] - The geometry engine. A layout tree mirrors the model
// (workspace → group → block → input → field), PerformLayout measures
// bottom-up and positions top-down, and the WorkspaceLayoutCoordinator is
// the mutation front door that keeps model, geometry, connection tracking,
// and the event sink consistent for every operation.
//
// [events] - Change recording and undo/redo: Create/Delete/Move/Change
// event variants, the Manager sink with grouping and merge-on-flush, and
// History replaying inverse events through an Applier.
//
// ## Serialization, Persistence, Visualization
//
// [io] - The Blockly-namespace XML wire format: workspace and block-tree
// export/import plus toolbox documents.
//
// [store] - Workspace snapshots with memory, file, Redis, and Mongo
// backends behind one Store interface.
//
// [render] - Debug topology rendering: workspace → Graphviz DOT → SVG/PNG.
//
// ## Cross-Cutting
//
// [errors] - Structured errors with machine-readable codes.
//
// [observability] - Hook interfaces with no-op defaults for layout builds,
// store operations, and HTTP traffic.
//
// [buildinfo] - Version metadata injected at build time.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...              # All tests
//	go test ./pkg/layout/...       # Specific package
//	go test -run TestConnect ./... # Specific behavior
//
// [block]: https://pkg.go.dev/github.com/jheling/blockwork/pkg/block
// [workspace]: https://pkg.go.dev/github.com/jheling/blockwork/pkg/workspace
// [layout]: https://pkg.go.dev/github.com/jheling/blockwork/pkg/layout
// [events]: https://pkg.go.dev/github.com/jheling/blockwork/pkg/events
// [io]: https://pkg.go.dev/github.com/jheling/blockwork/pkg/io
// [store]: https://pkg.go.dev/github.com/jheling/blockwork/pkg/store
// [render]: https://pkg.go.dev/github.com/jheling/blockwork/pkg/render
// [errors]: https://pkg.go.dev/github.com/jheling/blockwork/pkg/errors
// [observability]: https://pkg.go.dev/github.com/jheling/blockwork/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/jheling/blockwork/pkg/buildinfo
package pkg
