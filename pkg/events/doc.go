// Package events records workspace changes as replayable deltas.
//
// Mutating code enqueues events on a [Sink] as it works, then flushes once
// the operation completes. Flushing collapses chatter (consecutive moves of
// one block, repeated edits of one field) into single old-to-final deltas,
// discards deltas that changed nothing, and delivers the survivors to
// listeners in order.
//
// Grouping ties multi-step operations together. [Manager.Group] runs a
// closure inside a fresh group so that, for example, disconnecting a block
// and bumping its neighbours undoes as one step:
//
//	err := sink.Group(func() error {
//		return coordinator.Connect(a, b)
//	})
//
// [History] listens on a manager and maintains the undo and redo stacks.
// Every event knows its own inverse, so undo is nothing more than applying
// inverse events through an [Applier] in reverse order.
//
// There is no process-global sink. Code that records events takes a [Sink]
// argument, and each workbench wires up its own [Manager] and [History].
package events
