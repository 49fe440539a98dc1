// Package layout maintains the geometry tree that mirrors a workspace's
// block graph, and the coordinator that keeps the two in sync.
//
// # Structure
//
// Every model object attached to a workspace has exactly one layout node:
//
//	WorkspaceLayout
//	└── BlockGroupLayout          one per top-level tree, ordered by z-index
//	    └── BlockLayout           the group's root block plus its next chain
//	        └── InputLayout       one per input row
//	            ├── FieldLayout   one per field
//	            └── BlockGroupLayout   the input's child slot (may be empty)
//
// Each node stores a position relative to its parent; absolute positions are
// derived by walking the ancestor chain. The tree carries no state that is
// not derivable from the block graph plus the engine's config and scale, so
// it can always be rebuilt from scratch by a [Builder].
//
// # Coordinator
//
// All structural mutation goes through [Coordinator]: connect, disconnect,
// add, remove, copy, field edits, and mutations. The coordinator updates the
// workspace and the layout tree in lockstep, materializes shadow blocks when
// connections become empty, keeps the [ConnectionManager]'s spatial index
// current, and records every change on its event sink. Mutating the
// workspace or the layout tree behind the coordinator's back leaves the two
// out of sync; nothing here re-validates that.
//
// Like the model packages, layout is single-goroutine code: drive a
// coordinator and everything under it from one goroutine.
package layout
