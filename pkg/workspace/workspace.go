// Package workspace provides the top-level container for block trees. A
// [Workspace] holds complete trees keyed by block UUID, enforces an optional
// capacity limit, and notifies listeners around batch additions and removals
// so that layout and event layers can stay in sync.
package workspace

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jheling/blockwork/pkg/block"
	"github.com/jheling/blockwork/pkg/errors"
)

// Listener is notified around batch additions and removals of block trees.
// Will callbacks fire before any mutation, Did callbacks after the whole
// batch committed.
type Listener interface {
	WorkspaceWillAddBlockTrees(w *Workspace, roots []*block.Block)
	WorkspaceDidAddBlockTrees(w *Workspace, roots []*block.Block)
	WorkspaceWillRemoveBlockTrees(w *Workspace, roots []*block.Block)
	WorkspaceDidRemoveBlockTrees(w *Workspace, roots []*block.Block)
}

// Options configures a workspace.
type Options struct {
	// UUID identifies the workspace; assigned when empty.
	UUID string
	// MaxBlocks caps the total number of blocks, shadow blocks included.
	// Zero means unlimited.
	MaxBlocks int
	// ReadOnly marks the workspace as not user-editable. Programmatic
	// mutation stays possible; the flag gates editing surfaces.
	ReadOnly bool
}

// ValidateAndSetDefaults checks option consistency and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.MaxBlocks < 0 {
		return errors.New(errors.ErrCodeInvalidArgument,
			"maxBlocks must not be negative, got %d", o.MaxBlocks)
	}
	if o.UUID == "" {
		o.UUID = uuid.NewString()
	}
	return nil
}

// Workspace is the top-level container for block trees. It enforces UUID
// uniqueness across all contained blocks and an optional capacity limit, and
// only accepts whole trees rooted at top-level non-shadow blocks.
type Workspace struct {
	uuid      string
	maxBlocks int
	readOnly  bool
	blocks    map[string]*block.Block
	listeners []Listener
}

// New creates an empty workspace. A nil opts uses defaults.
func New(opts *Options) (*Workspace, error) {
	if opts == nil {
		opts = &Options{}
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Workspace{
		uuid:      opts.UUID,
		maxBlocks: opts.MaxBlocks,
		readOnly:  opts.ReadOnly,
		blocks:    make(map[string]*block.Block),
	}, nil
}

// UUID returns the workspace's identifier.
func (w *Workspace) UUID() string { return w.uuid }

// MaxBlocks returns the capacity limit, zero meaning unlimited.
func (w *Workspace) MaxBlocks() int { return w.maxBlocks }

// ReadOnly reports whether the workspace is user-editable.
func (w *Workspace) ReadOnly() bool { return w.readOnly }

// BlockCount returns the number of contained blocks, shadows included.
func (w *Workspace) BlockCount() int { return len(w.blocks) }

// BlockByUUID returns the contained block with the given UUID.
func (w *Workspace) BlockByUUID(id string) (*block.Block, bool) {
	b, ok := w.blocks[id]
	return b, ok
}

// ContainsBlock reports whether the exact block instance is contained.
func (w *Workspace) ContainsBlock(b *block.Block) bool {
	if b == nil {
		return false
	}
	contained, ok := w.blocks[b.UUID()]
	return ok && contained == b
}

// AllBlocks returns every contained block, ordered by UUID for determinism.
func (w *Workspace) AllBlocks() []*block.Block {
	blocks := make([]*block.Block, 0, len(w.blocks))
	for _, b := range w.blocks {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].UUID() < blocks[j].UUID() })
	return blocks
}

// TopLevelBlocks returns the roots of all contained trees, ordered by UUID.
func (w *Workspace) TopLevelBlocks() []*block.Block {
	var roots []*block.Block
	for _, b := range w.AllBlocks() {
		if b.TopLevel() && !b.Shadow() {
			roots = append(roots, b)
		}
	}
	return roots
}

// VariableBlocks returns every contained block with a variable field
// referencing name, compared case-insensitively, sorted by UUID.
func (w *Workspace) VariableBlocks(name string) []*block.Block {
	var out []*block.Block
	for _, b := range w.AllBlocks() {
		if referencesVariable(b, name) {
			out = append(out, b)
		}
	}
	return out
}

func referencesVariable(b *block.Block, name string) bool {
	for _, input := range b.Inputs() {
		for _, field := range input.Fields() {
			if field.Kind() == block.FieldVariable && strings.EqualFold(field.Text(), name) {
				return true
			}
		}
	}
	return false
}

// AddBlockTree adds one tree rooted at root.
func (w *Workspace) AddBlockTree(root *block.Block) error {
	return w.AddBlockTrees([]*block.Block{root})
}

// AddBlockTrees adds whole trees in one batch. Every root must be a
// top-level, non-shadow block not yet contained; no UUID may collide with a
// contained block or another block in the batch; the batch must fit the
// capacity limit. Any violation aborts the entire batch with no mutation.
func (w *Workspace) AddBlockTrees(roots []*block.Block) error {
	seen := make(map[string]bool)
	var batch []*block.Block
	for _, root := range roots {
		if root == nil {
			return errors.New(errors.ErrCodeInvalidArgument, "cannot add a nil block tree")
		}
		if root.Shadow() {
			return errors.New(errors.ErrCodeIllegalState,
				"shadow block %s cannot be a workspace root", root)
		}
		if !root.TopLevel() {
			return errors.New(errors.ErrCodeIllegalState,
				"block %s is connected to a parent and cannot be added as a tree root", root)
		}
		for _, b := range root.AllBlocksForTree() {
			if _, exists := w.blocks[b.UUID()]; exists {
				return errors.New(errors.ErrCodeIllegalState,
					"workspace already contains a block with uuid %q", b.UUID())
			}
			if seen[b.UUID()] {
				return errors.New(errors.ErrCodeIllegalState,
					"duplicate uuid %q within one batch", b.UUID())
			}
			seen[b.UUID()] = true
			batch = append(batch, b)
		}
	}
	if w.maxBlocks > 0 && len(w.blocks)+len(batch) > w.maxBlocks {
		return errors.New(errors.ErrCodeCapacityExceeded,
			"adding %d blocks would exceed the workspace capacity of %d",
			len(batch), w.maxBlocks)
	}

	for _, l := range w.listeners {
		l.WorkspaceWillAddBlockTrees(w, roots)
	}
	for _, b := range batch {
		w.blocks[b.UUID()] = b
	}
	for _, l := range w.listeners {
		l.WorkspaceDidAddBlockTrees(w, roots)
	}
	return nil
}

// RemoveBlockTree removes one tree rooted at root.
func (w *Workspace) RemoveBlockTree(root *block.Block) error {
	return w.RemoveBlockTrees([]*block.Block{root})
}

// RemoveBlockTrees removes whole trees in one batch. Every root must be
// contained and top-level; callers disconnect blocks before removing them.
func (w *Workspace) RemoveBlockTrees(roots []*block.Block) error {
	for _, root := range roots {
		if root == nil {
			return errors.New(errors.ErrCodeInvalidArgument, "cannot remove a nil block tree")
		}
		if !w.ContainsBlock(root) {
			return errors.New(errors.ErrCodeIllegalState,
				"block %s is not in this workspace", root)
		}
		if !root.TopLevel() {
			return errors.New(errors.ErrCodeIllegalState,
				"block %s is still connected to a parent; disconnect it before removing", root)
		}
	}

	for _, l := range w.listeners {
		l.WorkspaceWillRemoveBlockTrees(w, roots)
	}
	for _, root := range roots {
		for _, b := range root.AllBlocksForTree() {
			delete(w.blocks, b.UUID())
		}
	}
	for _, l := range w.listeners {
		l.WorkspaceDidRemoveBlockTrees(w, roots)
	}
	return nil
}

// RemoveAllBlocks removes every contained tree.
func (w *Workspace) RemoveAllBlocks() error {
	roots := w.TopLevelBlocks()
	if len(roots) == 0 {
		return nil
	}
	return w.RemoveBlockTrees(roots)
}

// CopyBlockTree deep-copies a tree, applies the editable flag uniformly to
// the copies, places the copy root at position, adds it, and returns it.
func (w *Workspace) CopyBlockTree(root *block.Block, editable bool, position block.WorkspacePoint) (*block.Block, error) {
	if root == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "cannot copy a nil block tree")
	}
	result, err := root.DeepCopy()
	if err != nil {
		return nil, err
	}
	for _, b := range result.AllBlocks {
		b.SetEditable(editable)
	}
	result.Root.SetPosition(position)
	if err := w.AddBlockTree(result.Root); err != nil {
		return nil, err
	}
	return result.Root, nil
}

// DeactivateBlockTrees disables and locks every tree holding more than
// groupSize blocks, and re-enables trees at or under the threshold. Used to
// cap the complexity of toolbox and trash groups; fully reversible.
func (w *Workspace) DeactivateBlockTrees(groupSize int) {
	for _, root := range w.TopLevelBlocks() {
		blocks := root.AllBlocksForTree()
		deactivate := len(blocks) > groupSize
		for _, b := range blocks {
			b.SetDisabled(deactivate)
			b.SetMovable(!deactivate)
		}
	}
}

// AddListener subscribes to batch add/remove notifications.
func (w *Workspace) AddListener(l Listener) {
	w.listeners = append(w.listeners, l)
}

// RemoveListener unsubscribes a previously added listener.
func (w *Workspace) RemoveListener(l Listener) {
	for i, candidate := range w.listeners {
		if candidate == l {
			w.listeners = append(w.listeners[:i], w.listeners[i+1:]...)
			return
		}
	}
}
