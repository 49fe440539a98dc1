package layout

import (
	"github.com/jheling/blockwork/pkg/block"
)

// BlockBumper nudges a block group away from a connection it overlaps, so a
// displaced chain that could not be re-spliced never sits exactly on top of
// its old neighbor.
type BlockBumper struct {
	layout  *WorkspaceLayout
	manager *ConnectionManager
}

func newBlockBumper(layout *WorkspaceLayout, manager *ConnectionManager) *BlockBumper {
	return &BlockBumper{layout: layout, manager: manager}
}

// BumpAwayFrom moves group diagonally in bump-distance steps until the
// group's plug connection is outside the snap radius of awayFrom. Attempts
// are capped; a group with no plug connection gets a single nudge.
func (b *BlockBumper) BumpAwayFrom(group *BlockGroupLayout, awayFrom *block.Connection) {
	if group == nil || awayFrom == nil {
		return
	}
	first := group.FirstBlockLayout()
	if first == nil {
		return
	}
	cfg := b.layout.Engine().Config()
	limit := cfg.ConnectionSnapRadius * cfg.ConnectionSnapRadius

	inferior := first.Block().InferiorConnection()
	for attempt := 0; attempt < 8; attempt++ {
		if inferior != nil && awayFrom.Position().DistanceTo(inferior.Position()) > limit {
			return
		}
		b.moveGroup(group, group.RelativePosition().Add(cfg.BlockBumpDistance, cfg.BlockBumpDistance))
		if inferior == nil {
			return
		}
	}
}

func (b *BlockBumper) moveGroup(group *BlockGroupLayout, position block.WorkspacePoint) {
	group.MoveToWorkspacePosition(position)
	if first := group.FirstBlockLayout(); first != nil {
		first.Block().SetPosition(position)
	}
	b.layout.PerformLayout()
}
