// Package store persists workspace snapshots.
//
// A Snapshot freezes a workspace as its XML document plus bookkeeping
// metadata (name, block count, timestamps). The Store interface supports
// Put/Get/List/Delete and has implementations for different backends:
//   - memory: in-process storage for development/testing
//   - file: JSON files in a directory for CLI usage
//   - redis: Redis-backed storage for multi-instance deployments
//   - mongo: MongoDB-backed storage for durable deployments
//
// # Usage
//
// Capture and store a workspace:
//
//	snap, err := store.Capture(ws, "before refactor")
//	if err != nil {
//	    return err
//	}
//	if err := st.Put(ctx, snap); err != nil {
//	    return err
//	}
//
// Restore it later:
//
//	snap, err := st.Get(ctx, id)
//	if err != nil {
//	    return err
//	}
//	ws, err := io.ReadWorkspace(strings.NewReader(snap.XML), factory)
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jheling/blockwork/pkg/io"
	"github.com/jheling/blockwork/pkg/workspace"
)

// Sentinel errors for snapshot storage.
var (
	// ErrNotFound is returned when a requested snapshot does not exist.
	ErrNotFound = errors.New("snapshot not found")
)

// IsNotFound reports whether err means a snapshot was absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Snapshot is a stored workspace: the serialized XML document plus metadata.
type Snapshot struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	WorkspaceID string    `json:"workspace_id" bson:"workspace_id"`
	XML         string    `json:"xml" bson:"xml"`
	BlockCount  int       `json:"block_count" bson:"block_count"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Store is the interface for snapshot storage backends.
//
// All implementations are safe for concurrent use.
type Store interface {
	// Put stores a snapshot, overwriting any existing snapshot with the
	// same ID. UpdatedAt is stamped on every call; CreatedAt only when it
	// is still zero.
	Put(ctx context.Context, snap *Snapshot) error

	// Get retrieves a snapshot by ID.
	// Returns ErrNotFound if no snapshot with that ID exists.
	Get(ctx context.Context, id string) (*Snapshot, error)

	// List returns all snapshots, most recently updated first.
	List(ctx context.Context) ([]*Snapshot, error)

	// Delete removes a snapshot.
	// Returns ErrNotFound if no snapshot with that ID exists.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

// Capture serializes the workspace into a new snapshot with a fresh ID.
// The snapshot is not stored; pass it to a Store's Put.
func Capture(ws *workspace.Workspace, name string) (*Snapshot, error) {
	data, err := io.MarshalWorkspace(ws)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		ID:          uuid.New().String(),
		Name:        name,
		WorkspaceID: ws.UUID(),
		XML:         string(data),
		BlockCount:  len(ws.AllBlocks()),
	}, nil
}

// stamp fills in the snapshot's timestamps for a Put.
func stamp(snap *Snapshot) {
	now := time.Now().UTC()
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = now
	}
	snap.UpdatedAt = now
}

// byRecency orders snapshots most recently updated first, falling back to
// ID so listings are stable when timestamps collide.
func byRecency(a, b *Snapshot) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID < b.ID
}
