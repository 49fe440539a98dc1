package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps snapshots in an in-process map.
// Useful for development, testing, and single-run tooling.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]*Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]*Snapshot)}
}

func (s *MemoryStore) Put(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(snap)
	// Store a copy so later caller mutations don't leak in.
	stored := *snap
	s.snaps[snap.ID] = &stored
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.snaps[id]
	if !ok {
		return nil, ErrNotFound
	}
	snap := *stored
	return &snap, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Snapshot, 0, len(s.snaps))
	for _, stored := range s.snaps {
		snap := *stored
		out = append(out, &snap)
	}
	sort.Slice(out, func(i, j int) bool { return byRecency(out[i], out[j]) })
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snaps[id]; !ok {
		return ErrNotFound
	}
	delete(s.snaps, id)
	return nil
}

// Close does nothing for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
