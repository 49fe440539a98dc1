package store

import (
	"context"
	"time"

	"github.com/jheling/blockwork/pkg/observability"
)

// Instrumented wraps a Store and reports every operation through the
// registered observability hooks.
type Instrumented struct {
	inner   Store
	backend string
}

// Instrument wraps a store so its operations emit observability events.
// The backend name tags the events ("memory", "file", "redis", "mongo").
func Instrument(inner Store, backend string) *Instrumented {
	return &Instrumented{inner: inner, backend: backend}
}

func (s *Instrumented) Put(ctx context.Context, snap *Snapshot) error {
	start := time.Now()
	err := s.inner.Put(ctx, snap)
	observability.Store().OnPut(ctx, s.backend, time.Since(start), err)
	return err
}

func (s *Instrumented) Get(ctx context.Context, id string) (*Snapshot, error) {
	start := time.Now()
	snap, err := s.inner.Get(ctx, id)
	observability.Store().OnGet(ctx, s.backend, time.Since(start), err)
	return snap, err
}

func (s *Instrumented) List(ctx context.Context) ([]*Snapshot, error) {
	start := time.Now()
	snaps, err := s.inner.List(ctx)
	observability.Store().OnList(ctx, s.backend, len(snaps), time.Since(start), err)
	return snaps, err
}

func (s *Instrumented) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, id)
	observability.Store().OnDelete(ctx, s.backend, time.Since(start), err)
	return err
}

func (s *Instrumented) Close() error {
	return s.inner.Close()
}

var _ Store = (*Instrumented)(nil)
