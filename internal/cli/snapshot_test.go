package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jheling/blockwork/pkg/store"
)

func TestRunSnapshotSaveAndList(t *testing.T) {
	ctx := context.Background()
	c := newTestCLI()
	st := store.NewMemoryStore()
	defer st.Close()
	path := writeWorkspaceFile(t)

	if err := c.runSnapshotSave(ctx, st, path, "before-refactor"); err != nil {
		t.Fatalf("runSnapshotSave() error: %v", err)
	}

	snaps, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("store has %d snapshots, want 1", len(snaps))
	}

	snap := snaps[0]
	if snap.ID == "" {
		t.Error("saved snapshot has no ID")
	}
	if snap.Name != "before-refactor" {
		t.Errorf("snapshot name = %q, want %q", snap.Name, "before-refactor")
	}
	if snap.BlockCount != 3 {
		t.Errorf("snapshot block count = %d, want 3", snap.BlockCount)
	}
	if !strings.Contains(snap.XML, `id="n-1"`) {
		t.Error("snapshot XML should contain the imported blocks")
	}
	if snap.UpdatedAt.IsZero() {
		t.Error("snapshot has no update timestamp")
	}

	if err := c.runSnapshotList(ctx, st); err != nil {
		t.Errorf("runSnapshotList() error: %v", err)
	}
}

func TestRunSnapshotSaveDefaultName(t *testing.T) {
	ctx := context.Background()
	c := newTestCLI()
	st := store.NewMemoryStore()
	defer st.Close()
	path := writeWorkspaceFile(t)

	if err := c.runSnapshotSave(ctx, st, path, ""); err != nil {
		t.Fatalf("runSnapshotSave() error: %v", err)
	}

	snaps, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("store has %d snapshots, want 1", len(snaps))
	}
	if snaps[0].Name != "workspace" {
		t.Errorf("default snapshot name = %q, want %q", snaps[0].Name, "workspace")
	}
}

func TestRunSnapshotSaveMissingFile(t *testing.T) {
	c := newTestCLI()
	st := store.NewMemoryStore()
	defer st.Close()

	missing := filepath.Join(t.TempDir(), "missing.xml")
	if err := c.runSnapshotSave(context.Background(), st, missing, ""); err == nil {
		t.Error("runSnapshotSave() should fail for a missing input file")
	}
}

func TestRunSnapshotListEmpty(t *testing.T) {
	c := newTestCLI()
	st := store.NewMemoryStore()
	defer st.Close()

	if err := c.runSnapshotList(context.Background(), st); err != nil {
		t.Errorf("runSnapshotList() on empty store error: %v", err)
	}
}

func TestRunSnapshotGetWritesFile(t *testing.T) {
	ctx := context.Background()
	c := newTestCLI()
	st := store.NewMemoryStore()
	defer st.Close()
	path := writeWorkspaceFile(t)

	if err := c.runSnapshotSave(ctx, st, path, "keep"); err != nil {
		t.Fatalf("runSnapshotSave() error: %v", err)
	}
	snaps, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}

	output := filepath.Join(t.TempDir(), "restored.xml")
	if err := c.runSnapshotGet(ctx, st, snaps[0].ID, output); err != nil {
		t.Fatalf("runSnapshotGet() error: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != snaps[0].XML {
		t.Error("restored file should match the stored XML")
	}
	if !strings.Contains(string(data), `type="text_print"`) {
		t.Error("restored XML should contain the original blocks")
	}
}

func TestRunSnapshotGetMissing(t *testing.T) {
	c := newTestCLI()
	st := store.NewMemoryStore()
	defer st.Close()

	err := c.runSnapshotGet(context.Background(), st, "no-such-id", "")
	if err == nil {
		t.Fatal("runSnapshotGet() should fail for an unknown ID")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %q, want it to mention not found", err)
	}
}

func TestRunSnapshotDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestCLI()
	st := store.NewMemoryStore()
	defer st.Close()
	path := writeWorkspaceFile(t)

	if err := c.runSnapshotSave(ctx, st, path, "doomed"); err != nil {
		t.Fatalf("runSnapshotSave() error: %v", err)
	}
	snaps, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}

	if err := c.runSnapshotDelete(ctx, st, snaps[0].ID); err != nil {
		t.Fatalf("runSnapshotDelete() error: %v", err)
	}

	snaps, err = st.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("store has %d snapshots after delete, want 0", len(snaps))
	}
}

func TestRunSnapshotDeleteMissing(t *testing.T) {
	c := newTestCLI()
	st := store.NewMemoryStore()
	defer st.Close()

	err := c.runSnapshotDelete(context.Background(), st, "no-such-id")
	if err == nil {
		t.Fatal("runSnapshotDelete() should fail for an unknown ID")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %q, want it to mention not found", err)
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{name: "zero", t: time.Time{}, want: "never"},
		{name: "minutes", t: now.Add(-30 * time.Minute), want: "30m ago"},
		{name: "hours", t: now.Add(-3 * time.Hour), want: "3h ago"},
		{name: "days", t: now.Add(-3 * 24 * time.Hour), want: "3d ago"},
		{name: "old", t: time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC), want: "Mar 5, 2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRelativeTime(tt.t); got != tt.want {
				t.Errorf("formatRelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}
