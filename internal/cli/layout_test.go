package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestRunLayoutWritesReport(t *testing.T) {
	input := writeWorkspaceFile(t)
	output := filepath.Join(t.TempDir(), "report.json")

	c := newTestCLI()
	if err := c.runLayout(input, output, 0, false); err != nil {
		t.Fatalf("runLayout error: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var report layoutReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("parse report: %v", err)
	}

	if report.Workspace == "" {
		t.Error("report should carry the workspace UUID")
	}
	if report.Scale != 1 {
		t.Errorf("report.Scale = %v, want 1", report.Scale)
	}
	if len(report.Blocks) != 3 {
		t.Fatalf("report has %d blocks, want 3", len(report.Blocks))
	}
	if !sort.SliceIsSorted(report.Blocks, func(i, j int) bool {
		return report.Blocks[i].UUID < report.Blocks[j].UUID
	}) {
		t.Error("report blocks should be sorted by UUID")
	}

	byUUID := map[string]reportBlock{}
	for _, b := range report.Blocks {
		if b.Width <= 0 || b.Height <= 0 {
			t.Errorf("block %s has empty extent %vx%v", b.UUID, b.Width, b.Height)
		}
		byUUID[b.UUID] = b
	}

	number, ok := byUUID["n-1"]
	if !ok {
		t.Fatal("report is missing block n-1")
	}
	if number.X != 10 || number.Y != 20 {
		t.Errorf("n-1 at (%v, %v), want workspace position (10, 20)", number.X, number.Y)
	}
	if shadow := byUUID["s-1"]; !shadow.Shadow {
		t.Error("s-1 should be marked as a shadow block")
	}

	if report.Size.Width <= 0 || report.Size.Height <= 0 {
		t.Errorf("canvas size = %vx%v, want positive extents", report.Size.Width, report.Size.Height)
	}
}

func TestRunLayoutDefaultOutputPath(t *testing.T) {
	input := writeWorkspaceFile(t)

	c := newTestCLI()
	if err := c.runLayout(input, "", 0, false); err != nil {
		t.Fatalf("runLayout error: %v", err)
	}

	want := filepath.Join(filepath.Dir(input), "workspace.layout.json")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected report at %s: %v", want, err)
	}
}

func TestRunLayoutScales(t *testing.T) {
	input := writeWorkspaceFile(t)
	output := filepath.Join(t.TempDir(), "scaled.json")

	c := newTestCLI()
	if err := c.runLayout(input, output, 2, false); err != nil {
		t.Fatalf("runLayout error: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report layoutReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	if report.Scale != 2 {
		t.Errorf("report.Scale = %v, want 2", report.Scale)
	}
}

func TestRunLayoutRejectsNegativeScale(t *testing.T) {
	input := writeWorkspaceFile(t)

	c := newTestCLI()
	if err := c.runLayout(input, "", -1, false); err == nil {
		t.Error("runLayout should reject a negative scale")
	}
}

func TestRunLayoutMissingInput(t *testing.T) {
	c := newTestCLI()

	if err := c.runLayout(filepath.Join(t.TempDir(), "missing.xml"), "", 0, false); err == nil {
		t.Error("runLayout should fail for a missing input file")
	}
}
