package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty defaults to svg", "", []string{"svg"}},
		{"single format", "dot", []string{"dot"}},
		{"multiple formats", "dot,svg,png", []string{"dot", "svg", "png"}},
		{"png only", "png", []string{"png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormats(tt.input)
			if len(got) != len(tt.want) {
				t.Errorf("parseFormats(%q) length = %d, want %d", tt.input, len(got), len(tt.want))
				return
			}
			for i, v := range got {
				if v != tt.want[i] {
					t.Errorf("parseFormats(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
				}
			}
		})
	}
}

func TestValidateFormats(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		wantErr bool
	}{
		{"valid dot", []string{"dot"}, false},
		{"valid svg", []string{"svg"}, false},
		{"valid png", []string{"png"}, false},
		{"valid multiple", []string{"dot", "svg", "png"}, false},
		{"invalid format", []string{"pdf"}, true},
		{"mixed valid invalid", []string{"svg", "pdf"}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFormats(tt.formats)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFormats(%v) error = %v, wantErr %v", tt.formats, err, tt.wantErr)
			}
		})
	}
}

func TestRunRenderDOT(t *testing.T) {
	input := writeWorkspaceFile(t)
	output := filepath.Join(t.TempDir(), "graph.dot")

	c := newTestCLI()
	if err := c.runRender(context.Background(), input, []string{FormatDOT}, output, false); err != nil {
		t.Fatalf("runRender error: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	dot := string(data)
	if !strings.Contains(dot, "digraph blockwork {") {
		t.Error("output should contain the graph header")
	}
	for _, id := range []string{"n-1", "p-1", "s-1"} {
		if !strings.Contains(dot, `"`+id+`"`) {
			t.Errorf("output should mention block %s", id)
		}
	}
}

func TestRunRenderDefaultOutputPath(t *testing.T) {
	input := writeWorkspaceFile(t)

	c := newTestCLI()
	if err := c.runRender(context.Background(), input, []string{FormatDOT}, "", false); err != nil {
		t.Fatalf("runRender error: %v", err)
	}

	want := strings.TrimSuffix(input, ".xml") + ".dot"
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected output at %s: %v", want, err)
	}
}

func TestRunRenderDetailed(t *testing.T) {
	input := writeWorkspaceFile(t)
	output := filepath.Join(t.TempDir(), "graph.dot")

	c := newTestCLI()
	if err := c.runRender(context.Background(), input, []string{FormatDOT}, output, true); err != nil {
		t.Fatalf("runRender error: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "uuid: n-1") {
		t.Error("detailed output should include block UUID labels")
	}
}

func TestRunRenderMissingInput(t *testing.T) {
	c := newTestCLI()

	err := c.runRender(context.Background(), filepath.Join(t.TempDir(), "missing.xml"), []string{FormatDOT}, "", false)
	if err == nil {
		t.Error("runRender should fail for a missing input file")
	}
}
