package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	blockio "github.com/jheling/blockwork/pkg/io"
	"github.com/jheling/blockwork/pkg/layout"
)

// layoutCommand creates the layout command for computing block geometry.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		scale  float64
		rtl    bool
	)

	cmd := &cobra.Command{
		Use:   "layout [workspace.xml]",
		Short: "Compute block geometry for a workspace document",
		Long: `Compute block geometry for a workspace document.

The layout command measures every block in the workspace, positions each
top-level chain at its stored workspace position, and writes a layout
report with the absolute position and extent of every block, plus the
workspace's total canvas size. The report is JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(args[0], output, scale, rtl)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().Float64Var(&scale, "scale", 0, "workspace-to-view scale (default 1)")
	cmd.Flags().BoolVar(&rtl, "rtl", false, "lay out right to left")

	return cmd
}

// runLayout loads the workspace, computes the layout, and writes the report.
func (c *CLI) runLayout(input, output string, scale float64, rtl bool) error {
	f, err := c.newFactory()
	if err != nil {
		return err
	}

	ws, err := blockio.ImportWorkspace(input, f)
	if err != nil {
		return fmt.Errorf("load workspace %s: %w", input, err)
	}

	engine, err := layout.NewEngine(&layout.EngineOptions{Scale: scale, RTL: rtl})
	if err != nil {
		return fmt.Errorf("configure engine: %w", err)
	}
	builder, err := layout.NewBuilder(engine)
	if err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	wl, err := builder.BuildWorkspaceLayout(ws)
	if err != nil {
		return fmt.Errorf("compute layout: %w", err)
	}
	wl.PerformLayout()
	prog.done(fmt.Sprintf("Laid out %d blocks", len(ws.AllBlocks())))

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + ".layout.json"
	}

	report := buildLayoutReport(wl, engine)
	if err := writeLayoutReport(report, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	shadows := 0
	for _, b := range ws.AllBlocks() {
		if b.Shadow() {
			shadows++
		}
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(ws.AllBlocks()), len(ws.TopLevelBlocks()), shadows)
	printNewline()
	printNextStep("Render", "blockwork render "+input)

	return nil
}

// =============================================================================
// Layout Report
// =============================================================================

// layoutReport is the JSON document written by the layout command.
type layoutReport struct {
	Workspace string        `json:"workspace"`
	Scale     float64       `json:"scale"`
	RTL       bool          `json:"rtl,omitempty"`
	Size      reportSize    `json:"size"`
	Blocks    []reportBlock `json:"blocks"`
}

type reportSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// reportBlock carries one block's absolute geometry in workspace units.
type reportBlock struct {
	UUID   string  `json:"uuid"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Shadow bool    `json:"shadow,omitempty"`
}

// buildLayoutReport flattens a computed workspace layout into report form.
// Blocks are ordered by UUID so the report is stable across runs.
func buildLayoutReport(wl *layout.WorkspaceLayout, engine *layout.Engine) layoutReport {
	report := layoutReport{
		Workspace: wl.Workspace().UUID(),
		Scale:     engine.Scale(),
		RTL:       engine.RTL(),
		Size: reportSize{
			Width:  wl.Size().Width,
			Height: wl.Size().Height,
		},
	}

	for _, bl := range wl.AllBlockLayouts() {
		pos := bl.AbsolutePosition()
		size := bl.Size()
		report.Blocks = append(report.Blocks, reportBlock{
			UUID:   bl.Block().UUID(),
			Name:   bl.Block().Name(),
			X:      pos.X,
			Y:      pos.Y,
			Width:  size.Width,
			Height: size.Height,
			Shadow: bl.Block().Shadow(),
		})
	}
	sort.Slice(report.Blocks, func(i, j int) bool {
		return report.Blocks[i].UUID < report.Blocks[j].UUID
	})

	return report
}

// writeLayoutReport writes the report to path as indented JSON.
func writeLayoutReport(report layoutReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
