package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	blockio "github.com/jheling/blockwork/pkg/io"
	"github.com/jheling/blockwork/pkg/render"
)

// Output formats supported by the render command.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPNG = "png"
)

// ValidFormats is the set of formats accepted by --format.
var ValidFormats = map[string]bool{
	FormatDOT: true,
	FormatSVG: true,
	FormatPNG: true,
}

// renderCommand creates the render command for drawing workspace graphs.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		detailed   bool
	)

	cmd := &cobra.Command{
		Use:   "render [workspace.xml]",
		Short: "Render a workspace document as a connection graph",
		Long: `Render a workspace document as a connection graph.

Each block becomes a node and each connection an edge: next connections
are unlabeled, input connections carry the input name, and shadow blocks
are drawn dashed. Graphviz lays out the result.

The dot format writes the graph source itself, which other Graphviz
tools can consume directly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := parseFormats(formatsStr)
			if err := validateFormats(formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], formats, output, detailed)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, png (comma-separated)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include block UUIDs and field values in node labels")

	return cmd
}

// runRender loads the workspace and writes one file per requested format.
func (c *CLI) runRender(ctx context.Context, input string, formats []string, output string, detailed bool) error {
	f, err := c.newFactory()
	if err != nil {
		return err
	}

	ws, err := blockio.ImportWorkspace(input, f)
	if err != nil {
		return fmt.Errorf("load workspace %s: %w", input, err)
	}

	dot := render.ToDOT(ws, render.Options{Detailed: detailed})

	base := output
	if base == "" {
		base = strings.TrimSuffix(input, filepath.Ext(input))
	}
	// A single format with an explicit output writes exactly there; otherwise
	// the format becomes the extension.
	explicitSingle := output != "" && len(formats) == 1

	var written []string
	for _, format := range formats {
		data, err := renderDocument(ctx, dot, format)
		if err != nil {
			return fmt.Errorf("render %s: %w", format, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		path := base + "." + format
		if explicitSingle {
			path = output
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write output %s: %w", path, err)
		}
		written = append(written, path)
	}

	printSuccess("Rendered %s", strings.Join(formats, ", "))
	for _, p := range written {
		printFile(p)
	}
	return nil
}

// renderDocument produces the bytes for one output format. Graphviz formats
// run behind a spinner since layout can take a moment on large workspaces.
func renderDocument(ctx context.Context, dot, format string) ([]byte, error) {
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG, FormatPNG:
		spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", strings.ToUpper(format)))
		spinner.Start()

		var data []byte
		var err error
		if format == FormatSVG {
			data, err = render.RenderSVG(dot)
		} else {
			data, err = render.RenderPNG(dot)
		}
		if err != nil {
			spinner.StopWithError("Render failed")
			return nil, err
		}
		spinner.Stop()
		return data, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{FormatSVG}
	}
	return strings.Split(s, ",")
}

// validateFormats checks that every requested format is supported.
func validateFormats(formats []string) error {
	for _, f := range formats {
		if !ValidFormats[f] {
			return fmt.Errorf("unknown format %q (use dot, svg, or png)", f)
		}
	}
	return nil
}
