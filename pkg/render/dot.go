package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jheling/blockwork/pkg/block"
	"github.com/jheling/blockwork/pkg/workspace"
)

// Options configures DOT generation.
type Options struct {
	// Detailed includes block UUIDs and field values in node labels.
	// When false, only the definition name is shown.
	Detailed bool
}

// ToDOT converts a workspace to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG] or [RenderPNG].
//
// Top-level trees become clusters labeled by their root UUID. Shadow
// blocks are rendered with dashed outlines and grey fill, and the bond
// holding a shadow is a dashed edge; real bonds are solid and carry the
// input name (chain bonds are unlabeled).
func ToDOT(ws *workspace.Workspace, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph blockwork {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")

	for i, root := range ws.TopLevelBlocks() {
		fmt.Fprintf(&buf, "\n  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&buf, "    label=%q;\n", root.UUID())
		buf.WriteString("    style=dotted;\n")
		writeTree(&buf, root, opts)
		buf.WriteString("  }\n")
	}

	buf.WriteString("}\n")
	return buf.String()
}

// writeTree emits the node lines and edge lines for one tree, depth-first
// in input order so output is deterministic.
func writeTree(buf *bytes.Buffer, b *block.Block, opts Options) {
	attrs := []string{fmt.Sprintf("label=%q", nodeLabel(b, opts.Detailed))}
	if b.Shadow() {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	}
	fmt.Fprintf(buf, "    %q [%s];\n", b.UUID(), strings.Join(attrs, ", "))

	for _, in := range b.Inputs() {
		conn := in.Connection()
		if conn == nil {
			continue
		}
		if shadow := conn.ShadowBlock(); shadow != nil {
			writeTree(buf, shadow, opts)
			fmt.Fprintf(buf, "    %q -> %q [label=%q, style=dashed];\n", b.UUID(), shadow.UUID(), in.Name())
		}
		if target := conn.TargetBlock(); target != nil {
			writeTree(buf, target, opts)
			fmt.Fprintf(buf, "    %q -> %q [label=%q];\n", b.UUID(), target.UUID(), in.Name())
		}
	}

	if next := b.NextConnection(); next != nil {
		if shadow := next.ShadowBlock(); shadow != nil {
			writeTree(buf, shadow, opts)
			fmt.Fprintf(buf, "    %q -> %q [style=dashed];\n", b.UUID(), shadow.UUID())
		}
		if target := next.TargetBlock(); target != nil {
			writeTree(buf, target, opts)
			fmt.Fprintf(buf, "    %q -> %q;\n", b.UUID(), target.UUID())
		}
	}
}

func nodeLabel(b *block.Block, detailed bool) string {
	if !detailed {
		return b.Name()
	}

	parts := []string{fmt.Sprintf("uuid: %s", b.UUID())}
	for _, in := range b.Inputs() {
		for _, f := range in.Fields() {
			if text, ok := f.SerializedText(); ok {
				parts = append(parts, fmt.Sprintf("%s: %s", f.Name(), text))
			}
		}
	}

	return b.Name() + "\n" + strings.Join(parts, "\n")
}
