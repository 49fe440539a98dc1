package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jheling/blockwork/pkg/block"
	blockio "github.com/jheling/blockwork/pkg/io"
)

// inspectCommand creates the inspect command for printing workspace contents.
func (c *CLI) inspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [workspace.xml]",
		Short: "Print the block trees of a workspace document",
		Long: `Print the block trees of a workspace document.

Each top-level block is printed with its chain and nested children, one
block per line, with field values and connection structure indented
beneath it. Shadow blocks are dimmed; disabled blocks are marked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(args[0])
		},
	}

	return cmd
}

// runInspect loads the workspace and prints its structure.
func (c *CLI) runInspect(path string) error {
	f, err := c.newFactory()
	if err != nil {
		return err
	}

	ws, err := blockio.ImportWorkspace(path, f)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", path, err)
	}

	all := ws.AllBlocks()
	shadows := 0
	for _, b := range all {
		if b.Shadow() {
			shadows++
		}
	}

	printKeyValue("Workspace", ws.UUID())
	printKeyValue("Blocks", strconv.Itoa(len(all)))
	printKeyValue("Top-level", strconv.Itoa(len(ws.TopLevelBlocks())))
	if shadows > 0 {
		printKeyValue("Shadows", strconv.Itoa(shadows))
	}
	printNewline()

	for i, root := range ws.TopLevelBlocks() {
		if i > 0 {
			printNewline()
		}
		printBlockChain(root, 0)
	}
	return nil
}

// printBlockChain prints first and every block below it in its chain.
func printBlockChain(first *block.Block, depth int) {
	for cur := first; cur != nil; cur = chainNext(cur) {
		printBlockTree(cur, depth)
	}
}

// printBlockTree prints one block with its fields and input children.
func printBlockTree(b *block.Block, depth int) {
	indent := strings.Repeat("  ", depth)

	label := StyleHighlight.Render(b.Name())
	if b.Shadow() {
		label = styleShadow.Render(b.Name() + " (shadow)")
	}
	line := indent + label + " " + StyleDim.Render(b.UUID())
	if b.TopLevel() {
		line += " " + StyleDim.Render("at "+b.Position().String())
	}
	if b.Disabled() {
		line += " " + StyleWarning.Render("disabled")
	}
	if b.Mutator() != nil {
		line += " " + StyleDim.Render("mutator")
	}
	fmt.Println(line)

	if comment := b.Comment(); comment != "" {
		fmt.Println(indent + "  " + StyleDim.Render("# "+comment))
	}

	for _, in := range b.Inputs() {
		for _, fld := range in.Fields() {
			text, ok := fld.SerializedText()
			if !ok {
				continue
			}
			fmt.Println(indent + "  " + StyleDim.Render(fld.Name()+" = ") + StyleValue.Render(text))
		}

		child := in.ConnectedBlock()
		if child == nil {
			child = in.ConnectedShadowBlock()
		}
		if child != nil {
			fmt.Println(indent + "  " + StyleDim.Render(in.Name()+" "+iconArrow))
			printBlockChain(child, depth+2)
		}
	}
}

// chainNext returns the block rendered below b in its chain: the connected
// target when there is one, the shadow otherwise.
func chainNext(b *block.Block) *block.Block {
	nc := b.NextConnection()
	if nc == nil {
		return nil
	}
	if t := nc.TargetBlock(); t != nil {
		return t
	}
	return nc.ShadowBlock()
}
