package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jheling/blockwork/pkg/block"
	blockio "github.com/jheling/blockwork/pkg/io"
	"github.com/jheling/blockwork/pkg/workspace"
)

// newBlockStep is the diagonal offset between scaffolded blocks, in
// workspace units.
const newBlockStep = 40.0

// newCommand creates the new command for scaffolding workspace documents.
func (c *CLI) newCommand() *cobra.Command {
	var blockNames []string

	cmd := &cobra.Command{
		Use:   "new [output.xml]",
		Short: "Scaffold a workspace document",
		Long: `Scaffold a workspace document.

Without flags an interactive picker lists the available block types; the
selected type becomes the workspace's first block. With --block
(repeatable) the picker is skipped and one block per flag is created.
Blocks are placed on a diagonal so nothing overlaps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runNew(args[0], blockNames)
		},
	}

	cmd.Flags().StringArrayVar(&blockNames, "block", nil, "block type to add (repeatable; skips the picker)")

	return cmd
}

// runNew builds the workspace and writes it to output.
func (c *CLI) runNew(output string, blockNames []string) error {
	f, err := c.newFactory()
	if err != nil {
		return err
	}

	if len(blockNames) == 0 {
		name, err := pickBlockType(f)
		if err != nil {
			return err
		}
		if name == "" {
			printInfo("No block selected")
			return nil
		}
		blockNames = []string{name}
	}

	ws, err := workspace.New(nil)
	if err != nil {
		return err
	}

	for i, name := range blockNames {
		b, err := f.MakeBlock(name)
		if err != nil {
			return fmt.Errorf("make block %q: %w", name, err)
		}
		b.SetPosition(block.WorkspacePoint{X: float64(i) * newBlockStep, Y: float64(i) * newBlockStep})
		if err := ws.AddBlockTree(b); err != nil {
			return fmt.Errorf("add block %q: %w", name, err)
		}
	}

	if err := blockio.ExportWorkspace(ws, output); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Workspace created")
	printFile(output)
	printStats(len(ws.AllBlocks()), len(ws.TopLevelBlocks()), 0)
	printNewline()
	printNextStep("Inspect", "blockwork inspect "+output)

	return nil
}

// pickBlockType runs the interactive picker and returns the chosen type
// name, or "" when the user quits without selecting.
func pickBlockType(f *block.BlockFactory) (string, error) {
	entries := blockTypeEntries(f)
	if len(entries) == 0 {
		return "", fmt.Errorf("no block definitions loaded")
	}

	p := tea.NewProgram(NewBlockListModel(entries))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("run picker: %w", err)
	}

	model, ok := final.(BlockListModel)
	if !ok || model.Selected == nil {
		return "", nil
	}
	return model.Selected.Name, nil
}
