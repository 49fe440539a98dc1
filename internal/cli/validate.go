package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jheling/blockwork/pkg/block"
	"github.com/jheling/blockwork/pkg/errors"
	blockio "github.com/jheling/blockwork/pkg/io"
)

// validateCommand creates the validate command for checking XML documents.
func (c *CLI) validateCommand() *cobra.Command {
	var toolbox bool

	cmd := &cobra.Command{
		Use:   "validate [workspace.xml]",
		Short: "Validate a workspace or toolbox XML document",
		Long: `Validate a workspace or toolbox XML document.

The document is parsed against the loaded block definitions: every block
must name a known definition, every field a declared field, and every
connection a compatible pair. Extra definition files can be added via the
"definitions" list in the config file.

With --toolbox the document is read as a toolbox (category list) instead
of a workspace.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(args[0], toolbox)
		},
	}

	cmd.Flags().BoolVar(&toolbox, "toolbox", false, "validate as a toolbox document")

	return cmd
}

// runValidate parses the document and reports the result.
func (c *CLI) runValidate(path string, toolbox bool) error {
	f, err := c.newFactory()
	if err != nil {
		return err
	}

	if toolbox {
		return c.validateToolbox(path, f)
	}

	ws, err := blockio.ImportWorkspace(path, f)
	if err != nil {
		printError("Invalid workspace document")
		printDetail("%s", errors.UserMessage(err))
		return fmt.Errorf("validate %s: %w", path, err)
	}

	all := ws.AllBlocks()
	shadows := 0
	for _, b := range all {
		if b.Shadow() {
			shadows++
		}
	}

	printSuccess("Workspace is valid")
	printStats(len(all), len(ws.TopLevelBlocks()), shadows)
	return nil
}

func (c *CLI) validateToolbox(path string, f *block.BlockFactory) error {
	tb, err := blockio.ImportToolbox(path, f)
	if err != nil {
		printError("Invalid toolbox document")
		printDetail("%s", errors.UserMessage(err))
		return fmt.Errorf("validate %s: %w", path, err)
	}

	categories := tb.Categories()
	blocks := 0
	for _, cat := range categories {
		blocks += cat.Workspace().BlockCount()
	}

	printSuccess("Toolbox is valid")
	printDetail("%d categories, %d blocks", len(categories), blocks)
	if blocks == 0 {
		printWarning("Toolbox contains no blocks")
	}
	return nil
}
