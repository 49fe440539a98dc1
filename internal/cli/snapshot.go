package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	blockio "github.com/jheling/blockwork/pkg/io"
	"github.com/jheling/blockwork/pkg/store"
)

// snapshotCommand creates the snapshot management command.
func (c *CLI) snapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage workspace snapshots",
		Long: `Manage workspace snapshots.

Snapshots capture a workspace document with a name and timestamps in the
configured store backend (file by default; memory, redis, and mongo via
the config file).`,
	}

	cmd.AddCommand(c.snapshotSaveCommand())
	cmd.AddCommand(c.snapshotListCommand())
	cmd.AddCommand(c.snapshotGetCommand())
	cmd.AddCommand(c.snapshotDeleteCommand())

	return cmd
}

// snapshotSaveCommand creates the "snapshot save" subcommand.
func (c *CLI) snapshotSaveCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "save [workspace.xml]",
		Short: "Save a workspace document as a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.newStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			return c.runSnapshotSave(cmd.Context(), st, args[0], name)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "snapshot name (default: input file name)")

	return cmd
}

// snapshotListCommand creates the "snapshot list" subcommand.
func (c *CLI) snapshotListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.newStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			return c.runSnapshotList(cmd.Context(), st)
		},
	}
}

// snapshotGetCommand creates the "snapshot get" subcommand.
func (c *CLI) snapshotGetCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Print a snapshot's workspace XML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.newStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			return c.runSnapshotGet(cmd.Context(), st, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the XML to a file instead of stdout")

	return cmd
}

// snapshotDeleteCommand creates the "snapshot delete" subcommand.
func (c *CLI) snapshotDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.newStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			return c.runSnapshotDelete(cmd.Context(), st, args[0])
		},
	}
}

// =============================================================================
// Runners
// =============================================================================

// runSnapshotSave captures the workspace at path into the store.
func (c *CLI) runSnapshotSave(ctx context.Context, st store.Store, path, name string) error {
	f, err := c.newFactory()
	if err != nil {
		return err
	}

	ws, err := blockio.ImportWorkspace(path, f)
	if err != nil {
		return fmt.Errorf("load workspace %s: %w", path, err)
	}

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	snap, err := store.Capture(ws, name)
	if err != nil {
		return fmt.Errorf("capture snapshot: %w", err)
	}
	if err := st.Put(ctx, snap); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}

	printSuccess("Snapshot saved")
	printKeyValue("ID", snap.ID)
	printKeyValue("Name", snap.Name)
	printKeyValue("Blocks", strconv.Itoa(snap.BlockCount))
	return nil
}

// runSnapshotList prints the stored snapshots, most recent first.
func (c *CLI) runSnapshotList(ctx context.Context, st store.Store) error {
	snaps, err := st.List(ctx)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	if len(snaps) == 0 {
		printInfo("No snapshots stored")
		return nil
	}

	for _, snap := range snaps {
		fmt.Printf("%s  %-20s %4d blocks  %s\n",
			StyleHighlight.Render(snap.ID),
			snap.Name,
			snap.BlockCount,
			StyleDim.Render(formatRelativeTime(snap.UpdatedAt)))
	}
	printNewline()
	printDetail("%d snapshots", len(snaps))
	return nil
}

// runSnapshotGet writes a snapshot's XML to stdout or to output.
func (c *CLI) runSnapshotGet(ctx context.Context, st store.Store, id, output string) error {
	snap, err := st.Get(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("snapshot %s not found", id)
		}
		return fmt.Errorf("fetch snapshot: %w", err)
	}

	if output == "" {
		fmt.Print(snap.XML)
		if !strings.HasSuffix(snap.XML, "\n") {
			fmt.Println()
		}
		return nil
	}

	if err := os.WriteFile(output, []byte(snap.XML), 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}
	printSuccess("Snapshot written")
	printFile(output)
	return nil
}

// runSnapshotDelete removes a snapshot from the store.
func (c *CLI) runSnapshotDelete(ctx context.Context, st store.Store, id string) error {
	if err := st.Delete(ctx, id); err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("snapshot %s not found", id)
		}
		return fmt.Errorf("delete snapshot: %w", err)
	}

	printSuccess("Snapshot deleted")
	printDetail("ID: %s", id)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// formatRelativeTime renders t relative to now for listing output.
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)
	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
