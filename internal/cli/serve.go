package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jheling/blockwork/internal/httpapi"
)

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

The server exposes the loaded block definitions, workspace XML
validation, and snapshot management as JSON endpoints. Snapshots go to
the store backend selected by the configuration. The server drains
in-flight requests on interrupt before exiting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Serve.Addr
			}
			return c.runServe(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+DefaultServeAddr+")")

	return cmd
}

// runServe builds the server from the configuration and blocks until the
// command's context is cancelled.
func (c *CLI) runServe(cmd *cobra.Command, addr string) error {
	ctx := cmd.Context()

	f, err := c.newFactory()
	if err != nil {
		return err
	}

	st, err := c.newStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	srv, err := httpapi.New(httpapi.Options{
		Store:   st,
		Factory: f,
		Logger:  c.Logger,
	})
	if err != nil {
		return err
	}

	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}
