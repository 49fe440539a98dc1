// Package cli implements the blockwork command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jheling/blockwork/pkg/block"
	"github.com/jheling/blockwork/pkg/buildinfo"
	"github.com/jheling/blockwork/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "blockwork"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config
}

// New creates a new CLI instance with a default logger and the default
// configuration. The configuration is reloaded from disk by the root
// command before any subcommand runs.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "blockwork",
		Short:        "Blockwork validates, lays out, and renders block workspaces",
		Long:         `Blockwork is a CLI tool for working with block-program workspaces: validating and inspecting workspace XML, computing block layouts, rendering connection graphs, and managing workspace snapshots.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.config/blockwork/config.toml)")

	// Register all subcommands
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.newCommand())
	root.AddCommand(c.snapshotCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Shared Builders
// =============================================================================

// newFactory creates a block factory loaded with the default definitions
// plus any definition files listed in the configuration.
func (c *CLI) newFactory() (*block.BlockFactory, error) {
	f := block.NewBlockFactory()
	if err := f.LoadDefaultDefinitions(); err != nil {
		return nil, fmt.Errorf("load default definitions: %w", err)
	}
	for _, path := range c.Config.Definitions {
		if err := f.LoadDefinitionsFromFile(path); err != nil {
			return nil, fmt.Errorf("load definitions %s: %w", path, err)
		}
	}
	return f, nil
}

// newStore creates the snapshot store selected by the configuration.
// The caller owns the store and must Close it.
func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	cfg := c.Config.Store
	switch cfg.Backend {
	case "", BackendFile:
		fs, err := store.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return store.Instrument(fs, BackendFile), nil
	case BackendMemory:
		return store.Instrument(store.NewMemoryStore(), BackendMemory), nil
	case BackendRedis:
		rs, err := store.NewRedisStore(ctx, store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return store.Instrument(rs, BackendRedis), nil
	case BackendMongo:
		ms, err := store.NewMongoStore(ctx, store.MongoConfig{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		return store.Instrument(ms, BackendMongo), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q (use file, memory, redis, or mongo)", cfg.Backend)
	}
}
