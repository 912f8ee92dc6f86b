package main

import (
	"fmt"

	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/aleister1102/resourcewatch/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cli carries state resolved by the root command for its subcommands.
type cli struct {
	configPath string
	cfg        *config.GlobalConfig
	logger     zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   "resourcewatch",
		Short: "Watch web pages and deliver newly published files to Discord.",
		Long: `resourcewatch tracks pages on a per-target schedule, downloads resources that
appear on them, converts large documents into page images and posts
everything to Discord. Pages are managed through the Discord bot or the
export and import subcommands.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}

	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to YAML/JSON config (default: search standard locations)")

	cmd.AddCommand(
		newRunCmd(c),
		newMigrateCmd(c),
		newExportCmd(c),
		newImportCmd(c),
	)
	return cmd
}

func (c *cli) load() error {
	cfg, err := config.LoadGlobalConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	log, err := logger.New(cfg.LogConfig)
	if err != nil {
		return fmt.Errorf("could not initialize logger: %w", err)
	}

	c.cfg = cfg
	c.logger = log
	return nil
}
