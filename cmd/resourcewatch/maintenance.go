package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/registry"
	"github.com/aleister1102/resourcewatch/internal/tracker"
	"github.com/spf13/cobra"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply registry schema migrations and print the schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := registry.Open(cmd.Context(), c.cfg.StorageConfig, c.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			version, dirty, err := registry.SchemaVersion(store.DB(), store.Driver())
			if err != nil {
				return fmt.Errorf("failed to read schema version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
}

func newExportCmd(c *cli) *cobra.Command {
	var owner, format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an owner's tracked pages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.close()

			var buf bytes.Buffer
			count, err := a.tracker.Export(cmd.Context(), owner, format, &buf)
			if err != nil {
				return err
			}

			if out == "" {
				if _, err := buf.WriteTo(cmd.OutOrStdout()); err != nil {
					return err
				}
			} else if err := common.WriteFileAtomic(out, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d targets\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner (Discord user id)")
	cmd.Flags().StringVar(&format, "format", tracker.FormatJSON, "json or csv")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newImportCmd(c *cli) *cobra.Command {
	var owner, format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Track every page listed in an export file",
		Long: `Import seeds each page with an initial fetch and stores it in the registry.
A running service schedules imported pages on its next start.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if format == "" {
				format = tracker.FormatJSON
				if strings.EqualFold(filepath.Ext(path), ".csv") {
					format = tracker.FormatCSV
				}
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.close()

			summary, err := a.tracker.Import(cmd.Context(), owner, format, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, updated %d, failed %d\n", summary.Imported, summary.Updated, summary.Failed)
			for _, err := range summary.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "  %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner (Discord user id)")
	cmd.Flags().StringVar(&format, "format", "", "json or csv (default: from file extension)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
