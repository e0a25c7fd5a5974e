// Package cmd implements the layerhub command line.
package cmd

import (
	"github.com/CageChen/layerhub/internal/logger"
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for layerhub
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layerhub",
		Short: "Layered path resolution and content server",
		Long: `layerhub resolves logical names against an ordered list of layer
directories, so that files in an upper layer override the same names in
the layers below it.

It can serve markdown views and raw assets composed from the layers over
HTTP, or run single lookups and listings from the shell.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			if level == "" {
				return nil
			}
			if _, err := logger.ParseLevel(level); err != nil {
				return err
			}
			logger.SetLevel(level)
			return nil
		},
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: ~/.config/layerhub/config.yaml or ./layerhub.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: DEBUG, INFO, WARN or ERROR (overrides config)")
	cmd.PersistentFlags().StringSlice("layer", nil, "Layer directory, highest priority first (repeatable; replaces configured layers)")

	// Add subcommands
	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewFindCommand())
	cmd.AddCommand(NewLsCommand())
	cmd.AddCommand(NewLayersCommand())

	return cmd
}
