package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/CageChen/layerhub/internal/config"
	"github.com/CageChen/layerhub/internal/finder"
	"github.com/spf13/cobra"
)

// NewLayersCommand creates and returns the layers subcommand
func NewLayersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layers",
		Short: "Show or edit the configured layers",
		Long: `Show the configured layers in priority order. The add and remove
subcommands edit the layer list and save the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return printLayers(cfg, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(newLayersAddCommand())
	cmd.AddCommand(newLayersRemoveCommand())

	return cmd
}

func newLayersAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Append a layer with the lowest priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			alias, _ := cmd.Flags().GetString("alias")

			// Reject what the finder would reject before touching the config.
			if _, err := finder.Normalize(args[0], cfg.Root); err != nil {
				return err
			}
			if err := cfg.AddLayer(args[0], alias); err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			return printLayers(cfg, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().String("alias", "", "Display name for the layer (default: directory name)")

	return cmd
}

func newLayersRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path-or-alias>",
		Short: "Remove a layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if _, ok := cfg.RemoveLayer(args[0]); !ok {
				return fmt.Errorf("layer %q not found", args[0])
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			return printLayers(cfg, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}
}

func printLayers(cfg *config.Config, output io.Writer) error {
	w := tabwriter.NewWriter(output, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "#\tALIAS\tPATH\n")
	for i, l := range cfg.Layers {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i, l.Alias, l.Path)
	}
	return w.Flush()
}
