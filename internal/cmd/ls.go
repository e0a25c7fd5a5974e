package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/CageChen/layerhub/internal/directory"
	"github.com/CageChen/layerhub/internal/entry"
	"github.com/CageChen/layerhub/internal/filter"
	"github.com/CageChen/layerhub/internal/finder"
	"github.com/spf13/cobra"
)

// NewLsCommand creates and returns the ls subcommand
func NewLsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls <dir>",
		Short: "List a directory with a depth budget and filters",
		Long: `List the contents of a directory. The argument is a path, or else a
logical directory name resolved through the layers.

  --depth 0    lists only the immediate entries
  --depth n    descends n levels below them
  --depth -1   descends without limit (default)

Filters are regular expressions matched against full paths. A leading "!"
excludes matches, and an "@file" or "@dir" suffix restricts a filter to that
type:

  layerhub ls docs --filter '\.md$@file' --filter '!/drafts$@dir'

The configured exclude patterns apply unless --no-exclude is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd)
			if err != nil {
				return err
			}

			dir, err := resolveDir(a.finder, args[0])
			if err != nil {
				return err
			}
			opts, err := listOptionsFromFlags(cmd, a.cfg.FilterSpec())
			if err != nil {
				return err
			}
			return runLs(dir, opts, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().Int("depth", directory.Infinite, "Levels to descend below the immediate entries (-1 = unlimited)")
	cmd.Flags().String("type", "", "Restrict the listing to file or dir")
	cmd.Flags().String("pattern", "", "Glob matched against entry names (default *)")
	cmd.Flags().StringArray("filter", nil, "Filter rule 'expr[@type]', '!' to exclude (repeatable)")
	cmd.Flags().Bool("no-exclude", false, "Do not apply the configured exclude patterns")

	return cmd
}

// resolveDir returns dir itself if it is a directory on disk, else the
// first layer directory it resolves to.
func resolveDir(f *finder.Finder, dir string) (string, error) {
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, nil
	}
	m, ok := f.FindDir(dir)
	if !ok {
		return "", fmt.Errorf("%s: %w", dir, os.ErrNotExist)
	}
	return strings.TrimSuffix(m.Path, "/"), nil
}

func listOptionsFromFlags(cmd *cobra.Command, exclude filter.Spec) (directory.Options, error) {
	depth, _ := cmd.Flags().GetInt("depth")
	typeFlag, _ := cmd.Flags().GetString("type")
	pattern, _ := cmd.Flags().GetString("pattern")
	rules, _ := cmd.Flags().GetStringArray("filter")
	noExclude, _ := cmd.Flags().GetBool("no-exclude")

	typ, err := entry.ParseType(typeFlag)
	if err != nil {
		return directory.Options{}, err
	}

	patterns := make(filter.Patterns, len(rules))
	for i, r := range rules {
		patterns[i] = filter.ParsePattern(r)
	}

	var specs []filter.Spec
	if !noExclude {
		specs = append(specs, exclude)
	}
	specs = append(specs, patterns)

	return directory.Options{Depth: depth, Filter: filter.Combine(specs...), Type: typ, Pattern: pattern}, nil
}

// runLs prints every listed path, parents before children.
func runLs(dir string, opts directory.Options, output io.Writer) error {
	listing, err := directory.New(nil).List(dir, opts)
	if err != nil {
		return err
	}
	for _, p := range listing.Paths() {
		fmt.Fprintln(output, p)
	}
	return nil
}
