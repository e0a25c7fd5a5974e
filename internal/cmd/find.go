package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/CageChen/layerhub/internal/entry"
	"github.com/CageChen/layerhub/internal/finder"
	"github.com/spf13/cobra"
)

// NewFindCommand creates and returns the find subcommand
func NewFindCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <name>",
		Short: "Resolve a logical name across the layers",
		Long: `Resolve a name against the layers and print the matching path.

A name without an extension gets the default extension appended, unless
--type dir is given. With --all every match is printed, one per line, in
layer order (or reverse layer order with --reversed).

Exit code: 0 if something matched, 1 otherwise`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd)
			if err != nil {
				return err
			}

			q, err := queryFromFlags(cmd, args[0])
			if err != nil {
				return err
			}
			return runFind(a.finder, q, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().String("type", "", "Restrict matches to file or dir")
	cmd.Flags().Bool("reversed", false, "Search the layers from the lowest priority up")
	cmd.Flags().Bool("all", false, "Print every match instead of the first")

	return cmd
}

func queryFromFlags(cmd *cobra.Command, name string) (finder.Query, error) {
	typeFlag, _ := cmd.Flags().GetString("type")
	reversed, _ := cmd.Flags().GetBool("reversed")
	all, _ := cmd.Flags().GetBool("all")

	typ, err := entry.ParseType(typeFlag)
	if err != nil {
		return finder.Query{}, err
	}

	q := finder.Query{Name: name, Type: typ}
	if reversed {
		q.Direction = finder.Reversed
	}
	if all {
		q.Mode = finder.ModeAll
	}
	return q, nil
}

// runFind prints the matches of q, one path per line.
func runFind(f *finder.Finder, q finder.Query, output io.Writer) error {
	res := f.Resolve(q)
	if !res.Found() {
		return fmt.Errorf("%s: %w", q.Name, os.ErrNotExist)
	}
	for _, m := range res.Matches {
		fmt.Fprintln(output, m.Path)
	}
	return nil
}
