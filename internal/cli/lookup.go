package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/resbot/internal/render"
)

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <case-number>",
		Short: "Print one resolution",
		Long: `Print the resolution with the given case number.

Case numbers match exactly, including case.

Exit codes:
  0 - Found
  1 - No resolution with that case number
  2 - Command error (bad config, unreadable file, etc.)

Examples:
  resbot lookup 2024-01
  resbot lookup 2024-01 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runLookup(opts *RootOptions, caseNumber string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	_, store, err := opts.openStore(f)
	if err != nil {
		return err
	}

	rec, ok := store.Find(caseNumber)
	if !ok {
		return fail(f, ExitFailure, ErrCodeNotFound,
			fmt.Sprintf("no resolution found for case number %s", caseNumber), nil)
	}
	return f.Success(rec, strings.TrimRight(render.Text(rec), "\n"))
}
