package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/resbot/internal/render"
	"github.com/roach88/resbot/internal/resolution"
)

// LatestOptions holds flags for the latest command.
type LatestOptions struct {
	*RootOptions
	Limit int
}

// LatestResult is the JSON payload of the latest command.
type LatestResult struct {
	Count       int                 `json:"count"`
	Resolutions []resolution.Record `json:"resolutions"`
}

// NewLatestCommand creates the latest command.
func NewLatestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LatestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "List the newest resolutions",
		Long: `List resolutions newest first by date.

Resolutions without a YYYY-MM-DD date sort last. Without --limit the
latest_limit config value is used.

Examples:
  resbot latest
  resbot latest --limit 3 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLatest(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "number of resolutions to list (default from config)")

	return cmd
}

func runLatest(opts *LatestOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, store, err := opts.openStore(f)
	if err != nil {
		return err
	}

	limit := opts.Limit
	if !cmd.Flags().Changed("limit") {
		limit = cfg.LatestLimit
	}
	f.VerboseLog("Listing up to %d of %d resolutions", limit, store.Len())

	records := store.Latest(limit)
	return f.Success(LatestResult{Count: len(records), Resolutions: records}, render.Summary(records))
}
