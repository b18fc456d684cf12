package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/resbot/internal/resolution"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                 `json:"valid"`
	Path     string               `json:"path"`
	Count    int                  `json:"count"`
	Problems []resolution.Problem `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the resolutions file",
		Long: `Load the resolutions file and report records without a case number and
case numbers that occur more than once.

Field contents are not checked; the bot accepts any other shape.

Exit codes:
  0 - File loads and every case number is present and unique
  1 - Problems found
  2 - Command error (file missing or not a JSON array, bad config)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	_, store, err := opts.openStore(f)
	if err != nil {
		return err
	}

	result := ValidationResult{
		Path:     store.Path(),
		Count:    store.Len(),
		Problems: store.Validate(),
	}
	result.Valid = len(result.Problems) == 0
	f.VerboseLog("Checked %d resolution(s) in %s", result.Count, result.Path)

	if result.Valid {
		return f.Success(result, fmt.Sprintf("✓ %d resolution(s) in %s are valid", result.Count, result.Path))
	}

	if f.Format == "json" {
		_ = f.Error(ErrCodeProblems, fmt.Sprintf("%d problem(s) found", len(result.Problems)), result)
	} else {
		var b strings.Builder
		fmt.Fprintf(&b, "✗ %d problem(s) in %s:", len(result.Problems), result.Path)
		for _, p := range result.Problems {
			fmt.Fprintf(&b, "\n  [%d]", p.Index)
			if p.CaseNumber != "" {
				fmt.Fprintf(&b, " %s:", p.CaseNumber)
			}
			fmt.Fprintf(&b, " %s", p.Message)
		}
		fmt.Fprintln(f.Writer, b.String())
	}
	return NewExitError(ExitFailure, "validation failed")
}
