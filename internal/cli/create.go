package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/resbot/internal/audit"
	"github.com/roach88/resbot/internal/config"
	"github.com/roach88/resbot/internal/resolution"
)

// auditCommandCreate is the command name journaled for CLI creates.
const auditCommandCreate = "cli:create"

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Draft resolution.Draft
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Append a resolution and rewrite the file",
		Long: `Append a new resolution and rewrite the resolutions file.

--signatories and --clauses take comma-separated lists. The case number
must not already exist. A running bot picks the change up on
/reloadresolutions, or automatically when store.watch is enabled.

Exit codes:
  0 - Created
  1 - Case number already exists
  2 - Command error (bad config, write failure, etc.)

Example:
  resbot create --case-number 2025-01 --title "On Lighthouses" \
    --date 2025-02-14 --signatories "Arden, Corve" --clauses "Builds one,Staffs it"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, cmd)
		},
	}

	d := &opts.Draft
	cmd.Flags().StringVar(&d.CaseNumber, "case-number", "", "case number (required)")
	_ = cmd.MarkFlagRequired("case-number")
	cmd.Flags().StringVar(&d.Title, "title", "", "title")
	cmd.Flags().StringVar(&d.Preamble, "preamble", "", "preamble")
	cmd.Flags().StringVar(&d.Type, "type", "", "resolution type")
	cmd.Flags().StringVar(&d.SubmittedBy, "submitted-by", "", "submitter")
	cmd.Flags().StringVar(&d.Date, "date", "", "date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&d.Signatories, "signatories", "", "comma-separated signatories")
	cmd.Flags().StringVar(&d.Clauses, "clauses", "", "comma-separated operative clauses")
	cmd.Flags().StringVar(&d.Conclusion, "conclusion", "", "conclusion")

	return cmd
}

func runCreate(opts *CreateOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, store, err := opts.openStore(f)
	if err != nil {
		return err
	}

	rec, err := store.Create(opts.Draft)
	journalCreate(cmd.Context(), cfg, opts.logger(), opts.Draft.CaseNumber, err)

	var (
		exists     *resolution.AlreadyExistsError
		persistErr *resolution.PersistError
	)
	switch {
	case err == nil:
		return f.Success(rec, fmt.Sprintf("Resolution %s created in %s.", rec.CaseNumber, store.Path()))
	case errors.Is(err, resolution.ErrEmptyCaseNumber):
		return fail(f, ExitCommandError, ErrCodeInvalidInput, "case number must not be empty", nil)
	case errors.As(err, &exists):
		return fail(f, ExitFailure, ErrCodeExists,
			fmt.Sprintf("a resolution with case number %s already exists", exists.CaseNumber), nil)
	case errors.As(err, &persistErr):
		return fail(f, ExitCommandError, ErrCodePersist, "failed to save resolutions", persistErr.Err)
	default:
		return fail(f, ExitCommandError, ErrCodeGeneric, "failed to create resolution", err)
	}
}

// journalCreate records a CLI create in the audit journal when one is
// configured. Journal failures are logged, never returned.
func journalCreate(ctx context.Context, cfg config.Config, logger *zap.Logger, caseNumber string, createErr error) {
	if cfg.Audit.Path == "" {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	entry := audit.Entry{
		Command:    auditCommandCreate,
		UserName:   os.Getenv("USER"),
		CaseNumber: caseNumber,
		Outcome:    createOutcome(createErr),
	}
	if createErr != nil {
		entry.Detail = createErr.Error()
	}

	journal, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		logger.Warn("audit journal unavailable", zap.String("path", cfg.Audit.Path), zap.Error(err))
		return
	}
	defer journal.Close()

	if _, err := journal.Append(ctx, entry); err != nil {
		logger.Warn("audit append failed", zap.Error(err))
	}
}

func createOutcome(err error) audit.Outcome {
	var (
		exists     *resolution.AlreadyExistsError
		persistErr *resolution.PersistError
	)
	switch {
	case err == nil:
		return audit.OutcomeOK
	case errors.Is(err, resolution.ErrEmptyCaseNumber):
		return audit.OutcomeInvalid
	case errors.As(err, &exists):
		return audit.OutcomeExists
	case errors.As(err, &persistErr):
		return audit.OutcomePersistError
	default:
		return audit.OutcomeError
	}
}
