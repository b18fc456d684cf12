package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/resbot/internal/audit"
)

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// AuditResult is the JSON payload of the audit command.
type AuditResult struct {
	Count   int           `json:"count"`
	Entries []audit.Entry `json:"entries"`
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent command invocations",
		Long: `Show the most recent entries of the audit journal, newest first.

The journal is read from --db, or from audit.path in the config file.

Examples:
  resbot audit
  resbot audit --db ./audit.db --limit 50 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to audit database (default from config)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of entries to show")

	return cmd
}

func runAudit(opts *AuditOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	path := opts.Database
	if path == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return fail(f, ExitCommandError, ErrCodeConfig, "failed to load config", err)
		}
		path = cfg.Audit.Path
	}
	if path == "" {
		return fail(f, ExitCommandError, ErrCodeInvalidInput, "no audit journal configured: pass --db or set audit.path", nil)
	}

	f.VerboseLog("Opening audit journal %s", path)
	journal, err := audit.Open(path)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeAudit, "failed to open audit journal", err)
	}
	defer journal.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := journal.Recent(ctx, opts.Limit)
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeAudit, "failed to read audit journal", err)
	}

	return f.Success(AuditResult{Count: len(entries), Entries: entries}, formatEntries(entries))
}

func formatEntries(entries []audit.Entry) string {
	if len(entries) == 0 {
		return "No audit entries."
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %-20s %-14s", e.At.UTC().Format(time.RFC3339), e.Command, e.Outcome)
		if e.UserName != "" || e.UserID != "" {
			fmt.Fprintf(&b, " user=%s", firstNonEmpty(e.UserName, e.UserID))
		}
		if e.CaseNumber != "" {
			fmt.Fprintf(&b, " case=%s", e.CaseNumber)
		}
		if e.Detail != "" {
			fmt.Fprintf(&b, " %s", e.Detail)
		}
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
