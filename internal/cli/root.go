package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/resbot/internal/config"
	"github.com/roach88/resbot/internal/resolution"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	DataPath   string // overrides store.path from config and env

	// Logger is built in PersistentPreRunE. Commands constructed on their
	// own (tests) fall back to a no-op logger.
	Logger *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the resbot CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "resbot",
		Short: "resbot - resolution archive bot",
		Long: `A Discord bot that serves an archive of resolutions from a JSON file.

Run "resbot serve" to connect to Discord. The other commands work on the
same file offline.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			logger, err := newLogger(opts.Verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			opts.Logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger != nil {
				_ = opts.Logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", config.DefaultPath, "path to config file")
	cmd.PersistentFlags().StringVar(&opts.DataPath, "data", "", "path to resolutions JSON file (overrides config)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewLookupCommand(opts))
	cmd.AddCommand(NewLatestCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))

	return cmd
}

// newLogger builds a production zap logger writing to stderr.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // keeps verbose lines out of JSON output
		Verbose:   o.Verbose,
	}
}

// loadConfig reads the config file and applies the --data override.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.DataPath != "" {
		cfg.Store.Path = o.DataPath
	}
	return cfg, nil
}

// openStore loads configuration and the resolutions file. Failures are
// reported through f and returned as an ExitError.
func (o *RootOptions) openStore(f *OutputFormatter) (config.Config, *resolution.Store, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return config.Config{}, nil, fail(f, ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	f.VerboseLog("Loading resolutions from %s", cfg.Store.Path)
	store, err := resolution.Open(cfg.Store.Path, resolution.WithLogger(o.logger()))
	if err != nil {
		return cfg, nil, fail(f, ExitCommandError, ErrCodeLoad, "failed to load resolutions", err)
	}
	return cfg, store, nil
}
