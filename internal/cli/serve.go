package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/resbot/internal/audit"
	"github.com/roach88/resbot/internal/bot"
	"github.com/roach88/resbot/internal/resolution"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions

	// Runner replaces the Discord session (for testing). If nil, the bot
	// connects to Discord.
	Runner func(ctx context.Context, b *bot.Bot) error
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and answer slash commands",
		Long: `Connect to Discord and answer resolution slash commands until interrupted.

The token comes from DISCORD_TOKEN (environment or .env) or discord.token in
the config file. When configured, serve also exposes Prometheus metrics,
writes an audit journal, and reloads the resolutions file when it changes.

Example:
  resbot serve
  resbot serve --config ./resbot.yaml --data ./resolutions.json -v`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := opts.logger()

	cfg, err := opts.loadConfig()
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if opts.Runner == nil {
		if err := cfg.RequireToken(); err != nil {
			return fail(f, ExitCommandError, ErrCodeConfig, "missing token", err)
		}
	}

	logger.Info("loading resolutions", zap.String("path", cfg.Store.Path))
	store, err := resolution.Open(cfg.Store.Path, resolution.WithLogger(logger))
	if err != nil {
		return fail(f, ExitCommandError, ErrCodeLoad, "failed to load resolutions", err)
	}
	logger.Info("resolutions loaded", zap.Int("count", store.Len()))

	botOpts := bot.Options{
		Token:       cfg.Discord.Token,
		GuildID:     cfg.Discord.GuildID,
		Color:       cfg.Embed.Color,
		LatestLimit: cfg.LatestLimit,
		Logger:      logger,
	}

	if cfg.Audit.Path != "" {
		journal, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			return fail(f, ExitCommandError, ErrCodeAudit, "failed to open audit journal", err)
		}
		defer func() {
			if closeErr := journal.Close(); closeErr != nil {
				logger.Error("error closing audit journal", zap.Error(closeErr))
			}
		}()
		botOpts.Journal = journal
		logger.Info("audit journal ready", zap.String("path", cfg.Audit.Path))
	}

	var metrics *bot.Metrics
	if cfg.Metrics.Addr != "" {
		metrics = bot.NewMetrics(store)
		botOpts.Metrics = metrics
	}

	b := bot.New(store, botOpts)

	ctx, stop := signalContext(cmd, logger)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if metrics != nil {
		g.Go(func() error {
			return bot.ServeMetrics(ctx, cfg.Metrics.Addr, metrics, logger)
		})
	}
	if cfg.Store.Watch {
		w := resolution.NewWatcher(store, logger, resolution.WithReloadHook(func(err error) {
			metrics.ObserveReload(bot.ReloadSourceWatch, err == nil)
		}))
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	run := opts.Runner
	if run == nil {
		run = func(ctx context.Context, b *bot.Bot) error { return b.Run(ctx) }
	}
	g.Go(func() error {
		// The bot returning for any reason stops the other services.
		defer stop()
		return run(ctx, b)
	})

	fmt.Fprintln(cmd.OutOrStdout(), "Bot started. Press Ctrl-C to stop.")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fail(f, ExitFailure, ErrCodeGeneric, "bot error", err)
	}
	logger.Info("bot stopped gracefully")
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, or when
// the command's own context ends.
func signalContext(cmd *cobra.Command, logger *zap.Logger) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
