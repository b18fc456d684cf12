package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/roach88/resbot/internal/audit"
	"github.com/roach88/resbot/internal/render"
	"github.com/roach88/resbot/internal/resolution"
)

// Responder sends the initial response to an interaction.
// *discordgo.Session satisfies it.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// CommandSyncer replaces the registered command set.
// *discordgo.Session satisfies it.
type CommandSyncer interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Journal records command invocations. *audit.Journal satisfies it.
type Journal interface {
	Append(ctx context.Context, e audit.Entry) (audit.Entry, error)
}

// Options configures a Bot.
type Options struct {
	Token       string
	GuildID     string
	Color       int
	LatestLimit int
	Logger      *zap.Logger
	Journal     Journal
	Metrics     *Metrics
}

// Bot is the Discord command layer in front of a resolution Store.
//
// Thread-safety: discordgo runs each interaction handler on its own
// goroutine; Bot holds no mutable state and relies on the Store's locking.
type Bot struct {
	store   *resolution.Store
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
	started time.Time
}

// New creates a Bot serving store.
func New(store *resolution.Store, opts Options) *Bot {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Color == 0 {
		opts.Color = render.DefaultColor
	}
	if opts.LatestLimit <= 0 {
		opts.LatestLimit = 10
	}
	return &Bot{
		store:  store,
		opts:   opts,
		logger: opts.Logger,
		now:    time.Now,
	}
}

// Run connects to Discord and serves interactions until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	session, err := discordgo.New("Bot " + b.opts.Token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	// Slash commands need no privileged intents.
	session.Identify.Intents = discordgo.IntentsGuilds

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.logger.Info("logged in", zap.String("user", r.User.String()))
		if err := b.SyncCommands(s, r.User.ID); err != nil {
			b.logger.Error("command sync failed", zap.Error(err))
		}
	})
	session.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		b.HandleInteraction(ctx, s, ic)
	})

	b.logger.Info("bot starting", zap.Int("resolutions", b.store.Len()))
	if err := session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	b.started = b.now()

	<-ctx.Done()

	b.logger.Info("bot stopping", zap.Duration("uptime", b.now().Sub(b.started)))
	if err := session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

// SyncCommands overwrites the registered commands for appID, in the
// configured guild or globally.
func (b *Bot) SyncCommands(s CommandSyncer, appID string) error {
	synced, err := s.ApplicationCommandBulkOverwrite(appID, b.opts.GuildID, Commands(b.opts.LatestLimit))
	if err != nil {
		return fmt.Errorf("sync commands: %w", err)
	}
	scope := "global"
	if b.opts.GuildID != "" {
		scope = "guild:" + b.opts.GuildID
	}
	b.logger.Info("commands synced", zap.Int("count", len(synced)), zap.String("scope", scope))
	return nil
}

// HandleInteraction answers one application command. Every outcome,
// including store errors, becomes a message to the invoker.
func (b *Bot) HandleInteraction(ctx context.Context, r Responder, ic *discordgo.InteractionCreate) {
	if ic.Interaction == nil || ic.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := ic.ApplicationCommandData()
	start := b.now()

	rep := b.dispatch(ic.Interaction, data)

	userID, userName := invoker(ic.Interaction)
	fields := []zap.Field{
		zap.String("command", data.Name),
		zap.String("outcome", string(rep.outcome)),
		zap.String("user_id", userID),
		zap.String("guild_id", ic.GuildID),
	}
	if rep.caseNumber != "" {
		fields = append(fields, zap.String("case_number", rep.caseNumber))
	}

	if err := r.InteractionRespond(ic.Interaction, rep.response); err != nil {
		b.logger.Error("interaction response failed", append(fields, zap.Error(err))...)
	} else {
		b.logger.Info("command handled", fields...)
	}

	b.opts.Metrics.ObserveCommand(data.Name, rep.outcome, b.now().Sub(start))
	if data.Name == CmdReload {
		b.opts.Metrics.ObserveReload(ReloadSourceCommand, rep.outcome == audit.OutcomeOK)
	}

	if b.opts.Journal != nil {
		// The response is already sent; shutdown must not drop its record.
		_, err := b.opts.Journal.Append(context.WithoutCancel(ctx), audit.Entry{
			Command:    data.Name,
			UserID:     userID,
			UserName:   userName,
			GuildID:    ic.GuildID,
			CaseNumber: rep.caseNumber,
			Outcome:    rep.outcome,
			Detail:     rep.detail,
		})
		if err != nil {
			b.logger.Warn("audit append failed", append(fields, zap.Error(err))...)
		}
	}
}

// invoker returns the ID and name of the user behind an interaction, in a
// guild or a DM.
func invoker(i *discordgo.Interaction) (string, string) {
	var u *discordgo.User
	switch {
	case i.Member != nil && i.Member.User != nil:
		u = i.Member.User
	case i.User != nil:
		u = i.User
	default:
		return "", ""
	}
	return u.ID, u.Username
}

func isAdmin(i *discordgo.Interaction) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}
