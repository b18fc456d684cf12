package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resbot/internal/audit"
	"github.com/roach88/resbot/internal/bot"
)

type recordingResponder struct {
	responses []*discordgo.InteractionResponse
}

func (r *recordingResponder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	r.responses = append(r.responses, resp)
	return nil
}

func serveCommand(opts *RootOptions, runner func(context.Context, *bot.Bot) error) *cobra.Command {
	cmd := NewServeCommand(opts)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe(&ServeOptions{RootOptions: opts, Runner: runner}, cmd)
	}
	return cmd
}

func TestServeRequiresToken(t *testing.T) {
	opts, _ := textOpts(t)

	out, err := run(t, NewServeCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
	assert.Contains(t, out, "DISCORD_TOKEN")
}

func TestServeMissingResolutionsFile(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DISCORD_TOKEN", "test-token")
	opts := &RootOptions{Format: "text", DataPath: filepath.Join(t.TempDir(), "missing.json")}

	out, err := run(t, NewServeCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestServeWiresBotAndJournal(t *testing.T) {
	opts, _ := textOpts(t)
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	opts.ConfigPath = writeConfig(t, `
discord:
  guild_id: "123"
audit:
  path: `+dbPath+`
metrics:
  addr: 127.0.0.1:0
store:
  watch: true
`)

	resp := &recordingResponder{}
	out, err := run(t, serveCommand(opts, func(ctx context.Context, b *bot.Bot) error {
		b.HandleInteraction(ctx, resp, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			User: &discordgo.User{ID: "42", Username: "operator"},
			Data: discordgo.ApplicationCommandInteractionData{
				Name: bot.CmdResolution,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{{
					Name:  bot.OptCaseNumber,
					Type:  discordgo.ApplicationCommandOptionString,
					Value: "2024-01",
				}},
			},
		}})
		return nil
	}))
	require.NoError(t, err)
	assert.Contains(t, out, "Bot started")

	require.Len(t, resp.responses, 1)
	require.Len(t, resp.responses[0].Data.Embeds, 1)
	assert.Equal(t, "On Harbour Tariffs", resp.responses[0].Data.Embeds[0].Title)

	journal, err := audit.Open(dbPath)
	require.NoError(t, err)
	defer journal.Close()
	entries, err := journal.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "operator", entries[0].UserName)
	assert.Equal(t, audit.OutcomeOK, entries[0].Outcome)
}

func TestServeBotError(t *testing.T) {
	opts, _ := textOpts(t)

	out, err := run(t, serveCommand(opts, func(context.Context, *bot.Bot) error {
		return errors.New("gateway refused")
	}))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "gateway refused")
}

func TestServeStopsOnContextCancel(t *testing.T) {
	opts, _ := textOpts(t)
	opts.ConfigPath = writeConfig(t, "store:\n  watch: true\n")

	ctx, cancel := context.WithCancel(context.Background())
	cmd := serveCommand(opts, func(ctx context.Context, _ *bot.Bot) error {
		cancel()
		<-ctx.Done()
		return nil
	})
	cmd.SetContext(ctx)

	_, err := run(t, cmd)
	require.NoError(t, err)
}
