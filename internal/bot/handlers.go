package bot

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/roach88/resbot/internal/audit"
	"github.com/roach88/resbot/internal/render"
	"github.com/roach88/resbot/internal/resolution"
)

// reply is a handler's result: the response to send plus what to log.
type reply struct {
	response   *discordgo.InteractionResponse
	outcome    audit.Outcome
	caseNumber string
	detail     string
}

func (b *Bot) dispatch(i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) reply {
	opts := optionValues(data)
	switch data.Name {
	case CmdResolution:
		return b.handleResolution(stringValue(opts, OptCaseNumber))
	case CmdLatest:
		return b.handleLatest(intValue(opts, OptLimit, b.opts.LatestLimit))
	case CmdReload:
		if !isAdmin(i) {
			return denied()
		}
		return b.handleReload()
	case CmdCreate:
		if !isAdmin(i) {
			return denied()
		}
		return b.handleCreate(resolution.Draft{
			CaseNumber:  stringValue(opts, OptCaseNumber),
			Title:       stringValue(opts, OptTitle),
			Preamble:    stringValue(opts, OptPreamble),
			Type:        stringValue(opts, OptType),
			SubmittedBy: stringValue(opts, OptSubmittedBy),
			Date:        stringValue(opts, OptDate),
			Signatories: stringValue(opts, OptSignatories),
			Clauses:     stringValue(opts, OptClauses),
			Conclusion:  stringValue(opts, OptConclusion),
		})
	default:
		return reply{
			response: ephemeral("Unknown command."),
			outcome:  audit.OutcomeError,
			detail:   "unknown command " + data.Name,
		}
	}
}

func (b *Bot) handleResolution(caseNumber string) reply {
	rec, err := b.store.Lookup(caseNumber)
	if err != nil {
		return reply{
			response:   ephemeral(fmt.Sprintf("No resolution found for case number %s.", caseNumber)),
			outcome:    audit.OutcomeNotFound,
			caseNumber: caseNumber,
		}
	}
	return reply{
		response: &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{render.Embed(rec, b.opts.Color)},
			},
		},
		outcome:    audit.OutcomeOK,
		caseNumber: caseNumber,
	}
}

func (b *Bot) handleLatest(limit int) reply {
	limit = max(1, min(limit, render.MaxFields))
	records := b.store.Latest(limit)

	embed := &discordgo.MessageEmbed{
		Title:       "Latest resolutions",
		Description: render.Truncate(render.Summary(records), render.DescriptionLimit),
		Color:       b.opts.Color,
	}
	return reply{
		response: &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{embed},
			},
		},
		outcome: audit.OutcomeOK,
		detail:  fmt.Sprintf("limit=%d returned=%d", limit, len(records)),
	}
}

func (b *Bot) handleReload() reply {
	if err := b.store.Reload(); err != nil {
		return reply{
			response: ephemeral(fmt.Sprintf("Failed to reload resolutions: %v", err)),
			outcome:  audit.OutcomeLoadError,
			detail:   err.Error(),
		}
	}
	return reply{
		response: ephemeral("Resolutions reloaded successfully."),
		outcome:  audit.OutcomeOK,
		detail:   fmt.Sprintf("count=%d", b.store.Len()),
	}
}

func (b *Bot) handleCreate(d resolution.Draft) reply {
	_, err := b.store.Create(d)

	var (
		exists     *resolution.AlreadyExistsError
		persistErr *resolution.PersistError
	)
	switch {
	case err == nil:
		return reply{
			response:   ephemeral(fmt.Sprintf("Resolution %s created successfully.", d.CaseNumber)),
			outcome:    audit.OutcomeOK,
			caseNumber: d.CaseNumber,
		}
	case errors.As(err, &exists):
		return reply{
			response:   ephemeral(fmt.Sprintf("A resolution with case number %s already exists.", d.CaseNumber)),
			outcome:    audit.OutcomeExists,
			caseNumber: d.CaseNumber,
		}
	case errors.As(err, &persistErr):
		return reply{
			response:   ephemeral(fmt.Sprintf("Failed to save the new resolution: %v", persistErr.Err)),
			outcome:    audit.OutcomePersistError,
			caseNumber: d.CaseNumber,
			detail:     err.Error(),
		}
	case errors.Is(err, resolution.ErrEmptyCaseNumber):
		return reply{
			response: ephemeral("A case number is required."),
			outcome:  audit.OutcomeInvalid,
		}
	default:
		return reply{
			response:   ephemeral(fmt.Sprintf("Failed to create the resolution: %v", err)),
			outcome:    audit.OutcomeError,
			caseNumber: d.CaseNumber,
			detail:     err.Error(),
		}
	}
}

func denied() reply {
	return reply{
		response: ephemeral("You need the Administrator permission to use this command."),
		outcome:  audit.OutcomeDenied,
	}
}

func ephemeral(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}
