package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/roach88/resbot/internal/render"
)

// Slash command names.
const (
	CmdResolution = "resolution"
	CmdLatest     = "latestresolutions"
	CmdReload     = "reloadresolutions"
	CmdCreate     = "createresolution"
)

// Option names.
const (
	OptCaseNumber  = "case_number"
	OptLimit       = "limit"
	OptTitle       = "title"
	OptPreamble    = "preamble"
	OptType        = "type"
	OptSubmittedBy = "submitted_by"
	OptDate        = "date"
	OptSignatories = "signatories"
	OptClauses     = "clauses"
	OptConclusion  = "conclusion"
)

// adminPermission is the default member permission for mutating commands.
var adminPermission int64 = discordgo.PermissionAdministrator

// Commands returns the slash command set registered with Discord.
// defaultLimit is advertised in the /latestresolutions option description.
func Commands(defaultLimit int) []*discordgo.ApplicationCommand {
	minLimit := float64(1)
	return []*discordgo.ApplicationCommand{
		{
			Name:        CmdResolution,
			Description: "Get resolution by case number",
			Options: []*discordgo.ApplicationCommandOption{
				stringOption(OptCaseNumber, "The case number of the resolution"),
			},
		},
		{
			Name:        CmdLatest,
			Description: "List the most recent resolutions",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        OptLimit,
					Description: fmt.Sprintf("How many to show (default %d)", defaultLimit),
					MinValue:    &minLimit,
					MaxValue:    render.MaxFields,
				},
			},
		},
		{
			Name:                     CmdReload,
			Description:              "Reload resolutions from the JSON file",
			DefaultMemberPermissions: &adminPermission,
		},
		{
			Name:                     CmdCreate,
			Description:              "Create a new resolution",
			DefaultMemberPermissions: &adminPermission,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption(OptCaseNumber, "The case number of the resolution"),
				stringOption(OptTitle, "The title of the resolution"),
				stringOption(OptPreamble, "The preamble of the resolution"),
				stringOption(OptType, "The type of the resolution"),
				stringOption(OptSubmittedBy, "Who submitted the resolution"),
				stringOption(OptDate, "The date of the resolution (YYYY-MM-DD)"),
				stringOption(OptSignatories, "Comma-separated list of signatories"),
				stringOption(OptClauses, "Comma-separated list of operative clauses"),
				stringOption(OptConclusion, "The conclusion of the resolution"),
			},
		},
	}
}

func stringOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    true,
	}
}

// optionValues indexes the invocation's options by name.
func optionValues(data discordgo.ApplicationCommandInteractionData) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		out[opt.Name] = opt
	}
	return out
}

func stringValue(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok && opt.Type == discordgo.ApplicationCommandOptionString {
		return opt.StringValue()
	}
	return ""
}

func intValue(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string, fallback int) int {
	if opt, ok := opts[name]; ok && opt.Type == discordgo.ApplicationCommandOptionInteger {
		return int(opt.IntValue())
	}
	return fallback
}
