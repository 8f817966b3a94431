package commands

import (
	"github.com/bwmarrin/discordgo"

	"strikebot/commands/defs"
)

// GenerateCommands returns every slash command the bot registers. Counter and
// lookup commands are only offered when their features are enabled.
func GenerateCommands(countersEnabled, lookupEnabled bool) []*discordgo.ApplicationCommand {
	cmds := []*discordgo.ApplicationCommand{
		defs.Mute,
		defs.Unmute,
		defs.Strikes,
		defs.ResetStrikes,
		defs.Warn,
		defs.Warns,
		defs.RemoveWarn,
		defs.ResetWarns,
		defs.Purge,
		defs.Kick,
		defs.Ban,
		defs.SetupRoles,
		defs.ModStats,
		defs.BotStatus,
		defs.Giveaway,
	}
	if countersEnabled {
		cmds = append(cmds, defs.Counter)
	}
	if lookupEnabled {
		cmds = append(cmds, defs.Weather, defs.Search)
	}
	return cmds
}
