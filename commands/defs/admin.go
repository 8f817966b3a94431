package defs

import "github.com/bwmarrin/discordgo"

var SetupRoles = &discordgo.ApplicationCommand{
	Name:        "setuproles",
	Description: "Create the strike and mute roles and lock channels for muted members",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Maak de strike- en demprollen aan en stel kanaalrechten in",
	},
	DefaultMemberPermissions: &manageGuild,
	DMPermission:             &noDM,
}

var BotStatus = &discordgo.ApplicationCommand{
	Name:        "botstatus",
	Description: "Show host and runtime information",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Toon systeem- en runtime-informatie",
	},
	DefaultMemberPermissions: &manageGuild,
	DMPermission:             &noDM,
}

var ModStats = &discordgo.ApplicationCommand{
	Name:        "modstats",
	Description: "Show members with strikes or warnings and the active mutes",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Toon leden met strikes of waarschuwingen en actieve dempingen",
	},
	DefaultMemberPermissions: &moderateMembers,
	DMPermission:             &noDM,
}
