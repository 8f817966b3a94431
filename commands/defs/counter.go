package defs

import "github.com/bwmarrin/discordgo"

var Counter = &discordgo.ApplicationCommand{
	Name:                     "counter",
	Description:              "Member and follower counter channels",
	DefaultMemberPermissions: &manageGuild,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "setup",
			Description: "Create the counter channels and enable automatic updates",
			DescriptionLocalizations: map[discordgo.Locale]string{
				discordgo.Dutch: "Maak de counter kanalen aan en zet auto-update aan",
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "refresh",
			Description: "Refresh the counters now",
			DescriptionLocalizations: map[discordgo.Locale]string{
				discordgo.Dutch: "Refresh de counters nu",
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "override",
			Description: "Set or clear a manual value for one counter",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "kind",
					Description: "Counter",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Members", Value: "members"},
						{Name: "Twitch", Value: "twitch"},
						{Name: "Instagram", Value: "instagram"},
						{Name: "TikTok", Value: "tiktok"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "value",
					Description: "Manual value, leave empty to clear the override",
					Required:    false,
					MinValue:    &minZero,
				},
			},
		},
	},
}
