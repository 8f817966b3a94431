package defs

import "github.com/bwmarrin/discordgo"

var Giveaway = &discordgo.ApplicationCommand{
	Name:         "giveaway",
	Description:  "Giveaway commands (admins and crew)",
	DMPermission: &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "create",
			Description: "Post a new giveaway",
			DescriptionLocalizations: map[discordgo.Locale]string{
				discordgo.Dutch: "Maak een giveaway",
			},
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prize",
					Description: "For example: 1000 V-Bucks",
					Required:    true,
					MaxLength:   200,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "ends",
					Description: "For example: 30m, 2h, 1d, 19:00 or 2026-01-12 19:00",
					Required:    true,
				},
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Channel to post the giveaway in",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews},
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "winners",
					Description: "Number of winners (default 1)",
					Required:    false,
					MinValue:    &minOne,
					MaxValue:    maxWarns,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "max_entries",
					Description: "Maximum number of entries (optional)",
					Required:    false,
					MinValue:    &minOne,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "description",
					Description: "Extra text",
					Required:    false,
					MaxLength:   1000,
				},
				{
					Type:        discordgo.ApplicationCommandOptionAttachment,
					Name:        "image",
					Description: "Optional thumbnail image",
					Required:    false,
				},
			},
		},
	},
}
