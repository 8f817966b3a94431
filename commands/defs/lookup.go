package defs

import "github.com/bwmarrin/discordgo"

var Weather = &discordgo.ApplicationCommand{
	Name:        "weer",
	Description: "Show the current weather and the 7-day forecast",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Toon het actuele weer en de 7-daagse verwachting",
	},
	DMPermission: &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "location",
			Description: "City or place",
			DescriptionLocalizations: map[discordgo.Locale]string{
				discordgo.Dutch: "Stad / plaats",
			},
			Required: true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "unit",
			Description: "c or f",
			Required:    false,
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "Celsius", Value: "c"},
				{Name: "Fahrenheit", Value: "f"},
			},
		},
	},
}

var Search = &discordgo.ApplicationCommand{
	Name:        "zoek",
	Description: "Search the web (DuckDuckGo). 30s cooldown, admins bypass",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Zoek op het web (DuckDuckGo). 30s cooldown, admins uitgezonderd",
	},
	DMPermission: &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "query",
			Description: "What you want to search for",
			DescriptionLocalizations: map[discordgo.Locale]string{
				discordgo.Dutch: "Waar wil je naar zoeken",
			},
			Required:  true,
			MaxLength: 200,
		},
	},
}
