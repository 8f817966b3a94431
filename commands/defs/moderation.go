package defs

import "github.com/bwmarrin/discordgo"

var (
	moderateMembers int64 = discordgo.PermissionModerateMembers
	manageMessages  int64 = discordgo.PermissionManageMessages
	kickMembers     int64 = discordgo.PermissionKickMembers
	banMembers      int64 = discordgo.PermissionBanMembers
	manageGuild     int64 = discordgo.PermissionManageGuild
	noDM                  = false
)

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    true,
	}
}

func reasonOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Reason (optional)",
		Required:    false,
		MaxLength:   500,
	}
}

var Mute = &discordgo.ApplicationCommand{
	Name:        "mute",
	Description: "Give a strike and apply the ladder punishment (24h / 7 days / ban)",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Geef een strike en voer de standaard straf uit (24u / 7 dagen / ban)",
	},
	DefaultMemberPermissions: &moderateMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member to strike"),
		reasonOption(),
	},
}

var Unmute = &discordgo.ApplicationCommand{
	Name:        "unmute",
	Description: "Lift a mute and restore the member's roles",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Haal demping weg en herstel rollen",
	},
	DefaultMemberPermissions: &moderateMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member to unmute"),
		reasonOption(),
	},
}

var Strikes = &discordgo.ApplicationCommand{
	Name:        "strikes",
	Description: "Show the strike count of a member",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Bekijk het aantal strikes van een gebruiker",
	},
	DefaultMemberPermissions: &moderateMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member"),
	},
}

var ResetStrikes = &discordgo.ApplicationCommand{
	Name:        "resetstrikes",
	Description: "Reset the strikes of a member to zero",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Reset strikes van een gebruiker",
	},
	DefaultMemberPermissions: &moderateMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member"),
		reasonOption(),
	},
}

var Warn = &discordgo.ApplicationCommand{
	Name:        "warn",
	Description: "Warn a member (DM) and log it in the mod-log channel",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Geef een waarschuwing (met DM) en log in het modlog kanaal",
	},
	DefaultMemberPermissions: &moderateMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member to warn"),
		reasonOption(),
	},
}

var Warns = &discordgo.ApplicationCommand{
	Name:        "warns",
	Description: "Show the warning count of a member",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Bekijk het aantal waarschuwingen van een gebruiker",
	},
	DefaultMemberPermissions: &moderateMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member"),
	},
}

var (
	minAmount float64 = 1
	maxWarns  float64 = 50
	maxPurge  float64 = 200
	maxDays   float64 = 7
	minZero   float64 = 0
	minOne    float64 = 1
)

var RemoveWarn = &discordgo.ApplicationCommand{
	Name:        "removewarn",
	Description: "Remove one or more warnings from a member",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Verwijder 1 (of meer) waarschuwing(en) van een gebruiker",
	},
	DefaultMemberPermissions: &moderateMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member"),
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "amount",
			Description: "How many warnings to remove (default 1)",
			Required:    false,
			MinValue:    &minAmount,
			MaxValue:    maxWarns,
		},
		reasonOption(),
	},
}

var ResetWarns = &discordgo.ApplicationCommand{
	Name:        "resetwarns",
	Description: "Reset the warnings of a member to zero",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Reset waarschuwingen van een gebruiker naar 0",
	},
	DefaultMemberPermissions: &moderateMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member"),
		reasonOption(),
	},
}

var Purge = &discordgo.ApplicationCommand{
	Name:        "purge",
	Description: "Delete recent messages, optionally only those of one member",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Verwijder berichten (optioneel alleen van een gebruiker)",
	},
	DefaultMemberPermissions: &manageMessages,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "amount",
			Description: "Number of messages (1-200)",
			Required:    true,
			MinValue:    &minAmount,
			MaxValue:    maxPurge,
		},
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Only delete messages of this member",
			Required:    false,
		},
		reasonOption(),
	},
}

var Kick = &discordgo.ApplicationCommand{
	Name:        "kick",
	Description: "Kick a member (DM first) and log it in the mod-log channel",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Kick een gebruiker (met DM) en log in het modlog kanaal",
	},
	DefaultMemberPermissions: &kickMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member to kick"),
		reasonOption(),
	},
}

var Ban = &discordgo.ApplicationCommand{
	Name:        "ban",
	Description: "Ban a member (DM first) and log it in the mod-log channel",
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Dutch: "Ban een gebruiker (eerst DM) en log in modlog",
	},
	DefaultMemberPermissions: &banMembers,
	DMPermission:             &noDM,
	Options: []*discordgo.ApplicationCommandOption{
		userOption("Member to ban"),
		reasonOption(),
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "delete_days",
			Description: "Delete messages of the last X days (0-7)",
			Required:    false,
			MinValue:    &minZero,
			MaxValue:    maxDays,
		},
	},
}
