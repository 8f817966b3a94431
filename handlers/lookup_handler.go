package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/bwmarrin/discordgo"

	"strikebot/bot"
	"strikebot/tasks/lookup"
	"strikebot/utils"
	"strikebot/utils/logger"
)

func handleWeather(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i.ApplicationCommandData().Options)
	unit, err := lookup.ParseUnit(opts.string("unit"))
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, "Unit must be `c` or `f`.")
		return
	}
	report, err := b.Lookup.Weather.Lookup(ctx, opts.string("location"), unit)
	switch {
	case errors.Is(err, lookup.ErrLocationNotFound):
		utils.SendFollowUpError(s, i.Interaction, "Location not found.")
		return
	case err != nil:
		logger.Warnf("Weather lookup for interaction %s failed: %v", i.ID, err)
		utils.SendFollowUpError(s, i.Interaction, "Weather service is unavailable, try again later.")
		return
	}
	utils.SendFollowUpEmbed(s, i.Interaction, lookup.WeatherEmbed(report))
}

// searchCommand applies the per-member cooldown before the reply is deferred,
// so a blocked member only gets an ephemeral notice.
func searchCommand(b *bot.Bot) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	run := deferred(b, false, handleSearch)
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
			utils.SendErrorResponse(s, i, "This command only works in a server.")
			return
		}
		if !isAdmin(b, i.Member) {
			if wait, ok := b.Lookup.Cooldown.Allow(i.Member.User.ID, b.Clock.Now()); !ok {
				utils.SendErrorResponse(s, i, fmt.Sprintf("⏳ Slow down, try again in **%ds**.", int(math.Ceil(wait.Seconds()))))
				return
			}
		}
		run(s, i)
	}
}

func isAdmin(b *bot.Bot, m *discordgo.Member) bool {
	administrator := m.Permissions&discordgo.PermissionAdministrator != 0
	return utils.CheckPermission(m.Roles, administrator, b.Config.Discord.AdminRoleIDs, b.Config.Discord.CrewRoleIDs) == utils.AdminPermission
}

func handleSearch(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	query := optionMap(i.ApplicationCommandData().Options).string("query")
	results, err := b.Lookup.Search.Query(ctx, query)
	switch {
	case errors.Is(err, lookup.ErrNoResults):
		utils.SendFollowUp(s, i.Interaction, "No results found.")
		return
	case err != nil:
		logger.Warnf("Search for interaction %s failed: %v", i.ID, err)
		utils.SendFollowUpError(s, i.Interaction, "Search failed, try again later.")
		return
	}

	wiki, _ := b.Lookup.Search.WikipediaSummary(ctx, results[0].URL)
	set := b.Lookup.Results.Put(i.Member.User.ID, query, results, wiki, b.Clock.Now())
	embed, page := set.Embed(1)
	utils.SendFollowUpEmbed(s, i.Interaction, embed, set.Components(page)...)
}

func handleSearchPage(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, id string, page int) {
	if b.Lookup == nil || i.Member == nil || i.Member.User == nil {
		return
	}
	set, ok := b.Lookup.Results.Get(id, b.Clock.Now())
	if !ok {
		utils.SendErrorResponse(s, i, "This search has expired, run /zoek again.")
		return
	}
	if set.OwnerID != i.Member.User.ID {
		utils.SendErrorResponse(s, i, "⛔ This menu isn't for you.")
		return
	}
	embed, page := set.Embed(page)
	utils.UpdateEmbedResponse(s, i, embed, set.Components(page))
}
