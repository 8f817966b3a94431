package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"strikebot/bot"
	"strikebot/discipline"
	"strikebot/model"
	"strikebot/tasks"
	"strikebot/utils"
	"strikebot/utils/logger"
)

const alreadyProcessed = "⚠️ This command was already processed."

func handleMute(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i.ApplicationCommandData().Options)
	target := opts.userID("user")

	out, err := b.Discipline.ApplyStrike(ctx, &discipline.StrikeInput{
		GuildID:     i.GuildID,
		ModeratorID: i.Member.User.ID,
		TargetID:    target,
		Reason:      opts.string("reason"),
		ActionID:    i.ID,
	})
	if err != nil {
		replyError(s, i, "mute", err)
		return
	}
	switch {
	case out.AlreadyProcessed:
		utils.SendFollowUp(s, i.Interaction, alreadyProcessed)
	case out.Punishment == model.PunishmentBan:
		utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("⛔ <@%s> received **Strike %d** and has been **permanently banned**.", target, out.Strikes))
	default:
		utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("🔇 <@%s> received **Strike %d** → muted until <t:%d:f> (<t:%d:R>).",
			target, out.Strikes, out.UnmuteAt.Unix(), out.UnmuteAt.Unix()))
	}
}

func handleUnmute(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := optionMap(i.ApplicationCommandData().Options).userID("user")
	if !b.Discipline.Unmute(ctx, i.GuildID, target) {
		utils.SendFollowUpError(s, i.Interaction, fmt.Sprintf("Could not restore the roles of <@%s>. Check that my role is above theirs.", target))
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("✅ <@%s> has been unmuted and their roles are restored.", target))
}

func handleStrikes(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := optionMap(i.ApplicationCommandData().Options).userID("user")
	n, err := b.Discipline.Strikes(ctx, i.GuildID, target)
	if err != nil {
		replyError(s, i, "strikes", err)
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("📌 <@%s> has **%d** strike(s).", target, n))
}

func handleResetStrikes(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := optionMap(i.ApplicationCommandData().Options).userID("user")
	if err := b.Discipline.ResetStrikes(ctx, i.GuildID, target); err != nil {
		replyError(s, i, "resetstrikes", err)
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("♻️ Strikes of <@%s> have been reset to 0.", target))
}

func warnInput(i *discordgo.InteractionCreate, opts options) *discipline.WarnInput {
	return &discipline.WarnInput{
		GuildID:     i.GuildID,
		ModeratorID: i.Member.User.ID,
		TargetID:    opts.userID("user"),
		Reason:      opts.string("reason"),
		ActionID:    i.ID,
	}
}

func handleWarn(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	in := warnInput(i, optionMap(i.ApplicationCommandData().Options))
	out, err := b.Discipline.IncrementWarn(ctx, in)
	if err != nil {
		replyError(s, i, "warn", err)
		return
	}
	if out.AlreadyProcessed {
		utils.SendFollowUp(s, i.Interaction, alreadyProcessed)
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("⚠️ <@%s> has been warned. Total warnings: **%d**.", in.TargetID, out.Warns))
}

func handleWarns(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := optionMap(i.ApplicationCommandData().Options).userID("user")
	n, err := b.Discipline.Warns(ctx, i.GuildID, target)
	if err != nil {
		replyError(s, i, "warns", err)
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("📌 <@%s> has **%d** warning(s).", target, n))
}

func handleRemoveWarn(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i.ApplicationCommandData().Options)
	in := warnInput(i, opts)
	amount := opts.int("amount", 1)
	out, err := b.Discipline.DecrementWarn(ctx, in, amount)
	if err != nil {
		replyError(s, i, "removewarn", err)
		return
	}
	if out.AlreadyProcessed {
		utils.SendFollowUp(s, i.Interaction, alreadyProcessed)
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("✅ Removed up to %d warning(s) from <@%s>. Now: **%d**.", amount, in.TargetID, out.Warns))
}

func handleResetWarns(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	in := warnInput(i, optionMap(i.ApplicationCommandData().Options))
	if err := b.Discipline.DeleteWarn(ctx, in); err != nil {
		replyError(s, i, "resetwarns", err)
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("♻️ Warnings of <@%s> have been reset to 0.", in.TargetID))
}

func moderationInput(i *discordgo.InteractionCreate, opts options) *discipline.ModerationInput {
	return &discipline.ModerationInput{
		GuildID:     i.GuildID,
		ModeratorID: i.Member.User.ID,
		TargetID:    opts.userID("user"),
		Reason:      opts.string("reason"),
		ActionID:    i.ID,
		DeleteDays:  opts.int("delete_days", 0),
	}
}

func handleKick(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	in := moderationInput(i, optionMap(i.ApplicationCommandData().Options))
	claimed, err := b.Discipline.Kick(ctx, in)
	if err != nil {
		replyError(s, i, "kick", err)
		return
	}
	if !claimed {
		utils.SendFollowUp(s, i.Interaction, alreadyProcessed)
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("👢 <@%s> has been kicked.", in.TargetID))
}

func handleBan(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	in := moderationInput(i, optionMap(i.ApplicationCommandData().Options))
	claimed, err := b.Discipline.Ban(ctx, in)
	if err != nil {
		replyError(s, i, "ban", err)
		return
	}
	if !claimed {
		utils.SendFollowUp(s, i.Interaction, alreadyProcessed)
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("⛔ <@%s> has been banned.", in.TargetID))
}

func handlePurge(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := optionMap(i.ApplicationCommandData().Options)
	n, err := b.Discipline.Purge(ctx, &discipline.PurgeInput{
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		ModeratorID: i.Member.User.ID,
		UserID:      opts.userID("user"),
		Amount:      opts.int("amount", 0),
		Reason:      opts.string("reason"),
	})
	if err != nil {
		replyError(s, i, "purge", err)
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("🧹 Deleted %d message(s).", n))
}

func handleSetupRoles(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	res, err := b.Discipline.EnsureRoles(ctx, i.GuildID)
	if err != nil {
		replyError(s, i, "setuproles", err)
		return
	}
	created := "none"
	if len(res.CreatedRoles) > 0 {
		created = strings.Join(res.CreatedRoles, ", ")
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("✅ Roles are ready. Created: %s. Updated %d channel(s).", created, res.UpdatedChannels))
}

func handleModStats(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	embed, page, pages, err := tasks.GenerateDisciplineStatsEmbed(ctx, b.Store, i.GuildID, b.Clock.Now(), 1)
	if err != nil {
		replyError(s, i, "modstats", err)
		return
	}
	utils.SendFollowUpEmbed(s, i.Interaction, embed, utils.PaginationComponents(page, pages, tasks.StatsPagePrefix)...)
}

func handleModStatsPage(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, page int) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	embed, page, pages, err := tasks.GenerateDisciplineStatsEmbed(ctx, b.Store, i.GuildID, b.Clock.Now(), page)
	if err != nil {
		logger.Errorf("modstats page failed for interaction %s: %v", i.ID, err)
		utils.SendErrorResponse(s, i, "Something went wrong, try again later.")
		return
	}
	utils.UpdateEmbedResponse(s, i, embed, utils.PaginationComponents(page, pages, tasks.StatsPagePrefix))
}
