package handlers

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"strikebot/bot"
	"strikebot/giveaway"
	"strikebot/utils"
	"strikebot/utils/logger"
)

func handleGiveawayCommand(ctx context.Context, b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 || data.Options[0].Name != "create" {
		utils.SendFollowUpError(s, i.Interaction, "Unknown subcommand.")
		return
	}
	opts := optionMap(data.Options[0].Options)

	endAt, err := utils.ParseEndTime(opts.string("ends"), b.Clock.Now(), b.Config.Location())
	if err != nil {
		utils.SendFollowUpError(s, i.Interaction, "Invalid end time. Use 30m, 2h, 1d, HH:MM or YYYY-MM-DD HH:MM.")
		return
	}

	in := &giveaway.CreateInput{
		GuildID:         i.GuildID,
		CreatorID:       i.Member.User.ID,
		Prize:           opts.string("prize"),
		Description:     opts.string("description"),
		EndAt:           endAt,
		MaxParticipants: opts.int("max_entries", 0),
		WinnersCount:    opts.int("winners", 1),
	}
	if opt, ok := opts["channel"]; ok {
		in.ChannelID = opt.ChannelValue(nil).ID
	}
	if opt, ok := opts["image"]; ok && data.Resolved != nil {
		if id, ok := opt.Value.(string); ok {
			if a := data.Resolved.Attachments[id]; a != nil {
				in.ThumbnailURL = a.URL
			}
		}
	}

	g, err := b.Giveaways.Create(ctx, in)
	if err != nil {
		replyError(s, i, "giveaway create", err)
		return
	}
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("🎉 Giveaway **%s** (#%d) posted in <#%s>.", g.Prize, g.ID, g.ChannelID))
}

func handleGiveawayButton(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate, action giveaway.Action, id int64) {
	if i.Member == nil || i.Member.User == nil {
		return
	}
	if err := utils.DeferResponse(s, i, true); err != nil {
		logger.Errorf("Failed to defer giveaway button %s: %v", i.ID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	userID := i.Member.User.ID

	switch action {
	case giveaway.ActionJoin:
		status, err := b.Giveaways.Join(ctx, id, userID)
		if err != nil {
			replyError(s, i, "giveaway join", err)
			return
		}
		if status == giveaway.AlreadyJoined {
			utils.SendFollowUp(s, i.Interaction, "ℹ️ You already joined this giveaway.")
			return
		}
		utils.SendFollowUp(s, i.Interaction, "✅ You joined the giveaway. Good luck!")
	case giveaway.ActionLeave:
		status, err := b.Giveaways.Leave(ctx, id, userID)
		if err != nil {
			replyError(s, i, "giveaway leave", err)
			return
		}
		if status == giveaway.NotParticipating {
			utils.SendFollowUp(s, i.Interaction, "ℹ️ You were not participating.")
			return
		}
		utils.SendFollowUp(s, i.Interaction, "👋 You left the giveaway.")
	case giveaway.ActionCancel:
		if err := b.Giveaways.Cancel(ctx, id, userID); err != nil {
			replyError(s, i, "giveaway cancel", err)
			return
		}
		utils.SendFollowUp(s, i.Interaction, "🛑 Giveaway cancelled.")
	case giveaway.ActionReroll:
		winners, err := b.Giveaways.Reroll(ctx, id, userID)
		if err != nil {
			replyError(s, i, "giveaway reroll", err)
			return
		}
		utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("🔁 Rerolled, %d new winner(s) announced.", len(winners)))
	}
}
