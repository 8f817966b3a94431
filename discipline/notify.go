package discipline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"strikebot/model"
	"strikebot/utils"
)

const dmColor = 0xff0000

// WebhookPayload is posted to the ban webhook on a strike-3 ban.
type WebhookPayload struct {
	GuildID       string `json:"guild_id"`
	DiscordUserID string `json:"discord_user_id"`
	DiscordTag    string `json:"discord_tag"`
	Reason        string `json:"reason"`
	Event         string `json:"event"`
}

func (e *Engine) notifyTarget(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	return utils.SendPrivateEmbedMessage(ctx, e.platform, userID, embed)
}

func (e *Engine) audit(ctx context.Context, embed *discordgo.MessageEmbed) error {
	if e.modLogChannelID == "" {
		return nil
	}
	_, err := e.platform.SendMessage(ctx, e.modLogChannelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
	return err
}

func (e *Engine) notifyBanWebhook(ctx context.Context, guildID, userID, tag, reason string) error {
	if e.banWebhookURL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return utils.PostWebhook(ctx, e.http, e.banWebhookURL, WebhookPayload{
		GuildID:       guildID,
		DiscordUserID: userID,
		DiscordTag:    tag,
		Reason:        reason,
		Event:         "strike3_ban",
	})
}

func orNone(reason string) string {
	if reason == "" {
		return "(no reason given)"
	}
	return reason
}

func dm(title, guildName string, at time.Time, fields ...*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("Server: **%s**", guildName),
		Color:       dmColor,
		Fields:      fields,
		Timestamp:   at.UTC().Format(time.RFC3339),
	}
}

func strikeDM(guildName string, count int, reason string, d time.Duration, at, until time.Time) *discordgo.MessageEmbed {
	return dm(fmt.Sprintf("Warning: Strike %d", count), guildName, at,
		&discordgo.MessageEmbedField{Name: "Punishment", Value: "Muted for " + formatDuration(d)},
		&discordgo.MessageEmbedField{Name: "Until", Value: timestamp(until, "F")},
		&discordgo.MessageEmbedField{Name: "Reason", Value: orNone(reason)},
	)
}

func banDM(guildName, reason string, at time.Time) *discordgo.MessageEmbed {
	return dm("Strike 3: you have been banned", guildName, at,
		&discordgo.MessageEmbedField{Name: "Punishment", Value: "Ban"},
		&discordgo.MessageEmbedField{Name: "Reason", Value: orNone(reason)},
	)
}

func unmuteDM(guildName string, at time.Time) *discordgo.MessageEmbed {
	return dm("You are no longer muted", guildName, at)
}

func actionDM(title, guildName, action, reason string, at time.Time) *discordgo.MessageEmbed {
	return dm(title, guildName, at,
		&discordgo.MessageEmbedField{Name: "Action", Value: action},
		&discordgo.MessageEmbedField{Name: "Reason", Value: orNone(reason)},
	)
}

func strikeAudit(in *StrikeInput, tag string, count int, p model.Punishment, d time.Duration, at time.Time) *discordgo.MessageEmbed {
	if p == model.PunishmentBan {
		return utils.AuditEmbed(utils.Error, fmt.Sprintf("Strike %d: ban", count), at,
			utils.Field("User", userRef(in.TargetID, tag)),
			utils.Field("Moderator", "<@"+in.ModeratorID+">"),
			utils.Field("Reason", in.Reason),
		)
	}
	return utils.AuditEmbed(utils.Warn, fmt.Sprintf("Strike %d: mute", count), at,
		utils.Field("User", userRef(in.TargetID, tag)),
		utils.Field("Duration", formatDuration(d)),
		utils.Field("Moderator", "<@"+in.ModeratorID+">"),
		utils.Field("Reason", in.Reason),
	)
}

func userRef(userID, tag string) string {
	if tag == "" {
		return "<@" + userID + ">"
	}
	return fmt.Sprintf("%s (<@%s>)", tag, userID)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
