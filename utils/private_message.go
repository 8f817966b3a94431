package utils

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// DirectMessenger is the part of the platform needed to DM a user.
type DirectMessenger interface {
	SendDM(ctx context.Context, userID string, msg *discordgo.MessageSend) error
}

// SendPrivateEmbedMessage sends a direct message with an embed to a user.
// Users with closed DMs make this fail routinely, so callers usually discard the error.
func SendPrivateEmbedMessage(ctx context.Context, m DirectMessenger, userID string, embed *discordgo.MessageEmbed) error {
	return m.SendDM(ctx, userID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
}
