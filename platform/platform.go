// Package platform is the narrow surface of the Discord API the engines depend on.
package platform

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
)

// ErrNotFound is returned when a guild, member, channel or message no longer exists.
var ErrNotFound = errors.New("platform: not found")

// Platform is implemented by Discord and by in-memory fakes in tests.
type Platform interface {
	BotUserID() string

	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error)
	GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error)
	MemberCount(ctx context.Context, guildID string) (int, error)
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)

	SetMemberRoles(ctx context.Context, guildID, userID string, roleIDs []string) error
	AddMemberRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error
	CreateRole(ctx context.Context, guildID, name string) (*discordgo.Role, error)

	Ban(ctx context.Context, guildID, userID, reason string, deleteMessageDays int) error
	Kick(ctx context.Context, guildID, userID, reason string) error

	SendDM(ctx context.Context, userID string, msg *discordgo.MessageSend) error
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	EditMessage(ctx context.Context, edit *discordgo.MessageEdit) error
	ChannelMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error)
	DeleteMessages(ctx context.Context, channelID string, messageIDs []string) error

	CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error)
	RenameChannel(ctx context.Context, channelID, name string) error
	SetChannelPermission(ctx context.Context, channelID, targetID string, allow, deny int64) error
}

// TopRolePosition returns the highest position among roleIDs, 0 for none.
func TopRolePosition(roles []*discordgo.Role, roleIDs []string) int {
	held := make(map[string]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = struct{}{}
	}
	top := 0
	for _, r := range roles {
		if _, ok := held[r.ID]; ok && r.Position > top {
			top = r.Position
		}
	}
	return top
}

// HasAdministrator reports whether the member's roles grant the administrator permission.
func HasAdministrator(guild *discordgo.Guild, roles []*discordgo.Role, member *discordgo.Member) bool {
	if member == nil || member.User == nil {
		return false
	}
	if guild != nil && guild.OwnerID == member.User.ID {
		return true
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	held := make(map[string]struct{}, len(member.Roles))
	for _, id := range member.Roles {
		held[id] = struct{}{}
	}
	for _, r := range roles {
		if _, ok := held[r.ID]; ok && r.Permissions&discordgo.PermissionAdministrator != 0 {
			return true
		}
	}
	return false
}
