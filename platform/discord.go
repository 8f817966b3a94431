package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// Discord implements Platform on top of a discordgo session.
type Discord struct {
	Session *discordgo.Session
}

// NewDiscord wraps an open session.
func NewDiscord(s *discordgo.Session) *Discord {
	return &Discord{Session: s}
}

func (d *Discord) BotUserID() string {
	if d.Session.State != nil && d.Session.State.User != nil {
		return d.Session.State.User.ID
	}
	return ""
}

func (d *Discord) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	g, err := d.Session.Guild(guildID, discordgo.WithContext(ctx))
	return g, wrap(err)
}

func (d *Discord) GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	roles, err := d.Session.GuildRoles(guildID, discordgo.WithContext(ctx))
	return roles, wrap(err)
}

func (d *Discord) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	channels, err := d.Session.GuildChannels(guildID, discordgo.WithContext(ctx))
	return channels, wrap(err)
}

func (d *Discord) MemberCount(ctx context.Context, guildID string) (int, error) {
	g, err := d.Session.GuildWithCounts(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return 0, wrap(err)
	}
	return g.ApproximateMemberCount, nil
}

func (d *Discord) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	m, err := d.Session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	return m, wrap(err)
}

func (d *Discord) SetMemberRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	roles := append([]string{}, roleIDs...)
	_, err := d.Session.GuildMemberEdit(guildID, userID, &discordgo.GuildMemberParams{Roles: &roles}, discordgo.WithContext(ctx))
	return wrap(err)
}

func (d *Discord) AddMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	return wrap(d.Session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

func (d *Discord) RemoveMemberRole(ctx context.Context, guildID, userID, roleID string) error {
	return wrap(d.Session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

func (d *Discord) CreateRole(ctx context.Context, guildID, name string) (*discordgo.Role, error) {
	role, err := d.Session.GuildRoleCreate(guildID, &discordgo.RoleParams{Name: name}, discordgo.WithContext(ctx))
	return role, wrap(err)
}

func (d *Discord) Ban(ctx context.Context, guildID, userID, reason string, deleteMessageDays int) error {
	return wrap(d.Session.GuildBanCreateWithReason(guildID, userID, reason, deleteMessageDays, discordgo.WithContext(ctx)))
}

func (d *Discord) Kick(ctx context.Context, guildID, userID, reason string) error {
	return wrap(d.Session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx)))
}

func (d *Discord) SendDM(ctx context.Context, userID string, msg *discordgo.MessageSend) error {
	channel, err := d.Session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open private channel with user %s: %w", userID, wrap(err))
	}
	_, err = d.Session.ChannelMessageSendComplex(channel.ID, msg, discordgo.WithContext(ctx))
	return wrap(err)
}

func (d *Discord) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	m, err := d.Session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	return m, wrap(err)
}

func (d *Discord) EditMessage(ctx context.Context, edit *discordgo.MessageEdit) error {
	_, err := d.Session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return wrap(err)
}

func (d *Discord) ChannelMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error) {
	msgs, err := d.Session.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	return msgs, wrap(err)
}

func (d *Discord) DeleteMessages(ctx context.Context, channelID string, messageIDs []string) error {
	switch len(messageIDs) {
	case 0:
		return nil
	case 1:
		return wrap(d.Session.ChannelMessageDelete(channelID, messageIDs[0], discordgo.WithContext(ctx)))
	default:
		return wrap(d.Session.ChannelMessagesBulkDelete(channelID, messageIDs, discordgo.WithContext(ctx)))
	}
}

func (d *Discord) CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	c, err := d.Session.GuildChannelCreateComplex(guildID, data, discordgo.WithContext(ctx))
	return c, wrap(err)
}

func (d *Discord) RenameChannel(ctx context.Context, channelID, name string) error {
	_, err := d.Session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	return wrap(err)
}

func (d *Discord) SetChannelPermission(ctx context.Context, channelID, targetID string, allow, deny int64) error {
	return wrap(d.Session.ChannelPermissionSet(channelID, targetID, discordgo.PermissionOverwriteTypeRole, allow, deny, discordgo.WithContext(ctx)))
}

// wrap maps Discord 404 responses onto ErrNotFound and keeps the original error text.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
