// Package platformtest provides an in-memory Platform for tests.
package platformtest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"strikebot/platform"
)

// Fake is a single-process stand-in for Discord. All methods are safe for
// concurrent use. Failure hooks are set directly on the exported fields.
type Fake struct {
	mu sync.Mutex

	BotID    string
	guilds   map[string]*discordgo.Guild
	roles    map[string][]*discordgo.Role
	channels map[string][]*discordgo.Channel
	members  map[string]map[string]*discordgo.Member
	messages map[string][]*discordgo.Message
	nextID   int

	BanErr      error
	KickErr     error
	DMErr       error
	SetRolesErr error

	RoleEdits []RoleEdit
	DMs       map[string][]*discordgo.MessageSend
	Sent      map[string][]*discordgo.MessageSend
	Edits     []*discordgo.MessageEdit
	Bans      []string
	Kicks     []string
	Renames   map[string]string
	RenameN   int
	Deleted   []string
}

// RoleEdit records one SetMemberRoles call.
type RoleEdit struct {
	GuildID, UserID string
	RoleIDs         []string
}

var _ platform.Platform = (*Fake)(nil)

func New(botID string) *Fake {
	return &Fake{
		BotID:    botID,
		guilds:   make(map[string]*discordgo.Guild),
		roles:    make(map[string][]*discordgo.Role),
		channels: make(map[string][]*discordgo.Channel),
		members:  make(map[string]map[string]*discordgo.Member),
		messages: make(map[string][]*discordgo.Message),
		DMs:      make(map[string][]*discordgo.MessageSend),
		Sent:     make(map[string][]*discordgo.MessageSend),
		Renames:  make(map[string]string),
		nextID:   1000,
	}
}

func (f *Fake) id() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

// AddGuild registers a guild together with its @everyone role.
func (f *Fake) AddGuild(guildID, name, ownerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guilds[guildID] = &discordgo.Guild{ID: guildID, Name: name, OwnerID: ownerID}
	f.roles[guildID] = []*discordgo.Role{{ID: guildID, Name: "@everyone", Position: 0}}
	f.members[guildID] = make(map[string]*discordgo.Member)
}

func (f *Fake) RemoveGuild(guildID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.guilds, guildID)
}

func (f *Fake) AddRole(guildID string, role *discordgo.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[guildID] = append(f.roles[guildID], role)
}

func (f *Fake) DeleteRole(guildID, roleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[guildID] = slices.DeleteFunc(f.roles[guildID], func(r *discordgo.Role) bool { return r.ID == roleID })
}

func (f *Fake) AddChannel(guildID string, c *discordgo.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.GuildID = guildID
	f.channels[guildID] = append(f.channels[guildID], c)
}

func (f *Fake) AddMember(guildID, userID, username string, roleIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[guildID][userID] = &discordgo.Member{
		GuildID: guildID,
		User:    &discordgo.User{ID: userID, Username: username, Discriminator: "0"},
		Roles:   slices.Clone(roleIDs),
	}
}

func (f *Fake) RemoveMember(guildID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members[guildID], userID)
}

// MemberRoles returns a copy of the current roles of a member, nil when absent.
func (f *Fake) MemberRoles(guildID, userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[guildID][userID]
	if !ok {
		return nil
	}
	return slices.Clone(m.Roles)
}

// AddMessage appends a message to a channel; newest messages go last.
func (f *Fake) AddMessage(channelID, authorID string, at time.Time) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.messages[channelID] = append(f.messages[channelID], &discordgo.Message{
		ID: id, ChannelID: channelID, Author: &discordgo.User{ID: authorID}, Timestamp: at,
	})
	return id
}

func (f *Fake) RoleEditCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.RoleEdits)
}

func (f *Fake) BotUserID() string {
	return f.BotID
}

func (f *Fake) Guild(_ context.Context, guildID string) (*discordgo.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[guildID]
	if !ok {
		return nil, fmt.Errorf("guild %s: %w", guildID, platform.ErrNotFound)
	}
	c := *g
	return &c, nil
}

func (f *Fake) GuildRoles(_ context.Context, guildID string) ([]*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.guilds[guildID]; !ok {
		return nil, fmt.Errorf("guild %s: %w", guildID, platform.ErrNotFound)
	}
	out := make([]*discordgo.Role, 0, len(f.roles[guildID]))
	for _, r := range f.roles[guildID] {
		c := *r
		out = append(out, &c)
	}
	return out, nil
}

func (f *Fake) GuildChannels(_ context.Context, guildID string) ([]*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.channels[guildID]), nil
}

func (f *Fake) MemberCount(_ context.Context, guildID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.guilds[guildID]; !ok {
		return 0, fmt.Errorf("guild %s: %w", guildID, platform.ErrNotFound)
	}
	return len(f.members[guildID]), nil
}

func (f *Fake) Member(_ context.Context, guildID, userID string) (*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.guilds[guildID]; !ok {
		return nil, fmt.Errorf("guild %s: %w", guildID, platform.ErrNotFound)
	}
	m, ok := f.members[guildID][userID]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", userID, platform.ErrNotFound)
	}
	c := *m
	u := *m.User
	c.User = &u
	c.Roles = slices.Clone(m.Roles)
	return &c, nil
}

func (f *Fake) member(guildID, userID string) (*discordgo.Member, error) {
	m, ok := f.members[guildID][userID]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", userID, platform.ErrNotFound)
	}
	return m, nil
}

func (f *Fake) SetMemberRoles(_ context.Context, guildID, userID string, roleIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetRolesErr != nil {
		return f.SetRolesErr
	}
	m, err := f.member(guildID, userID)
	if err != nil {
		return err
	}
	m.Roles = slices.Clone(roleIDs)
	f.RoleEdits = append(f.RoleEdits, RoleEdit{GuildID: guildID, UserID: userID, RoleIDs: slices.Clone(roleIDs)})
	return nil
}

func (f *Fake) AddMemberRole(_ context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.member(guildID, userID)
	if err != nil {
		return err
	}
	if !slices.Contains(m.Roles, roleID) {
		m.Roles = append(m.Roles, roleID)
	}
	return nil
}

func (f *Fake) RemoveMemberRole(_ context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.member(guildID, userID)
	if err != nil {
		return err
	}
	m.Roles = slices.DeleteFunc(m.Roles, func(id string) bool { return id == roleID })
	return nil
}

func (f *Fake) CreateRole(_ context.Context, guildID, name string) (*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &discordgo.Role{ID: f.id(), Name: name, Position: 1}
	f.roles[guildID] = append(f.roles[guildID], r)
	c := *r
	return &c, nil
}

func (f *Fake) Ban(_ context.Context, guildID, userID, _ string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BanErr != nil {
		return f.BanErr
	}
	delete(f.members[guildID], userID)
	f.Bans = append(f.Bans, userID)
	return nil
}

// Banned reports whether userID was banned.
func (f *Fake) Banned(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.Bans, userID)
}

func (f *Fake) Kick(_ context.Context, guildID, userID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.KickErr != nil {
		return f.KickErr
	}
	delete(f.members[guildID], userID)
	f.Kicks = append(f.Kicks, userID)
	return nil
}

func (f *Fake) SendDM(_ context.Context, userID string, msg *discordgo.MessageSend) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DMErr != nil {
		return f.DMErr
	}
	f.DMs[userID] = append(f.DMs[userID], msg)
	return nil
}

func (f *Fake) SendMessage(_ context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent[channelID] = append(f.Sent[channelID], msg)
	return &discordgo.Message{ID: f.id(), ChannelID: channelID}, nil
}

func (f *Fake) EditMessage(_ context.Context, edit *discordgo.MessageEdit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Edits = append(f.Edits, edit)
	return nil
}

// ChannelMessages returns messages newest first, like Discord.
func (f *Fake) ChannelMessages(_ context.Context, channelID string, limit int, beforeID string) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.messages[channelID]
	end := len(all)
	if beforeID != "" {
		end = slices.IndexFunc(all, func(m *discordgo.Message) bool { return m.ID == beforeID })
		if end < 0 {
			return nil, errors.New("unknown message")
		}
	}
	var out []*discordgo.Message
	for i := end - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (f *Fake) DeleteMessages(_ context.Context, channelID string, messageIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[channelID] = slices.DeleteFunc(f.messages[channelID], func(m *discordgo.Message) bool {
		return slices.Contains(messageIDs, m.ID)
	})
	f.Deleted = append(f.Deleted, messageIDs...)
	return nil
}

func (f *Fake) CreateChannel(_ context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &discordgo.Channel{ID: f.id(), GuildID: guildID, Name: data.Name, Type: data.Type, ParentID: data.ParentID}
	f.channels[guildID] = append(f.channels[guildID], c)
	return c, nil
}

func (f *Fake) RenameChannel(_ context.Context, channelID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Renames[channelID] = name
	f.RenameN++
	for _, list := range f.channels {
		for _, c := range list {
			if c.ID == channelID {
				c.Name = name
			}
		}
	}
	return nil
}

func (f *Fake) SetChannelPermission(_ context.Context, channelID, targetID string, allow, deny int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, list := range f.channels {
		for _, c := range list {
			if c.ID != channelID {
				continue
			}
			c.PermissionOverwrites = slices.DeleteFunc(c.PermissionOverwrites, func(o *discordgo.PermissionOverwrite) bool { return o.ID == targetID })
			c.PermissionOverwrites = append(c.PermissionOverwrites, &discordgo.PermissionOverwrite{
				ID: targetID, Type: discordgo.PermissionOverwriteTypeRole, Allow: allow, Deny: deny,
			})
			return nil
		}
	}
	return fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
}
