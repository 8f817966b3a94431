package discipline

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"

	"strikebot/platform"
	"strikebot/utils/database"
	"strikebot/utils/logger"
)

// ladder holds the resolved Strike 1/2/3 roles and the mute role. Any may be nil.
type ladder struct {
	strikes [3]*discordgo.Role
	muted   *discordgo.Role
}

func (l ladder) complete() bool {
	return l.strikes[0] != nil && l.strikes[1] != nil && l.strikes[2] != nil && l.muted != nil
}

func (l ladder) contains(roleID string) bool {
	if l.muted != nil && l.muted.ID == roleID {
		return true
	}
	return l.isStrike(roleID)
}

func (l ladder) isStrike(roleID string) bool {
	for _, r := range l.strikes {
		if r != nil && r.ID == roleID {
			return true
		}
	}
	return false
}

func (e *Engine) resolveLadder(roles []*discordgo.Role) ladder {
	return ladder{
		strikes: [3]*discordgo.Role{
			findRole(roles, e.roles.Strike1ID, e.roles.Strike1),
			findRole(roles, e.roles.Strike2ID, e.roles.Strike2),
			findRole(roles, e.roles.Strike3ID, e.roles.Strike3),
		},
		muted: findRole(roles, e.roles.MutedID, e.roles.Muted),
	}
}

func findRole(roles []*discordgo.Role, id, name string) *discordgo.Role {
	for _, r := range roles {
		if id != "" && r.ID == id {
			return r
		}
	}
	if id != "" {
		return nil
	}
	for _, r := range roles {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// preserved reports whether a role survives a mute. Unknown role ids are stripped.
func (e *Engine) preserved(guildID string, role *discordgo.Role, l ladder) bool {
	if role == nil {
		return false
	}
	if role.ID == guildID || role.Managed || l.contains(role.ID) {
		return true
	}
	if _, ok := e.preserveRoleIDs[role.ID]; ok {
		return true
	}
	_, ok := e.preserveRoleNames[role.Name]
	return ok
}

// target is a member resolved together with the guild state needed to act on it.
type target struct {
	guild  *discordgo.Guild
	roles  []*discordgo.Role
	byID   map[string]*discordgo.Role
	member *discordgo.Member
	ladder ladder
}

func (t *target) userID() string {
	return t.member.User.ID
}

func (t *target) tag() string {
	if t.member.User == nil {
		return ""
	}
	return t.member.User.String()
}

func (t *target) holds(roleID string) bool {
	return slices.Contains(t.member.Roles, roleID)
}

func (e *Engine) loadTarget(ctx context.Context, guildID, userID string) (*target, error) {
	guild, err := e.platform.Guild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild %s: %w", guildID, err)
	}
	roles, err := e.platform.GuildRoles(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles of guild %s: %w", guildID, err)
	}
	member, err := e.platform.Member(ctx, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member %s: %w", userID, err)
	}
	if member.User == nil {
		member.User = &discordgo.User{ID: userID}
	}

	byID := make(map[string]*discordgo.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}
	return &target{guild: guild, roles: roles, byID: byID, member: member, ladder: e.resolveLadder(roles)}, nil
}

// checkRank enforces that the bot outranks the target. The guild owner is exempt
// from the comparison; acting on the owner then fails at the platform instead.
func (e *Engine) checkRank(ctx context.Context, t *target) error {
	if t.guild != nil && t.userID() == t.guild.OwnerID {
		return nil
	}
	me, err := e.platform.Member(ctx, t.guild.ID, e.platform.BotUserID())
	if err != nil {
		return fmt.Errorf("failed to fetch bot member: %w", err)
	}
	if platform.TopRolePosition(t.roles, t.member.Roles) >= platform.TopRolePosition(t.roles, me.Roles) {
		return ErrInsufficientRank
	}
	return nil
}

// SetupResult summarises EnsureRoles.
type SetupResult struct {
	CreatedRoles    []string
	UpdatedChannels int
}

const mutedDeny = discordgo.PermissionSendMessages | discordgo.PermissionAddReactions | discordgo.PermissionSendMessagesInThreads

// EnsureRoles creates missing ladder and mute roles and denies the mute role
// speaking in text channels and seeing the configured hidden categories.
func (e *Engine) EnsureRoles(ctx context.Context, guildID string) (*SetupResult, error) {
	roles, err := e.platform.GuildRoles(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles of guild %s: %w", guildID, err)
	}
	l := e.resolveLadder(roles)
	result := &SetupResult{}

	wanted := []struct {
		slot **discordgo.Role
		id   string
		name string
	}{
		{&l.strikes[0], e.roles.Strike1ID, e.roles.Strike1},
		{&l.strikes[1], e.roles.Strike2ID, e.roles.Strike2},
		{&l.strikes[2], e.roles.Strike3ID, e.roles.Strike3},
		{&l.muted, e.roles.MutedID, e.roles.Muted},
	}
	for _, w := range wanted {
		if *w.slot != nil {
			continue
		}
		if w.id != "" {
			return nil, fmt.Errorf("%w: configured role %s does not exist", ErrRolesMissing, w.id)
		}
		role, err := e.platform.CreateRole(ctx, guildID, w.name)
		if err != nil {
			return nil, fmt.Errorf("failed to create role %q: %w", w.name, err)
		}
		*w.slot = role
		result.CreatedRoles = append(result.CreatedRoles, w.name)
	}

	channels, err := e.platform.GuildChannels(ctx, guildID)
	if err != nil {
		return result, fmt.Errorf("failed to fetch channels of guild %s: %w", guildID, err)
	}
	for _, c := range channels {
		deny := int64(0)
		switch {
		case c.Type == discordgo.ChannelTypeGuildCategory && slices.Contains(e.hiddenCategoryIDs, c.ID):
			deny = discordgo.PermissionViewChannel
		case c.Type == discordgo.ChannelTypeGuildText || c.Type == discordgo.ChannelTypeGuildNews || c.Type == discordgo.ChannelTypeGuildForum:
			deny = mutedDeny
		default:
			continue
		}

		allow, current := int64(0), int64(0)
		for _, o := range c.PermissionOverwrites {
			if o.ID == l.muted.ID {
				allow, current = o.Allow, o.Deny
			}
		}
		if current&deny == deny {
			continue
		}
		if err := e.platform.SetChannelPermission(ctx, c.ID, l.muted.ID, allow&^deny, current|deny); err != nil {
			logger.Warnf("Failed to set mute overwrite on channel %s: %v", c.ID, err)
			continue
		}
		result.UpdatedChannels++
	}
	return result, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
