package handlers

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"

	"strikebot/bot"
	"strikebot/config"
	"strikebot/model"
)

func TestOptionMap(t *testing.T) {
	opts := optionMap([]*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "42"},
		{Name: "reason", Type: discordgo.ApplicationCommandOptionString, Value: "spam"},
		{Name: "amount", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(3)},
	})

	assert.Equal(t, "42", opts.userID("user"))
	assert.Equal(t, "spam", opts.string("reason"))
	assert.Equal(t, 3, opts.int("amount", 1))
	assert.Equal(t, 1, opts.int("missing", 1))
	assert.Equal(t, "", opts.string("missing"))
	assert.True(t, opts.has("reason"))
	assert.False(t, opts.has("delete_days"))
}

func TestDescribeCountersResolvesOverrides(t *testing.T) {
	v := func(n int64) *int64 { return &n }
	text := describeCounters([]model.CounterState{
		{Kind: model.CounterMembers, Cached: v(1234)},
		{Kind: model.CounterTwitch, Cached: v(300), Override: v(500)},
		{Kind: model.CounterTikTok},
	})

	assert.Equal(t, "• members: 1.234\n• twitch: 500\n• tiktok: —", text)
}

func TestLookupCommandsFollowConfig(t *testing.T) {
	b := &bot.Bot{Config: &config.Config{}}
	assert.NotContains(t, commandHandlers(b), "weer")

	b.Lookup = &bot.Lookup{}
	handlers := commandHandlers(b)
	assert.Contains(t, handlers, "weer")
	assert.Contains(t, handlers, "zoek")
}

func TestSearchCooldownBypassForAdmins(t *testing.T) {
	b := &bot.Bot{Config: &config.Config{Discord: config.DiscordConfig{
		AdminRoleIDs: []string{"r-admin"},
		CrewRoleIDs:  []string{"r-crew"},
	}}}

	assert.True(t, isAdmin(b, &discordgo.Member{Roles: []string{"r-admin"}}))
	assert.True(t, isAdmin(b, &discordgo.Member{Permissions: discordgo.PermissionAdministrator}))
	assert.False(t, isAdmin(b, &discordgo.Member{Roles: []string{"r-crew"}}))
	assert.False(t, isAdmin(b, &discordgo.Member{}))
}
