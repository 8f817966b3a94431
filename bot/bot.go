package bot

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"

	"strikebot/commands"
	"strikebot/config"
	"strikebot/discipline"
	"strikebot/giveaway"
	"strikebot/model"
	"strikebot/platform"
	"strikebot/tasks/counters"
	"strikebot/tasks/lookup"
	"strikebot/utils"
	"strikebot/utils/clock"
	"strikebot/utils/database"
	"strikebot/utils/idempotency"
	"strikebot/utils/logger"
)

type Bot struct {
	Session  *discordgo.Session
	Platform platform.Platform
	Config   *config.Config
	Store    *database.Store
	Clock    clock.Clock
	Guard    *idempotency.Guard

	Discipline *discipline.Engine
	Giveaways  *giveaway.Engine
	// Counters is nil when counters are disabled.
	Counters *counters.Updater
	// Lookup is nil when /weer and /zoek are disabled.
	Lookup *Lookup

	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)
	RegisteredCommands []*discordgo.ApplicationCommand

	redis     redis.UniversalClient
	scheduler *Scheduler
	startedAt atomic.Int64
}

// Lookup groups the web lookups behind /weer and /zoek.
type Lookup struct {
	Weather  *lookup.Weather
	Search   *lookup.Search
	Results  *lookup.ResultSets
	Cooldown *lookup.Cooldown
}

// New wires the engines over a Discord session. The session is not opened yet
// so handlers can be registered first.
func New(cfg *config.Config, store *database.Store) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildMessages

	b := &Bot{
		Session:         dg,
		Platform:        platform.NewDiscord(dg),
		Config:          cfg,
		Store:           store,
		Clock:           &clock.DefaultClock{},
		CommandHandlers: make(map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)),
	}
	b.Guard = idempotency.New(store, b.Clock)

	if err := b.wire(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bot) wire() error {
	cfg := b.Config
	var err error

	b.Discipline, err = discipline.New(&discipline.Config{
		Store:      b.Store,
		Platform:   b.Platform,
		Guard:      b.Guard,
		Clock:      b.Clock,
		HTTPClient: utils.NewHTTPClient(10 * time.Second),
		Roles: discipline.RoleConfig{
			Strike1:   cfg.Moderation.Strike1Role,
			Strike2:   cfg.Moderation.Strike2Role,
			Strike3:   cfg.Moderation.Strike3Role,
			Muted:     cfg.Moderation.MutedRole,
			Strike1ID: cfg.Moderation.Strike1RoleID,
			Strike2ID: cfg.Moderation.Strike2RoleID,
			Strike3ID: cfg.Moderation.Strike3RoleID,
			MutedID:   cfg.Moderation.MutedRoleID,
		},
		PreserveRoleIDs:   cfg.Moderation.PreserveRoleIDs,
		PreserveRoleNames: cfg.Moderation.PreserveRoleNames,
		HiddenCategoryIDs: cfg.Moderation.HiddenCategoryIDs,
		ModLogChannelID:   cfg.Moderation.ModLogChannelID,
		BanWebhookURL:     cfg.Moderation.BanWebhookURL,
		Strike1Duration:   cfg.Moderation.Strike1Duration,
		Strike2Duration:   cfg.Moderation.Strike2Duration,
	})
	if err != nil {
		return fmt.Errorf("failed to create discipline engine: %w", err)
	}

	b.Giveaways, err = giveaway.New(&giveaway.Config{
		Store:          b.Store,
		Platform:       b.Platform,
		Clock:          b.Clock,
		AdminRoleIDs:   cfg.Discord.AdminRoleIDs,
		CrewRoleIDs:    cfg.Discord.CrewRoleIDs,
		MinLevelRoleID: cfg.Giveaway.MinLevelRoleID,
		WinnerRoleID:   cfg.Giveaway.WinnerRoleID,
		Color:          cfg.Giveaway.Color,
		Footer:         cfg.Giveaway.Footer,
	})
	if err != nil {
		return fmt.Errorf("failed to create giveaway engine: %w", err)
	}

	if cfg.Lookup.Enabled {
		client := utils.NewHTTPClient(cfg.Lookup.HTTPTimeout)
		b.Lookup = &Lookup{
			Weather:  lookup.NewWeather(client),
			Search:   lookup.NewSearch(client),
			Results:  lookup.NewResultSets(),
			Cooldown: lookup.NewCooldown(cfg.Lookup.SearchCooldown),
		}
	}

	if cfg.Counters.Enabled {
		b.Counters, err = b.newCounterUpdater()
		if err != nil {
			return fmt.Errorf("failed to create counter updater: %w", err)
		}
	}
	return nil
}

func (b *Bot) newCounterUpdater() (*counters.Updater, error) {
	cfg := b.Config.Counters
	client := utils.NewHTTPClient(cfg.HTTPTimeout)

	var cache counters.Cache = counters.NewStoreCache(b.Store)
	if b.Config.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     b.Config.Redis.Addr,
			Password: b.Config.Redis.Password,
			DB:       b.Config.Redis.DB,
		})
		cache = counters.NewRedisCache(b.redis, cache)
	}

	fetchers := map[model.CounterKind]counters.Fetcher{
		model.CounterMembers: counters.Members(b.Platform, b.Config.Discord.GuildID),
		model.CounterTwitch: counters.FirstOf(
			counters.Twitch(context.Background(), client, counters.TwitchConfig{
				ClientID:      cfg.Twitch.ClientID,
				ClientSecret:  cfg.Twitch.ClientSecret,
				BroadcasterID: cfg.Twitch.BroadcasterID,
			}),
			counters.URL(client, cfg.Twitch.URL, cfg.Twitch.JSONKey),
			counters.Scrape(client, cfg.Twitch.ScrapeURL),
		),
		model.CounterInstagram: counters.FirstOf(
			counters.Instagram(client, counters.InstagramConfig{
				UserID:       cfg.Instagram.UserID,
				AccessToken:  cfg.Instagram.AccessToken,
				GraphVersion: cfg.Instagram.GraphVersion,
			}),
			counters.Scrape(client, cfg.Instagram.ScrapeURL),
		),
		model.CounterTikTok: counters.FirstOf(
			counters.TikTok(client, counters.TikTokConfig{AccessToken: cfg.TikTok.AccessToken}),
			counters.Scrape(client, cfg.TikTok.ScrapeURL),
		),
	}

	return counters.New(&counters.Config{
		GuildID:      b.Config.Discord.GuildID,
		Store:        b.Store,
		Cache:        cache,
		Platform:     b.Platform,
		Fetchers:     fetchers,
		Templates:    cfg.Templates,
		CategoryName: cfg.CategoryName,
	})
}

// RefreshCommands overwrites the slash commands of the configured guild.
func (b *Bot) RefreshCommands() error {
	guildID := b.Config.Discord.GuildID
	cmds := commands.GenerateCommands(b.Counters != nil, b.Lookup != nil)
	logger.Infof("Registering %d commands for guild %s...", len(cmds), guildID)

	appID := b.Config.Discord.AppID
	if appID == "" {
		appID = b.Session.State.User.ID
	}
	registered, err := b.Session.ApplicationCommandBulkOverwrite(appID, guildID, cmds)
	if err != nil {
		return fmt.Errorf("cannot update commands for guild '%s': %w", guildID, err)
	}
	b.RegisteredCommands = registered
	return nil
}

// Started returns when the gateway connection was opened, zero before Run.
func (b *Bot) Started() time.Time {
	ts := b.startedAt.Load()
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// Level returns the permission level of a member of the configured guild.
func (b *Bot) Level(ctx context.Context, userID string) (string, *discordgo.Member, error) {
	guildID := b.Config.Discord.GuildID
	member, err := b.Platform.Member(ctx, guildID, userID)
	if err != nil {
		return utils.UserPermission, nil, err
	}
	guild, err := b.Platform.Guild(ctx, guildID)
	if err != nil {
		return utils.UserPermission, member, err
	}
	roles, err := b.Platform.GuildRoles(ctx, guildID)
	if err != nil {
		return utils.UserPermission, member, err
	}
	isAdmin := platform.HasAdministrator(guild, roles, member)
	return utils.CheckPermission(member.Roles, isAdmin, b.Config.Discord.AdminRoleIDs, b.Config.Discord.CrewRoleIDs), member, nil
}

// TextChannels lists the text and news channels of the configured guild.
func (b *Bot) TextChannels(ctx context.Context) ([]*discordgo.Channel, error) {
	channels, err := b.Platform.GuildChannels(ctx, b.Config.Discord.GuildID)
	if err != nil {
		return nil, err
	}
	out := make([]*discordgo.Channel, 0, len(channels))
	for _, c := range channels {
		if c.Type == discordgo.ChannelTypeGuildText || c.Type == discordgo.ChannelTypeGuildNews {
			out = append(out, c)
		}
	}
	return out, nil
}
