// Package counters keeps follower and member counts displayed in voice channel names.
package counters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"strikebot/metrics"
	"strikebot/model"
	"strikebot/platform"
	"strikebot/utils/logger"
)

// Store persists channel bindings and manual overrides.
type Store interface {
	UpsertCounterChannel(ctx context.Context, c model.CounterChannel) error
	CounterChannels(ctx context.Context, guildID string) ([]model.CounterChannel, error)
	CounterOverride(ctx context.Context, guildID string, kind model.CounterKind) (int64, bool, error)
	SetCounterOverride(ctx context.Context, guildID string, kind model.CounterKind, value int64) error
	ClearCounterOverride(ctx context.Context, guildID string, kind model.CounterKind) error
}

type Config struct {
	GuildID      string
	Store        Store
	Cache        Cache
	Platform     platform.Platform
	Fetchers     map[model.CounterKind]Fetcher
	Templates    map[string]string
	CategoryName string
}

// Updater refreshes the counter channels of one guild.
type Updater struct {
	guildID      string
	store        Store
	cache        Cache
	platform     platform.Platform
	fetchers     map[model.CounterKind]Fetcher
	templates    map[model.CounterKind]string
	categoryName string

	// serialises Refresh, EnsureChannels and overrides
	mu sync.Mutex
}

var defaultTemplates = map[model.CounterKind]string{
	model.CounterMembers:   "👥 Members: {count}",
	model.CounterTwitch:    "🟣 Twitch: {count}",
	model.CounterInstagram: "📸 Instagram: {count}",
	model.CounterTikTok:    "🎵 TikTok: {count}",
}

func New(cfg *Config) (*Updater, error) {
	if cfg.Store == nil || cfg.Platform == nil {
		return nil, errors.New("store and platform are required")
	}
	u := &Updater{
		guildID:      cfg.GuildID,
		store:        cfg.Store,
		cache:        cfg.Cache,
		platform:     cfg.Platform,
		fetchers:     make(map[model.CounterKind]Fetcher),
		templates:    make(map[model.CounterKind]string),
		categoryName: cfg.CategoryName,
	}
	for kind, f := range cfg.Fetchers {
		if f != nil {
			u.fetchers[kind] = f
		}
	}
	for _, kind := range model.CounterKinds {
		t := cfg.Templates[string(kind)]
		if !strings.Contains(t, "{count}") {
			t = defaultTemplates[kind]
		}
		u.templates[kind] = t
	}
	return u, nil
}

// EnsureChannels finds or creates one locked voice channel per counter kind
// and stores the bindings.
func (u *Updater) EnsureChannels(ctx context.Context) ([]model.CounterChannel, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ensureChannels(ctx)
}

func (u *Updater) ensureChannels(ctx context.Context) ([]model.CounterChannel, error) {
	channels, err := u.platform.GuildChannels(ctx, u.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	byID := make(map[string]*discordgo.Channel, len(channels))
	for _, c := range channels {
		byID[c.ID] = c
	}
	bound, err := u.store.CounterChannels(ctx, u.guildID)
	if err != nil {
		return nil, err
	}
	boundByKind := make(map[model.CounterKind]string, len(bound))
	for _, b := range bound {
		boundByKind[b.Kind] = b.ChannelID
	}

	parentID := ""
	if u.categoryName != "" {
		parentID, err = u.ensureCategory(ctx, channels)
		if err != nil {
			return nil, err
		}
	}

	out := make([]model.CounterChannel, 0, len(model.CounterKinds))
	for _, kind := range model.CounterKinds {
		if id, ok := boundByKind[kind]; ok && byID[id] != nil {
			out = append(out, model.CounterChannel{GuildID: u.guildID, Kind: kind, ChannelID: id})
			continue
		}

		ch := findByPrefix(channels, u.templates[kind])
		if ch == nil {
			ch, err = u.platform.CreateChannel(ctx, u.guildID, discordgo.GuildChannelCreateData{
				Name:     ChannelName(u.templates[kind], nil),
				Type:     discordgo.ChannelTypeGuildVoice,
				ParentID: parentID,
				PermissionOverwrites: []*discordgo.PermissionOverwrite{{
					ID:   u.guildID,
					Type: discordgo.PermissionOverwriteTypeRole,
					Deny: discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak,
				}},
			})
			if err != nil {
				return out, fmt.Errorf("failed to create %s counter channel: %w", kind, err)
			}
			logger.Infof("Created %s counter channel %s", kind, ch.ID)
		}

		binding := model.CounterChannel{GuildID: u.guildID, Kind: kind, ChannelID: ch.ID}
		if err := u.store.UpsertCounterChannel(ctx, binding); err != nil {
			return out, err
		}
		out = append(out, binding)
	}
	return out, nil
}

func (u *Updater) ensureCategory(ctx context.Context, channels []*discordgo.Channel) (string, error) {
	for _, c := range channels {
		if c.Type == discordgo.ChannelTypeGuildCategory && c.Name == u.categoryName {
			return c.ID, nil
		}
	}
	c, err := u.platform.CreateChannel(ctx, u.guildID, discordgo.GuildChannelCreateData{
		Name: u.categoryName,
		Type: discordgo.ChannelTypeGuildCategory,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create counter category: %w", err)
	}
	return c.ID, nil
}

// findByPrefix matches voice channels on the template text before the colon,
// so channels from an earlier install are adopted instead of duplicated.
func findByPrefix(channels []*discordgo.Channel, template string) *discordgo.Channel {
	prefix, _, _ := strings.Cut(template, ":")
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil
	}
	for _, c := range channels {
		if c.Type == discordgo.ChannelTypeGuildVoice && strings.HasPrefix(c.Name, prefix) {
			return c
		}
	}
	return nil
}

// Refresh fetches every configured source concurrently, applies the stability
// and override rules and renames channels whose name changed.
func (u *Updater) Refresh(ctx context.Context) ([]model.CounterState, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	bindings, err := u.ensureChannels(ctx)
	if err != nil {
		return nil, err
	}

	fetched := make(map[model.CounterKind]*int64, len(u.fetchers))
	var fmu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for kind, f := range u.fetchers {
		g.Go(func() error {
			v, err := f.Fetch(gctx)
			if err != nil {
				metrics.CounterFetches.WithLabelValues(string(kind), "error").Inc()
				logger.Debugf("Counter %s fetch failed: %v", kind, err)
				return nil
			}
			metrics.CounterFetches.WithLabelValues(string(kind), "ok").Inc()
			fmu.Lock()
			fetched[kind] = &v
			fmu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	channels, err := u.platform.GuildChannels(ctx, u.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	names := make(map[string]string, len(channels))
	for _, c := range channels {
		names[c.ID] = c.Name
	}

	states := make([]model.CounterState, 0, len(bindings))
	for _, b := range bindings {
		state, value, err := u.resolve(ctx, b, fetched[b.Kind])
		if err != nil {
			logger.Warnf("Failed to resolve counter %s: %v", b.Kind, err)
			continue
		}
		states = append(states, state)

		name := ChannelName(u.templates[b.Kind], value)
		if names[b.ChannelID] == name {
			continue
		}
		if err := u.platform.RenameChannel(ctx, b.ChannelID, name); err != nil {
			logger.Warnf("Failed to rename counter channel %s: %v", b.ChannelID, err)
		}
	}
	return states, nil
}

// resolve stores a fresh value and returns the value to display.
func (u *Updater) resolve(ctx context.Context, b model.CounterChannel, fetched *int64) (model.CounterState, *int64, error) {
	state := model.CounterState{Kind: b.Kind, ChannelID: b.ChannelID}
	cached, err := u.cached(ctx, b.Kind)
	if err != nil {
		return state, nil, err
	}
	if fetched != nil && u.cache != nil {
		if err := u.cache.Set(ctx, u.guildID, b.Kind, *fetched); err != nil {
			logger.Warnf("Failed to cache counter %s: %v", b.Kind, err)
		}
	}
	stable := Stabilize(fetched, cached)

	override, err := u.override(ctx, b.Kind)
	if err != nil {
		return state, nil, err
	}
	state.Cached, state.Override = stable, override
	return state, Resolve(stable, override), nil
}

func (u *Updater) cached(ctx context.Context, kind model.CounterKind) (*int64, error) {
	if u.cache == nil {
		return nil, nil
	}
	return u.cache.Get(ctx, u.guildID, kind)
}

func (u *Updater) override(ctx context.Context, kind model.CounterKind) (*int64, error) {
	v, ok, err := u.store.CounterOverride(ctx, u.guildID, kind)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

// States reports the cached values and overrides without fetching anything.
func (u *Updater) States(ctx context.Context) ([]model.CounterState, error) {
	bindings, err := u.store.CounterChannels(ctx, u.guildID)
	if err != nil {
		return nil, err
	}
	channelOf := make(map[model.CounterKind]string, len(bindings))
	for _, b := range bindings {
		channelOf[b.Kind] = b.ChannelID
	}
	states := make([]model.CounterState, 0, len(model.CounterKinds))
	for _, kind := range model.CounterKinds {
		cached, err := u.cached(ctx, kind)
		if err != nil {
			return nil, err
		}
		override, err := u.override(ctx, kind)
		if err != nil {
			return nil, err
		}
		states = append(states, model.CounterState{Kind: kind, ChannelID: channelOf[kind], Cached: cached, Override: override})
	}
	return states, nil
}

// SetOverride pins a manual value for kind; nil clears it.
func (u *Updater) SetOverride(ctx context.Context, kind model.CounterKind, value *int64) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown counter kind %q", kind)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if value == nil {
		return u.store.ClearCounterOverride(ctx, u.guildID, kind)
	}
	if *value < 0 {
		return errors.New("override must not be negative")
	}
	return u.store.SetCounterOverride(ctx, u.guildID, kind, *value)
}
