// Package discipline implements the strike ladder, mutes and warnings.
package discipline

import (
	"context"
	"errors"
	"net/http"
	"time"

	"strikebot/model"
	"strikebot/platform"
	"strikebot/utils"
	"strikebot/utils/clock"
)

// Store is the persistence the engine needs.
type Store interface {
	GetStrikes(ctx context.Context, guildID, userID string) (int, error)
	IncrementStrikes(ctx context.Context, guildID, userID string, now time.Time) (int, error)
	DeleteStrikes(ctx context.Context, guildID, userID string) error

	GetWarns(ctx context.Context, guildID, userID string) (int, error)
	IncrementWarns(ctx context.Context, guildID, userID string, now time.Time) (int, error)
	DecrementWarns(ctx context.Context, guildID, userID string, amount int, now time.Time) (int, error)
	DeleteWarns(ctx context.Context, guildID, userID string) error

	UpsertMute(ctx context.Context, rec model.MuteRecord) error
	GetMute(ctx context.Context, guildID, userID string) (*model.MuteRecord, error)
	DeleteMute(ctx context.Context, guildID, userID string) (bool, error)
}

// Guard de-duplicates retried interactions.
type Guard interface {
	Claim(ctx context.Context, id string) (bool, error)
}

// RoleConfig names the ladder roles. IDs win over names when set.
type RoleConfig struct {
	Strike1, Strike2, Strike3, Muted         string
	Strike1ID, Strike2ID, Strike3ID, MutedID string
}

type Config struct {
	Store      Store
	Platform   platform.Platform
	Guard      Guard
	Clock      clock.Clock
	HTTPClient *http.Client

	Roles             RoleConfig
	PreserveRoleIDs   []string
	PreserveRoleNames []string
	HiddenCategoryIDs []string
	ModLogChannelID   string
	BanWebhookURL     string
	Strike1Duration   time.Duration
	Strike2Duration   time.Duration
}

type Engine struct {
	store    Store
	platform platform.Platform
	guard    Guard
	clock    clock.Clock
	http     *http.Client
	locks    utils.KeyedMutex

	roles             RoleConfig
	preserveRoleIDs   map[string]struct{}
	preserveRoleNames map[string]struct{}
	hiddenCategoryIDs []string
	modLogChannelID   string
	banWebhookURL     string
	strike1Duration   time.Duration
	strike2Duration   time.Duration
}

func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Platform == nil {
		return nil, errors.New("platform is required")
	}
	if cfg.Guard == nil {
		return nil, errors.New("guard is required")
	}

	e := &Engine{
		store:             cfg.Store,
		platform:          cfg.Platform,
		guard:             cfg.Guard,
		clock:             cfg.Clock,
		http:              cfg.HTTPClient,
		roles:             cfg.Roles,
		preserveRoleIDs:   toSet(cfg.PreserveRoleIDs),
		preserveRoleNames: toSet(cfg.PreserveRoleNames),
		hiddenCategoryIDs: cfg.HiddenCategoryIDs,
		modLogChannelID:   cfg.ModLogChannelID,
		banWebhookURL:     cfg.BanWebhookURL,
		strike1Duration:   cfg.Strike1Duration,
		strike2Duration:   cfg.Strike2Duration,
	}
	if e.clock == nil {
		e.clock = &clock.DefaultClock{}
	}
	if e.http == nil {
		e.http = utils.NewHTTPClient(10 * time.Second)
	}
	if e.roles.Strike1 == "" {
		e.roles.Strike1 = "Strike 1"
	}
	if e.roles.Strike2 == "" {
		e.roles.Strike2 = "Strike 2"
	}
	if e.roles.Strike3 == "" {
		e.roles.Strike3 = "Strike 3"
	}
	if e.roles.Muted == "" {
		e.roles.Muted = "Muted"
	}
	if e.strike1Duration <= 0 {
		e.strike1Duration = 24 * time.Hour
	}
	if e.strike2Duration <= 0 {
		e.strike2Duration = 7 * 24 * time.Hour
	}
	return e, nil
}

// Strikes returns the current strike count of a member.
func (e *Engine) Strikes(ctx context.Context, guildID, userID string) (int, error) {
	return e.store.GetStrikes(ctx, guildID, userID)
}

// MuteOf returns the pending mute of a member, nil when not muted.
func (e *Engine) MuteOf(ctx context.Context, guildID, userID string) (*model.MuteRecord, error) {
	rec, err := e.store.GetMute(ctx, guildID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func memberKey(guildID, userID string) string {
	return guildID + ":" + userID
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
