// Package giveaway runs prize draws attached to a channel message.
package giveaway

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"strikebot/model"
	"strikebot/platform"
	"strikebot/utils"
	"strikebot/utils/clock"
	"strikebot/utils/database"
)

// Store is the persistence the engine needs.
type Store interface {
	CreateGiveaway(ctx context.Context, g *model.Giveaway) (int64, error)
	SetGiveawayMessage(ctx context.Context, id int64, messageID string) error
	DeleteGiveaway(ctx context.Context, id int64) error
	GetGiveaway(ctx context.Context, id int64) (*model.Giveaway, error)
	ActiveGiveaways(ctx context.Context) ([]model.Giveaway, error)
	EndGiveaway(ctx context.Context, id int64, winnerIDs []string) (bool, error)
	SetGiveawayWinners(ctx context.Context, id int64, winnerIDs []string) error

	AddEntry(ctx context.Context, giveawayID int64, userID string, now time.Time) (bool, error)
	RemoveEntry(ctx context.Context, giveawayID int64, userID string) (bool, error)
	HasEntry(ctx context.Context, giveawayID int64, userID string) (bool, error)
	CountEntries(ctx context.Context, giveawayID int64) (int, error)
	ListEntries(ctx context.Context, giveawayID int64) ([]string, error)
}

type Config struct {
	Store    Store
	Platform platform.Platform
	Clock    clock.Clock
	// Rand drives winner selection. Nil uses the auto-seeded global source.
	Rand *rand.Rand

	AdminRoleIDs   []string
	CrewRoleIDs    []string
	MinLevelRoleID string
	WinnerRoleID   string
	Color          string
	Footer         string
}

type Engine struct {
	store    Store
	platform platform.Platform
	clock    clock.Clock
	locks    utils.KeyedMutex

	rngMu sync.Mutex
	rng   *rand.Rand

	adminRoleIDs   []string
	crewRoleIDs    []string
	minLevelRoleID string
	winnerRoleID   string
	style          style
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
	e := &Engine{
		store:          cfg.Store,
		platform:       cfg.Platform,
		clock:          cfg.Clock,
		rng:            cfg.Rand,
		adminRoleIDs:   cfg.AdminRoleIDs,
		crewRoleIDs:    cfg.CrewRoleIDs,
		minLevelRoleID: cfg.MinLevelRoleID,
		winnerRoleID:   cfg.WinnerRoleID,
		style: style{
			color:  utils.ParseHexColor(cfg.Color, defaultColor),
			footer: cfg.Footer,
		},
	}
	if e.clock == nil {
		e.clock = &clock.DefaultClock{}
	}
	if e.style.footer == "" {
		e.style.footer = "Giveaway"
	}
	return e, nil
}

func lockKey(id int64) string {
	return fmt.Sprintf("giveaway:%d", id)
}

func (e *Engine) get(ctx context.Context, id int64) (*model.Giveaway, error) {
	g, err := e.store.GetGiveaway(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrGiveawayNotFound
		}
		return nil, err
	}
	return g, nil
}

// Get returns a giveaway by id.
func (e *Engine) Get(ctx context.Context, id int64) (*model.Giveaway, error) {
	return e.get(ctx, id)
}

// level resolves the permission level of a member in a guild.
func (e *Engine) level(ctx context.Context, guildID, userID string) (string, *discordgo.Member, error) {
	guild, err := e.platform.Guild(ctx, guildID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch guild %s: %w", guildID, err)
	}
	roles, err := e.platform.GuildRoles(ctx, guildID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch roles of guild %s: %w", guildID, err)
	}
	member, err := e.platform.Member(ctx, guildID, userID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch member %s: %w", userID, err)
	}
	isAdmin := platform.HasAdministrator(guild, roles, member)
	return utils.CheckPermission(member.Roles, isAdmin, e.adminRoleIDs, e.crewRoleIDs), member, nil
}

// Authorize checks that a member may create, cancel or reroll giveaways.
func (e *Engine) Authorize(ctx context.Context, guildID, userID string) error {
	level, _, err := e.level(ctx, guildID, userID)
	if err != nil {
		return err
	}
	if !utils.CanManage(level) {
		return ErrForbidden
	}
	return nil
}

// sample draws min(k, len(pool)) distinct elements uniformly without replacement.
func (e *Engine) sample(pool []string, k int) []string {
	if k > len(pool) {
		k = len(pool)
	}
	if k <= 0 {
		return nil
	}
	picked := make([]string, len(pool))
	copy(picked, pool)

	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	for i := 0; i < k; i++ {
		j := i + e.intN(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked[:k]
}

func (e *Engine) intN(n int) int {
	if e.rng != nil {
		return e.rng.IntN(n)
	}
	return rand.IntN(n)
}
