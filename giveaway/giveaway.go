package giveaway

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"strikebot/metrics"
	"strikebot/model"
	"strikebot/utils"
	"strikebot/utils/logger"
)

// CreateInput describes a new giveaway.
type CreateInput struct {
	GuildID         string
	ChannelID       string
	CreatorID       string
	Prize           string
	Description     string
	ThumbnailURL    string
	EndAt           time.Time
	MaxParticipants int
	WinnersCount    int
}

// Create persists a giveaway and posts its message. The row is removed again
// when the message cannot be posted or its id cannot be stored.
func (e *Engine) Create(ctx context.Context, in *CreateInput) (*model.Giveaway, error) {
	in.Prize = strings.TrimSpace(in.Prize)
	switch {
	case in.Prize == "":
		return nil, fmt.Errorf("%w: prize is required", ErrInvalidGiveaway)
	case in.ChannelID == "":
		return nil, fmt.Errorf("%w: channel is required", ErrInvalidGiveaway)
	case !in.EndAt.After(e.clock.Now()):
		return nil, fmt.Errorf("%w: end time must be in the future", ErrInvalidGiveaway)
	case in.MaxParticipants < 0:
		return nil, fmt.Errorf("%w: max participants cannot be negative", ErrInvalidGiveaway)
	}
	if in.WinnersCount < 1 {
		in.WinnersCount = 1
	}
	if err := e.Authorize(ctx, in.GuildID, in.CreatorID); err != nil {
		return nil, err
	}

	g := &model.Giveaway{
		GuildID:         in.GuildID,
		ChannelID:       in.ChannelID,
		CreatorID:       in.CreatorID,
		Prize:           in.Prize,
		Description:     strings.TrimSpace(in.Description),
		ThumbnailURL:    in.ThumbnailURL,
		EndAt:           in.EndAt.UTC().Truncate(time.Second),
		MaxParticipants: in.MaxParticipants,
		WinnersCount:    in.WinnersCount,
		CreatedAt:       e.clock.Now().UTC(),
	}
	id, err := e.store.CreateGiveaway(ctx, g)
	if err != nil {
		return nil, err
	}
	g.ID = id

	msg, err := e.platform.SendMessage(ctx, g.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{e.style.embed(g, 0)},
		Components: components(id, false, false),
	})
	if err != nil {
		if derr := e.store.DeleteGiveaway(ctx, id); derr != nil {
			logger.Errorf("Failed to remove giveaway %d after post failure: %v", id, derr)
		}
		return nil, fmt.Errorf("failed to post giveaway message: %w", err)
	}
	if err := e.store.SetGiveawayMessage(ctx, id, msg.ID); err != nil {
		if derr := e.platform.DeleteMessages(ctx, g.ChannelID, []string{msg.ID}); derr != nil {
			logger.Errorf("Failed to remove message %s of unsaved giveaway %d: %v", msg.ID, id, derr)
		}
		if derr := e.store.DeleteGiveaway(ctx, id); derr != nil {
			logger.Errorf("Failed to remove giveaway %d after save failure: %v", id, derr)
		}
		return nil, fmt.Errorf("failed to save giveaway message: %w", err)
	}
	g.MessageID = msg.ID

	metrics.Giveaways.WithLabelValues("created").Inc()
	logger.Infof("Giveaway %d created in channel %s by %s, ends %s", id, g.ChannelID, g.CreatorID, g.EndAt.Format(time.RFC3339))
	return g, nil
}

// Join enters a member. Joining twice reports AlreadyJoined.
func (e *Engine) Join(ctx context.Context, id int64, userID string) (JoinStatus, error) {
	unlock := e.locks.Lock(lockKey(id))
	defer unlock()

	g, err := e.get(ctx, id)
	if err != nil {
		return 0, err
	}
	if g.Ended {
		return 0, ErrGiveawayEnded
	}
	joined, err := e.store.HasEntry(ctx, id, userID)
	if err != nil {
		return 0, err
	}
	if joined {
		return AlreadyJoined, nil
	}

	if e.minLevelRoleID != "" {
		level, member, err := e.level(ctx, g.GuildID, userID)
		if err != nil {
			return 0, err
		}
		if level != utils.AdminPermission && !slices.Contains(member.Roles, e.minLevelRoleID) {
			return 0, ErrBelowMinimumLevel
		}
	}

	count, err := e.store.CountEntries(ctx, id)
	if err != nil {
		return 0, err
	}
	if g.Bounded() && count >= g.MaxParticipants {
		return 0, ErrGiveawayFull
	}

	added, err := e.store.AddEntry(ctx, id, userID, e.clock.Now())
	if err != nil {
		return 0, err
	}
	if !added {
		return AlreadyJoined, nil
	}
	_ = e.refresh(ctx, g)
	return Joined, nil
}

// Leave withdraws a member from a running giveaway.
func (e *Engine) Leave(ctx context.Context, id int64, userID string) (LeaveStatus, error) {
	unlock := e.locks.Lock(lockKey(id))
	defer unlock()

	g, err := e.get(ctx, id)
	if err != nil {
		return 0, err
	}
	if g.Ended {
		return 0, ErrGiveawayEnded
	}
	removed, err := e.store.RemoveEntry(ctx, id, userID)
	if err != nil {
		return 0, err
	}
	if !removed {
		return NotParticipating, nil
	}
	_ = e.refresh(ctx, g)
	return Left, nil
}

// Finalize ends a giveaway and draws its winners. It is a no-op returning
// false when the giveaway already ended.
func (e *Engine) Finalize(ctx context.Context, id int64) (bool, error) {
	unlock := e.locks.Lock(lockKey(id))
	defer unlock()

	g, err := e.get(ctx, id)
	if err != nil {
		return false, err
	}
	if g.Ended {
		return false, nil
	}

	entries, err := e.store.ListEntries(ctx, id)
	if err != nil {
		return false, err
	}
	winners := e.sample(entries, g.WinnersCount)
	ok, err := e.store.EndGiveaway(ctx, id, winners)
	if err != nil || !ok {
		return false, err
	}
	g.Ended, g.WinnerIDs = true, winners

	metrics.Giveaways.WithLabelValues("finalized").Inc()
	logger.Infof("Giveaway %d ended with %d entries and winners %v", id, len(entries), winners)

	_ = e.editMessage(ctx, g, e.style.embed(g, len(entries)), components(id, true, false))
	_ = e.announce(ctx, g, winners, len(entries), "RESULTS")
	e.rewardWinners(ctx, g, winners)
	return true, nil
}

// Cancel ends a running giveaway without winners.
func (e *Engine) Cancel(ctx context.Context, id int64, actorID string) error {
	unlock := e.locks.Lock(lockKey(id))
	defer unlock()

	g, err := e.get(ctx, id)
	if err != nil {
		return err
	}
	if err := e.Authorize(ctx, g.GuildID, actorID); err != nil {
		return err
	}
	if g.Ended {
		return ErrGiveawayEnded
	}
	ok, err := e.store.EndGiveaway(ctx, id, nil)
	if err != nil {
		return err
	}
	if !ok {
		return ErrGiveawayEnded
	}
	g.Ended = true

	metrics.Giveaways.WithLabelValues("cancelled").Inc()
	logger.Infof("Giveaway %d cancelled by %s", id, actorID)

	count, err := e.store.CountEntries(ctx, id)
	if err != nil {
		logger.Warnf("Failed to count entries of giveaway %d: %v", id, err)
	}
	_ = e.editMessage(ctx, g, e.style.cancelledEmbed(g, count), components(id, true, true))
	_, _ = e.platform.SendMessage(ctx, g.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("🛑 Giveaway **%s** has been cancelled.", g.Prize),
	})
	return nil
}

// Reroll draws new winners for an ended giveaway, avoiding the previous
// winners while other entries remain.
func (e *Engine) Reroll(ctx context.Context, id int64, actorID string) ([]string, error) {
	unlock := e.locks.Lock(lockKey(id))
	defer unlock()

	g, err := e.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.Authorize(ctx, g.GuildID, actorID); err != nil {
		return nil, err
	}
	if !g.Ended {
		return nil, ErrGiveawayNotEnded
	}
	entries, err := e.store.ListEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	pool := slices.DeleteFunc(slices.Clone(entries), func(uid string) bool {
		return slices.Contains(g.WinnerIDs, uid)
	})
	if len(pool) == 0 {
		pool = entries
	}
	winners := e.sample(pool, g.WinnersCount)
	if err := e.store.SetGiveawayWinners(ctx, id, winners); err != nil {
		return nil, err
	}
	g.WinnerIDs = winners

	metrics.Giveaways.WithLabelValues("rerolled").Inc()
	logger.Infof("Giveaway %d rerolled by %s, new winners %v", id, actorID, winners)

	_ = e.announce(ctx, g, winners, len(entries), "REROLL")
	e.rewardWinners(ctx, g, winners)
	return winners, nil
}

// Reconcile re-renders the message of every running giveaway so its buttons
// and entry count match the store after a restart.
func (e *Engine) Reconcile(ctx context.Context) (int, error) {
	active, err := e.store.ActiveGiveaways(ctx)
	if err != nil {
		return 0, err
	}
	refreshed := 0
	for i := range active {
		g := &active[i]
		if g.MessageID == "" {
			continue
		}
		if err := e.refresh(ctx, g); err != nil {
			logger.Warnf("Failed to reconcile giveaway %d: %v", g.ID, err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// refresh redraws a running giveaway with its current entry count.
func (e *Engine) refresh(ctx context.Context, g *model.Giveaway) error {
	count, err := e.store.CountEntries(ctx, g.ID)
	if err != nil {
		return err
	}
	return e.editMessage(ctx, g, e.style.embed(g, count), components(g.ID, false, false))
}

func (e *Engine) editMessage(ctx context.Context, g *model.Giveaway, embed *discordgo.MessageEmbed, comps []discordgo.MessageComponent) error {
	if g.MessageID == "" {
		return nil
	}
	embeds := []*discordgo.MessageEmbed{embed}
	return e.platform.EditMessage(ctx, &discordgo.MessageEdit{
		ID:         g.MessageID,
		Channel:    g.ChannelID,
		Embeds:     &embeds,
		Components: &comps,
	})
}

func (e *Engine) announce(ctx context.Context, g *model.Giveaway, winners []string, count int, suffix string) error {
	_, err := e.platform.SendMessage(ctx, g.ChannelID, &discordgo.MessageSend{
		Content: mentions(winners),
		Embeds:  []*discordgo.MessageEmbed{e.style.resultsEmbed(g, winners, count, suffix)},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: winners,
		},
	})
	return err
}

func (e *Engine) rewardWinners(ctx context.Context, g *model.Giveaway, winners []string) {
	for _, uid := range winners {
		_ = utils.SendPrivateEmbedMessage(ctx, e.platform, uid, e.style.winnerDM(g))
		if e.winnerRoleID == "" {
			continue
		}
		if err := e.platform.AddMemberRole(ctx, g.GuildID, uid, e.winnerRoleID); err != nil {
			logger.Warnf("Failed to grant winner role to %s: %v", uid, err)
		}
	}
}
