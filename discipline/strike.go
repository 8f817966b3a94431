package discipline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"strikebot/metrics"
	"strikebot/model"
	"strikebot/utils"
	"strikebot/utils/logger"
)

// StrikeInput describes one /mute invocation.
type StrikeInput struct {
	GuildID     string
	ModeratorID string
	TargetID    string
	Reason      string
	ActionID    string
}

// StrikeOutcome is the result of ApplyStrike.
type StrikeOutcome struct {
	AlreadyProcessed bool
	Strikes          int
	Punishment       model.Punishment
	Duration         time.Duration
	UnmuteAt         time.Time
}

// ApplyStrike adds one strike to the target and enforces the ladder:
// strike 1 mutes for 24h, strike 2 for 7 days, strike 3 bans and clears all records.
func (e *Engine) ApplyStrike(ctx context.Context, in *StrikeInput) (*StrikeOutcome, error) {
	claimed, err := e.guard.Claim(ctx, in.ActionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check action %s: %w", in.ActionID, err)
	}
	if !claimed {
		return &StrikeOutcome{AlreadyProcessed: true}, nil
	}

	unlock := e.locks.Lock(memberKey(in.GuildID, in.TargetID))
	defer unlock()

	t, err := e.loadTarget(ctx, in.GuildID, in.TargetID)
	if err != nil {
		return nil, err
	}
	if err := e.checkRank(ctx, t); err != nil {
		return nil, err
	}
	if !t.ladder.complete() {
		return nil, ErrRolesMissing
	}

	count, err := e.store.IncrementStrikes(ctx, in.GuildID, in.TargetID, e.clock.Now())
	if err != nil {
		return nil, err
	}
	logger.Infof("Strike %d for user %s in guild %s by %s", count, in.TargetID, in.GuildID, in.ModeratorID)

	if count >= 3 {
		return e.ban(ctx, in, t, count)
	}
	return e.mute(ctx, in, t, count)
}

func (e *Engine) mute(ctx context.Context, in *StrikeInput, t *target, count int) (*StrikeOutcome, error) {
	duration, strikeRole := e.strike1Duration, t.ladder.strikes[0]
	if count == 2 {
		duration, strikeRole = e.strike2Duration, t.ladder.strikes[1]
	}
	now := e.clock.Now()

	var keep, stripped []string
	for _, id := range t.member.Roles {
		role := t.byID[id]
		switch {
		case t.ladder.isStrike(id) && id != strikeRole.ID:
			// ladder roles are exclusive, the new strike role replaces the old one
		case e.preserved(in.GuildID, role, t.ladder):
			keep = append(keep, id)
		default:
			stripped = append(stripped, id)
		}
	}

	// A member muted again while still muted holds no strippable roles any more;
	// merge with the pending snapshot so the original roles still come back.
	prev, err := e.store.GetMute(ctx, in.GuildID, in.TargetID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if prev != nil {
		stripped = union(prev.RoleIDs, stripped)
	}

	out := &StrikeOutcome{
		Strikes:    count,
		Punishment: model.PunishmentMute,
		Duration:   duration,
		UnmuteAt:   now.Add(duration),
	}
	rec := model.MuteRecord{GuildID: in.GuildID, UserID: in.TargetID, RoleIDs: stripped, UnmuteAt: out.UnmuteAt}
	if err := e.store.UpsertMute(ctx, rec); err != nil {
		return nil, err
	}

	roles := union(keep, []string{strikeRole.ID, t.ladder.muted.ID})
	if err := e.platform.SetMemberRoles(ctx, in.GuildID, in.TargetID, roles); err != nil {
		return out, fmt.Errorf("%w: %v", ErrRoleEditFailed, err)
	}
	metrics.Strikes.WithLabelValues(string(model.PunishmentMute)).Inc()

	guildName := t.guild.Name
	_ = e.notifyTarget(ctx, in.TargetID, strikeDM(guildName, count, in.Reason, duration, now, out.UnmuteAt))
	_ = e.audit(ctx, strikeAudit(in, t.tag(), count, model.PunishmentMute, duration, now))
	return out, nil
}

// ban enforces strike 3. Records are cleared whatever the ban call returns,
// a failed ban is reported to the moderator for manual follow-up.
func (e *Engine) ban(ctx context.Context, in *StrikeInput, t *target, count int) (*StrikeOutcome, error) {
	for _, r := range t.ladder.strikes {
		if t.holds(r.ID) {
			_ = e.platform.RemoveMemberRole(ctx, in.GuildID, in.TargetID, r.ID)
		}
	}

	_ = e.notifyTarget(ctx, in.TargetID, banDM(t.guild.Name, in.Reason, e.clock.Now()))
	banErr := e.platform.Ban(ctx, in.GuildID, in.TargetID, fmt.Sprintf("Strike %d: %s", count, in.Reason), 0)
	if err := e.notifyBanWebhook(context.WithoutCancel(ctx), in.GuildID, in.TargetID, t.tag(), in.Reason); err != nil {
		logger.Warnf("Ban webhook for user %s failed: %v", in.TargetID, err)
	}

	if err := e.store.DeleteStrikes(ctx, in.GuildID, in.TargetID); err != nil {
		return nil, err
	}
	if _, err := e.store.DeleteMute(ctx, in.GuildID, in.TargetID); err != nil {
		return nil, err
	}

	out := &StrikeOutcome{Strikes: count, Punishment: model.PunishmentBan}
	embed := strikeAudit(in, t.tag(), count, model.PunishmentBan, 0, e.clock.Now())
	if banErr != nil {
		logger.Warnf("Ban of user %s in guild %s failed: %v", in.TargetID, in.GuildID, banErr)
		embed.Fields = append(embed.Fields, utils.Field("Ban failed", banErr.Error()))
		_ = e.audit(ctx, embed)
		return out, fmt.Errorf("%w: %v", ErrBanFailed, banErr)
	}
	metrics.Strikes.WithLabelValues(string(model.PunishmentBan)).Inc()
	_ = e.audit(ctx, embed)
	return out, nil
}

// union returns a followed by the elements of b not in a, without duplicates.
func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if id != "" && !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
	}
	return out
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

func formatDuration(d time.Duration) string {
	if d >= 24*time.Hour && d%(24*time.Hour) == 0 {
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "24 hours"
		}
		return fmt.Sprintf("%d days", days)
	}
	return d.String()
}

func timestamp(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}
