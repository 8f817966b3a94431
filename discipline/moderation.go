package discipline

import (
	"context"
	"fmt"
	"time"

	"strikebot/utils"
	"strikebot/utils/logger"
)

// ModerationInput describes a /kick or /ban invocation.
type ModerationInput struct {
	GuildID     string
	ModeratorID string
	TargetID    string
	Reason      string
	ActionID    string
	// DeleteDays is the message history to purge on ban, 0 to 7.
	DeleteDays int
}

// Kick removes a member from the guild. It reports false when the action id
// was already processed.
func (e *Engine) Kick(ctx context.Context, in *ModerationInput) (bool, error) {
	t, ok, err := e.prepareModeration(ctx, in)
	if err != nil || !ok {
		return ok, err
	}

	_ = e.notifyTarget(ctx, in.TargetID, actionDM("You have been kicked", t.guild.Name, "Kick", in.Reason, e.clock.Now()))
	if err := e.platform.Kick(ctx, in.GuildID, in.TargetID, in.Reason); err != nil {
		return true, fmt.Errorf("%w: %v", ErrKickFailed, err)
	}
	logger.Infof("Kicked user %s from guild %s by %s", in.TargetID, in.GuildID, in.ModeratorID)
	_ = e.audit(ctx, utils.AuditEmbed(utils.Warn, "Kick", e.clock.Now(),
		utils.Field("User", userRef(in.TargetID, t.tag())),
		utils.Field("Moderator", "<@"+in.ModeratorID+">"),
		utils.Field("Reason", in.Reason),
	))
	return true, nil
}

// Ban bans a member outside the strike ladder.
func (e *Engine) Ban(ctx context.Context, in *ModerationInput) (bool, error) {
	if in.DeleteDays < 0 || in.DeleteDays > 7 {
		return false, fmt.Errorf("delete days must be between 0 and 7, got %d", in.DeleteDays)
	}
	t, ok, err := e.prepareModeration(ctx, in)
	if err != nil || !ok {
		return ok, err
	}

	_ = e.notifyTarget(ctx, in.TargetID, actionDM("You have been banned", t.guild.Name, "Ban", in.Reason, e.clock.Now()))
	if err := e.platform.Ban(ctx, in.GuildID, in.TargetID, in.Reason, in.DeleteDays); err != nil {
		return true, fmt.Errorf("%w: %v", ErrBanFailed, err)
	}
	logger.Infof("Banned user %s from guild %s by %s", in.TargetID, in.GuildID, in.ModeratorID)
	_ = e.audit(ctx, utils.AuditEmbed(utils.Error, "Ban", e.clock.Now(),
		utils.Field("User", userRef(in.TargetID, t.tag())),
		utils.Field("Messages deleted", fmt.Sprintf("%d day(s)", in.DeleteDays)),
		utils.Field("Moderator", "<@"+in.ModeratorID+">"),
		utils.Field("Reason", in.Reason),
	))
	return true, nil
}

func (e *Engine) prepareModeration(ctx context.Context, in *ModerationInput) (*target, bool, error) {
	claimed, err := e.guard.Claim(ctx, in.ActionID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check action %s: %w", in.ActionID, err)
	}
	if !claimed {
		return nil, false, nil
	}
	t, err := e.loadTarget(ctx, in.GuildID, in.TargetID)
	if err != nil {
		return nil, true, err
	}
	if err := e.checkRank(ctx, t); err != nil {
		return nil, true, err
	}
	return t, true, nil
}

// PurgeInput describes a /purge invocation.
type PurgeInput struct {
	GuildID     string
	ChannelID   string
	ModeratorID string
	// UserID restricts the purge to one author when set.
	UserID string
	Amount int
	Reason string
}

const (
	maxPurge     = 200
	purgeScan    = 1000
	bulkMaxAge   = 14 * 24 * time.Hour
	purgePageLen = 100
)

// Purge deletes up to Amount recent messages in a channel. Messages older than
// two weeks cannot be bulk deleted and end the scan.
func (e *Engine) Purge(ctx context.Context, in *PurgeInput) (int, error) {
	if in.Amount < 1 || in.Amount > maxPurge {
		return 0, fmt.Errorf("amount must be between 1 and %d, got %d", maxPurge, in.Amount)
	}
	cutoff := e.clock.Now().Add(-bulkMaxAge)

	var ids []string
	before := ""
	for scanned := 0; len(ids) < in.Amount && scanned < purgeScan; {
		page, err := e.platform.ChannelMessages(ctx, in.ChannelID, purgePageLen, before)
		if err != nil {
			return 0, fmt.Errorf("failed to list messages of channel %s: %w", in.ChannelID, err)
		}
		if len(page) == 0 {
			break
		}
		scanned += len(page)
		before = page[len(page)-1].ID

		stop := false
		for _, m := range page {
			if m.Timestamp.Before(cutoff) {
				stop = true
				break
			}
			if in.UserID != "" && (m.Author == nil || m.Author.ID != in.UserID) {
				continue
			}
			ids = append(ids, m.ID)
			if len(ids) == in.Amount {
				break
			}
		}
		if stop {
			break
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := e.platform.DeleteMessages(ctx, in.ChannelID, ids); err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	logger.Infof("Purged %d messages in channel %s by %s", len(ids), in.ChannelID, in.ModeratorID)
	filter := "(all)"
	if in.UserID != "" {
		filter = "<@" + in.UserID + ">"
	}
	_ = e.audit(ctx, utils.AuditEmbed(utils.Info, "Purge", e.clock.Now(),
		utils.Field("Channel", "<#"+in.ChannelID+">"),
		utils.Field("Deleted", itoa(len(ids))),
		utils.Field("Filter", filter),
		utils.Field("Moderator", "<@"+in.ModeratorID+">"),
		utils.Field("Reason", in.Reason),
	))
	return len(ids), nil
}
