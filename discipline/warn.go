package discipline

import (
	"context"
	"fmt"

	"strikebot/utils"
	"strikebot/utils/logger"
)

// WarnInput describes one /warn or /removewarn invocation.
type WarnInput struct {
	GuildID     string
	ModeratorID string
	TargetID    string
	Reason      string
	ActionID    string
}

// WarnOutcome carries the resulting warn count.
type WarnOutcome struct {
	AlreadyProcessed bool
	Warns            int
}

// IncrementWarn records a warning. Warnings never escalate on their own.
func (e *Engine) IncrementWarn(ctx context.Context, in *WarnInput) (*WarnOutcome, error) {
	claimed, err := e.guard.Claim(ctx, in.ActionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check action %s: %w", in.ActionID, err)
	}
	if !claimed {
		return &WarnOutcome{AlreadyProcessed: true}, nil
	}

	count, err := e.store.IncrementWarns(ctx, in.GuildID, in.TargetID, e.clock.Now())
	if err != nil {
		return nil, err
	}
	logger.Infof("Warn %d for user %s in guild %s by %s", count, in.TargetID, in.GuildID, in.ModeratorID)

	guildName := in.GuildID
	if g, err := e.platform.Guild(ctx, in.GuildID); err == nil {
		guildName = g.Name
	}
	_ = e.notifyTarget(ctx, in.TargetID, actionDM("You received a warning", guildName, "Warning "+itoa(count), in.Reason, e.clock.Now()))
	_ = e.audit(ctx, utils.AuditEmbed(utils.Warn, "Warning", e.clock.Now(),
		utils.Field("User", userRef(in.TargetID, "")),
		utils.Field("Total", itoa(count)),
		utils.Field("Moderator", "<@"+in.ModeratorID+">"),
		utils.Field("Reason", in.Reason),
	))
	return &WarnOutcome{Warns: count}, nil
}

// DecrementWarn removes amount warnings, flooring the count at zero.
func (e *Engine) DecrementWarn(ctx context.Context, in *WarnInput, amount int) (*WarnOutcome, error) {
	if amount < 1 || amount > 50 {
		return nil, ErrInvalidAmount
	}
	claimed, err := e.guard.Claim(ctx, in.ActionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check action %s: %w", in.ActionID, err)
	}
	if !claimed {
		return &WarnOutcome{AlreadyProcessed: true}, nil
	}

	count, err := e.store.DecrementWarns(ctx, in.GuildID, in.TargetID, amount, e.clock.Now())
	if err != nil {
		return nil, err
	}
	_ = e.audit(ctx, utils.AuditEmbed(utils.Info, "Warnings removed", e.clock.Now(),
		utils.Field("User", userRef(in.TargetID, "")),
		utils.Field("Amount", itoa(amount)),
		utils.Field("New total", itoa(count)),
		utils.Field("Moderator", "<@"+in.ModeratorID+">"),
		utils.Field("Reason", in.Reason),
	))
	return &WarnOutcome{Warns: count}, nil
}

// DeleteWarn resets the warn counter of a member. Idempotent.
func (e *Engine) DeleteWarn(ctx context.Context, in *WarnInput) error {
	if err := e.store.DeleteWarns(ctx, in.GuildID, in.TargetID); err != nil {
		return err
	}
	_ = e.audit(ctx, utils.AuditEmbed(utils.Info, "Warnings reset", e.clock.Now(),
		utils.Field("User", userRef(in.TargetID, "")),
		utils.Field("Moderator", "<@"+in.ModeratorID+">"),
		utils.Field("Reason", in.Reason),
	))
	return nil
}

// Warns returns the current warn count of a member.
func (e *Engine) Warns(ctx context.Context, guildID, userID string) (int, error) {
	return e.store.GetWarns(ctx, guildID, userID)
}
