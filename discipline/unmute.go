package discipline

import (
	"context"
	"errors"
	"fmt"

	"strikebot/model"
	"strikebot/platform"
	"strikebot/utils/logger"
)

// ExpireResult tells the mute poller what happened to one due record.
type ExpireResult int

const (
	// Restored means the roles came back and the record was deleted.
	Restored ExpireResult = iota
	// Skipped means the record was removed or extended concurrently.
	Skipped
	// Orphaned means the guild or member is gone and only the record was deleted.
	Orphaned
)

func (r ExpireResult) String() string {
	switch r {
	case Restored:
		return "restored"
	case Skipped:
		return "skipped"
	case Orphaned:
		return "orphaned"
	}
	return "unknown"
}

// Unmute lifts a mute early and reports whether the member ended up unmuted.
// A member without mute record or mute role is left alone and counts as success.
// The record is deleted even when the role edit is rejected.
func (e *Engine) Unmute(ctx context.Context, guildID, userID string) bool {
	unlock := e.locks.Lock(memberKey(guildID, userID))
	defer unlock()

	rec, err := e.store.GetMute(ctx, guildID, userID)
	if err != nil && !isNotFound(err) {
		logger.Errorf("Failed to read mute of user %s: %v", userID, err)
		return false
	}

	ok := true
	t, err := e.loadTarget(ctx, guildID, userID)
	switch {
	case err != nil:
		logger.Warnf("Failed to resolve user %s for unmute: %v", userID, err)
		ok = false
	case rec == nil && (t.ladder.muted == nil || !t.holds(t.ladder.muted.ID)):
		return true
	default:
		if err := e.restore(ctx, t, rec); err != nil {
			logger.Warnf("Failed to restore roles of user %s: %v", userID, err)
			ok = false
		}
	}

	if rec != nil {
		if _, err := e.store.DeleteMute(ctx, guildID, userID); err != nil {
			logger.Errorf("Failed to delete mute of user %s: %v", userID, err)
			return false
		}
	}
	if ok {
		logger.Infof("Unmuted user %s in guild %s", userID, guildID)
		_ = e.notifyTarget(ctx, userID, unmuteDM(t.guild.Name, e.clock.Now()))
	}
	return ok
}

// ExpireMute lifts a mute whose expiry has passed. The record is re-read under
// the member lock so a concurrent manual unmute or a re-mute wins.
func (e *Engine) ExpireMute(ctx context.Context, due model.MuteRecord) (ExpireResult, error) {
	unlock := e.locks.Lock(memberKey(due.GuildID, due.UserID))
	defer unlock()

	rec, err := e.store.GetMute(ctx, due.GuildID, due.UserID)
	if err != nil {
		if isNotFound(err) {
			return Skipped, nil
		}
		return Skipped, err
	}
	if !rec.Due(e.clock.Now()) {
		return Skipped, nil
	}

	t, err := e.loadTarget(ctx, rec.GuildID, rec.UserID)
	if err != nil {
		if !errors.Is(err, platform.ErrNotFound) {
			return Skipped, err
		}
		if _, err := e.store.DeleteMute(ctx, rec.GuildID, rec.UserID); err != nil {
			return Orphaned, err
		}
		logger.Infof("Dropped mute of user %s in guild %s: member or guild no longer exists", rec.UserID, rec.GuildID)
		return Orphaned, nil
	}

	// A failed restore keeps the record so the next tick retries it.
	if err := e.restore(ctx, t, rec); err != nil {
		return Skipped, err
	}
	if _, err := e.store.DeleteMute(ctx, rec.GuildID, rec.UserID); err != nil {
		return Restored, err
	}
	logger.Infof("Mute of user %s in guild %s expired", rec.UserID, rec.GuildID)
	_ = e.notifyTarget(ctx, rec.UserID, unmuteDM(t.guild.Name, e.clock.Now()))
	return Restored, nil
}

// restore sets the member roles to its current roles plus the snapshot, minus
// the mute role. Snapshot roles deleted from the guild meanwhile are skipped.
func (e *Engine) restore(ctx context.Context, t *target, rec *model.MuteRecord) error {
	var snapshot []string
	if rec != nil {
		for _, id := range rec.RoleIDs {
			if _, ok := t.byID[id]; ok {
				snapshot = append(snapshot, id)
			}
		}
	}
	roles := union(t.member.Roles, snapshot)
	if t.ladder.muted != nil {
		roles = without(roles, t.ladder.muted.ID)
	}
	if err := e.platform.SetMemberRoles(ctx, t.guild.ID, t.userID(), roles); err != nil {
		return fmt.Errorf("%w: %v", ErrRoleEditFailed, err)
	}
	return nil
}

// ResetStrikes clears the strike count and takes away the strike roles. A
// pending mute is left untouched.
func (e *Engine) ResetStrikes(ctx context.Context, guildID, userID string) error {
	unlock := e.locks.Lock(memberKey(guildID, userID))
	defer unlock()

	if err := e.store.DeleteStrikes(ctx, guildID, userID); err != nil {
		return err
	}
	t, err := e.loadTarget(ctx, guildID, userID)
	if err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			return nil
		}
		return err
	}
	for _, r := range t.ladder.strikes {
		if r != nil && t.holds(r.ID) {
			if err := e.platform.RemoveMemberRole(ctx, guildID, userID, r.ID); err != nil {
				logger.Warnf("Failed to remove role %s from user %s: %v", r.Name, userID, err)
			}
		}
	}
	return nil
}
