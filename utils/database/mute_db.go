package database

import (
	"context"
	"fmt"
	"time"

	"strikebot/model"
)

type muteRow struct {
	GuildID   string `db:"guild_id"`
	UserID    string `db:"user_id"`
	RolesJSON string `db:"roles_json"`
	UnmuteAt  int64  `db:"unmute_at"`
}

func (r muteRow) record() model.MuteRecord {
	return model.MuteRecord{
		GuildID:  r.GuildID,
		UserID:   r.UserID,
		RoleIDs:  decodeIDs(r.RolesJSON),
		UnmuteAt: fromUnix(r.UnmuteAt),
	}
}

// UpsertMute stores the mute record, replacing an existing one for the same member.
func (s *Store) UpsertMute(ctx context.Context, rec model.MuteRecord) error {
	rolesJSON, err := encodeIDs(rec.RoleIDs)
	if err != nil {
		return fmt.Errorf("failed to serialize mute roles: %w", err)
	}
	query := `INSERT INTO mutes (guild_id, user_id, roles_json, unmute_at) VALUES (:guild_id, :user_id, :roles_json, :unmute_at)
	          ON CONFLICT (guild_id, user_id) DO UPDATE SET roles_json = excluded.roles_json, unmute_at = excluded.unmute_at`
	row := muteRow{GuildID: rec.GuildID, UserID: rec.UserID, RolesJSON: rolesJSON, UnmuteAt: unix(rec.UnmuteAt)}
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to upsert mute for user %s: %w", rec.UserID, err)
	}
	return nil
}

// GetMute returns the mute record of a member or ErrNotFound.
func (s *Store) GetMute(ctx context.Context, guildID, userID string) (*model.MuteRecord, error) {
	var row muteRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM mutes WHERE guild_id = ? AND user_id = ?", guildID, userID)
	if err != nil {
		return nil, notFound(err)
	}
	rec := row.record()
	return &rec, nil
}

// DeleteMute removes the mute record and reports whether a row existed.
func (s *Store) DeleteMute(ctx context.Context, guildID, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM mutes WHERE guild_id = ? AND user_id = ?", guildID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete mute for user %s: %w", userID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for mute of user %s: %w", userID, err)
	}
	return n > 0, nil
}

// DueMutes returns all mute records whose unmute time has passed.
func (s *Store) DueMutes(ctx context.Context, now time.Time) ([]model.MuteRecord, error) {
	var rows []muteRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM mutes WHERE unmute_at <= ? ORDER BY unmute_at", unix(now)); err != nil {
		return nil, fmt.Errorf("failed to get due mutes: %w", err)
	}
	return muteRecords(rows), nil
}

// ListMutes returns the active mutes of a guild ordered by expiry.
func (s *Store) ListMutes(ctx context.Context, guildID string) ([]model.MuteRecord, error) {
	var rows []muteRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM mutes WHERE guild_id = ? ORDER BY unmute_at", guildID); err != nil {
		return nil, fmt.Errorf("failed to list mutes: %w", err)
	}
	return muteRecords(rows), nil
}

func muteRecords(rows []muteRow) []model.MuteRecord {
	records := make([]model.MuteRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records
}
