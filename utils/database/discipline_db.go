package database

import (
	"context"
	"fmt"
	"time"

	"strikebot/model"
)

type counterRow struct {
	GuildID   string `db:"guild_id"`
	UserID    string `db:"user_id"`
	Count     int    `db:"count"`
	UpdatedAt int64  `db:"updated_at"`
}

// GetStrikes returns the strike count of a member, 0 when no record exists.
func (s *Store) GetStrikes(ctx context.Context, guildID, userID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT strikes FROM strikes WHERE guild_id = ? AND user_id = ?", guildID, userID)
	if err = notFound(err); err == ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get strikes for user %s: %w", userID, err)
	}
	return n, nil
}

// IncrementStrikes adds exactly one strike and returns the new count.
func (s *Store) IncrementStrikes(ctx context.Context, guildID, userID string, now time.Time) (int, error) {
	query := `INSERT INTO strikes (guild_id, user_id, strikes, updated_at) VALUES (?, ?, 1, ?)
	          ON CONFLICT (guild_id, user_id) DO UPDATE SET strikes = strikes + 1, updated_at = excluded.updated_at
	          RETURNING strikes`
	var n int
	if err := s.db.GetContext(ctx, &n, query, guildID, userID, unix(now)); err != nil {
		return 0, fmt.Errorf("failed to increment strikes for user %s: %w", userID, err)
	}
	return n, nil
}

// DeleteStrikes removes the strike record. Deleting a missing record is not an error.
func (s *Store) DeleteStrikes(ctx context.Context, guildID, userID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM strikes WHERE guild_id = ? AND user_id = ?", guildID, userID); err != nil {
		return fmt.Errorf("failed to delete strikes for user %s: %w", userID, err)
	}
	return nil
}

// GetWarns returns the warning count of a member, 0 when no record exists.
func (s *Store) GetWarns(ctx context.Context, guildID, userID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT warns FROM warns WHERE guild_id = ? AND user_id = ?", guildID, userID)
	if err = notFound(err); err == ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get warns for user %s: %w", userID, err)
	}
	return n, nil
}

// IncrementWarns adds one warning and returns the new count.
func (s *Store) IncrementWarns(ctx context.Context, guildID, userID string, now time.Time) (int, error) {
	query := `INSERT INTO warns (guild_id, user_id, warns, updated_at) VALUES (?, ?, 1, ?)
	          ON CONFLICT (guild_id, user_id) DO UPDATE SET warns = warns + 1, updated_at = excluded.updated_at
	          RETURNING warns`
	var n int
	if err := s.db.GetContext(ctx, &n, query, guildID, userID, unix(now)); err != nil {
		return 0, fmt.Errorf("failed to increment warns for user %s: %w", userID, err)
	}
	return n, nil
}

// DecrementWarns subtracts amount without going below zero and returns the new count.
func (s *Store) DecrementWarns(ctx context.Context, guildID, userID string, amount int, now time.Time) (int, error) {
	query := `UPDATE warns SET warns = MAX(warns - ?, 0), updated_at = ?
	          WHERE guild_id = ? AND user_id = ? RETURNING warns`
	var n int
	err := s.db.GetContext(ctx, &n, query, amount, unix(now), guildID, userID)
	if err = notFound(err); err == ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to decrement warns for user %s: %w", userID, err)
	}
	return n, nil
}

// DeleteWarns removes the warning record.
func (s *Store) DeleteWarns(ctx context.Context, guildID, userID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM warns WHERE guild_id = ? AND user_id = ?", guildID, userID); err != nil {
		return fmt.Errorf("failed to delete warns for user %s: %w", userID, err)
	}
	return nil
}

// ListDiscipline returns every member of a guild with a strike or warning count, joined per user.
func (s *Store) ListDiscipline(ctx context.Context, guildID string) ([]model.DisciplineRecord, error) {
	var strikes, warns []counterRow
	if err := s.db.SelectContext(ctx, &strikes,
		"SELECT guild_id, user_id, strikes AS count, updated_at FROM strikes WHERE guild_id = ?", guildID); err != nil {
		return nil, fmt.Errorf("failed to list strikes: %w", err)
	}
	if err := s.db.SelectContext(ctx, &warns,
		"SELECT guild_id, user_id, warns AS count, updated_at FROM warns WHERE guild_id = ? ORDER BY warns DESC", guildID); err != nil {
		return nil, fmt.Errorf("failed to list warns: %w", err)
	}

	byUser := make(map[string]*model.DisciplineRecord)
	var order []string
	get := func(r counterRow) *model.DisciplineRecord {
		rec, ok := byUser[r.UserID]
		if !ok {
			rec = &model.DisciplineRecord{GuildID: r.GuildID, UserID: r.UserID}
			byUser[r.UserID] = rec
			order = append(order, r.UserID)
		}
		if t := fromUnix(r.UpdatedAt); t.After(rec.UpdatedAt) {
			rec.UpdatedAt = t
		}
		return rec
	}
	for _, r := range warns {
		get(r).Warns = r.Count
	}
	for _, r := range strikes {
		get(r).Strikes = r.Count
	}

	records := make([]model.DisciplineRecord, 0, len(order))
	for _, id := range order {
		records = append(records, *byUser[id])
	}
	return records, nil
}
