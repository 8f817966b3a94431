package database

import (
	"context"
	"fmt"
	"time"

	"strikebot/model"
)

type counterChannelRow struct {
	GuildID   string `db:"guild_id"`
	Kind      string `db:"kind"`
	ChannelID string `db:"channel_id"`
}

// UpsertCounterChannel binds a counter kind to its display channel.
func (s *Store) UpsertCounterChannel(ctx context.Context, c model.CounterChannel) error {
	query := `INSERT INTO counters (guild_id, kind, channel_id) VALUES (?, ?, ?)
	          ON CONFLICT (guild_id, kind) DO UPDATE SET channel_id = excluded.channel_id`
	if _, err := s.db.ExecContext(ctx, query, c.GuildID, string(c.Kind), c.ChannelID); err != nil {
		return fmt.Errorf("failed to upsert counter channel %s: %w", c.Kind, err)
	}
	return nil
}

// CounterChannels returns the display channels configured for a guild.
func (s *Store) CounterChannels(ctx context.Context, guildID string) ([]model.CounterChannel, error) {
	var rows []counterChannelRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT guild_id, kind, channel_id FROM counters WHERE guild_id = ?", guildID); err != nil {
		return nil, fmt.Errorf("failed to list counter channels: %w", err)
	}
	channels := make([]model.CounterChannel, 0, len(rows))
	for _, r := range rows {
		channels = append(channels, model.CounterChannel{GuildID: r.GuildID, Kind: model.CounterKind(r.Kind), ChannelID: r.ChannelID})
	}
	return channels, nil
}

// CachedCounter returns the last known-good value of a counter.
func (s *Store) CachedCounter(ctx context.Context, guildID string, kind model.CounterKind) (int64, bool, error) {
	return s.counterValue(ctx, "counter_values", guildID, kind)
}

// SetCachedCounter stores a freshly fetched counter value.
func (s *Store) SetCachedCounter(ctx context.Context, guildID string, kind model.CounterKind, value int64) error {
	return s.setCounterValue(ctx, "counter_values", guildID, kind, value)
}

// CounterOverride returns the manual override of a counter, if any.
func (s *Store) CounterOverride(ctx context.Context, guildID string, kind model.CounterKind) (int64, bool, error) {
	return s.counterValue(ctx, "counter_overrides", guildID, kind)
}

// SetCounterOverride sets the manual override of a counter.
func (s *Store) SetCounterOverride(ctx context.Context, guildID string, kind model.CounterKind, value int64) error {
	return s.setCounterValue(ctx, "counter_overrides", guildID, kind, value)
}

// ClearCounterOverride removes the manual override of a counter.
func (s *Store) ClearCounterOverride(ctx context.Context, guildID string, kind model.CounterKind) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM counter_overrides WHERE guild_id = ? AND kind = ?", guildID, string(kind)); err != nil {
		return fmt.Errorf("failed to clear override for %s: %w", kind, err)
	}
	return nil
}

func (s *Store) counterValue(ctx context.Context, table, guildID string, kind model.CounterKind) (int64, bool, error) {
	var v int64
	err := s.db.GetContext(ctx, &v, "SELECT value FROM "+table+" WHERE guild_id = ? AND kind = ?", guildID, string(kind))
	if err = notFound(err); err == ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read %s for %s: %w", table, kind, err)
	}
	return v, true, nil
}

func (s *Store) setCounterValue(ctx context.Context, table, guildID string, kind model.CounterKind, value int64) error {
	query := "INSERT INTO " + table + ` (guild_id, kind, value, updated_at) VALUES (?, ?, ?, ?)
	          ON CONFLICT (guild_id, kind) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, guildID, string(kind), value, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write %s for %s: %w", table, kind, err)
	}
	return nil
}
