package database

import (
	"context"
	"fmt"
	"time"

	"strikebot/model"
)

const giveawayColumns = `id, guild_id, channel_id, message_id, creator_id, prize, description, thumbnail_url,
	end_at, max_participants, winners_count, ended, winner_ids_json, created_at`

type giveawayRow struct {
	ID              int64  `db:"id"`
	GuildID         string `db:"guild_id"`
	ChannelID       string `db:"channel_id"`
	MessageID       string `db:"message_id"`
	CreatorID       string `db:"creator_id"`
	Prize           string `db:"prize"`
	Description     string `db:"description"`
	ThumbnailURL    string `db:"thumbnail_url"`
	EndAt           int64  `db:"end_at"`
	MaxParticipants int    `db:"max_participants"`
	WinnersCount    int    `db:"winners_count"`
	Ended           bool   `db:"ended"`
	WinnerIDsJSON   string `db:"winner_ids_json"`
	CreatedAt       int64  `db:"created_at"`
}

func (r giveawayRow) giveaway() model.Giveaway {
	return model.Giveaway{
		ID:              r.ID,
		GuildID:         r.GuildID,
		ChannelID:       r.ChannelID,
		MessageID:       r.MessageID,
		CreatorID:       r.CreatorID,
		Prize:           r.Prize,
		Description:     r.Description,
		ThumbnailURL:    r.ThumbnailURL,
		EndAt:           fromUnix(r.EndAt),
		MaxParticipants: r.MaxParticipants,
		WinnersCount:    r.WinnersCount,
		Ended:           r.Ended,
		WinnerIDs:       decodeIDs(r.WinnerIDsJSON),
		CreatedAt:       fromUnix(r.CreatedAt),
	}
}

// CreateGiveaway inserts a new, not yet ended giveaway and returns its id.
func (s *Store) CreateGiveaway(ctx context.Context, g *model.Giveaway) (int64, error) {
	query := `INSERT INTO giveaways (guild_id, channel_id, message_id, creator_id, prize, description, thumbnail_url,
	              end_at, max_participants, winners_count, ended, winner_ids_json, created_at)
	          VALUES (:guild_id, :channel_id, :message_id, :creator_id, :prize, :description, :thumbnail_url,
	              :end_at, :max_participants, :winners_count, 0, '[]', :created_at)`
	row := giveawayRow{
		GuildID:         g.GuildID,
		ChannelID:       g.ChannelID,
		MessageID:       g.MessageID,
		CreatorID:       g.CreatorID,
		Prize:           g.Prize,
		Description:     g.Description,
		ThumbnailURL:    g.ThumbnailURL,
		EndAt:           unix(g.EndAt),
		MaxParticipants: g.MaxParticipants,
		WinnersCount:    g.WinnersCount,
		CreatedAt:       unix(g.CreatedAt),
	}
	result, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return 0, fmt.Errorf("failed to insert giveaway: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// SetGiveawayMessage stores the id of the message carrying the giveaway controls.
func (s *Store) SetGiveawayMessage(ctx context.Context, id int64, messageID string) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE giveaways SET message_id = ? WHERE id = ?", messageID, id); err != nil {
		return fmt.Errorf("failed to set message for giveaway %d: %w", id, err)
	}
	return nil
}

// DeleteGiveaway removes a giveaway and, through the foreign key, its entries.
func (s *Store) DeleteGiveaway(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM giveaways WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete giveaway %d: %w", id, err)
	}
	return nil
}

// GetGiveaway returns a giveaway by id or ErrNotFound.
func (s *Store) GetGiveaway(ctx context.Context, id int64) (*model.Giveaway, error) {
	var row giveawayRow
	if err := s.db.GetContext(ctx, &row, "SELECT "+giveawayColumns+" FROM giveaways WHERE id = ?", id); err != nil {
		return nil, notFound(err)
	}
	g := row.giveaway()
	return &g, nil
}

// ActiveGiveaways returns every giveaway that has not ended.
func (s *Store) ActiveGiveaways(ctx context.Context) ([]model.Giveaway, error) {
	return s.selectGiveaways(ctx, "SELECT "+giveawayColumns+" FROM giveaways WHERE ended = 0 ORDER BY end_at")
}

// DueGiveaways returns the giveaways that have not ended and whose end time has passed.
func (s *Store) DueGiveaways(ctx context.Context, now time.Time) ([]model.Giveaway, error) {
	return s.selectGiveaways(ctx, "SELECT "+giveawayColumns+" FROM giveaways WHERE ended = 0 AND end_at <= ? ORDER BY end_at", unix(now))
}

func (s *Store) selectGiveaways(ctx context.Context, query string, args ...interface{}) ([]model.Giveaway, error) {
	var rows []giveawayRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select giveaways: %w", err)
	}
	giveaways := make([]model.Giveaway, 0, len(rows))
	for _, r := range rows {
		giveaways = append(giveaways, r.giveaway())
	}
	return giveaways, nil
}

// RecentGiveaways returns the latest giveaways of a guild with their entry counts.
func (s *Store) RecentGiveaways(ctx context.Context, guildID string, limit int) ([]model.GiveawaySummary, error) {
	type summaryRow struct {
		giveawayRow
		EntryCount int `db:"entry_count"`
	}
	query := `SELECT g.id, g.guild_id, g.channel_id, g.message_id, g.creator_id, g.prize, g.description, g.thumbnail_url,
	              g.end_at, g.max_participants, g.winners_count, g.ended, g.winner_ids_json, g.created_at,
	              (SELECT COUNT(*) FROM giveaway_entries e WHERE e.giveaway_id = g.id) AS entry_count
	          FROM giveaways g WHERE g.guild_id = ? ORDER BY g.id DESC LIMIT ?`
	var rows []summaryRow
	if err := s.db.SelectContext(ctx, &rows, query, guildID, limit); err != nil {
		return nil, fmt.Errorf("failed to list giveaways: %w", err)
	}
	summaries := make([]model.GiveawaySummary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, model.GiveawaySummary{Giveaway: r.giveaway(), EntryCount: r.EntryCount})
	}
	return summaries, nil
}

// EndGiveaway marks a running giveaway as ended with the given winners.
// It returns false when the giveaway had already ended.
func (s *Store) EndGiveaway(ctx context.Context, id int64, winnerIDs []string) (bool, error) {
	winnersJSON, err := encodeIDs(winnerIDs)
	if err != nil {
		return false, fmt.Errorf("failed to serialize winners: %w", err)
	}
	result, err := s.db.ExecContext(ctx, "UPDATE giveaways SET ended = 1, winner_ids_json = ? WHERE id = ? AND ended = 0", winnersJSON, id)
	if err != nil {
		return false, fmt.Errorf("failed to end giveaway %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for giveaway %d: %w", id, err)
	}
	return n == 1, nil
}

// SetGiveawayWinners replaces the winners of an ended giveaway.
func (s *Store) SetGiveawayWinners(ctx context.Context, id int64, winnerIDs []string) error {
	winnersJSON, err := encodeIDs(winnerIDs)
	if err != nil {
		return fmt.Errorf("failed to serialize winners: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE giveaways SET winner_ids_json = ? WHERE id = ? AND ended = 1", winnersJSON, id); err != nil {
		return fmt.Errorf("failed to set winners of giveaway %d: %w", id, err)
	}
	return nil
}

// AddEntry enters a user. It returns false when the user had already joined.
func (s *Store) AddEntry(ctx context.Context, giveawayID int64, userID string, now time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO giveaway_entries (giveaway_id, user_id, joined_at) VALUES (?, ?, ?)", giveawayID, userID, unix(now))
	if err != nil {
		return false, fmt.Errorf("failed to add entry to giveaway %d: %w", giveawayID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for giveaway %d: %w", giveawayID, err)
	}
	return n == 1, nil
}

// RemoveEntry withdraws a user. It returns false when the user was not entered.
func (s *Store) RemoveEntry(ctx context.Context, giveawayID int64, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM giveaway_entries WHERE giveaway_id = ? AND user_id = ?", giveawayID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove entry from giveaway %d: %w", giveawayID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for giveaway %d: %w", giveawayID, err)
	}
	return n == 1, nil
}

// HasEntry reports whether the user is entered.
func (s *Store) HasEntry(ctx context.Context, giveawayID int64, userID string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM giveaway_entries WHERE giveaway_id = ? AND user_id = ?", giveawayID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to look up entry in giveaway %d: %w", giveawayID, err)
	}
	return n > 0, nil
}

// CountEntries returns the number of entries of a giveaway.
func (s *Store) CountEntries(ctx context.Context, giveawayID int64) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM giveaway_entries WHERE giveaway_id = ?", giveawayID); err != nil {
		return 0, fmt.Errorf("failed to count entries of giveaway %d: %w", giveawayID, err)
	}
	return n, nil
}

// ListEntries returns the entered user ids in join order.
func (s *Store) ListEntries(ctx context.Context, giveawayID int64) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids,
		"SELECT user_id FROM giveaway_entries WHERE giveaway_id = ? ORDER BY joined_at, user_id", giveawayID); err != nil {
		return nil, fmt.Errorf("failed to list entries of giveaway %d: %w", giveawayID, err)
	}
	return ids, nil
}
