package database

import (
	"context"
	"fmt"
	"time"
)

// ActionSeen reports whether the interaction id was already processed.
func (s *Store) ActionSeen(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM interactions WHERE interaction_id = ?", id); err != nil {
		return false, fmt.Errorf("failed to look up interaction %s: %w", id, err)
	}
	return n > 0, nil
}

// MarkAction records the interaction id. It returns false when the id was already present.
func (s *Store) MarkAction(ctx context.Context, id string, now time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO interactions (interaction_id, created_at) VALUES (?, ?)", id, unix(now))
	if err != nil {
		return false, fmt.Errorf("failed to mark interaction %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for interaction %s: %w", id, err)
	}
	return n == 1, nil
}

// PruneActions deletes interaction ids recorded before cutoff.
func (s *Store) PruneActions(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM interactions WHERE created_at < ?", unix(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to prune interactions: %w", err)
	}
	return result.RowsAffected()
}
