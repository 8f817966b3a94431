// Package idempotency de-duplicates retried interactions by their id.
package idempotency

import (
	"context"
	"time"

	"strikebot/utils/clock"
	"strikebot/utils/logger"
)

// Retention is how long a processed id is remembered.
const Retention = time.Hour

// Store persists processed interaction ids.
type Store interface {
	ActionSeen(ctx context.Context, id string) (bool, error)
	MarkAction(ctx context.Context, id string, now time.Time) (bool, error)
	PruneActions(ctx context.Context, cutoff time.Time) (int64, error)
}

// Guard answers "was this action already processed?".
type Guard struct {
	store Store
	clock clock.Clock
}

// New returns a Guard over store.
func New(store Store, c clock.Clock) *Guard {
	if c == nil {
		c = &clock.DefaultClock{}
	}
	return &Guard{store: store, clock: c}
}

// Seen reports whether id was already processed.
func (g *Guard) Seen(ctx context.Context, id string) (bool, error) {
	return g.store.ActionSeen(ctx, id)
}

// Mark records id as processed.
func (g *Guard) Mark(ctx context.Context, id string) error {
	_, err := g.store.MarkAction(ctx, id, g.clock.Now())
	return err
}

// Prune forgets ids older than maxAge.
func (g *Guard) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	return g.store.PruneActions(ctx, g.clock.Now().Add(-maxAge))
}

// Claim prunes expired ids and then marks id. It returns false when id was
// already processed, in which case the caller must not act. An empty id is
// always claimable.
func (g *Guard) Claim(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return true, nil
	}
	if _, err := g.Prune(ctx, Retention); err != nil {
		logger.Warnf("Failed to prune processed actions: %v", err)
	}
	return g.store.MarkAction(ctx, id, g.clock.Now())
}
