package scanner

import (
	"context"
	"time"

	"strikebot/metrics"
	"strikebot/model"
	"strikebot/utils/logger"
)

// GiveawaySource lists running giveaways whose end time has passed.
type GiveawaySource interface {
	DueGiveaways(ctx context.Context, now time.Time) ([]model.Giveaway, error)
}

// Finalizer ends one giveaway.
type Finalizer interface {
	Finalize(ctx context.Context, id int64) (bool, error)
}

// ProcessGiveawayTimers finalizes every due giveaway, continuing past failures.
func ProcessGiveawayTimers(ctx context.Context, src GiveawaySource, f Finalizer, now time.Time) int {
	due, err := src.DueGiveaways(ctx, now)
	if err != nil {
		logger.Errorf("Error getting due giveaways: %v", err)
		return 0
	}

	finalized := 0
	for _, g := range due {
		if ctx.Err() != nil {
			return finalized
		}
		ok, err := f.Finalize(ctx, g.ID)
		switch {
		case err != nil:
			metrics.PollerRows.WithLabelValues("giveaways", "error").Inc()
			logger.Errorf("Failed to finalize giveaway %d: %v", g.ID, err)
		case ok:
			metrics.PollerRows.WithLabelValues("giveaways", "finalized").Inc()
			finalized++
		default:
			metrics.PollerRows.WithLabelValues("giveaways", "skipped").Inc()
		}
	}
	return finalized
}
