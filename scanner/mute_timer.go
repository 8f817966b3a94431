package scanner

import (
	"context"
	"time"

	"strikebot/discipline"
	"strikebot/metrics"
	"strikebot/model"
	"strikebot/utils/logger"
)

// MuteSource lists mutes whose expiry has passed.
type MuteSource interface {
	DueMutes(ctx context.Context, now time.Time) ([]model.MuteRecord, error)
}

// MuteExpirer lifts one due mute.
type MuteExpirer interface {
	ExpireMute(ctx context.Context, rec model.MuteRecord) (discipline.ExpireResult, error)
}

// ProcessMuteTimers lifts every due mute. A failing row is logged and left in
// place for the next tick; the remaining rows are still processed.
func ProcessMuteTimers(ctx context.Context, src MuteSource, expirer MuteExpirer, now time.Time) int {
	due, err := src.DueMutes(ctx, now)
	if err != nil {
		logger.Errorf("Error getting due mutes: %v", err)
		return 0
	}

	restored := 0
	for _, rec := range due {
		if ctx.Err() != nil {
			return restored
		}
		result, err := expirer.ExpireMute(ctx, rec)
		if err != nil {
			metrics.PollerRows.WithLabelValues("mutes", "error").Inc()
			logger.Errorf("Failed to expire mute of user %s in guild %s: %v", rec.UserID, rec.GuildID, err)
			continue
		}
		metrics.PollerRows.WithLabelValues("mutes", result.String()).Inc()
		if result == discipline.Restored {
			restored++
		}
	}
	return restored
}
