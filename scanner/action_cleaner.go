package scanner

import (
	"context"
	"time"

	"strikebot/utils/logger"
)

// ActionPruner drops processed interaction ids older than maxAge.
type ActionPruner interface {
	Prune(ctx context.Context, maxAge time.Duration) (int64, error)
}

// CleanProcessedActions sweeps the idempotency table between commands so it
// stays small on quiet servers.
func CleanProcessedActions(ctx context.Context, p ActionPruner, maxAge time.Duration) {
	n, err := p.Prune(ctx, maxAge)
	if err != nil {
		logger.Errorf("Error cleaning processed actions: %v", err)
		return
	}
	if n > 0 {
		logger.Debugf("Cleaned %d processed actions", n)
	}
}
