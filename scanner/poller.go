package scanner

import (
	"context"
	"time"

	"strikebot/metrics"
	"strikebot/utils/logger"
)

// Poller runs Tick once immediately and then every Interval until ctx ends.
type Poller struct {
	Name     string
	Interval time.Duration
	Tick     func(ctx context.Context)
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	logger.Infof("Poller %s started, interval %s", p.Name, p.Interval)
	for {
		p.tick(ctx)
		select {
		case <-ctx.Done():
			logger.Infof("Poller %s stopped", p.Name)
			return
		case <-ticker.C:
		}
	}
}

// tick isolates one iteration so a panic in a row handler does not end the loop.
func (p *Poller) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Poller %s panicked: %v", p.Name, r)
		}
	}()
	if ctx.Err() != nil {
		return
	}
	metrics.PollerTicks.WithLabelValues(p.Name).Inc()
	p.Tick(ctx)
}
