package bot

import (
	"context"
	"sync"
	"time"

	"strikebot/scanner"
	"strikebot/utils/idempotency"
	"strikebot/utils/logger"
)

const actionCleanInterval = time.Hour

// Scheduler runs the background pollers until stopped.
type Scheduler struct {
	pollers []*scanner.Poller
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler over pollers.
func NewScheduler(pollers ...*scanner.Poller) *Scheduler {
	return &Scheduler{pollers: pollers}
}

// Start launches one goroutine per poller.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(len(s.pollers))
	for _, p := range s.pollers {
		go func(p *scanner.Poller) {
			defer s.wg.Done()
			p.Run(ctx)
		}(p)
	}
}

// Stop cancels every poller and waits for the in-flight ticks to finish.
func (s *Scheduler) Stop() {
	logger.Infof("Stopping scheduler...")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	logger.Infof("Scheduler stopped.")
}

func (b *Bot) pollers() []*scanner.Poller {
	ps := []*scanner.Poller{
		{
			Name:     "mutes",
			Interval: b.Config.Scheduler.MuteInterval,
			Tick: func(ctx context.Context) {
				scanner.ProcessMuteTimers(ctx, b.Store, b.Discipline, b.Clock.Now())
			},
		},
		{
			Name:     "giveaways",
			Interval: b.Config.Scheduler.GiveawayInterval,
			Tick: func(ctx context.Context) {
				scanner.ProcessGiveawayTimers(ctx, b.Store, b.Giveaways, b.Clock.Now())
			},
		},
		{
			Name:     "actions",
			Interval: actionCleanInterval,
			Tick: func(ctx context.Context) {
				scanner.CleanProcessedActions(ctx, b.Guard, idempotency.Retention)
			},
		},
	}
	if b.Counters != nil {
		ps = append(ps, &scanner.Poller{
			Name:     "counters",
			Interval: b.Config.CounterInterval(),
			Tick: func(ctx context.Context) {
				if _, err := b.Counters.Refresh(ctx); err != nil {
					logger.Errorf("Error refreshing counters: %v", err)
				}
			},
		})
	}
	return ps
}
