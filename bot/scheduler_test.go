package bot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"strikebot/scanner"
)

func TestSchedulerRunsAndStopsPollers(t *testing.T) {
	defer goleak.VerifyNone(t)

	var a, b atomic.Int32
	s := NewScheduler(
		&scanner.Poller{Name: "a", Interval: 5 * time.Millisecond, Tick: func(context.Context) { a.Add(1) }},
		&scanner.Poller{Name: "b", Interval: time.Hour, Tick: func(context.Context) { b.Add(1) }},
	)
	s.Start(context.Background())

	assert.Eventually(t, func() bool { return a.Load() >= 3 }, time.Second, time.Millisecond)
	s.Stop()

	stopped := a.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, a.Load())
	assert.Equal(t, int32(1), b.Load())
}

func TestSchedulerStopsWithParentContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(&scanner.Poller{Name: "a", Interval: time.Hour, Tick: func(context.Context) {}})
	s.Start(ctx)
	cancel()
	s.Stop()
}
