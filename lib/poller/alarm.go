package poller

import (
	"context"
	"time"
)

// alarmClock wraps a ticker and fires an immediate wakeup at start, so a
// restarted process does not wait a full interval before its first tick.
type alarmClock struct {
	cancel func()
	ticker *time.Ticker
	C      chan time.Time
}

func newAlarmClock(interval time.Duration) *alarmClock {
	return &alarmClock{
		ticker: time.NewTicker(interval),
		C:      make(chan time.Time),
	}
}

func (a *alarmClock) Start(ctx context.Context) <-chan time.Time {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		defer close(a.C)

		select {
		case a.C <- time.Now().UTC():
		case <-ctx.Done():
			return
		}

		for {
			select {
			case t := <-a.ticker.C:
				select {
				case a.C <- t.UTC():
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return a.C
}

func (a *alarmClock) Stop() {
	a.cancel()
	a.ticker.Stop()
}
