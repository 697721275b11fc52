package game

import (
	"sync"
	"time"
)

// Clock schedules a repeating tick. The returned stop func cancels the
// schedule and may be called more than once.
type Clock interface {
	Schedule(tick func()) (stop func())
}

// TickerClock fires tick every Interval from its own goroutine
type TickerClock struct {
	Interval time.Duration
}

func (clock TickerClock) Schedule(tick func()) func() {
	interval := clock.Interval
	if interval <= 0 {
		interval = TickInterval
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				tick()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
