package sweeper

import (
	"context"
	"sync"
	"time"
)

// Scheduler runs a task at a fixed rate.
type Scheduler interface {
	// ScheduleAtFixedRate runs task at first and then every period until the returned cancel is called.
	// A tick that fires while task is still running is dropped.
	ScheduleAtFixedRate(first time.Time, period time.Duration, task func()) (cancel func())
}

// TickerScheduler runs each scheduled task on its own goroutine driven by a time.Ticker.
type TickerScheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTickerScheduler() *TickerScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &TickerScheduler{ctx: ctx, cancel: cancel}
}

func (s *TickerScheduler) ScheduleAtFixedRate(first time.Time, period time.Duration, task func()) func() {
	ctx, cancel := context.WithCancel(s.ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(time.Until(first))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			task()
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return cancel
}

// Close cancels every scheduled task and waits for running ones to return.
func (s *TickerScheduler) Close() {
	s.cancel()
	s.wg.Wait()
}
