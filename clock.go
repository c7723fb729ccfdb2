package wakeinterval

import (
	"time"

	"github.com/mixer/clock"
)

type (
	// realClock is the default clock. It replaces the timers and tickers of
	// clock.DefaultClock, which copy the runtime timer by value, something
	// the Go 1.23+ runtime does not support.
	realClock struct {
		clock.DefaultClock
	}

	realTimer struct {
		t *time.Timer
	}

	realTicker struct {
		t *time.Ticker
	}
)

var (
	_ clock.Clock  = realClock{}
	_ clock.Timer  = (*realTimer)(nil)
	_ clock.Ticker = (*realTicker)(nil)
)

// resolveClock substitutes realClock for clock.DefaultClock.
func resolveClock(c clock.Clock) clock.Clock {
	switch c.(type) {
	case clock.DefaultClock, *clock.DefaultClock:
		return realClock{}
	}
	return c
}

func (realClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	return &realTimer{t: time.AfterFunc(d, f)}
}

func (realClock) NewTimer(d time.Duration) clock.Timer {
	return &realTimer{t: time.NewTimer(d)}
}

func (realClock) NewTicker(d time.Duration) clock.Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (x *realTimer) Chan() <-chan time.Time { return x.t.C }

func (x *realTimer) Reset(d time.Duration) bool { return x.t.Reset(d) }

func (x *realTimer) Stop() bool { return x.t.Stop() }

func (x *realTicker) Chan() <-chan time.Time { return x.t.C }

func (x *realTicker) Stop() { x.t.Stop() }
