package wakeinterval

import (
	"bytes"
	"runtime"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mixer/clock"
)

// mockSettleStep is how far each mock clock is advanced, per attempt, while
// waiting for goroutines to exit. It must exceed every interval under test.
const mockSettleStep = time.Hour * 24

// checkNumGoroutines is intended to be used to check for errant goroutines,
// like `defer checkNumGoroutines(time.Second*3, mock)(t)`.
//
// Mock tickers leave a goroutine parked in MockClock.After until the clock
// passes its next deadline, even once stopped, so any given clocks are
// advanced while waiting. Only pass clocks whose timers have all stopped, or
// whose tasks have all completed, as advancing them may otherwise wake tasks.
func checkNumGoroutines(max time.Duration, clocks ...*clock.MockClock) func(t *testing.T) {
	before := runtime.NumGoroutine()
	return func(t *testing.T) {
		t.Helper()
		if after := settleGoroutines(max, before, clocks); after > before {
			var b bytes.Buffer
			_ = pprof.Lookup("goroutine").WriteTo(&b, 1)
			t.Errorf("%s\n\nstarted with %d goroutines finished with %d", b.Bytes(), before, after)
		}
	}
}

// settleGoroutines waits until there are at most target goroutines, or max
// has elapsed, returning the last count.
func settleGoroutines(max time.Duration, target int, clocks []*clock.MockClock) (n int) {
	deadline := time.Now().Add(max)
	for {
		n = runtime.NumGoroutine()
		if n <= target || !time.Now().Before(deadline) {
			return n
		}
		// abandoned timers only stop after their IntervalWaker is collected
		runtime.GC()
		for _, c := range clocks {
			c.AddTime(mockSettleStep)
		}
		time.Sleep(time.Millisecond * 10)
	}
}

// countingWaker is a comparable Waker, which records each call.
type countingWaker struct {
	name  string
	count atomic.Int32
}

func (x *countingWaker) Wake() {
	x.count.Add(1)
}

func (x *countingWaker) Count() int {
	return int(x.count.Load())
}

// pollCounter is a Task that becomes ready on the nth poll, and never wakes
// on its own.
type pollCounter struct {
	mu    sync.Mutex
	n     int
	polls int
	cxs   []*Context
}

func (x *pollCounter) Poll(cx *Context) (int, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.polls++
	x.cxs = append(x.cxs, cx)
	if x.polls >= x.n {
		return x.polls, true
	}
	return 0, false
}

func (x *pollCounter) Polls() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.polls
}
