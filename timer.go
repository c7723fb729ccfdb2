package wakeinterval

import (
	"fmt"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/mixer/clock"
)

type (
	// timer is the background process for a single IntervalWaker, which
	// runs in its own goroutine. It holds no reference to the IntervalWaker.
	timer struct {
		state    *handshake
		interval time.Duration
		ticker   clock.Ticker
		logger   log.Logger
	}
)

func (x *timer) run() {
	defer x.ticker.Stop()

	level.Debug(x.logger).Log(
		"msg", "interval timer started",
		"interval", x.interval,
	)

	result := x.loop()

	_, _, _, _, wakes := x.state.snapshot()
	level.Debug(x.logger).Log(
		"msg", "interval timer stopped",
		"reason", result,
		"wakes", wakes,
	)
}

func (x *timer) loop() tickResult {
	for {
		select {
		case <-x.state.done:
			// tick anyway, to resolve the reason under the lock
		case <-x.ticker.Chan():
		}
		if result := safeTick(x.state, x.logger); result != tickContinue {
			return result
		}
	}
}

// safeTick calls handshake.tick, recovering any panic from the waker, in
// which case the handshake will have been marked abandoned.
func safeTick(state *handshake, logger log.Logger) (result tickResult) {
	var success bool
	defer func() {
		if !success {
			r := recover()
			level.Error(logger).Log(
				"msg", "recovered panic in waker, interval timer stopping",
				"err", fmt.Sprint(r),
			)
			result = tickAbandoned
		}
	}()
	result = state.tick()
	success = true
	return
}

// stopAndDrainTimer stops the timer, and consumes any pending value, returning
// true if the timer had already fired. Draining first works with both the
// buffered channels of the mock clock, and the unbuffered timer channels of
// Go 1.23+, where Stop reports true for an expired but unreceived timer.
// A value sent between the drain and Stop may still be observed, which only
// causes a spurious pass of the Pacer loop.
func stopAndDrainTimer(t clock.Timer) (fired bool) {
	select {
	case <-t.Chan():
		return true
	default:
		return !t.Stop()
	}
}
