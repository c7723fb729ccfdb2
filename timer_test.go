package wakeinterval

import (
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/mixer/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_stopAndDrainTimer_notFired(t *testing.T) {
	tm := realClock{}.NewTimer(time.Hour)
	assert.False(t, stopAndDrainTimer(tm))
}

func Test_stopAndDrainTimer_fired(t *testing.T) {
	tm := realClock{}.NewTimer(time.Millisecond)
	time.Sleep(time.Millisecond * 50)
	assert.True(t, stopAndDrainTimer(tm))
	select {
	case v := <-tm.Chan():
		t.Error(v)
	default:
	}
}

// The pacer stops, drains, then resets the same timer, on every iteration.
func Test_stopAndDrainTimer_reset(t *testing.T) {
	for _, c := range []clock.Clock{clock.DefaultClock{}, realClock{}} {
		tm := resolveClock(c).NewTimer(time.Hour)
		for i := 0; i < 3; i++ {
			stopAndDrainTimer(tm)
			tm.Reset(time.Millisecond)
			select {
			case <-tm.Chan():
			case <-time.After(time.Second * 2):
				t.Fatalf("%T: timer did not fire after reset %d", c, i)
			}
		}
		assert.False(t, stopAndDrainTimer(tm))
	}
}

func Test_safeTick_recovers(t *testing.T) {
	var buf syncBuffer
	state := newHandshake()
	state.setWaker(WakerFunc(func() { panic("some panic") }), true)
	require.Equal(t, tickAbandoned, safeTick(state, log.NewLogfmtLogger(&buf)))
	assert.Contains(t, buf.String(), `err="some panic"`)
	assert.Equal(t, tickAbandoned, safeTick(state, log.NewNopLogger()))
}

func Test_timer_run_stopsOnDone(t *testing.T) {
	t.Run("mock clock", func(t *testing.T) {
		mock := clock.NewMockClock()
		testTimerRunStopsOnDone(t, mock, mock)
	})
	t.Run("real clock", func(t *testing.T) {
		testTimerRunStopsOnDone(t, realClock{})
	})
	t.Run("default clock", func(t *testing.T) {
		testTimerRunStopsOnDone(t, resolveClock(clock.DefaultClock{}))
	})
}

func testTimerRunStopsOnDone(t *testing.T, c clock.Clock, mocks ...*clock.MockClock) {
	defer checkNumGoroutines(time.Second*3, mocks...)(t)

	state := newHandshake()
	waker := &countingWaker{}
	state.setWaker(waker, true)
	x := timer{
		state:    state,
		interval: time.Hour,
		ticker:   c.NewTicker(time.Hour),
		logger:   log.NewNopLogger(),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		x.run()
	}()

	state.complete()

	select {
	case <-done:
	case <-time.After(time.Second * 2):
		t.Fatal("timer did not stop")
	}
	assert.Zero(t, waker.Count())
}
