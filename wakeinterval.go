package wakeinterval

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/mixer/clock"
)

const (
	// StateNotStarted indicates IntervalWaker.Poll has not been called.
	StateNotStarted State = iota
	// StateRunning indicates the timer has started, and the inner task is
	// not yet ready.
	StateRunning
	// StateCompleted indicates the inner task has reported ready.
	StateCompleted
)

type (
	// IntervalWaker wraps a Task, and ensures it is woken at least once per
	// interval, until it reports ready. It implements Task, and may be used
	// anywhere a Task is expected.
	//
	// The background timer is started by the first call to Poll, and stops
	// after the inner task reports ready. If an IntervalWaker is discarded
	// prior to completion, its timer will stop once it has been garbage
	// collected.
	//
	// IntervalWaker must be constructed with New. Like any Task, it must only
	// be polled by one goroutine at a time.
	IntervalWaker[T any] struct {
		interval time.Duration
		task     Task[T]
		clock    clock.Clock
		logger   log.Logger
		pacer    *Pacer

		// state is shared with the timer, which must never reference the
		// IntervalWaker itself (see the finalizer in New)
		state *handshake

		// started and done are only accessed by the poll path
		started bool
		done    bool
	}

	// State models the lifecycle of an IntervalWaker.
	State int
)

var (
	_ Task[struct{}] = (*IntervalWaker[struct{}])(nil)
)

// New initialises an IntervalWaker, which will wake the given task at least
// once per interval. The interval must be positive.
// See also `With*` prefixed functions.
func New[T any](interval time.Duration, task Task[T], options ...Option) (*IntervalWaker[T], error) {
	if interval <= 0 {
		return nil, fmt.Errorf(`wakeinterval: interval must be positive: %s`, interval)
	}
	if task == nil {
		return nil, errors.New(`wakeinterval: task must not be nil`)
	}

	c, err := newConfig(options)
	if err != nil {
		return nil, err
	}

	x := &IntervalWaker[T]{
		interval: interval,
		task:     task,
		clock:    c.clock,
		logger:   c.logger,
		pacer:    c.pacer,
		state:    newHandshake(),
	}

	// the timer only holds the handshake, so this will run if the caller
	// drops the IntervalWaker without polling it to completion
	state := x.state
	runtime.SetFinalizer(x, func(*IntervalWaker[T]) {
		state.abandon()
	})

	return x, nil
}

// Poll records the Waker from cx, starts the background timer if this is the
// first call, then polls the inner task. A panic will occur if cx is nil, or
// if called after the inner task has reported ready.
func (x *IntervalWaker[T]) Poll(cx *Context) (value T, ready bool) {
	if x.state == nil {
		panic(`wakeinterval: interval waker must be initialized with New`)
	}
	if cx == nil {
		panic(`wakeinterval: poll context must not be nil`)
	}
	if x.done {
		panic(`wakeinterval: poll after completion`)
	}

	// the waker may change between calls, and the timer must always use the latest
	if x.state.setWaker(cx.Waker(), !x.started) {
		x.started = true
		x.startTimer()
	}

	value, ready = x.task.Poll(cx)
	if ready {
		x.done = true
		x.state.complete()
	}

	return value, ready
}

// Interval returns the configured interval.
func (x *IntervalWaker[T]) Interval() time.Duration {
	return x.interval
}

// State returns the current lifecycle state. Like Poll, it must not be
// called concurrently with Poll.
func (x *IntervalWaker[T]) State() State {
	switch {
	case x.done:
		return StateCompleted
	case x.started:
		return StateRunning
	default:
		return StateNotStarted
	}
}

// startTimer is called exactly once, from the first Poll.
func (x *IntervalWaker[T]) startTimer() {
	if x.pacer != nil {
		x.pacer.register(x.state, x.interval)
		return
	}

	// the ticker is started before the goroutine, so the first tick is
	// always measured from the first poll
	t := timer{
		state:    x.state,
		interval: x.interval,
		ticker:   x.clock.NewTicker(x.interval),
		logger:   x.logger,
	}

	go t.run()
}

func (x State) String() string {
	switch x {
	case StateNotStarted:
		return `not started`
	case StateRunning:
		return `running`
	case StateCompleted:
		return `completed`
	default:
		return fmt.Sprintf(`State(%d)`, int(x))
	}
}
