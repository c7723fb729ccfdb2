package wakeinterval

import (
	"fmt"
	"sync"
)

type (
	// handshake is the state shared between an IntervalWaker, and its
	// background timer. All fields are guarded by mu.
	handshake struct {
		mu sync.Mutex

		// waker is the Waker from the most recent poll, nil until the first poll
		waker Waker

		// completed is set by the poll path, after the inner task is ready
		completed bool

		// abandoned is set if the IntervalWaker was garbage collected prior
		// to completing, or if the waker panicked
		abandoned bool

		// done is closed the first time either completed or abandoned is set
		done chan struct{}

		// starts is the number of timers started, which must never exceed 1
		starts int

		// wakes is the number of times the timer has called waker.Wake
		wakes int
	}

	// tickResult indicates what a timer should do after a tick.
	tickResult int
)

const (
	// tickContinue indicates the timer should continue
	tickContinue tickResult = iota
	// tickCompleted indicates the task completed, and the timer should stop
	tickCompleted
	// tickAbandoned indicates the task was abandoned, and the timer should stop
	tickAbandoned
)

func newHandshake() *handshake {
	return &handshake{done: make(chan struct{})}
}

func (x tickResult) String() string {
	switch x {
	case tickContinue:
		return `continue`
	case tickCompleted:
		return `completed`
	case tickAbandoned:
		return `abandoned`
	default:
		return fmt.Sprintf(`tickResult(%d)`, int(x))
	}
}

// setWaker overwrites the waker, returning true if this was the first call
// to start, which atomically increments starts, if requested.
func (x *handshake) setWaker(waker Waker, start bool) (first bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.waker = waker
	if start {
		x.starts++
		first = x.starts == 1
	}
	return
}

// complete marks the task as completed, which will cause the timer to stop.
func (x *handshake) complete() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.completed {
		x.completed = true
		x.closeDoneLocked()
	}
}

// abandon marks the handshake as abandoned, unless it is already completed.
func (x *handshake) abandon() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.abandonLocked()
}

func (x *handshake) abandonLocked() {
	if !x.completed && !x.abandoned {
		x.abandoned = true
		x.closeDoneLocked()
	}
}

func (x *handshake) closeDoneLocked() {
	select {
	case <-x.done:
	default:
		close(x.done)
	}
}

// tick is called by the timer, each interval. The waker is called while
// holding the lock, which guarantees no wake is issued after complete.
//
// If the waker panics, the handshake is marked abandoned, then the panic is
// propagated, to be handled by the timer.
func (x *handshake) tick() (result tickResult) {
	x.mu.Lock()
	defer x.mu.Unlock()

	switch {
	case x.completed:
		return tickCompleted
	case x.abandoned:
		return tickAbandoned
	case x.waker == nil:
		// unreachable in practice, the waker is set before the timer starts
		return tickContinue
	}

	var success bool
	defer func() {
		if !success {
			x.abandonLocked()
		}
	}()

	x.waker.Wake()
	x.wakes++
	success = true

	return tickContinue
}

// snapshot returns a copy of the guarded state, for logging and tests.
func (x *handshake) snapshot() (waker Waker, completed, abandoned bool, starts, wakes int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.waker, x.completed, x.abandoned, x.starts, x.wakes
}
