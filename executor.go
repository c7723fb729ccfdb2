package wakeinterval

import (
	"context"
)

// Block drives the given task to completion, on the calling goroutine,
// returning its value. Between polls, it blocks until the task's Waker is
// called, or the context is done, in which case the context error will be
// returned. Wakes which occur while the task is being polled are coalesced
// into a single subsequent poll.
func Block[T any](ctx context.Context, task Task[T]) (value T, err error) {
	if task == nil {
		panic(`wakeinterval: block task must not be nil`)
	}

	wakeCh := make(chan struct{}, 1)
	cx := NewContext(WakerFunc(func() {
		select {
		case wakeCh <- struct{}{}:
		default:
		}
	}))

	for {
		if err := ctx.Err(); err != nil {
			return value, err
		}

		if v, ok := task.Poll(cx); ok {
			return v, nil
		}

		select {
		case <-ctx.Done():
			return value, ctx.Err()
		case <-wakeCh:
		}
	}
}
