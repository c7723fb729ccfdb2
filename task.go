package wakeinterval

type (
	// Waker is a handle used to request that a task be polled again.
	// Implementations must be safe to call from any goroutine. Wake must not
	// block, and must not synchronously poll the task it wakes.
	Waker interface {
		Wake()
	}

	// WakerFunc adapts an ordinary function to a Waker.
	WakerFunc func()

	// Context is provided to each Task.Poll call, and carries the Waker the
	// task should use, if it is not ready. The Waker may differ between
	// calls.
	Context struct {
		waker Waker
	}

	// Task models an asynchronous computation, which is polled repeatedly,
	// until it reports ready, with a value. Tasks that are not ready are
	// responsible for arranging for the Waker (from the Context) to be called,
	// once they may be able to make progress.
	//
	// Polling a task which has already reported ready is not supported.
	Task[T any] interface {
		Poll(cx *Context) (value T, ready bool)
	}

	// TaskFunc adapts an ordinary function to a Task.
	TaskFunc[T any] func(cx *Context) (T, bool)
)

var (
	_ Waker          = WakerFunc(nil)
	_ Task[struct{}] = TaskFunc[struct{}](nil)
)

// NewContext initialises a Context, for polling with the given Waker.
func NewContext(waker Waker) *Context {
	return &Context{waker: waker}
}

// Waker returns the waker associated with this poll.
func (x *Context) Waker() Waker {
	return x.waker
}

// Wake calls x().
func (x WakerFunc) Wake() {
	x()
}

// Poll calls x(cx).
func (x TaskFunc[T]) Poll(cx *Context) (T, bool) {
	return x(cx)
}
