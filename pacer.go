package wakeinterval

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/mixer/clock"
)

type (
	// Pacer is a shared timer service, which multiplexes the background
	// timers of any number of IntervalWaker values onto a single goroutine.
	// Each registered IntervalWaker is woken once per its own interval,
	// until it completes (or is garbage collected).
	//
	// Pacer must be constructed with NewPacer. The Run method is used to run
	// the pacer. Register an IntervalWaker using WithPacer.
	Pacer struct {
		clock  clock.Clock
		logger log.Logger

		// mu guards entries and seq, and is held while waking
		mu sync.Mutex

		// entries is a min-heap, ordered by the next deadline
		entries pacerHeap

		// seq breaks ties between entries with identical deadlines
		seq uint64

		// notifyCh is buffered, and is used to wake up the main loop on register
		notifyCh chan struct{}

		// running is used to trigger a panic if Run is called concurrently
		running atomic.Int32
	}

	pacerEntry struct {
		state    *handshake
		interval time.Duration
		next     time.Time
		seq      uint64
	}

	pacerHeap []*pacerEntry
)

// NewPacer initialises a [Pacer], with the given options.
// WithPacer is not a valid option.
func NewPacer(options ...Option) (*Pacer, error) {
	c, err := newConfig(options)
	if err != nil {
		return nil, err
	}
	if c.pacer != nil {
		return nil, errors.New(`wakeinterval: pacer cannot be configured with a pacer`)
	}
	return &Pacer{
		clock:    c.clock,
		logger:   c.logger,
		notifyCh: make(chan struct{}, 1),
	}, nil
}

// Run runs the pacer, blocking until the context is cancelled, returning the
// context error. A panic will occur if called concurrently (called again
// before the previous call returns), or if called on a pacer which was not
// initialized with NewPacer.
//
// Registered entries are retained between calls to Run, though no wakes
// will occur while it is not running.
func (x *Pacer) Run(ctx context.Context) error {
	if x.notifyCh == nil {
		panic(`wakeinterval: pacer must be initialized with NewPacer`)
	}

	// prevent more than one run call at a time (entries would be woken twice)
	if !x.running.CompareAndSwap(0, 1) {
		panic(`wakeinterval: pacer already running`)
	}
	defer x.running.Store(0)

	var t clock.Timer
	defer func() {
		if t != nil {
			t.Stop()
		}
	}()

	// pacer main loop
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// wake any due entries, and find out how long until the next one
		var timerCh <-chan time.Time
		if d, ok := x.advance(x.clock.Now()); ok {
			if t == nil {
				t = x.clock.NewTimer(d)
			} else {
				stopAndDrainTimer(t)
				t.Reset(d)
			}
			timerCh = t.Chan()
		} else if t != nil {
			stopAndDrainTimer(t)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-x.notifyCh:
		case <-timerCh:
		}
	}
}

// Len returns the number of registered entries. Entries are removed lazily,
// at the first deadline after the task completes.
func (x *Pacer) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.entries)
}

// register adds an entry, which will first be due one interval from now.
func (x *Pacer) register(state *handshake, interval time.Duration) {
	x.mu.Lock()
	x.seq++
	heap.Push(&x.entries, &pacerEntry{
		state:    state,
		interval: interval,
		next:     x.clock.Now().Add(interval),
		seq:      x.seq,
	})
	n := len(x.entries)
	x.mu.Unlock()

	level.Debug(x.logger).Log(
		"msg", "pacer entry registered",
		"interval", interval,
		"entries", n,
	)

	// notify, in case the new entry is the soonest
	select {
	case x.notifyCh <- struct{}{}:
	default:
	}
}

// advance ticks every entry due at or before now, dropping any which have
// stopped, and rescheduling the rest. Missed deadlines are coalesced into a
// single wake. It returns the duration until the next deadline, if any.
func (x *Pacer) advance(now time.Time) (wait time.Duration, ok bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for len(x.entries) != 0 {
		entry := x.entries[0]
		if entry.next.After(now) {
			break
		}

		if result := safeTick(entry.state, x.logger); result != tickContinue {
			heap.Pop(&x.entries)
			level.Debug(x.logger).Log(
				"msg", "pacer entry dropped",
				"reason", result,
				"entries", len(x.entries),
			)
			continue
		}

		entry.next = entry.next.Add(entry.interval)
		if !entry.next.After(now) {
			entry.next = now.Add(entry.interval)
		}
		heap.Fix(&x.entries, 0)
	}

	if len(x.entries) == 0 {
		return 0, false
	}

	return x.entries[0].next.Sub(now), true
}

func (h pacerHeap) Len() int { return len(h) }

func (h pacerHeap) Less(i, j int) bool {
	if h[i].next.Equal(h[j].next) {
		return h[i].seq < h[j].seq
	}
	return h[i].next.Before(h[j].next)
}

func (h pacerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *pacerHeap) Push(x any) {
	*h = append(*h, x.(*pacerEntry))
}

func (h *pacerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
