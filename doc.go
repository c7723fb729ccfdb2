// Package wakeinterval offers a combinator, IntervalWaker, which wraps a
// pollable Task and guarantees it will be woken at least once per interval,
// until it completes.
//
// This is intended for tasks whose readiness depends on some external
// condition that can only be observed by polling (a file appearing, a lock
// being released, a remote status changing), where there is no event that
// would otherwise cause the driving executor to poll again. Each
// IntervalWaker shares a small, mutex-guarded "handshake" with a background
// timer. Each call to IntervalWaker.Poll records the most recent Waker, and
// delegates to the inner task. The timer periodically wakes that Waker,
// stopping once the inner task reports ready.
//
// By default, the first poll starts a goroutine per IntervalWaker. When many
// adapters are alive at once, a Pacer may be shared instead (see WithPacer),
// which multiplexes all their timers onto a single goroutine.
//
// Block is a minimal executor, which drives a single Task to completion.
package wakeinterval
