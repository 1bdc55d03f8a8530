// Package timer provides the deferred-callback machinery used by the
// file-context and directory engines: a small worker pool ("the timer
// executor") that runs timer-expiry and store callbacks off of Go's
// runtime timer goroutines, plus a Timer wrapper that preserves the
// "did this cancellation defuse a pending callback" signal the
// file-context teardown optimization depends on.
package timer

import (
	"sync"
)

// Executor runs posted callbacks on a fixed-size worker pool.
//
// Mirrors the background-worker shape used elsewhere in this codebase
// for periodic maintenance tasks (stop channel, wait for workers),
// generalized here into a job queue serviced by N workers rather than
// a single ticking goroutine, since timer expiries arrive at
// unpredictable times from many independent Timers.
type Executor struct {
	jobs chan func()
	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

// DefaultWorkers is the minimum worker count: a directory store
// completion must never be blocked behind a file-teardown callback
// queued ahead of it, so at least two workers run concurrently.
const DefaultWorkers = 2

// NewExecutor starts an Executor with the given worker count. A count
// below DefaultWorkers is raised to it.
func NewExecutor(workers int) *Executor {
	if workers < DefaultWorkers {
		workers = DefaultWorkers
	}

	e := &Executor{
		jobs: make(chan func(), 256),
		stop: make(chan struct{}),
	}

	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.run()
	}

	return e
}

func (e *Executor) run() {
	defer e.wg.Done()
	for {
		select {
		case job, ok := <-e.jobs:
			if !ok {
				return
			}
			job()
		case <-e.stop:
			return
		}
	}
}

// Post enqueues a callback for execution by a worker. The queue holds
// 256 jobs; while it is full, Post blocks until a worker frees a slot.
// Once Close has been called, Post no longer blocks, and the job may
// never run.
func (e *Executor) Post(job func()) {
	select {
	case e.jobs <- job:
	case <-e.stop:
	}
}

// Close stops the workers and waits for each to finish the job it is
// running; jobs still queued may not run. Safe to call multiple times.
func (e *Executor) Close() {
	e.once.Do(func() {
		close(e.stop)
	})
	e.wg.Wait()
}
