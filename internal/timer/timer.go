package timer

import (
	"sync"
	"time"
)

// Timer is a one-shot, re-armable deferred callback posted onto an
// Executor when it expires. Cancel reports whether the pending
// callback was defused before it ran - the exact evidence the
// file-context "defuse the teardown" optimization and the directory
// store debounce both depend on.
type Timer struct {
	mu       sync.Mutex
	executor *Executor
	callback func()
	inner    *time.Timer
}

// New creates a Timer bound to executor that will invoke callback
// (on a worker goroutine, not the runtime timer goroutine) once
// Reset is called and the delay elapses. The timer is not armed on
// construction.
func New(executor *Executor, callback func()) *Timer {
	return &Timer{executor: executor, callback: callback}
}

// Reset (re-)arms the timer to fire after delay. If a previous firing
// was pending, it is cancelled first; the return value mirrors Cancel.
func (t *Timer) Reset(delay time.Duration) (defused bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	defused = t.stopLocked()

	t.inner = time.AfterFunc(delay, func() {
		t.executor.Post(t.callback)
	})

	return defused
}

// Cancel stops a pending firing. It returns true if the callback had
// not yet fired (the firing was defused) and false if it had already
// fired, had already been posted to the executor, or no timer was
// armed. This exactly mirrors time.Timer.Stop's contract, which is
// the primitive the original cancellation-count trick relies on.
func (t *Timer) Cancel() (defused bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopLocked()
}

func (t *Timer) stopLocked() bool {
	if t.inner == nil {
		return false
	}
	stopped := t.inner.Stop()
	t.inner = nil
	return stopped
}

// Armed reports whether Reset has been called since the last Cancel
// (without cancelling anything). A timer that has already fired still
// reports true until it is cancelled or re-armed. Used only for
// assertions/tests; production code
// should rely on Cancel's return value instead of racing a separate
// Armed check.
func (t *Timer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner != nil
}
