package directory

import (
	"context"
	"time"

	"github.com/marmos91/driftvault/internal/drive/filecontext"
	"github.com/marmos91/driftvault/internal/logger"
)

// ScheduleForStoring marks this directory dirty and (re)arms its
// debounce timer. Called via the filecontext.Parent contract when a
// child's content changes; AddChild, RemoveChild and RenameChild call
// doScheduleForStoringLocked themselves. Callers must already hold d.mu: every production
// call site reaches this through code that has already locked the
// directory to look up or mutate the child that triggered it.
func (d *Directory) ScheduleForStoring() {
	d.doScheduleForStoringLocked(true)
}

// doScheduleForStoringLocked implements the store-state machine's
// transition on a new store request. Assumes d.mu is held. useDelay
// chooses between debouncing (further activity keeps pushing the
// attempt out) and firing as soon as the executor can run it.
//
//   - Complete -> Pending: arm the timer. A useDelay=false request
//     against a clean directory is a no-op: there is nothing pending
//     to dispatch immediately.
//   - Pending -> Pending: either extend the debounce (useDelay) or
//     collapse it to fire immediately.
//   - Ongoing -> Ongoing: note that another attempt is needed once the
//     current one finishes, rather than racing a second store.
func (d *Directory) doScheduleForStoringLocked(useDelay bool) {
	switch d.storeState {
	case StoreComplete:
		if !useDelay {
			return
		}
		d.storeState = StorePending
		d.armTimerLocked(useDelay)
	case StorePending:
		d.armTimerLocked(useDelay)
	case StoreOngoing:
		d.pendingAfterOngoing = true
	}
}

func (d *Directory) armTimerLocked(useDelay bool) {
	delay := time.Duration(0)
	if useDelay {
		delay = d.directoryInactivityDelay
	}
	d.timer.Reset(delay)
}

// StoreImmediatelyIfPending collapses a pending debounce into an
// immediate store attempt, without affecting a store already ongoing.
func (d *Directory) StoreImmediatelyIfPending() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.storeState == StorePending {
		d.armTimerLocked(false)
	}
}

// onStoreTimerFired is the debounce timer's callback, posted to the
// shared executor. It performs exactly one store attempt and re-arms
// itself if more changes queued up while it ran, or if the attempt
// failed (the failure is logged, then retried on a fresh debounce
// window rather than immediately, so a persistently failing backend
// doesn't spin the executor).
func (d *Directory) onStoreTimerFired() {
	d.mu.Lock()
	if d.storeState != StorePending {
		d.mu.Unlock()
		return
	}
	d.storeState = StoreOngoing
	fn := d.storeFunc
	d.mu.Unlock()

	d.metrics.DirectoryStoreAttempted()

	var err error
	if fn != nil {
		err = fn(context.Background(), d)
	}

	d.mu.Lock()
	d.storeState = StoreComplete
	retry := d.pendingAfterOngoing
	d.pendingAfterOngoing = false

	if err != nil {
		logger.Error("directory %s: store attempt failed: %v", d.directoryID, err)
		d.metrics.DirectoryStoreFailed()
		retry = true
	} else if fn != nil {
		d.metrics.DirectoryStoreSucceeded()
	}

	d.storeDone.Broadcast()

	if retry {
		d.doScheduleForStoringLocked(true)
	}
	d.mu.Unlock()
}

// waitForStoreComplete blocks until storeState returns to Complete or
// ctx is done, whichever comes first.
func (d *Directory) waitForStoreComplete(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.mu.Lock()
		for d.storeState != StoreComplete {
			d.storeDone.Wait()
		}
		d.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stands in for the original's destructor: if a store is still
// pending, collapse its debounce and dispatch it immediately, then
// wait for the directory to settle, bounded by ctx and by
// DirectoryInactivityDelay plus 500ms, whichever ends first. A directory with
// no pending changes closes without emitting a spurious version.
// Every child is closed first, so their own final flushes are folded
// into this directory's last Serialise, when one runs.
func (d *Directory) Close(ctx context.Context) error {
	d.mu.Lock()
	children := append([]*filecontext.FileContext(nil), d.children...)
	d.mu.Unlock()

	for _, child := range children {
		_ = child.Close(ctx)
	}

	d.mu.Lock()
	d.doScheduleForStoringLocked(false)
	d.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, d.directoryInactivityDelay+500*time.Millisecond)
	defer cancel()
	return d.waitForStoreComplete(waitCtx)
}
