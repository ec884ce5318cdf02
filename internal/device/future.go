package device

import (
	"sync"
	"time"
)

// CaptureFuture is the pending result of an asynchronous screen capture.
// The capability side completes it exactly once; the dispatcher side awaits
// it with a bounded timeout. After a timeout the pending capture is asked to
// cancel best-effort, without ever blocking the waiter.
type CaptureFuture struct {
	done       chan CaptureResult
	cancel     func()
	completed  sync.Once
	cancelOnce sync.Once
}

// NewCaptureFuture builds a future for one capture. cancel, if non-nil, is
// invoked at most once to ask the underlying capability to abandon work.
func NewCaptureFuture(cancel func()) *CaptureFuture {
	return &CaptureFuture{
		done:   make(chan CaptureResult, 1),
		cancel: cancel,
	}
}

// Complete delivers the capture result. Only the first call wins; later
// calls (for example a capture finishing after its waiter timed out) are
// dropped. Complete never blocks.
func (f *CaptureFuture) Complete(res CaptureResult) {
	f.completed.Do(func() {
		f.done <- res
	})
}

// Cancel asks the capability to abandon the capture. It is safe to call
// multiple times and never blocks.
func (f *CaptureFuture) Cancel() {
	f.cancelOnce.Do(func() {
		if f.cancel != nil {
			f.cancel()
		}
	})
}

// Await blocks until the capture completes or timeout elapses. On timeout it
// cancels the pending capture and returns ErrCaptureTimeout; there is no
// other way to interrupt the wait.
func (f *CaptureFuture) Await(timeout time.Duration) (CaptureResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-f.done:
		return res, nil
	case <-timer.C:
		f.Cancel()
		return CaptureResult{}, ErrCaptureTimeout
	}
}
