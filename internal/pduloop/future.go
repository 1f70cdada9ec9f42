package pduloop

import (
	"context"
	"time"

	"ethercat-master/internal/pdustore"
)

// ResponseFuture represents a sent frame awaiting its response. Go has
// no async/await runtime to hang a waker off of, so this is backed
// directly by the slot's buffered readiness channel instead: Wait blocks
// on it (or a timeout, or context cancellation) rather than polling a
// task executor.
type ResponseFuture struct {
	slot *pdustore.FrameSlot
}

// Wait blocks until the frame's response arrives, the timeout expires
// repeatedly beyond what retry allows, or ctx is cancelled. On a timeout
// that retry permits another attempt for, resend is called to put the
// frame back on the wire before waiting again.
func (f *ResponseFuture) Wait(ctx context.Context, timeout time.Duration, retry RetryPolicy, resend func() error) error {
	attempt := 0
	for {
		timer := time.NewTimer(timeout)
		select {
		case <-f.slot.Ready():
			timer.Stop()
			return nil
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			if !retry.allows(attempt) {
				return ErrTimeout
			}
			attempt++
			if !f.slot.RequeueAfterTimeout() {
				// The response arrived concurrently with the timeout
				// firing; let the next iteration's Ready() select
				// pick it up instead of resending.
				continue
			}
			if resend != nil {
				if err := resend(); err != nil {
					return err
				}
			}
		}
	}
}

// Take claims the response for reading and returns the frame's slot
// directly, since PduHandles created against this frame already point
// into the slot's buffer. Callers must call Release when done.
func (f *ResponseFuture) Take() (*pdustore.FrameSlot, bool) {
	if !f.slot.ClaimProcessing() {
		return nil, false
	}
	return f.slot, true
}

// Release returns the frame's slot to the pool. Must be called exactly
// once after Take, when the caller is finished reading the response.
func (f *ResponseFuture) Release() {
	f.slot.Release()
}
