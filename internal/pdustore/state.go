// Package pdustore implements the fixed-capacity frame slot pool that
// backs the PDU loop: a ring of pre-allocated Ethernet frame buffers,
// each carrying an atomic state machine so allocation, send and receive
// can all run concurrently without a lock on the hot path.
package pdustore

import "sync/atomic"

// FrameState is a slot's position in its send/receive lifecycle.
type FrameState int32

const (
	// StateIdle is the default: the slot is unused and can be claimed.
	StateIdle FrameState = iota
	// StateCreated means a caller has claimed the slot and is writing PDUs into it.
	StateCreated
	// StateSendable means the caller has finished writing and the slot is queued for TX.
	StateSendable
	// StateSending means the TX driver has claimed the slot off the network.
	StateSending
	// StateSent means the frame is on the wire and awaiting its echo.
	StateSent
	// StateRxBusy means the RX driver has matched a response to this slot and is validating it.
	StateRxBusy
	// StateRxDone means validation is complete; the response is ready for the waiting caller.
	StateRxDone
	// StateRxProcessing means the caller has taken the response and is still reading it.
	StateRxProcessing
)

func (s FrameState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCreated:
		return "Created"
	case StateSendable:
		return "Sendable"
	case StateSending:
		return "Sending"
	case StateSent:
		return "Sent"
	case StateRxBusy:
		return "RxBusy"
	case StateRxDone:
		return "RxDone"
	case StateRxProcessing:
		return "RxProcessing"
	default:
		return "Unknown"
	}
}

// atomicState wraps an int32 for CAS-driven state transitions.
type atomicState struct {
	v atomic.Int32
}

func (a *atomicState) load() FrameState {
	return FrameState(a.v.Load())
}

func (a *atomicState) store(s FrameState) {
	a.v.Store(int32(s))
}

// swap attempts to move the state from `from` to `to`. It reports the
// state actually observed and whether the swap succeeded.
func (a *atomicState) swap(from, to FrameState) (actual FrameState, ok bool) {
	if a.v.CompareAndSwap(int32(from), int32(to)) {
		return to, true
	}
	return FrameState(a.v.Load()), false
}
