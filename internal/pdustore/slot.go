package pdustore

import "sync/atomic"

// FirstPduEmpty is the sentinel stored in a slot's first-PDU field when no
// PDU has been pushed into it yet. The upper byte is non-zero so it can
// never collide with a real 8-bit PDU index.
const FirstPduEmpty uint32 = 0xFF00

// FrameSlot is one pre-allocated Ethernet frame buffer plus the metadata
// needed to track it through its send/receive lifecycle. A Storage owns a
// fixed array of these; slots are never allocated or freed after
// construction, only reclaimed by resetting their state to StateIdle.
type FrameSlot struct {
	state atomicState

	// slotIndex is this slot's position in its owning Storage. It has no
	// relation to the PDU index field in any PDU header.
	slotIndex uint8

	// buf holds the full raw Ethernet frame: header, EtherCAT frame
	// header, and the PDU region. Sized once at construction and reused.
	buf []byte

	// pduPayloadLen tracks how much of the PDU region has been written so
	// far, so the next PushPdu call knows where to append.
	pduPayloadLen int

	// firstPdu is the PDU index of the first PDU pushed into this slot, or
	// FirstPduEmpty if none has been pushed. The RX path does a linear
	// scan over all slots comparing this field against a received PDU's
	// index to find which slot it belongs to.
	firstPdu atomic.Uint32

	// ready signals a blocked response waiter that this slot reached
	// StateRxDone. Buffered to 1 so a send never blocks on an absent or
	// already-signalled waiter; it is drained before each fresh send.
	ready chan struct{}
}

func newFrameSlot(index uint8, bufLen int) *FrameSlot {
	s := &FrameSlot{
		slotIndex: index,
		buf:       make([]byte, bufLen),
		ready:     make(chan struct{}, 1),
	}
	s.firstPdu.Store(FirstPduEmpty)
	return s
}

// State returns the slot's current state.
func (s *FrameSlot) State() FrameState { return s.state.load() }

// SlotIndex returns this slot's position within its Storage.
func (s *FrameSlot) SlotIndex() uint8 { return s.slotIndex }

// Buf returns the slot's raw frame buffer for in-place writes and reads.
func (s *FrameSlot) Buf() []byte { return s.buf }

// PduPayloadLen returns how many bytes of the PDU region are in use.
func (s *FrameSlot) PduPayloadLen() int { return s.pduPayloadLen }

// SetPduPayloadLen records how many bytes of the PDU region are in use
// after a PushPdu call appends a new PDU.
func (s *FrameSlot) SetPduPayloadLen(n int) { s.pduPayloadLen = n }

// FirstPduIs reports whether this slot's first-PDU index equals search.
// Used by the RX path's linear scan to find the slot a response belongs
// to; never matches an empty slot since the sentinel's upper byte can
// never equal a real index's upper byte of zero.
func (s *FrameSlot) FirstPduIs(search uint8) bool {
	return s.firstPdu.Load() == uint32(search)
}

// SetFirstPdu records the PDU index of the first PDU pushed into this
// slot, but only if one hasn't been recorded yet. Subsequent calls are a
// silent no-op so that chaining more PDUs into an already-started frame
// never disturbs the index the RX path is searching for.
func (s *FrameSlot) SetFirstPdu(index uint8) {
	s.firstPdu.CompareAndSwap(FirstPduEmpty, uint32(index))
}

// clearFirstPdu resets the first-PDU marker back to empty. Called when a
// slot is reclaimed.
func (s *FrameSlot) clearFirstPdu() {
	s.firstPdu.Store(FirstPduEmpty)
}

// claimCreated attempts to move the slot from Idle to Created, the first
// step of allocating it for a new frame. Resets the payload length and
// first-PDU marker so the slot looks fresh to its new owner.
func (s *FrameSlot) claimCreated() bool {
	if _, ok := s.state.swap(StateIdle, StateCreated); !ok {
		return false
	}
	s.pduPayloadLen = 0
	s.clearFirstPdu()
	// Drain any stale readiness signal left over from a prior use.
	select {
	case <-s.ready:
	default:
	}
	return true
}

// MarkSendable moves the slot from Created to Sendable, queuing it for
// the next TX driver pass.
func (s *FrameSlot) MarkSendable() bool {
	_, ok := s.state.swap(StateCreated, StateSendable)
	return ok
}

// ClaimSending moves the slot from Sendable to Sending; the TX driver
// calls this right before writing the buffer to the network.
func (s *FrameSlot) ClaimSending() bool {
	_, ok := s.state.swap(StateSendable, StateSending)
	return ok
}

// MarkSent moves the slot from Sending to Sent once the TX driver has
// handed the buffer to the network interface.
func (s *FrameSlot) MarkSent() bool {
	_, ok := s.state.swap(StateSending, StateSent)
	return ok
}

// ClaimReceiving moves the slot from Sent to RxBusy; the RX driver calls
// this once it has matched an inbound frame to this slot by first-PDU
// index.
func (s *FrameSlot) ClaimReceiving() bool {
	_, ok := s.state.swap(StateSent, StateRxBusy)
	return ok
}

// MarkReceived moves the slot from RxBusy to RxDone and wakes any
// blocked response waiter.
func (s *FrameSlot) MarkReceived() bool {
	_, ok := s.state.swap(StateRxBusy, StateRxDone)
	if ok {
		select {
		case s.ready <- struct{}{}:
		default:
		}
	}
	return ok
}

// ClaimProcessing moves the slot from RxDone to RxProcessing, marking
// that the caller has taken ownership of the response and is reading it.
func (s *FrameSlot) ClaimProcessing() bool {
	_, ok := s.state.swap(StateRxDone, StateRxProcessing)
	return ok
}

// RequeueAfterSendError moves the slot from Sending back to Sendable, so
// a transport write that failed before reaching the wire can be retried
// without losing the frame's first-PDU marker or payload. Unlike
// Release, this does not wipe the slot back to Idle.
func (s *FrameSlot) RequeueAfterSendError() bool {
	_, ok := s.state.swap(StateSending, StateSendable)
	return ok
}

// RequeueAfterTimeout moves the slot from Sent back to Sendable so the TX
// driver can resend a frame whose response timed out. It reports false
// if the slot has already moved past Sent, e.g. because its response
// arrived concurrently with the timeout firing; the caller should not
// resend in that case.
func (s *FrameSlot) RequeueAfterTimeout() bool {
	_, ok := s.state.swap(StateSent, StateSendable)
	return ok
}

// Release returns the slot to Idle regardless of its current state. Used
// both to drop a finished response and to reset a whole Storage.
func (s *FrameSlot) Release() {
	s.state.store(StateIdle)
}

// Ready returns the channel a response waiter should select on
// alongside its timeout; it receives exactly one value when the slot
// reaches RxDone.
func (s *FrameSlot) Ready() <-chan struct{} { return s.ready }
