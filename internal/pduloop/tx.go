package pduloop

import "ethercat-master/internal/pdustore"

// Tx hands sendable frames to whatever owns the network connection. It
// holds no socket itself: the caller's send loop repeatedly calls
// NextSendable and writes the returned bytes, then reports the outcome.
type Tx struct {
	storage *pdustore.Storage
}

// NewTx builds a Tx over storage.
func NewTx(storage *pdustore.Storage) *Tx {
	return &Tx{storage: storage}
}

// NextSendable claims the next frame in the Sendable state, if any, and
// returns the exact slice of its buffer that should be written to the
// network.
func (t *Tx) NextSendable() (slot *pdustore.FrameSlot, frame []byte, ok bool) {
	slot, ok = t.storage.ClaimSendable()
	if !ok {
		return nil, nil, false
	}
	n := RegionStart + slot.PduPayloadLen()
	return slot, slot.Buf()[:n], true
}

// MarkSent records that a claimed frame was handed to the network
// interface successfully.
func (t *Tx) MarkSent(slot *pdustore.FrameSlot) {
	slot.MarkSent()
}

// Abort puts a claimed frame back in line to be sent again, e.g. because
// the transport write failed or only partially completed. It requeues
// the slot as Sendable rather than releasing it to Idle, since the
// frame's PDUs and first-PDU marker are still valid and a waiter is
// still blocked on its response.
func (t *Tx) Abort(slot *pdustore.FrameSlot) {
	slot.RequeueAfterSendError()
}
