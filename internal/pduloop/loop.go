// Package pduloop drives PDUs through a pdustore.Storage: allocating
// frames, packing PDUs into them, handing sendable frames to a transmit
// driver, matching inbound responses back to their frame on receive, and
// waking the caller waiting on each round trip.
package pduloop

import (
	"ethercat-master/internal/ecat"
	"ethercat-master/internal/pdustore"
)

// Loop is the shared entry point for allocating and finalizing frames.
// It does not itself own a network connection -- that's the job of
// whatever drives Tx/Rx, kept separate so this package has no I/O
// dependency and is deterministic to test.
type Loop struct {
	storage *pdustore.Storage
	srcMAC  ecat.MAC
}

// New builds a Loop backed by storage, stamping every outgoing frame's
// Ethernet source address with srcMAC.
func New(storage *pdustore.Storage, srcMAC ecat.MAC) *Loop {
	return &Loop{storage: storage, srcMAC: srcMAC}
}

// AllocFrame claims a free slot and returns it ready for PushPdu calls.
func (l *Loop) AllocFrame() (*Frame, error) {
	slot, err := l.storage.Alloc()
	if err != nil {
		return nil, err
	}
	return newFrame(slot), nil
}

// NextPduIndex hands out the storage-wide PDU index counter, exposed so
// callers building PDUs outside a single PushPdu call (e.g. command
// builders) can reserve an index ahead of time.
func (l *Loop) NextPduIndex() uint8 { return l.storage.NextPduIndex() }

// MarkSendable finalizes a frame: stamps its Ethernet and EtherCAT frame
// headers, flips its slot to Sendable for the TX driver, and returns a
// future the caller waits on for the response.
func (l *Loop) MarkSendable(f *Frame) (*ResponseFuture, error) {
	buf := f.slot.Buf()

	ethHeader := ecat.EthernetHeader{Dst: ecat.BroadcastMAC, Src: l.srcMAC}
	if _, err := ethHeader.MarshalWire(buf[0:ecat.EthernetHeaderLen]); err != nil {
		return nil, err
	}

	frameHeader := ecat.NewFrameHeader(uint16(f.slot.PduPayloadLen()))
	headerRegion := buf[ecat.EthernetHeaderLen : ecat.EthernetHeaderLen+ecat.FrameHeaderLen]
	if _, err := frameHeader.MarshalWire(headerRegion); err != nil {
		return nil, err
	}

	if !f.slot.MarkSendable() {
		return nil, ErrClosed
	}

	return &ResponseFuture{slot: f.slot}, nil
}

// FrameLen returns the total number of bytes that must be written to the
// network for a finalized frame: the Ethernet header, EtherCAT frame
// header, and all pushed PDUs plus their working counters.
func FrameLen(f *Frame) int {
	return RegionStart + f.slot.PduPayloadLen()
}

// Reset reclaims every in-flight frame in the underlying storage. Used
// when rebuilding a main device after a fatal transport error.
func (l *Loop) Reset() { l.storage.Reset() }
