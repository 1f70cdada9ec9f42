package pduloop

import (
	"ethercat-master/internal/ecat"
	"ethercat-master/internal/pdustore"
)

// ReceiveAction reports what happened to an inbound Ethernet frame
// handed to Rx.Receive.
type ReceiveAction int

const (
	// ReceiveIgnored means the frame was not an EtherCAT response this
	// loop sent, e.g. unrelated traffic sharing the interface or a
	// self-echoed broadcast.
	ReceiveIgnored ReceiveAction = iota
	// ReceiveProcessed means the frame was matched to an in-flight slot
	// and that slot is now ready for its waiter.
	ReceiveProcessed
)

// Rx matches inbound frames back to the slot that sent them. Like Tx, it
// holds no socket: the caller's receive loop reads raw frames off the
// network and passes them to Receive.
type Rx struct {
	storage *pdustore.Storage
	srcMAC  ecat.MAC
}

// NewRx builds an Rx over storage. srcMAC is compared against each
// inbound frame's source address to reject self-echoed broadcasts.
func NewRx(storage *pdustore.Storage, srcMAC ecat.MAC) *Rx {
	return &Rx{storage: storage, srcMAC: srcMAC}
}

// Receive parses a raw Ethernet frame, matches it to the slot awaiting
// its response by the wire index of the frame's first PDU, copies the
// response bytes into that slot's buffer, and wakes its waiter.
func (r *Rx) Receive(frame []byte) (ReceiveAction, error) {
	et, err := ecat.EtherType(frame)
	if err != nil {
		return ReceiveIgnored, nil
	}
	if et != ecat.EtherCATEtherType {
		return ReceiveIgnored, nil
	}

	src, err := ecat.SrcMAC(frame)
	if err == nil && src == r.srcMAC {
		return ReceiveIgnored, nil
	}

	if len(frame) < RegionStart+ecat.PduHeaderLen {
		return ReceiveIgnored, nil
	}

	var fh ecat.EthercatFrameHeader
	if err := fh.UnmarshalWire(frame[ecat.EthernetHeaderLen:]); err != nil {
		return ReceiveIgnored, err
	}

	var ph ecat.PduHeader
	if err := ph.UnmarshalWire(frame[RegionStart:]); err != nil {
		return ReceiveIgnored, err
	}

	slot, ok := r.storage.FindByFirstPdu(ph.Index)
	if !ok {
		return ReceiveIgnored, ErrUnmatchedResponse
	}

	if !slot.ClaimReceiving() {
		return ReceiveIgnored, nil
	}

	copy(slot.Buf(), frame)
	slot.MarkReceived()

	return ReceiveProcessed, nil
}
