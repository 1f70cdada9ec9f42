package pduloop

import (
	"ethercat-master/internal/ecat"
	"ethercat-master/internal/pdustore"
)

// RegionStart is the byte offset of the PDU region within a slot's raw
// frame buffer: past the Ethernet header and the EtherCAT frame header.
const RegionStart = ecat.EthernetHeaderLen + ecat.FrameHeaderLen

// PduOverheadBytes is the per-PDU cost beyond its payload: the 10-byte
// PDU header plus a 2-byte working counter trailer.
const PduOverheadBytes = ecat.PduHeaderLen + 2

// Frame is a newly allocated slot being filled with one or more PDUs
// before being handed to the TX driver.
type Frame struct {
	slot              *pdustore.FrameSlot
	pduCount          int
	lastHeaderOffset  int
	haveLastHeader    bool
}

func newFrame(slot *pdustore.FrameSlot) *Frame {
	return &Frame{slot: slot}
}

// SlotIndex returns the underlying slot's pool index.
func (f *Frame) SlotIndex() uint8 { return f.slot.SlotIndex() }

// IsEmpty reports whether any PDU has been pushed into this frame yet.
func (f *Frame) IsEmpty() bool { return f.pduCount == 0 }

// capacity returns how many PDU-region bytes remain unused.
func (f *Frame) capacity() int {
	return len(f.slot.Buf()) - RegionStart - f.slot.PduPayloadLen()
}

// PushPdu writes a complete PDU (header, full payload, zeroed working
// counter) into the frame. It fails with ErrPduTooLong if the payload
// alone could never fit an empty frame of this size, or ErrFrameFull if
// the frame doesn't have room left even though an empty frame would.
func (f *Frame) PushPdu(cmd ecat.CommandCode, addr ecat.Address, data []byte, irq uint16, nextPduIdx func() uint8) (PduHandle, error) {
	need := PduOverheadBytes + len(data)
	if need > len(f.slot.Buf())-RegionStart {
		return PduHandle{}, ErrPduTooLong
	}
	if need > f.capacity() {
		return PduHandle{}, ErrFrameFull
	}

	offset := RegionStart + f.slot.PduPayloadLen()
	buf := f.slot.Buf()

	pduIdx := nextPduIdx()

	header := ecat.PduHeader{
		CommandCode: uint8(cmd),
		Index:       pduIdx,
		AddressRaw:  addr,
		Flags:       ecat.NewPduFlags(uint16(len(data)), false),
		IRQ:         irq,
	}
	headerBuf, err := header.MarshalWire(buf[offset:])
	if err != nil {
		return PduHandle{}, err
	}
	_ = headerBuf

	payloadOff := offset + ecat.PduHeaderLen
	copy(buf[payloadOff:payloadOff+len(data)], data)
	wkcOff := payloadOff + len(data)
	buf[wkcOff], buf[wkcOff+1] = 0, 0

	if f.haveLastHeader {
		if err := ecat.SetMoreFollows(buf[f.lastHeaderOffset:], true); err != nil {
			return PduHandle{}, err
		}
	}
	f.lastHeaderOffset = offset
	f.haveLastHeader = true

	f.slot.SetPduPayloadLen(f.slot.PduPayloadLen() + need)
	f.slot.SetFirstPdu(pduIdx)
	f.pduCount++

	return PduHandle{
		slot:       f.slot,
		pduIndex:   pduIdx,
		dataOffset: payloadOff,
		dataLen:    len(data),
		wkcOffset:  wkcOff,
	}, nil
}

// PushPduRest writes as much of data as fits into the remaining frame
// capacity, for callers splitting a bulk transfer across multiple
// frames. It returns the number of bytes consumed; zero means the frame
// has no room left at all.
func (f *Frame) PushPduRest(cmd ecat.CommandCode, addr ecat.Address, data []byte, irq uint16, nextPduIdx func() uint8) (int, PduHandle, error) {
	if len(data) == 0 {
		return 0, PduHandle{}, nil
	}
	maxBytes := f.capacity() - PduOverheadBytes
	if maxBytes <= 0 {
		return 0, PduHandle{}, nil
	}
	n := len(data)
	if n > maxBytes {
		n = maxBytes
	}
	handle, err := f.PushPdu(cmd, addr, data[:n], irq, nextPduIdx)
	if err != nil {
		return 0, PduHandle{}, err
	}
	return n, handle, nil
}

// PduHandle locates a pushed PDU's payload and working-counter bytes
// within its frame's buffer, so the caller can read the response once
// the frame comes back.
type PduHandle struct {
	slot       *pdustore.FrameSlot
	pduIndex   uint8
	dataOffset int
	dataLen    int
	wkcOffset  int
}

// PduIndex returns the wire index this PDU was stamped with.
func (h PduHandle) PduIndex() uint8 { return h.pduIndex }

// Payload returns the PDU's payload bytes in the (now-received) frame
// buffer. Valid only after the owning response future resolves.
func (h PduHandle) Payload() []byte {
	return h.slot.Buf()[h.dataOffset : h.dataOffset+h.dataLen]
}

// WorkingCounter reads the PDU's 2-byte working counter trailer.
func (h PduHandle) WorkingCounter() uint16 {
	b := h.slot.Buf()[h.wkcOffset : h.wkcOffset+2]
	return uint16(b[0]) | uint16(b[1])<<8
}
