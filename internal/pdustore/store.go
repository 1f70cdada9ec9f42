package pdustore

import (
	"fmt"
	"math/bits"
	"sync/atomic"
)

// Storage is a fixed-capacity pool of FrameSlots. Capacity must be a
// power of two no greater than 256 so that the allocator cursor and PDU
// index counter can both wrap with a cheap modulo, and so that any PDU
// index (a byte) unambiguously names a slot in the no-collision sense
// required by FrameSlot.FirstPduIs.
type Storage struct {
	slots   []*FrameSlot
	slotLen int

	allocCursor atomic.Uint32
	pduCursor   atomic.Uint32
}

// New builds a Storage with the given number of slots, each sized to
// hold slotLen bytes of raw Ethernet frame. It panics if numSlots is not
// a power of two, is zero, or exceeds 256 -- these are programming
// errors caught once at startup, not runtime conditions to recover from.
func New(numSlots int, slotLen int) *Storage {
	if numSlots <= 0 {
		panic("pdustore: numSlots must be positive")
	}
	if numSlots > 256 {
		panic("pdustore: numSlots must not exceed 256, PDU indices are a single byte")
	}
	if bits.OnesCount(uint(numSlots)) != 1 {
		panic(fmt.Sprintf("pdustore: numSlots must be a power of two, got %d", numSlots))
	}
	if slotLen <= 0 {
		panic("pdustore: slotLen must be positive")
	}

	s := &Storage{
		slots:   make([]*FrameSlot, numSlots),
		slotLen: slotLen,
	}
	for i := range s.slots {
		s.slots[i] = newFrameSlot(uint8(i), slotLen)
	}
	return s
}

// NumSlots returns the number of slots in the pool.
func (s *Storage) NumSlots() int { return len(s.slots) }

// SlotLen returns the size in bytes of each slot's frame buffer.
func (s *Storage) SlotLen() int { return s.slotLen }

// At returns the slot at the given index.
func (s *Storage) At(idx uint8) (*FrameSlot, error) {
	if int(idx) >= len(s.slots) {
		return nil, ErrSlotIndexOutOfRange
	}
	return s.slots[idx], nil
}

// Alloc finds a slot currently Idle and claims it as Created. It scans at
// most twice around the pool before giving up: letting it spin
// indefinitely would just turn a full pool into a busy loop, and a
// caller stuck here is better served by a PDU timeout than a hang.
func (s *Storage) Alloc() (*FrameSlot, error) {
	n := uint32(len(s.slots))
	for i := uint32(0); i < n*2; i++ {
		idx := s.allocCursor.Add(1) % n
		slot := s.slots[idx]
		if slot.claimCreated() {
			return slot, nil
		}
	}
	return nil, ErrNoFreeSlots
}

// NextPduIndex hands out the next PDU index to stamp into a PDU header.
// The counter wraps modulo the slot count so indices stay addressable by
// FindByFirstPdu even though more than 256 PDUs may be sent over the
// lifetime of a Storage.
func (s *Storage) NextPduIndex() uint8 {
	return uint8(s.pduCursor.Add(1) % uint32(len(s.slots)))
}

// FindByFirstPdu linearly scans every slot for one whose first-PDU index
// matches search. Used by the RX driver to map a received PDU's index
// back to the slot awaiting its response.
func (s *Storage) FindByFirstPdu(search uint8) (*FrameSlot, bool) {
	for _, slot := range s.slots {
		if slot.FirstPduIs(search) {
			return slot, true
		}
	}
	return nil, false
}

// Reset forces every slot back to Idle. Used when rebuilding a
// MainDevice from scratch, e.g. after a fatal transport error.
func (s *Storage) Reset() {
	s.allocCursor.Store(0)
	s.pduCursor.Store(0)
	for _, slot := range s.slots {
		slot.Release()
		slot.clearFirstPdu()
	}
}

// ClaimSendable scans the pool for a slot in the Sendable state and
// claims it as Sending. Used by the TX driver's poll loop.
func (s *Storage) ClaimSendable() (*FrameSlot, bool) {
	for _, slot := range s.slots {
		if slot.State() == StateSendable && slot.ClaimSending() {
			return slot, true
		}
	}
	return nil, false
}
