package ecat

import (
	"ethercat-master/internal/wire"
)

// PduHeaderLen is the packed length of the 10-byte PDU header.
const PduHeaderLen = 10

// FlagsLen is the packed length of PduFlags.
const FlagsLen = 2

// flagsLayout documents PduFlags' bit layout: an 11-bit length (described
// as its low byte plus its top three bits), 4 reserved bits, and the
// more-follows bit in the top position.
var flagsLayout = wire.StructLayout{
	Name:      "PduFlags",
	TotalBits: 16,
	Fields: []wire.FieldLayout{
		{Name: "length_lo", BitOffset: 0, BitWidth: 8},
		{Name: "length_hi", BitOffset: 8, BitWidth: 3},
		{Name: "reserved", BitOffset: 11, BitWidth: 4, Skip: true},
		{Name: "more_follows", BitOffset: 15, BitWidth: 1},
	},
}

func init() {
	if err := flagsLayout.Validate(); err != nil {
		panic(err)
	}
}

// PduFlags packs a PDU's payload length and more-follows chaining bit.
type PduFlags struct {
	Length      uint16
	MoreFollows bool
}

func NewPduFlags(length uint16, moreFollows bool) PduFlags {
	return PduFlags{Length: length & LenMask, MoreFollows: moreFollows}
}

func (PduFlags) PackedLen() int { return FlagsLen }

func (f PduFlags) MarshalWire(buf []byte) ([]byte, error) {
	if len(buf) < FlagsLen {
		return nil, wire.ErrWriteBufferTooShort
	}
	b := buf[:FlagsLen]
	b[0], b[1] = 0, 0
	if err := wire.WriteBitsU16(b, 0, 11, f.Length&LenMask); err != nil {
		return nil, err
	}
	var mf uint16
	if f.MoreFollows {
		mf = 1
	}
	if err := wire.WriteBitsU16(b, 15, 1, mf); err != nil {
		return nil, err
	}
	return b, nil
}

func (f *PduFlags) UnmarshalWire(buf []byte) error {
	if len(buf) < FlagsLen {
		return wire.ErrReadBufferTooShort
	}
	b := buf[:FlagsLen]
	length, err := wire.ReadBitsU16(b, 0, 11)
	if err != nil {
		return err
	}
	mf, err := wire.ReadBitsU16(b, 15, 1)
	if err != nil {
		return err
	}
	f.Length = length
	f.MoreFollows = mf == 1
	return nil
}

// Address is the 4-byte addressing field of a PDU header. Its meaning
// depends on the command's addressing mode: positional/configured modes
// split it into a 16-bit device address and a 16-bit register offset;
// logical mode treats it as one 32-bit logical address.
type Address [4]byte

// PositionAddress packs a 16-bit position/configured-station address and
// a 16-bit register offset, little-endian, as used by APRD/APWR/FPRD/
// FPWR/BRD/BWR/ARMW/FRMW.
func PositionAddress(adp, ado uint16) Address {
	var a Address
	a[0], a[1] = byte(adp), byte(adp>>8)
	a[2], a[3] = byte(ado), byte(ado>>8)
	return a
}

// LogicalAddress packs a 32-bit logical address, little-endian, as used
// by LRD/LWR/LRW.
func LogicalAddress(addr uint32) Address {
	var a Address
	a[0], a[1], a[2], a[3] = byte(addr), byte(addr>>8), byte(addr>>16), byte(addr>>24)
	return a
}

// Position splits a positional/configured Address back into its device
// address and register offset.
func (a Address) Position() (adp, ado uint16) {
	adp = uint16(a[0]) | uint16(a[1])<<8
	ado = uint16(a[2]) | uint16(a[3])<<8
	return
}

// Logical reads a logical Address back into a 32-bit value.
func (a Address) Logical() uint32 {
	return uint32(a[0]) | uint32(a[1])<<8 | uint32(a[2])<<16 | uint32(a[3])<<24
}

// PduHeader is the 10-byte header preceding a PDU's payload: command
// code, wire index, the 4-byte address field, flags, and an IRQ word.
type PduHeader struct {
	CommandCode uint8
	Index       uint8
	AddressRaw  Address
	Flags       PduFlags
	IRQ         uint16
}

func (PduHeader) PackedLen() int { return PduHeaderLen }

func (h PduHeader) MarshalWire(buf []byte) ([]byte, error) {
	if len(buf) < PduHeaderLen {
		return nil, wire.ErrWriteBufferTooShort
	}
	b := buf[:PduHeaderLen]
	if _, err := wire.WriteUint8(b[0:1], h.CommandCode); err != nil {
		return nil, err
	}
	if _, err := wire.WriteUint8(b[1:2], h.Index); err != nil {
		return nil, err
	}
	copy(b[2:6], h.AddressRaw[:])
	if _, err := h.Flags.MarshalWire(b[6:8]); err != nil {
		return nil, err
	}
	if _, err := wire.WriteUint16(b[8:10], h.IRQ); err != nil {
		return nil, err
	}
	return b, nil
}

func (h *PduHeader) UnmarshalWire(buf []byte) error {
	if len(buf) < PduHeaderLen {
		return wire.ErrReadBufferTooShort
	}
	b := buf[:PduHeaderLen]
	code, err := wire.ReadUint8(b[0:1])
	if err != nil {
		return err
	}
	idx, err := wire.ReadUint8(b[1:2])
	if err != nil {
		return err
	}
	var addr Address
	copy(addr[:], b[2:6])
	var flags PduFlags
	if err := flags.UnmarshalWire(b[6:8]); err != nil {
		return err
	}
	irq, err := wire.ReadUint16(b[8:10])
	if err != nil {
		return err
	}
	h.CommandCode = code
	h.Index = idx
	h.AddressRaw = addr
	h.Flags = flags
	h.IRQ = irq
	return nil
}

// SetMoreFollows rewrites just the more_follows bit of a previously
// written PDU header in place, without touching the rest of the header.
// Used when a later PDU is pushed into the same frame.
func SetMoreFollows(headerBuf []byte, moreFollows bool) error {
	if len(headerBuf) < PduHeaderLen {
		return wire.ErrWriteBufferTooShort
	}
	flagsBuf := headerBuf[6:8]
	var flags PduFlags
	if err := flags.UnmarshalWire(flagsBuf); err != nil {
		return err
	}
	flags.MoreFollows = moreFollows
	_, err := flags.MarshalWire(flagsBuf)
	return err
}
