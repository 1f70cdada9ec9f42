package ecat

import (
	"fmt"

	"ethercat-master/internal/wire"
)

// ProtocolType is the 4-bit protocol field of the EtherCAT frame header.
// Only DLPDU is implemented; any other value is rejected rather than
// silently accepted, since this core only speaks the DLPDU variant.
type ProtocolType uint8

const ProtocolDLPDU ProtocolType = 0x01

// protocolTypeLayout documents and validates ProtocolType's wire values.
// It backs Lookup-based decoding in UnmarshalWire below.
var protocolTypeLayout = wire.EnumLayout{
	Name:     "ProtocolType",
	ReprBits: 8,
	Discriminants: []wire.Discriminant{
		{Name: "DLPDU", Canonical: uint32(ProtocolDLPDU)},
	},
}

// FrameHeaderLen is the packed length of EthercatFrameHeader.
const FrameHeaderLen = 2

// frameHeaderLayout documents EthercatFrameHeader's bit layout; see
// internal/wire.StructLayout for what each rule enforces. The 11-bit
// payload length is described as its low byte plus its top three bits,
// since a field of eight bits or more must be whole, aligned bytes.
var frameHeaderLayout = wire.StructLayout{
	Name:      "EthercatFrameHeader",
	TotalBits: 16,
	Fields: []wire.FieldLayout{
		{Name: "payload_len_lo", BitOffset: 0, BitWidth: 8},
		{Name: "payload_len_hi", BitOffset: 8, BitWidth: 3},
		{Name: "reserved", BitOffset: 11, BitWidth: 1, Skip: true},
		{Name: "protocol", BitOffset: 12, BitWidth: 4},
	},
}

func init() {
	if err := frameHeaderLayout.Validate(); err != nil {
		panic(err)
	}
	if err := protocolTypeLayout.Validate(); err != nil {
		panic(err)
	}
}

// LenMask is the maximum value the 11-bit payload length field can hold.
const LenMask uint16 = 0x7FF

// EthercatFrameHeader is the 2-byte header preceding the PDU region of an
// EtherCAT frame: an 11-bit aggregate PDU-region length and a 4-bit
// protocol type.
type EthercatFrameHeader struct {
	PayloadLen uint16
	Protocol   ProtocolType
}

// NewFrameHeader builds a DLPDU frame header for the given aggregate PDU
// payload length, masking to the 11-bit field width.
func NewFrameHeader(payloadLen uint16) EthercatFrameHeader {
	return EthercatFrameHeader{PayloadLen: payloadLen & LenMask, Protocol: ProtocolDLPDU}
}

func (EthercatFrameHeader) PackedLen() int { return FrameHeaderLen }

func (h EthercatFrameHeader) MarshalWire(buf []byte) ([]byte, error) {
	if len(buf) < FrameHeaderLen {
		return nil, wire.ErrWriteBufferTooShort
	}
	b := buf[:FrameHeaderLen]
	b[0], b[1] = 0, 0
	if err := wire.WriteBitsU16(b, 0, 11, h.PayloadLen&LenMask); err != nil {
		return nil, err
	}
	if err := wire.WriteBitsU16(b, 12, 4, uint16(h.Protocol)); err != nil {
		return nil, err
	}
	return b, nil
}

func (h *EthercatFrameHeader) UnmarshalWire(buf []byte) error {
	if len(buf) < FrameHeaderLen {
		return wire.ErrReadBufferTooShort
	}
	b := buf[:FrameHeaderLen]
	plen, err := wire.ReadBitsU16(b, 0, 11)
	if err != nil {
		return err
	}
	proto, err := wire.ReadBitsU16(b, 12, 4)
	if err != nil {
		return err
	}
	name, _, err := protocolTypeLayout.Lookup(uint32(proto))
	if err != nil {
		return fmt.Errorf("ecat: %w", err)
	}
	if name != "DLPDU" {
		return wire.ErrInvalidValue
	}
	h.PayloadLen = plen
	h.Protocol = ProtocolType(proto)
	return nil
}
