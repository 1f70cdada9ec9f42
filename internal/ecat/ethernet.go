// Package ecat implements the on-wire EtherCAT structures: the Ethernet
// envelope, the EtherCAT frame header, the PDU header/flags, command
// addressing modes, and the register map the DC engine programs. Every
// type here implements the internal/wire Sized/Writer/Reader contracts.
package ecat

import (
	"ethercat-master/internal/wire"
)

// EtherCATEtherType is the ethertype EtherCAT frames are tagged with.
const EtherCATEtherType uint16 = 0x88A4

// EthernetHeaderLen is the packed length of EthernetHeader.
const EthernetHeaderLen = 14

// MAC is a 6-byte hardware address.
type MAC [6]byte

// BroadcastMAC is the destination address EtherCAT main devices use: the
// frame travels the whole ring regardless of addressing mode.
var BroadcastMAC = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// EthernetHeader is the 14-byte Ethernet II envelope around an EtherCAT
// frame: destination MAC, source MAC, ethertype.
type EthernetHeader struct {
	Dst MAC
	Src MAC
}

func (EthernetHeader) PackedLen() int { return EthernetHeaderLen }

func (h EthernetHeader) MarshalWire(buf []byte) ([]byte, error) {
	if len(buf) < EthernetHeaderLen {
		return nil, wire.ErrWriteBufferTooShort
	}
	copy(buf[0:6], h.Dst[:])
	copy(buf[6:12], h.Src[:])
	if _, err := wire.WriteUint16(buf[12:14], EtherCATEtherType); err != nil {
		return nil, err
	}
	return buf[:EthernetHeaderLen], nil
}

func (h *EthernetHeader) UnmarshalWire(buf []byte) error {
	if len(buf) < EthernetHeaderLen {
		return wire.ErrReadBufferTooShort
	}
	copy(h.Dst[:], buf[0:6])
	copy(h.Src[:], buf[6:12])
	return nil
}

// EtherType reads the ethertype field out of a raw Ethernet frame without
// fully decoding the header, for the RX path's fast reject of non-
// EtherCAT traffic.
func EtherType(buf []byte) (uint16, error) {
	if len(buf) < EthernetHeaderLen {
		return 0, wire.ErrReadBufferTooShort
	}
	return wire.ReadUint16(buf[12:14])
}

// SrcMAC reads the source MAC out of a raw Ethernet frame, used by the RX
// path's self-echo rejection.
func SrcMAC(buf []byte) (MAC, error) {
	var m MAC
	if len(buf) < EthernetHeaderLen {
		return m, wire.ErrReadBufferTooShort
	}
	copy(m[:], buf[6:12])
	return m, nil
}
