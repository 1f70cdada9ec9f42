// Package command builds addressed EtherCAT commands on top of
// internal/pduloop and sends them synchronously through a Transport,
// exposing the read/write primitives the rest of the main device is
// built from.
package command

import "ethercat-master/internal/ecat"

// Aprd builds an auto-increment physical read addressed at the device
// autoIncrement hops away from the main device, register reg.
func Aprd(autoIncrement uint16, reg ecat.RegisterAddress) (ecat.CommandCode, ecat.Address) {
	return ecat.APRD, ecat.PositionAddress(autoIncrement, uint16(reg))
}

// Apwr builds an auto-increment physical write.
func Apwr(autoIncrement uint16, reg ecat.RegisterAddress) (ecat.CommandCode, ecat.Address) {
	return ecat.APWR, ecat.PositionAddress(autoIncrement, uint16(reg))
}

// Fprd builds a configured-address physical read.
func Fprd(configuredAddr uint16, reg ecat.RegisterAddress) (ecat.CommandCode, ecat.Address) {
	return ecat.FPRD, ecat.PositionAddress(configuredAddr, uint16(reg))
}

// Fpwr builds a configured-address physical write.
func Fpwr(configuredAddr uint16, reg ecat.RegisterAddress) (ecat.CommandCode, ecat.Address) {
	return ecat.FPWR, ecat.PositionAddress(configuredAddr, uint16(reg))
}

// Brd builds a broadcast read. The address field is conventionally zero.
func Brd(reg ecat.RegisterAddress) (ecat.CommandCode, ecat.Address) {
	return ecat.BRD, ecat.PositionAddress(0, uint16(reg))
}

// Bwr builds a broadcast write.
func Bwr(reg ecat.RegisterAddress) (ecat.CommandCode, ecat.Address) {
	return ecat.BWR, ecat.PositionAddress(0, uint16(reg))
}

// Lrd builds a logical read at a 32-bit logical address.
func Lrd(logicalAddr uint32) (ecat.CommandCode, ecat.Address) {
	return ecat.LRD, ecat.LogicalAddress(logicalAddr)
}

// Lwr builds a logical write.
func Lwr(logicalAddr uint32) (ecat.CommandCode, ecat.Address) {
	return ecat.LWR, ecat.LogicalAddress(logicalAddr)
}

// Lrw builds a combined logical read/write, used for process-data
// exchange.
func Lrw(logicalAddr uint32) (ecat.CommandCode, ecat.Address) {
	return ecat.LRW, ecat.LogicalAddress(logicalAddr)
}

// Armw builds an auto-increment read-multiple-write, used to distribute
// the reference clock's system time around the ring.
func Armw(autoIncrement uint16, reg ecat.RegisterAddress) (ecat.CommandCode, ecat.Address) {
	return ecat.ARMW, ecat.PositionAddress(autoIncrement, uint16(reg))
}

// Frmw builds a configured-address read-multiple-write.
func Frmw(configuredAddr uint16, reg ecat.RegisterAddress) (ecat.CommandCode, ecat.Address) {
	return ecat.FRMW, ecat.PositionAddress(configuredAddr, uint16(reg))
}
