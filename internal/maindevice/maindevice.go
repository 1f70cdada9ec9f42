// Package maindevice provides a single facade wiring the frame store,
// PDU loop, command bus and Distributed Clocks engine into the handle
// an application drives an EtherCAT network through. It mirrors
// original_source's MainDevice, trimmed to what this core implements:
// EEPROM/SII reading, mailbox communication and the subdevice-group
// process-data state machine are out of scope and are not modelled
// here.
package maindevice

import (
	"context"
	"fmt"
	"log"

	"ethercat-master/internal/command"
	"ethercat-master/internal/dc"
	"ethercat-master/internal/ecat"
	"ethercat-master/internal/pdustore"
)

// baseSubdeviceAddress is the first configured station address handed
// out during discovery; subsequent sub-devices get consecutive
// addresses in ring order.
const baseSubdeviceAddress uint16 = 0x1000

// Config governs frame pool shape and DC timing. It is the Go shape of
// MainDeviceConfig in original_source, flattened into internal/config's
// YAML schema rather than kept as a separate type.
type Config struct {
	PoolSize             int
	MaxPayload           int
	SourceMAC            ecat.MAC
	Command              command.Config
	StaticSyncIterations int
}

// MainDevice owns the frame store and the command bus built on top of
// it, and drives the DC engine against whatever sub-devices the caller
// has discovered. It does not own an OS thread or NIC handle: Run must
// be driven by the caller, exactly like internal/command.Bus.Run.
type MainDevice struct {
	bus *command.Bus
	dc  *dc.Engine

	numSubdevices      uint16
	dcReferenceAddress uint16
	hasDCReference     bool
}

// New builds a MainDevice over transport, sized per config.
func New(transport command.Transport, config Config) *MainDevice {
	storage := pdustore.New(config.PoolSize, config.MaxPayload)
	bus := command.New(storage, config.SourceMAC, transport, config.Command)

	staticSync := config.StaticSyncIterations
	if staticSync == 0 {
		staticSync = dc.DefaultStaticSyncIterations
	}

	return &MainDevice{
		bus: bus,
		dc:  dc.NewEngine(bus, dc.Config{StaticSyncIterations: staticSync}),
	}
}

// Bus exposes the underlying command bus for callers that need direct
// register access beyond discovery and DC setup.
func (m *MainDevice) Bus() *command.Bus { return m.bus }

// Run drives the bus's receive side until ctx is cancelled. Callers run
// this in its own goroutine before issuing any command.
func (m *MainDevice) Run(ctx context.Context) error { return m.bus.Run(ctx) }

// CountSubdevices broadcast-reads the Type register; every responding
// sub-device increments the working counter once, so it doubles as the
// network's sub-device count. Grounded on count_subdevices in
// original_source's maindevice.rs.
func (m *MainDevice) CountSubdevices(ctx context.Context) (uint16, error) {
	wkc, err := m.bus.BroadcastRead(ctx, ecat.Type, make([]byte, 1))
	if err != nil {
		return 0, fmt.Errorf("maindevice: count subdevices: %w", err)
	}
	m.numSubdevices = wkc
	return wkc, nil
}

// NumSubdevices returns the count CountSubdevices most recently found.
func (m *MainDevice) NumSubdevices() uint16 { return m.numSubdevices }

// AssignConfiguredAddresses walks the ring in auto-increment order and
// assigns each of the first n sub-devices a consecutive configured
// station address starting at baseSubdeviceAddress, returning the
// addresses in ring order. Grounded on the configured-address loop in
// original_source's MainDevice::init.
func (m *MainDevice) AssignConfiguredAddresses(ctx context.Context, n uint16) ([]uint16, error) {
	addrs := make([]uint16, n)
	for i := uint16(0); i < n; i++ {
		addr := baseSubdeviceAddress + i
		buf := make([]byte, 2)
		buf[0] = byte(addr)
		buf[1] = byte(addr >> 8)
		if err := m.bus.AutoIncrementWrite(ctx, i, ecat.ConfiguredStationAddress, buf); err != nil {
			return nil, fmt.Errorf("maindevice: assign configured address to ring position %d: %w", i, err)
		}
		addrs[i] = addr
	}
	return addrs, nil
}

// ConfigureDC runs the full Distributed Clocks startup sequence against
// already-discovered sub-devices: reconstruct the ring topology and its
// propagation delays, latch each device's receive time, program its
// system time offset and transmission delay, then run the static drift
// compensation burst against the reference clock. subdevices must carry
// their port active flags already (port discovery is a basic ESC
// register read this core leaves to the caller, since internal/dc's
// API -- and its tests -- already take Ports as known input). Grounded
// on configure_dc/run_dc_static_sync in original_source's dc.rs.
func (m *MainDevice) ConfigureDC(ctx context.Context, subdevices []dc.SubDevice, nowNanos uint64) error {
	if err := dc.ReconstructAndComputeDelays(subdevices); err != nil {
		return fmt.Errorf("maindevice: reconstruct topology: %w", err)
	}

	if err := m.dc.LatchReceiveTimes(ctx, subdevices); err != nil {
		return fmt.Errorf("maindevice: latch receive times: %w", err)
	}
	logDCReceiveTimeAsymmetry(subdevices)

	if err := m.dc.Program(ctx, subdevices, nowNanos); err != nil {
		return fmt.Errorf("maindevice: program dc offsets: %w", err)
	}

	ref, ok := dc.ReferenceClock(subdevices)
	if !ok {
		return nil
	}
	m.dcReferenceAddress = ref.ConfiguredAddress
	m.hasDCReference = true

	var numDC uint16
	for _, sd := range subdevices {
		if sd.DCCapable {
			numDC++
		}
	}

	if err := m.dc.StaticDriftCompensation(ctx, ref.ConfiguredAddress, numDC); err != nil {
		return fmt.Errorf("maindevice: static drift compensation: %w", err)
	}
	return nil
}

// logDCReceiveTimeAsymmetry surfaces the DC latch's documented
// inconsistency: the broadcast write that latches port times is checked
// against the DC-capable sub-device count, but each device's follow-up
// DcReceiveTime read ignores its working counter. A zero WKC there means
// a device the broadcast counted never actually answered the read, which
// is worth a log line even though it isn't treated as a hard failure.
func logDCReceiveTimeAsymmetry(subdevices []dc.SubDevice) {
	for _, sd := range subdevices {
		if sd.DCCapable && sd.DCReceiveTimeWKC == 0 {
			log.Printf("maindevice: dc receive time read for %#04x returned wkc 0", sd.ConfiguredAddress)
		}
	}
}

// DCReferenceAddress returns the configured address ConfigureDC chose
// as the DC reference clock, if any sub-device was DC-capable.
func (m *MainDevice) DCReferenceAddress() (uint16, bool) {
	return m.dcReferenceAddress, m.hasDCReference
}
