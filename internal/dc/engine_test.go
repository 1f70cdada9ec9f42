package dc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ethercat-master/internal/ecat"
)

// fakeDCBus is a register-level stand-in for command.Bus: it operates
// directly on pre-decoded addr/register/byte-slice values, the same
// level dc.Bus's narrow interface already sits at, so Engine can be
// tested without any wire encoding.
type fakeDCBus struct {
	addrs []uint16
	regs  map[uint16]map[ecat.RegisterAddress][]byte

	// ignoreWKC overrides the working counter ReadIgnoreWKC reports for
	// a given address; addresses not present here report 1.
	ignoreWKC map[uint16]uint16

	frmwWKC uint16
}

func newFakeDCBus(addrs ...uint16) *fakeDCBus {
	b := &fakeDCBus{
		addrs:     addrs,
		regs:      make(map[uint16]map[ecat.RegisterAddress][]byte),
		ignoreWKC: make(map[uint16]uint16),
		frmwWKC:   uint16(len(addrs)),
	}
	for _, a := range addrs {
		b.regs[a] = make(map[ecat.RegisterAddress][]byte)
	}
	return b
}

func (b *fakeDCBus) known(addr uint16) bool {
	for _, a := range b.addrs {
		if a == addr {
			return true
		}
	}
	return false
}

func (b *fakeDCBus) BroadcastWrite(ctx context.Context, reg ecat.RegisterAddress, data []byte, expectWKC uint16) error {
	if int(expectWKC) != len(b.addrs) {
		return fmt.Errorf("fakeDCBus: broadcast wkc = %d, want %d", expectWKC, len(b.addrs))
	}
	// A write to DcTimePort0 latches receive times on a real ESC rather
	// than storing the written bytes, so the port registers are left as
	// they are.
	if reg == ecat.DcTimePort0 {
		return nil
	}
	for _, a := range b.addrs {
		b.regs[a][reg] = append([]byte(nil), data...)
	}
	return nil
}

func (b *fakeDCBus) Read(ctx context.Context, addr uint16, reg ecat.RegisterAddress, out []byte) (uint16, error) {
	if !b.known(addr) {
		return 0, errors.New("fakeDCBus: read from an unaddressed device")
	}
	copy(out, b.regs[addr][reg])
	return 1, nil
}

func (b *fakeDCBus) ReadIgnoreWKC(ctx context.Context, addr uint16, reg ecat.RegisterAddress, out []byte) (uint16, error) {
	copy(out, b.regs[addr][reg])
	if wkc, ok := b.ignoreWKC[addr]; ok {
		return wkc, nil
	}
	return 1, nil
}

func (b *fakeDCBus) WriteIgnoreWKC(ctx context.Context, addr uint16, reg ecat.RegisterAddress, data []byte) error {
	if !b.known(addr) {
		return nil
	}
	b.regs[addr][reg] = append([]byte(nil), data...)
	return nil
}

func (b *fakeDCBus) ReadMultipleWrite(ctx context.Context, addr uint16, reg ecat.RegisterAddress, data []byte) (uint16, error) {
	return b.frmwWKC, nil
}

func TestEngineLatchReceiveTimesReadsPortsAndFlagsAsymmetry(t *testing.T) {
	t.Parallel()
	bus := newFakeDCBus(0x1000, 0x1001)

	var portBuf [16]byte
	putLeUint32(portBuf[0:4], 100)
	putLeUint32(portBuf[4:8], 400)
	putLeUint32(portBuf[8:12], 200)
	putLeUint32(portBuf[12:16], 300)
	bus.regs[0x1000][ecat.DcTimePort0] = append([]byte(nil), portBuf[:]...)

	var recvBuf [8]byte
	putLeInt64(recvBuf[:], 555555)
	bus.regs[0x1000][ecat.DcReceiveTime] = append([]byte(nil), recvBuf[:]...)

	// Device 1 answers the broadcast latch (counted in the WKC check
	// below) but never answers the per-device receive-time read: the
	// documented asymmetry this field exists to surface.
	bus.ignoreWKC[0x1001] = 0

	subdevices := []SubDevice{
		{ConfiguredAddress: 0x1000, Index: 0, DCCapable: true},
		{ConfiguredAddress: 0x1001, Index: 1, DCCapable: true},
	}

	engine := NewEngine(bus, Config{})
	if err := engine.LatchReceiveTimes(context.Background(), subdevices); err != nil {
		t.Fatalf("LatchReceiveTimes: %v", err)
	}

	if subdevices[0].DCReceiveTime != 555555 {
		t.Errorf("DCReceiveTime = %d, want 555555", subdevices[0].DCReceiveTime)
	}
	if subdevices[0].DCReceiveTimeWKC != 1 {
		t.Errorf("device 0 DCReceiveTimeWKC = %d, want 1", subdevices[0].DCReceiveTimeWKC)
	}
	if subdevices[1].DCReceiveTimeWKC != 0 {
		t.Errorf("device 1 DCReceiveTimeWKC = %d, want 0", subdevices[1].DCReceiveTimeWKC)
	}

	// Register order is port 0,1,2,3; Ports stores them as 0,3,1,2.
	wantPorts := [4]uint32{100, 300, 400, 200}
	for i, want := range wantPorts {
		if got := subdevices[0].Ports[i].DCReceiveTime; got != want {
			t.Errorf("port %d receive time = %d, want %d", i, got, want)
		}
	}
}

func TestEngineLatchReceiveTimesSkipsNonDCCapableDevices(t *testing.T) {
	t.Parallel()
	// Only 0x1000 is DC-capable, so it is the only address expected to
	// answer the latch broadcast or be read from.
	bus := newFakeDCBus(0x1000)

	subdevices := []SubDevice{
		{ConfiguredAddress: 0x1000, Index: 0, DCCapable: true},
		{ConfiguredAddress: 0x1001, Index: 1, DCCapable: false},
	}

	engine := NewEngine(bus, Config{})
	if err := engine.LatchReceiveTimes(context.Background(), subdevices); err != nil {
		t.Fatalf("LatchReceiveTimes: %v", err)
	}

	if subdevices[1].DCReceiveTimeWKC != 0 || subdevices[1].DCReceiveTime != 0 {
		t.Errorf("non-DC-capable device was touched: %+v", subdevices[1])
	}
}

func TestEngineProgramWritesOffsetAndPropagationDelay(t *testing.T) {
	t.Parallel()
	bus := newFakeDCBus(0x1000, 0x1001)

	subdevices := []SubDevice{
		{ConfiguredAddress: 0x1000, Index: 0, DCCapable: true, DCReceiveTime: 1000, PropagationDelay: 50},
		{ConfiguredAddress: 0x1001, Index: 1, DCCapable: false},
	}

	engine := NewEngine(bus, Config{})
	if err := engine.Program(context.Background(), subdevices, 1_000_500); err != nil {
		t.Fatalf("Program: %v", err)
	}

	offsetBytes := bus.regs[0x1000][ecat.DcSystemTimeOffset]
	if offsetBytes == nil {
		t.Fatalf("device 0 never received a DcSystemTimeOffset write")
	}
	// nowNanos - DCReceiveTime = 1_000_500 - 1000 = 999_500
	u := uint64(0)
	for i := 7; i >= 0; i-- {
		u = u<<8 | uint64(offsetBytes[i])
	}
	if int64(u) != 999_500 {
		t.Errorf("offset = %d, want 999500", int64(u))
	}

	delayBytes := bus.regs[0x1000][ecat.DcSystemTimeTransmissionDelay]
	if delayBytes == nil {
		t.Fatalf("device 0 never received a DcSystemTimeTransmissionDelay write")
	}
	if got := leUint32(delayBytes); got != 50 {
		t.Errorf("propagation delay = %d, want 50", got)
	}

	if _, ok := bus.regs[0x1001][ecat.DcSystemTimeOffset]; ok {
		t.Errorf("non-DC-capable device 1 should not have been programmed")
	}
}

func TestEngineStaticDriftCompensationChecksWorkingCounterEachIteration(t *testing.T) {
	t.Parallel()
	bus := newFakeDCBus(0x1000, 0x1001)

	engine := NewEngine(bus, Config{StaticSyncIterations: 5})
	if err := engine.StaticDriftCompensation(context.Background(), 0x1000, 2); err != nil {
		t.Fatalf("StaticDriftCompensation: %v", err)
	}
}

func TestEngineStaticDriftCompensationFailsOnWorkingCounterMismatch(t *testing.T) {
	t.Parallel()
	bus := newFakeDCBus(0x1000, 0x1001)

	engine := NewEngine(bus, Config{StaticSyncIterations: 5})
	if err := engine.StaticDriftCompensation(context.Background(), 0x1000, 99); err == nil {
		t.Fatalf("expected a working-counter mismatch error")
	}
}

func TestEngineStaticDriftCompensationZeroIterationsIsANoop(t *testing.T) {
	t.Parallel()
	bus := newFakeDCBus(0x1000)
	engine := NewEngine(bus, Config{StaticSyncIterations: 0})
	if err := engine.StaticDriftCompensation(context.Background(), 0x1000, 99); err != nil {
		t.Fatalf("StaticDriftCompensation: %v", err)
	}
}

func TestReferenceClockReturnsFirstDCCapableDevice(t *testing.T) {
	t.Parallel()
	subdevices := []SubDevice{
		{ConfiguredAddress: 0x1000, DCCapable: false},
		{ConfiguredAddress: 0x1001, DCCapable: true},
		{ConfiguredAddress: 0x1002, DCCapable: true},
	}

	ref, ok := ReferenceClock(subdevices)
	if !ok {
		t.Fatalf("expected a reference clock")
	}
	if ref.ConfiguredAddress != 0x1001 {
		t.Errorf("reference address = %#x, want 0x1001", ref.ConfiguredAddress)
	}
}

func TestReferenceClockNoDCCapableDevices(t *testing.T) {
	t.Parallel()
	subdevices := []SubDevice{
		{ConfiguredAddress: 0x1000, DCCapable: false},
	}
	if _, ok := ReferenceClock(subdevices); ok {
		t.Fatalf("expected no reference clock")
	}
}
