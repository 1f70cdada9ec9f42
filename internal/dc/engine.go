package dc

import (
	"context"
	"fmt"

	"ethercat-master/internal/ecat"
)

// Bus is the minimal addressed-command surface the DC engine needs. It
// is implemented by internal/command's Bus so this package stays free
// of any dependency on the PDU loop or transport, making topology and
// delay logic testable with a fake.
type Bus interface {
	// BroadcastWrite writes data to reg on every sub-device and checks
	// the working counter equals expectWKC.
	BroadcastWrite(ctx context.Context, reg ecat.RegisterAddress, data []byte, expectWKC uint16) error
	// Read performs a configured-address read and returns the working
	// counter alongside any error.
	Read(ctx context.Context, addr uint16, reg ecat.RegisterAddress, out []byte) (wkc uint16, err error)
	// ReadIgnoreWKC is Read without a working-counter check, for
	// registers where compliant devices answer inconsistently. It still
	// reports the working counter it observed.
	ReadIgnoreWKC(ctx context.Context, addr uint16, reg ecat.RegisterAddress, out []byte) (wkc uint16, err error)
	// WriteIgnoreWKC performs a configured-address write without
	// checking the working counter.
	WriteIgnoreWKC(ctx context.Context, addr uint16, reg ecat.RegisterAddress, data []byte) error
	// ReadMultipleWrite issues an FRMW at reg on addr and returns the
	// working counter.
	ReadMultipleWrite(ctx context.Context, addr uint16, reg ecat.RegisterAddress, data []byte) (wkc uint16, err error)
}

// Config governs the static drift-compensation pass.
type Config struct {
	// StaticSyncIterations is K, the number of successive FRMW frames
	// sent to distribute the reference clock's system time. Zero
	// disables the pass entirely.
	StaticSyncIterations int
}

// DefaultStaticSyncIterations matches the reference implementation's
// constant: enough read-multiple-write round trips for every device's
// local PLL to converge before process-data cycles begin.
const DefaultStaticSyncIterations = 10_000

// Engine runs the one-time DC setup sequence over a set of already
// address-configured sub-devices.
type Engine struct {
	bus    Bus
	config Config
}

// NewEngine builds an Engine that issues its commands through bus.
func NewEngine(bus Bus, config Config) *Engine {
	return &Engine{bus: bus, config: config}
}

// LatchReceiveTimes broadcasts a zero write to DcTimePort0, which
// latches per-port receive timestamps in every DC-capable ESC, then
// reads each DC-capable sub-device's receive time and four port times
// back into its record.
func (e *Engine) LatchReceiveTimes(ctx context.Context, subdevices []SubDevice) error {
	numDC := 0
	for _, sd := range subdevices {
		if sd.DCCapable {
			numDC++
		}
	}

	if err := e.bus.BroadcastWrite(ctx, ecat.DcTimePort0, make([]byte, 4), uint16(numDC)); err != nil {
		return fmt.Errorf("dc: latch receive times: %w", err)
	}

	for i := range subdevices {
		sd := &subdevices[i]
		if !sd.DCCapable {
			continue
		}

		var recvBuf [8]byte
		wkc, err := e.bus.ReadIgnoreWKC(ctx, sd.ConfiguredAddress, ecat.DcReceiveTime, recvBuf[:])
		if err != nil {
			return fmt.Errorf("dc: read receive time for %#04x: %w", sd.ConfiguredAddress, err)
		}
		sd.DCReceiveTime = leUint64(recvBuf[:])
		sd.DCReceiveTimeWKC = wkc

		var portBuf [16]byte
		if _, err := e.bus.Read(ctx, sd.ConfiguredAddress, ecat.DcTimePort0, portBuf[:]); err != nil {
			return fmt.Errorf("dc: read port times for %#04x: %w", sd.ConfiguredAddress, err)
		}
		t0 := leUint32(portBuf[0:4])
		t1 := leUint32(portBuf[4:8])
		t2 := leUint32(portBuf[8:12])
		t3 := leUint32(portBuf[12:16])
		sd.Ports.SetReceiveTimes(t0, t3, t1, t2)
	}

	return nil
}

// Program writes each DC-capable sub-device's system time offset and
// propagation delay. The offset is the caller-supplied monotonic
// nowNanos minus that device's own latched DCReceiveTime; the reference
// clock's time is not used.
func (e *Engine) Program(ctx context.Context, subdevices []SubDevice, nowNanos uint64) error {
	for i := range subdevices {
		sd := &subdevices[i]
		if !sd.DCCapable {
			continue
		}

		offset := int64(nowNanos) - int64(sd.DCReceiveTime)
		var offsetBuf [8]byte
		putLeInt64(offsetBuf[:], offset)
		if err := e.bus.WriteIgnoreWKC(ctx, sd.ConfiguredAddress, ecat.DcSystemTimeOffset, offsetBuf[:]); err != nil {
			return fmt.Errorf("dc: write system time offset for %#04x: %w", sd.ConfiguredAddress, err)
		}

		var delayBuf [4]byte
		putLeUint32(delayBuf[:], sd.PropagationDelay)
		if err := e.bus.WriteIgnoreWKC(ctx, sd.ConfiguredAddress, ecat.DcSystemTimeTransmissionDelay, delayBuf[:]); err != nil {
			return fmt.Errorf("dc: write propagation delay for %#04x: %w", sd.ConfiguredAddress, err)
		}
	}
	return nil
}

// StaticDriftCompensation distributes the reference clock's system time
// to every device with K successive FRMW reads at DcSystemTime on the
// reference device's configured address, verifying the working counter
// each time.
func (e *Engine) StaticDriftCompensation(ctx context.Context, referenceAddr uint16, expectWKC uint16) error {
	if e.config.StaticSyncIterations <= 0 {
		return nil
	}
	var buf [8]byte
	for i := 0; i < e.config.StaticSyncIterations; i++ {
		wkc, err := e.bus.ReadMultipleWrite(ctx, referenceAddr, ecat.DcSystemTime, buf[:])
		if err != nil {
			return fmt.Errorf("dc: static drift compensation iteration %d: %w", i, err)
		}
		if wkc != expectWKC {
			return fmt.Errorf("dc: static drift compensation iteration %d: wkc = %d, want %d", i, wkc, expectWKC)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// ReferenceClock returns the first DC-capable sub-device in discovery
// order, the one whose clock every other device's offset is computed
// relative to.
func ReferenceClock(subdevices []SubDevice) (*SubDevice, bool) {
	for i := range subdevices {
		if subdevices[i].DCCapable {
			return &subdevices[i], true
		}
	}
	return nil, false
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func putLeUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putLeInt64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
}
