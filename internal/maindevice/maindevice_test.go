package maindevice

import (
	"context"
	"testing"
	"time"

	"ethercat-master/internal/command"
	"ethercat-master/internal/dc"
	"ethercat-master/internal/ecat"
)

// fakeESC is one simulated sub-device on a fakeRing: it answers
// position-addressed commands (APRD/APWR) by ring position before a
// configured address is assigned, and configured/broadcast commands
// (FPRD/FPWR/BWR/FRMW) by configured address afterwards, exactly like
// internal/command's own fakeSubdevice but shared across a ring of more
// than one device.
type fakeESC struct {
	position       uint16
	configuredAddr uint16
	registers      map[ecat.RegisterAddress][]byte
}

func newFakeESC(position uint16) *fakeESC {
	return &fakeESC{position: position, registers: make(map[ecat.RegisterAddress][]byte)}
}

// fakeRing bounces a frame through every device on the ring in order,
// simulating how a real EtherCAT frame visits each ESC as it passes.
type fakeRing struct {
	devices []*fakeESC
	mac     ecat.MAC
	recvCh  chan []byte
	closed  chan struct{}
}

func newFakeRing(devices ...*fakeESC) *fakeRing {
	return &fakeRing{
		devices: devices,
		mac:     ecat.MAC{0x02, 0x00, 0x00, 0x00, 0x00, 0xFE},
		recvCh:  make(chan []byte, 8),
		closed:  make(chan struct{}),
	}
}

func (r *fakeRing) regionStart() int { return ecat.EthernetHeaderLen + ecat.FrameHeaderLen }

func (r *fakeRing) Send(in []byte) error {
	out := append([]byte(nil), in...)

	var ph ecat.PduHeader
	if err := ph.UnmarshalWire(out[r.regionStart():]); err != nil {
		return nil
	}
	adp, ado := ph.AddressRaw.Position()
	reg := ecat.RegisterAddress(ado)
	payloadOff := r.regionStart() + ecat.PduHeaderLen
	payloadLen := int(ph.Flags.Length)
	payload := out[payloadOff : payloadOff+payloadLen]
	wkcOff := payloadOff + payloadLen

	var wkc uint16
	switch ecat.CommandCode(ph.CommandCode) {
	case ecat.BRD:
		wkc = uint16(len(r.devices))
	case ecat.BWR:
		for _, d := range r.devices {
			d.registers[reg] = append([]byte(nil), payload...)
			wkc++
		}
	case ecat.APWR:
		for _, d := range r.devices {
			if d.position != adp {
				continue
			}
			if reg == ecat.ConfiguredStationAddress {
				d.configuredAddr = uint16(payload[0]) | uint16(payload[1])<<8
			} else {
				d.registers[reg] = append([]byte(nil), payload...)
			}
			wkc = 1
		}
	case ecat.FPRD:
		for _, d := range r.devices {
			if d.configuredAddr == adp {
				copy(payload, d.registers[reg])
				wkc = 1
			}
		}
	case ecat.FPWR:
		for _, d := range r.devices {
			if d.configuredAddr == adp {
				d.registers[reg] = append([]byte(nil), payload...)
				wkc = 1
			}
		}
	case ecat.FRMW:
		for _, d := range r.devices {
			if d.configuredAddr != adp {
				// Every other device on the ring takes part too.
				wkc++
				continue
			}
			existing := d.registers[reg]
			for i := range payload {
				if i < len(existing) {
					payload[i] += existing[i]
				}
			}
			d.registers[reg] = append([]byte(nil), payload...)
			wkc++
		}
	}

	out[wkcOff], out[wkcOff+1] = byte(wkc), byte(wkc>>8)

	var eth ecat.EthernetHeader
	_ = eth.UnmarshalWire(out)
	eth.Src = r.mac
	_, _ = eth.MarshalWire(out)

	select {
	case r.recvCh <- out:
	case <-r.closed:
	}
	return nil
}

func (r *fakeRing) Recv() ([]byte, error) {
	select {
	case f := <-r.recvCh:
		return f, nil
	case <-r.closed:
		return nil, errClosedRing
	}
}

func (r *fakeRing) Close() error {
	select {
	case <-r.closed:
	default:
		close(r.closed)
	}
	return nil
}

var errClosedRing = ringClosedError{}

type ringClosedError struct{}

func (ringClosedError) Error() string { return "maindevice: fake ring closed" }

func newTestMainDevice(t *testing.T, transport command.Transport) (*MainDevice, func()) {
	t.Helper()
	md := New(transport, Config{
		PoolSize:             4,
		MaxPayload:           128,
		SourceMAC:            ecat.MAC{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		Command:              command.Config{Timeout: 50 * time.Millisecond},
		StaticSyncIterations: 5,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		md.Run(ctx)
		close(done)
	}()

	return md, func() {
		cancel()
		<-done
	}
}

func TestCountSubdevicesAndAssignConfiguredAddresses(t *testing.T) {
	t.Parallel()
	ring := newFakeRing(newFakeESC(0), newFakeESC(1), newFakeESC(2))
	md, stop := newTestMainDevice(t, ring)
	defer stop()

	ctx := context.Background()
	count, err := md.CountSubdevices(ctx)
	if err != nil {
		t.Fatalf("CountSubdevices: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	addrs, err := md.AssignConfiguredAddresses(ctx, count)
	if err != nil {
		t.Fatalf("AssignConfiguredAddresses: %v", err)
	}
	want := []uint16{0x1000, 0x1001, 0x1002}
	for i, a := range want {
		if addrs[i] != a {
			t.Errorf("addrs[%d] = %#x, want %#x", i, addrs[i], a)
		}
		if ring.devices[i].configuredAddr != a {
			t.Errorf("device %d configuredAddr = %#x, want %#x", i, ring.devices[i].configuredAddr, a)
		}
	}
}

func TestConfigureDCProgramsOffsetsAndRunsStaticSync(t *testing.T) {
	t.Parallel()
	d0 := newFakeESC(0)
	d0.configuredAddr = 0x1000
	d1 := newFakeESC(1)
	d1.configuredAddr = 0x1001
	ring := newFakeRing(d0, d1)

	md, stop := newTestMainDevice(t, ring)
	defer stop()

	subdevices := []dc.SubDevice{
		{ConfiguredAddress: 0x1000, Index: 0, DCCapable: true, Ports: dc.NewPorts(true, false, true, false)},
		{ConfiguredAddress: 0x1001, Index: 1, DCCapable: true, Ports: dc.NewPorts(true, false, false, false)},
	}
	subdevices[0].Ports.SetReceiveTimes(100, 0, 250, 0)
	subdevices[1].Ports.SetReceiveTimes(300, 0, 0, 0)

	if err := md.ConfigureDC(context.Background(), subdevices, 1_000_000); err != nil {
		t.Fatalf("ConfigureDC: %v", err)
	}

	ref, ok := md.DCReferenceAddress()
	if !ok || ref != 0x1000 {
		t.Fatalf("DCReferenceAddress = (%#x, %v), want (0x1000, true)", ref, ok)
	}

	if _, ok := d0.registers[ecat.DcSystemTimeOffset]; !ok {
		t.Errorf("device 0 never received a DcSystemTimeOffset write")
	}
	if _, ok := d1.registers[ecat.DcSystemTimeTransmissionDelay]; !ok {
		t.Errorf("device 1 never received a DcSystemTimeTransmissionDelay write")
	}
	if subdevices[1].PropagationDelay == 0 {
		t.Errorf("expected a nonzero propagation delay for the passthrough child")
	}
}
