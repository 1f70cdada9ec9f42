// Package demo provides an in-memory EtherCAT ring that answers
// exactly the commands internal/maindevice issues during discovery and
// Distributed Clocks commissioning. It exists because spec.md scopes
// out real NIC I/O: cmd/ethercatd needs a command.Transport to drive
// against, and this is the stand-in, not a production driver.
package demo

import (
	"time"

	"ethercat-master/internal/command"
	"ethercat-master/internal/dc"
	"ethercat-master/internal/ecat"
)

// esc is one simulated sub-device: it answers position-addressed
// commands by ring position before a configured address is assigned,
// and configured/broadcast commands by configured address afterwards.
type esc struct {
	position       uint16
	configuredAddr uint16
	registers      map[ecat.RegisterAddress][]byte
}

func newESC(position uint16) *esc {
	return &esc{position: position, registers: make(map[ecat.RegisterAddress][]byte)}
}

// Network is a fixed ring of simulated sub-devices reachable through a
// command.Transport. It mutates its devices' register maps in place as
// commands arrive, the same way a real ESC's memory would change.
type Network struct {
	devices []*esc
	mac     ecat.MAC
	recvCh  chan []byte
	closed  chan struct{}
}

func regionStart() int { return ecat.EthernetHeaderLen + ecat.FrameHeaderLen }

// NewLoopbackNetwork builds a two-device demo ring: an EK1100-shaped
// coupler (DC-capable, a passthrough port to the second device) and an
// EL1008-shaped terminal (DC-capable, line end). Returns the transport
// to hand to maindevice.New and a Fixture describing the same two
// devices' expected topology for ConfigureDC.
func NewLoopbackNetwork() (command.Transport, *Fixture) {
	n := &Network{
		devices: []*esc{newESC(0), newESC(1)},
		mac:     ecat.MAC{0x02, 0x00, 0x00, 0x00, 0x00, 0xFE},
		recvCh:  make(chan []byte, 8),
		closed:  make(chan struct{}),
	}
	return n, newFixture()
}

// Send applies one EtherCAT frame to every device the command addresses
// and queues the mutated frame for Recv, mirroring how a frame
// physically passes through each ESC on the ring before returning to
// the main device.
func (n *Network) Send(in []byte) error {
	out := append([]byte(nil), in...)

	var ph ecat.PduHeader
	if err := ph.UnmarshalWire(out[regionStart():]); err != nil {
		return nil
	}
	adp, ado := ph.AddressRaw.Position()
	reg := ecat.RegisterAddress(ado)
	payloadOff := regionStart() + ecat.PduHeaderLen
	payloadLen := int(ph.Flags.Length)
	payload := out[payloadOff : payloadOff+payloadLen]
	wkcOff := payloadOff + payloadLen

	var wkc uint16
	switch ecat.CommandCode(ph.CommandCode) {
	case ecat.BRD:
		wkc = uint16(len(n.devices))
	case ecat.BWR:
		for _, d := range n.devices {
			d.registers[reg] = append([]byte(nil), payload...)
			wkc++
		}
	case ecat.APWR:
		for _, d := range n.devices {
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
		for _, d := range n.devices {
			if d.configuredAddr == adp {
				copy(payload, d.registers[reg])
				wkc = 1
			}
		}
	case ecat.FPWR:
		for _, d := range n.devices {
			if d.configuredAddr == adp {
				d.registers[reg] = append([]byte(nil), payload...)
				wkc = 1
			}
		}
	case ecat.FRMW:
		for _, d := range n.devices {
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
	eth.Src = n.mac
	_, _ = eth.MarshalWire(out)

	select {
	case n.recvCh <- out:
	case <-n.closed:
	case <-time.After(time.Second):
	}
	return nil
}

// Recv blocks for the next frame Send queued, or returns an error once
// Close has been called.
func (n *Network) Recv() ([]byte, error) {
	select {
	case f := <-n.recvCh:
		return f, nil
	case <-n.closed:
		return nil, errNetworkClosed
	}
}

// Close unblocks any pending Recv.
func (n *Network) Close() error {
	select {
	case <-n.closed:
	default:
		close(n.closed)
	}
	return nil
}

var errNetworkClosed = networkClosedError{}

type networkClosedError struct{}

func (networkClosedError) Error() string { return "demo: loopback network closed" }

// Fixture describes the demo ring's topology for ConfigureDC: two
// DC-capable devices, a passthrough coupler feeding a line-end
// terminal, with the port receive-time deltas ConfigureDC needs to
// reconstruct propagation delay.
type Fixture struct {
	subdevices []dc.SubDevice
}

func newFixture() *Fixture {
	subdevices := []dc.SubDevice{
		{ConfiguredAddress: 0x1000, Index: 0, DCCapable: true, Ports: dc.NewPorts(true, false, true, false)},
		{ConfiguredAddress: 0x1001, Index: 1, DCCapable: true, Ports: dc.NewPorts(true, false, false, false)},
	}
	subdevices[0].Ports.SetReceiveTimes(100, 0, 250, 0)
	subdevices[1].Ports.SetReceiveTimes(300, 0, 0, 0)
	return &Fixture{subdevices: subdevices}
}

// Subdevices returns the fixture's sub-device records, ready to pass to
// maindevice.ConfigureDC.
func (f *Fixture) Subdevices() []dc.SubDevice { return f.subdevices }
