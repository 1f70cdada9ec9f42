package dc

// Port is one of a sub-device's four ESC ports.
type Port struct {
	Active        bool
	DCReceiveTime uint32
	// Number is the EtherCAT port number (0, 1, 2 or 3); Ports stores
	// them at array index 0,1,2,3 in wire order 0, 3, 1, 2.
	Number uint8
	// DownstreamTo holds the discovery index of the sub-device connected
	// to this port, once topology reconstruction assigns it.
	DownstreamTo  uint16
	HasDownstream bool
}

// portIndex maps an EtherCAT port number to its slot in Ports.0, per the
// wire order 0 -> 3 -> 1 -> 2.
func portIndex(number uint8) int {
	switch number {
	case 0:
		return 0
	case 3:
		return 1
	case 1:
		return 2
	case 2:
		return 3
	default:
		panic("dc: invalid port number")
	}
}

// Ports is a sub-device's four ports in wire order (0, 3, 1, 2).
type Ports [4]Port

// NewPorts builds a Ports value with the given active flags, one per
// EtherCAT port number in order 0, 3, 1, 2.
func NewPorts(active0, active3, active1, active2 bool) Ports {
	return Ports{
		{Active: active0, Number: 0},
		{Active: active3, Number: 3},
		{Active: active1, Number: 1},
		{Active: active2, Number: 2},
	}
}

// SetReceiveTimes records the four per-port DC receive times, given in
// EtherCAT port order 0, 3, 1, 2 as returned by a single register read.
func (p *Ports) SetReceiveTimes(t0, t3, t1, t2 uint32) {
	p[0].DCReceiveTime = t0
	p[1].DCReceiveTime = t3
	p[2].DCReceiveTime = t1
	p[3].DCReceiveTime = t2
}

// Topology classifies a sub-device by how many of its ports are active.
type Topology int

const (
	TopologyLineEnd Topology = iota + 1
	TopologyPassthrough
	TopologyFork
	TopologyCross
)

func (t Topology) String() string {
	switch t {
	case TopologyLineEnd:
		return "LineEnd"
	case TopologyPassthrough:
		return "Passthrough"
	case TopologyFork:
		return "Fork"
	case TopologyCross:
		return "Cross"
	default:
		return "Unknown"
	}
}

// IsJunction reports whether the topology can have more than one child,
// i.e. it is a Fork or a Cross.
func (t Topology) IsJunction() bool {
	return t == TopologyFork || t == TopologyCross
}

func (p Ports) openCount() int {
	n := 0
	for _, port := range p {
		if port.Active {
			n++
		}
	}
	return n
}

// Topology classifies this Ports value by its number of active ports.
func (p Ports) Topology() Topology {
	switch p.openCount() {
	case 1:
		return TopologyLineEnd
	case 2:
		return TopologyPassthrough
	case 3:
		return TopologyFork
	case 4:
		return TopologyCross
	default:
		panic("dc: sub-device has no active ports")
	}
}

// EntryPort returns the active port with the smallest receive time: the
// one that first saw EtherCAT traffic.
func (p Ports) EntryPort() Port {
	best := -1
	for i, port := range p {
		if !port.Active {
			continue
		}
		if best == -1 || port.DCReceiveTime < p[best].DCReceiveTime {
			best = i
		}
	}
	if best == -1 {
		panic("dc: no active ports to pick an entry port from")
	}
	return p[best]
}

// lastPort returns the last active port in array order, or false if none
// are active.
func (p Ports) lastPort() (Port, bool) {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Active {
			return p[i], true
		}
	}
	return Port{}, false
}

// nextAssignablePortIndex finds the next active port, cycling from just
// after thisPort, that has no downstream assignment yet.
func (p Ports) nextAssignablePortIndex(thisPort Port) (int, bool) {
	start := portIndex(thisPort.Number)
	for step := 1; step <= 4; step++ {
		idx := (start + step) % 4
		if p[idx].Active && !p[idx].HasDownstream {
			return idx, true
		}
	}
	return 0, false
}

// AssignNextDownstreamPort links downstreamIndex to the next open,
// unassigned port following this device's entry port, returning the
// EtherCAT port number it was assigned to.
func (p *Ports) AssignNextDownstreamPort(downstreamIndex uint16) (uint8, bool) {
	entry := p.EntryPort()
	idx, ok := p.nextAssignablePortIndex(entry)
	if !ok {
		return 0, false
	}
	p[idx].DownstreamTo = downstreamIndex
	p[idx].HasDownstream = true
	return p[idx].Number, true
}

// PortAssignedTo finds the port whose downstream assignment matches the
// given discovery index.
func (p Ports) PortAssignedTo(index uint16) (Port, bool) {
	for _, port := range p {
		if port.Active && port.HasDownstream && port.DownstreamTo == index {
			return port, true
		}
	}
	return Port{}, false
}

// TotalPropagationTime is the span between the earliest and latest
// receive time across this device's active ports: the time for a frame
// to traverse all of them.
func (p Ports) TotalPropagationTime() uint32 {
	var min, max uint32
	found := false
	for _, port := range p {
		if !port.Active {
			continue
		}
		if !found || port.DCReceiveTime < min {
			min = port.DCReceiveTime
		}
		if !found || port.DCReceiveTime > max {
			max = port.DCReceiveTime
		}
		found = true
	}
	if !found || max <= min {
		return 0
	}
	return max - min
}

// PropagationTimeTo is the span between the earliest and latest receive
// time among active ports whose array index lies between the entry
// port's index and the given port's index, inclusive.
func (p Ports) PropagationTimeTo(target Port) uint32 {
	entryIdx := portIndex(p.EntryPort().Number)
	targetIdx := portIndex(target.Number)
	lo, hi := entryIdx, targetIdx
	if lo > hi {
		lo, hi = hi, lo
	}

	var min, max uint32
	found := false
	for i := lo; i <= hi; i++ {
		port := p[i]
		if !port.Active {
			continue
		}
		if !found || port.DCReceiveTime < min {
			min = port.DCReceiveTime
		}
		if !found || port.DCReceiveTime > max {
			max = port.DCReceiveTime
		}
		found = true
	}
	if !found || max <= min {
		return 0
	}
	return max - min
}

// IntermediatePropagationTimeTo sums the receive-time delta between each
// adjacent pair of active ports in array order, up to and including the
// pair that ends at the target port.
func (p Ports) IntermediatePropagationTimeTo(target Port) uint32 {
	targetIdx := portIndex(target.Number)
	var sum uint32
	for i := 0; i < len(p)-1; i++ {
		a, b := p[i], p[i+1]
		if i >= targetIdx {
			break
		}
		if a.Active && b.Active && b.DCReceiveTime > a.DCReceiveTime {
			sum += b.DCReceiveTime - a.DCReceiveTime
		}
	}
	return sum
}
