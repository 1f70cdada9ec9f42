package dc

// SubDevice is one device's discovery record as far as the DC engine is
// concerned: its address, position in the ring, port state, and the
// fields topology reconstruction and delay computation fill in.
type SubDevice struct {
	ConfiguredAddress uint16
	Index             uint16
	Ports             Ports
	DCReceiveTime     uint64
	DCCapable         bool

	// DCReceiveTimeWKC is the working counter LatchReceiveTimes observed
	// reading DCReceiveTime back, even though that read ignores it for
	// the purpose of deciding success or failure (see the broadcast
	// latch/per-device read asymmetry documented on the maindevice
	// package's logDCReceiveTimeAsymmetry).
	DCReceiveTimeWKC uint16

	// ParentIndex is set by ReconstructAndComputeDelays; zero value means
	// no parent, distinguished by HasParent.
	ParentIndex uint16
	HasParent   bool

	PropagationDelay uint32
}

// IsChildOf reports whether this device hangs off one of the parent's
// branch ports: the parent has a port assigned to this device and that
// port is not the parent's last active port, which continues the main
// line instead.
func (s *SubDevice) IsChildOf(parent *SubDevice) bool {
	port, ok := parent.Ports.PortAssignedTo(s.Index)
	if !ok {
		return false
	}
	last, ok := parent.Ports.lastPort()
	return !ok || last.Number != port.Number
}
