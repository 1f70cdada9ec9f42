package dc

// findParent determines the physical parent of subdevices[i] by
// inspecting subdevices[:i], the devices already discovered before it in
// ring order.
//
// If the immediately preceding device is itself a LineEnd (the tail of a
// finished branch), the real parent is the most recent junction before
// it -- walking further back over other finished LineEnd branches until
// a Fork or Cross is found.
func findParent(parents []SubDevice, subdeviceIndex uint16) (parentIndex uint16, hasParent bool, err error) {
	if len(parents) == 0 {
		return 0, false, nil
	}

	last := &parents[len(parents)-1]
	if last.Ports.Topology() != TopologyLineEnd {
		return last.Index, true, nil
	}

	for i := len(parents) - 2; i >= 0; i-- {
		if parents[i].Ports.Topology().IsJunction() {
			return parents[i].Index, true, nil
		}
	}

	_ = subdeviceIndex
	return 0, false, ErrTopology
}

// ReconstructAndComputeDelays walks sub-devices in discovery order,
// assigning each one's parent and the parent port it's connected
// through, then accumulates propagation delay for every DC-capable
// device. It mutates subdevices in place.
func ReconstructAndComputeDelays(subdevices []SubDevice) error {
	var delayAccum uint32

	for i := range subdevices {
		parents := subdevices[:i]
		sd := &subdevices[i]

		parentIdx, hasParent, err := findParent(parents, sd.Index)
		if err != nil {
			return err
		}
		sd.ParentIndex = parentIdx
		sd.HasParent = hasParent

		if hasParent {
			parent := findByIndex(parents, parentIdx)
			if parent == nil {
				return ErrTopology
			}
			if sd.Index != 0 {
				if _, ok := parent.Ports.AssignNextDownstreamPort(sd.Index); !ok {
					return ErrNoFreeParentPort
				}
			}
		}

		if sd.DCCapable {
			computePropagationDelay(sd, parents, &delayAccum)
		}
	}

	return nil
}

func findByIndex(subdevices []SubDevice, index uint16) *SubDevice {
	for i := range subdevices {
		if subdevices[i].Index == index {
			return &subdevices[i]
		}
	}
	return nil
}

// computePropagationDelay implements §4.4.3's contribution table for a
// single sub-device, given the devices discovered before it.
func computePropagationDelay(sd *SubDevice, parents []SubDevice, delayAccum *uint32) {
	if !sd.HasParent {
		return
	}
	parent := findByIndex(parents, sd.ParentIndex)
	if parent == nil {
		return
	}

	parentPort, ok := parent.Ports.PortAssignedTo(sd.Index)
	if !ok {
		return
	}

	parentTotal := parent.Ports.TotalPropagationTime()
	thisTotal := sd.Ports.TotalPropagationTime()
	delta := saturatingSub(parentTotal, thisTotal)

	var contribution uint32
	switch parent.Ports.Topology() {
	case TopologyPassthrough:
		contribution = delta / 2
	case TopologyFork:
		if sd.IsChildOf(parent) {
			loopTime := parent.Ports.PropagationTimeTo(parentPort)
			contribution = saturatingSub(loopTime, thisTotal) / 2
		} else {
			contribution = delta / 2
		}
	case TopologyCross:
		if sd.IsChildOf(parent) {
			loopTime := parent.Ports.IntermediatePropagationTimeTo(parentPort)
			contribution = saturatingSub(loopTime, thisTotal) / 2
		} else {
			contribution = saturatingSub(parentTotal, *delayAccum)
		}
	case TopologyLineEnd:
		contribution = 0
	}

	*delayAccum = saturatingAdd(*delayAccum, contribution)
	sd.PropagationDelay = *delayAccum
}

func saturatingSub(a, b uint32) uint32 {
	if b >= a {
		return 0
	}
	return a - b
}

func saturatingAdd(a, b uint32) uint32 {
	sum := uint64(a) + uint64(b)
	if sum > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(sum)
}
