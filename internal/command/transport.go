package command

// Transport is the network interface a Bus drives frames over. It is
// deliberately minimal: raw Ethernet frame in, raw Ethernet frame out.
// Real NIC I/O (raw sockets, AF_PACKET, npcap) is out of scope for this
// module; callers provide their own implementation or the in-memory
// loopback in internal/demo for demonstration.
type Transport interface {
	// Send writes one raw Ethernet frame to the wire. Implementations
	// that cannot guarantee the whole frame lands atomically should
	// return a *pduloop.PartialSendError instead of a bare error, so the
	// caller can tell a lost write apart from a dead link; either way
	// the frame's slot is requeued for a full resend, never assumed
	// half-delivered.
	Send(frame []byte) error
	// Recv blocks until the next raw Ethernet frame arrives, or returns
	// an error once the transport is closed.
	Recv() ([]byte, error)
	// Close unblocks any in-progress Recv and releases the transport.
	Close() error
}
