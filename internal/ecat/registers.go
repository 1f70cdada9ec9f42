package ecat

// RegisterAddress enumerates the ESC registers this core's components
// read or write. Only the subset the DC engine and the AL state machine
// interface actually touch is listed -- the rest of the ESC register map
// belongs to the out-of-scope SII/mailbox layers.
type RegisterAddress uint16

const (
	// Type is read with a broadcast read during discovery: every
	// responding sub-device increments the working counter once, so the
	// returned WKC doubles as the sub-device count.
	Type RegisterAddress = 0x0000

	// ConfiguredStationAddress is StationAddress's alias, named the way
	// the address-assignment step refers to it.
	ConfiguredStationAddress RegisterAddress = StationAddress
	StationAddress           RegisterAddress = 0x0010

	AlControl    RegisterAddress = 0x0120
	AlStatus     RegisterAddress = 0x0130
	AlStatusCode RegisterAddress = 0x0134

	DcTimePort0                    RegisterAddress = 0x0900
	DcTimePort1                    RegisterAddress = 0x0904
	DcTimePort2                    RegisterAddress = 0x0908
	DcTimePort3                    RegisterAddress = 0x090C
	DcReceiveTime                  RegisterAddress = 0x0918
	DcSystemTimeOffset             RegisterAddress = 0x0920
	DcSystemTimeTransmissionDelay  RegisterAddress = 0x0928
	DcSystemTime                   RegisterAddress = 0x0910
	DcControlLoopParam0            RegisterAddress = 0x0930
	DcControlLoopParam1            RegisterAddress = 0x0934
)

// AlState is the sub-device application-layer state, decoded from the
// low byte of the AlStatus register. Values with the 0x10 error bit set
// are alternatives that decode to the same base state; the error
// indication itself is DecodeAlState's hasError result.
type AlState uint8

const (
	AlStateInit       AlState = 0x01
	AlStatePreOp      AlState = 0x02
	AlStateBootstrap  AlState = 0x03
	AlStateSafeOp     AlState = 0x04
	AlStateOp         AlState = 0x08
	AlStateUnknown    AlState = 0xFF // catch-all sentinel, see DecodeAlState
)

const alStateErrorBit uint8 = 0x10

func (s AlState) String() string {
	switch s {
	case AlStateInit:
		return "Init"
	case AlStatePreOp:
		return "PreOp"
	case AlStateBootstrap:
		return "Bootstrap"
	case AlStateSafeOp:
		return "SafeOp"
	case AlStateOp:
		return "Op"
	default:
		return "Unknown"
	}
}

// DecodeAlState splits a raw AlStatus low byte into its base state and
// error indication. Values 0x11/0x12/0x13/0x14/0x18 are the "with error"
// alternatives of Init/PreOp/Bootstrap/SafeOp/Op; any value that matches
// neither a canonical nor an alternative state decodes to AlStateUnknown
// with hasError reflecting whether the error bit was set.
func DecodeAlState(raw uint8) (state AlState, hasError bool) {
	hasError = raw&alStateErrorBit != 0
	base := raw &^ alStateErrorBit
	switch AlState(base) {
	case AlStateInit, AlStatePreOp, AlStateBootstrap, AlStateSafeOp, AlStateOp:
		return AlState(base), hasError
	default:
		return AlStateUnknown, hasError
	}
}

// EncodeAlState packs a base state plus error flag back into a raw
// AlStatus low byte. Only the canonical (non-error) value is ever the
// "written" representation; withError is how a responder would report a
// failed transition, never something a main device writes.
func EncodeAlState(state AlState, withError bool) uint8 {
	raw := uint8(state)
	if withError {
		raw |= alStateErrorBit
	}
	return raw
}
