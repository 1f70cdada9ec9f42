package dc

import "errors"

// ErrTopology is returned when a sub-device's physical parent cannot be
// established, e.g. walking backwards through the discovery order never
// finds a junction before a run of line-end devices.
var ErrTopology = errors.New("dc: could not resolve sub-device topology")

// ErrNoFreeParentPort is returned when a parent's next assignable port
// cannot be found, meaning the discovered topology has more children on
// a junction than it has open ports for.
var ErrNoFreeParentPort = errors.New("dc: parent has no free port for this sub-device")
