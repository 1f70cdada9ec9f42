package pdustore

import "errors"

// ErrNoFreeSlots is returned by Alloc when every slot in the Storage is
// in use and two full passes over the pool found nothing free. Callers
// should either slow down their request rate or build the Storage with
// more capacity.
var ErrNoFreeSlots = errors.New("pdustore: no free frame slots")

// ErrSlotIndexOutOfRange is returned by At when the given index does not
// name a slot in the Storage.
var ErrSlotIndexOutOfRange = errors.New("pdustore: slot index out of range")
