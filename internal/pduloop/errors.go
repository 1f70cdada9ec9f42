package pduloop

import (
	"errors"
	"fmt"
)

// ErrPduTooLong is returned by PushPdu when a single PDU's payload alone
// exceeds the frame's data capacity, so splitting across frames (as
// PushPduRest does for bulk transfers) cannot help.
var ErrPduTooLong = errors.New("pduloop: pdu payload exceeds a single frame's capacity")

// ErrFrameFull is returned by PushPdu when the frame has no room left
// for another PDU, even though the PDU itself would fit an empty frame.
var ErrFrameFull = errors.New("pduloop: no space left in frame for another pdu")

// ErrTimeout is returned when a sent frame's response did not arrive
// within its configured timeout after exhausting any configured
// retries.
var ErrTimeout = errors.New("pduloop: timed out waiting for pdu response")

// ErrClosed is returned by operations attempted after the loop has been
// shut down.
var ErrClosed = errors.New("pduloop: loop is closed")

// ErrUnmatchedResponse is returned when an inbound frame passes every
// header check but its first PDU's index matches no tracked slot: a
// response this loop can no longer account for, not merely unrelated
// traffic.
var ErrUnmatchedResponse = errors.New("pduloop: response pdu index matches no in-flight slot")

// PartialSendError reports that a Transport wrote only part of a frame
// before failing. A Transport that cannot guarantee atomic writes should
// wrap a PartialSendError instead of returning a bare error, so the TX
// driver can requeue the frame for a full resend rather than leaving its
// slot stranded.
type PartialSendError struct {
	Len  int // length of the frame Send was asked to write
	Sent int // bytes actually written before the failure
}

func (e *PartialSendError) Error() string {
	return fmt.Sprintf("pduloop: partial send: wrote %d of %d bytes", e.Sent, e.Len)
}
