package pduloop

import (
	"context"
	"testing"
	"time"

	"ethercat-master/internal/ecat"
	"ethercat-master/internal/pdustore"
)

func newTestLoop(t *testing.T, numSlots, slotLen int) (*Loop, *pdustore.Storage) {
	t.Helper()
	storage := pdustore.New(numSlots, slotLen)
	src := ecat.MAC{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	return New(storage, src), storage
}

func TestPushPduAndFinalize(t *testing.T) {
	t.Parallel()
	loop, _ := newTestLoop(t, 4, 128)

	frame, err := loop.AllocFrame()
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}

	data := []byte{0xaa, 0xbb, 0xcc, 0xdd}
	handle, err := frame.PushPdu(ecat.BWR, ecat.PositionAddress(0, 0x1000), data, 0, loop.NextPduIndex)
	if err != nil {
		t.Fatalf("push pdu: %v", err)
	}

	future, err := loop.MarkSendable(frame)
	if err != nil {
		t.Fatalf("mark sendable: %v", err)
	}

	n := FrameLen(frame)
	if n != RegionStart+PduOverheadBytes+len(data) {
		t.Fatalf("frame len = %d", n)
	}

	if got := handle.WorkingCounter(); got != 0 {
		t.Fatalf("wkc before response = %d", got)
	}
	_ = future
}

func TestFullLoopbackRoundTrip(t *testing.T) {
	t.Parallel()
	loop, storage := newTestLoop(t, 4, 128)

	frame, err := loop.AllocFrame()
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	data := []byte{1, 2, 3, 4}
	handle, err := frame.PushPdu(ecat.LRD, ecat.LogicalAddress(0x2000), data, 0, loop.NextPduIndex)
	if err != nil {
		t.Fatalf("push pdu: %v", err)
	}

	future, err := loop.MarkSendable(frame)
	if err != nil {
		t.Fatalf("mark sendable: %v", err)
	}

	tx := NewTx(storage)
	slot, wire, ok := tx.NextSendable()
	if !ok {
		t.Fatal("expected a sendable frame")
	}
	tx.MarkSent(slot)

	// Simulate the wire round trip: a responder stamps a non-zero working
	// counter and the response arrives with a different source MAC.
	responded := make([]byte, len(wire))
	copy(responded, wire)
	respOff := RegionStart + ecat.PduHeaderLen + len(data)
	responded[respOff], responded[respOff+1] = 1, 0
	responded[6] = 0x12 // differentiate source MAC from our own

	rx := NewRx(storage, ecat.MAC{0x02, 0x00, 0x00, 0x00, 0x00, 0x01})
	action, err := rx.Receive(responded)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if action != ReceiveProcessed {
		t.Fatalf("action = %v", action)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := future.Wait(ctx, 200*time.Millisecond, RetryNone(), nil); err != nil {
		t.Fatalf("wait: %v", err)
	}

	if _, ok := future.Take(); !ok {
		t.Fatal("take failed")
	}
	defer future.Release()

	if wkc := handle.WorkingCounter(); wkc != 1 {
		t.Fatalf("wkc = %d", wkc)
	}
	if got := handle.Payload(); string(got) != string(data) {
		t.Fatalf("payload = %v, want %v", got, data)
	}
}

func TestWaitTimesOutWithoutResponse(t *testing.T) {
	t.Parallel()
	loop, _ := newTestLoop(t, 2, 64)

	frame, err := loop.AllocFrame()
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if _, err := frame.PushPdu(ecat.BRD, ecat.PositionAddress(0, 0), nil, 0, loop.NextPduIndex); err != nil {
		t.Fatalf("push pdu: %v", err)
	}
	future, err := loop.MarkSendable(frame)
	if err != nil {
		t.Fatalf("mark sendable: %v", err)
	}

	ctx := context.Background()
	err = future.Wait(ctx, 10*time.Millisecond, RetryNone(), nil)
	if err != ErrTimeout {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestWaitRetriesBeforeTimingOut(t *testing.T) {
	t.Parallel()
	loop, storage := newTestLoop(t, 2, 64)

	frame, err := loop.AllocFrame()
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if _, err := frame.PushPdu(ecat.BRD, ecat.PositionAddress(0, 0), nil, 0, loop.NextPduIndex); err != nil {
		t.Fatalf("push pdu: %v", err)
	}
	future, err := loop.MarkSendable(frame)
	if err != nil {
		t.Fatalf("mark sendable: %v", err)
	}

	// Drive the slot to Sent the way Bus.sendAndWait does, so each
	// timeout actually finds a slot in the state the retry path expects
	// to requeue from.
	tx := NewTx(storage)
	slot, _, ok := tx.NextSendable()
	if !ok {
		t.Fatal("expected a sendable frame")
	}
	tx.MarkSent(slot)

	resends := 0
	ctx := context.Background()
	err = future.Wait(ctx, 5*time.Millisecond, RetryCount(2), func() error {
		resends++
		// Simulate the bus re-sending: claim the now-requeued slot and
		// put it back in Sent for the next timeout cycle to find.
		if !slot.ClaimSending() {
			t.Fatalf("resend %d: slot was not Sendable after timeout", resends)
		}
		tx.MarkSent(slot)
		return nil
	})
	if err != ErrTimeout {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if resends != 2 {
		t.Fatalf("resends = %d, want 2", resends)
	}
	if slot.State() != pdustore.StateSent {
		t.Fatalf("slot state = %v, want Sent", slot.State())
	}
}

func TestPushPduRestSplitsAcrossCapacity(t *testing.T) {
	t.Parallel()
	loop, _ := newTestLoop(t, 2, RegionStart+PduOverheadBytes+4)

	frame, err := loop.AllocFrame()
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	data := make([]byte, 10)
	for i := range data {
		data[i] = byte(i)
	}
	n, _, err := frame.PushPduRest(ecat.LWR, ecat.LogicalAddress(0), data, 0, loop.NextPduIndex)
	if err != nil {
		t.Fatalf("push pdu rest: %v", err)
	}
	if n != 4 {
		t.Fatalf("n = %d, want 4 (frame capacity exhausted)", n)
	}
}

func TestPushPduTooLongForAnyFrame(t *testing.T) {
	t.Parallel()
	loop, _ := newTestLoop(t, 2, RegionStart+PduOverheadBytes+4)

	frame, err := loop.AllocFrame()
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	_, err = frame.PushPdu(ecat.LWR, ecat.LogicalAddress(0), make([]byte, 100), 0, loop.NextPduIndex)
	if err != ErrPduTooLong {
		t.Fatalf("err = %v, want ErrPduTooLong", err)
	}
}
