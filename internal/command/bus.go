package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ethercat-master/internal/ecat"
	"ethercat-master/internal/pduloop"
	"ethercat-master/internal/pdustore"
)

// Bus sends addressed EtherCAT commands over a Transport and waits for
// their responses, composing internal/pdustore and internal/pduloop
// into a synchronous request/response API. It implements internal/dc's
// Bus interface, so the DC engine drives it without depending on it
// directly.
type Bus struct {
	loop      *pduloop.Loop
	tx        *pduloop.Tx
	rx        *pduloop.Rx
	transport Transport

	timeout time.Duration
	retry   pduloop.RetryPolicy
}

// Config governs per-command timeout and retry behaviour.
type Config struct {
	Timeout time.Duration
	Retry   pduloop.RetryPolicy
}

// New builds a Bus over storage and transport, stamping srcMAC on every
// outgoing frame.
func New(storage *pdustore.Storage, srcMAC ecat.MAC, transport Transport, config Config) *Bus {
	if config.Timeout <= 0 {
		config.Timeout = 100 * time.Millisecond
	}
	return &Bus{
		loop:      pduloop.New(storage, srcMAC),
		tx:        pduloop.NewTx(storage),
		rx:        pduloop.NewRx(storage, srcMAC),
		transport: transport,
		timeout:   config.Timeout,
		retry:     config.Retry,
	}
}

// Run drives the receive side: it blocks reading frames off transport
// and matching them to in-flight commands until ctx is cancelled, at
// which point it closes transport to unblock the read and returns.
// Callers run this in its own goroutine alongside command calls.
func (b *Bus) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		b.transport.Close()
		close(done)
	}()

	for {
		frame, err := b.transport.Recv()
		if err != nil {
			select {
			case <-done:
				return nil
			default:
				return fmt.Errorf("command: transport receive: %w", err)
			}
		}
		if _, err := b.rx.Receive(frame); err != nil {
			log.Printf("command: dropping malformed frame: %v", err)
		}
	}
}

// sendAndWait pushes one PDU into a fresh frame, sends it, and blocks
// for its response, retrying on timeout per the Bus's retry policy.
func (b *Bus) sendAndWait(ctx context.Context, cmd ecat.CommandCode, addr ecat.Address, data []byte) (pduloop.PduHandle, *pduloop.ResponseFuture, error) {
	frame, err := b.loop.AllocFrame()
	if err != nil {
		return pduloop.PduHandle{}, nil, fmt.Errorf("command: alloc frame: %w", err)
	}

	handle, err := frame.PushPdu(cmd, addr, data, 0, b.loop.NextPduIndex)
	if err != nil {
		return pduloop.PduHandle{}, nil, fmt.Errorf("command: push pdu: %w", err)
	}

	future, err := b.loop.MarkSendable(frame)
	if err != nil {
		return pduloop.PduHandle{}, nil, fmt.Errorf("command: mark sendable: %w", err)
	}

	if err := b.sendClaimed(); err != nil {
		return pduloop.PduHandle{}, nil, err
	}

	if err := future.Wait(ctx, b.timeout, b.retry, b.sendClaimed); err != nil {
		return pduloop.PduHandle{}, nil, err
	}

	return handle, future, nil
}

// sendClaimed hands the next Sendable frame to the transport. Used both
// for the initial send and as the resend callback on retry.
func (b *Bus) sendClaimed() error {
	slot, frame, ok := b.tx.NextSendable()
	if !ok {
		return nil
	}
	if err := b.transport.Send(frame); err != nil {
		b.tx.Abort(slot)
		var partial *pduloop.PartialSendError
		if errors.As(err, &partial) {
			return fmt.Errorf("command: transport partial send (%d/%d bytes): %w", partial.Sent, partial.Len, err)
		}
		return fmt.Errorf("command: transport send: %w", err)
	}
	b.tx.MarkSent(slot)
	return nil
}

// do runs one command to completion: send, wait, read the working
// counter, copy the response into out (if non-nil), and release the
// frame. expectWKC of nil skips the working-counter check.
func (b *Bus) do(ctx context.Context, cmd ecat.CommandCode, addr ecat.Address, data []byte, out []byte, expectWKC *uint16) (uint16, error) {
	handle, future, err := b.sendAndWait(ctx, cmd, addr, data)
	if err != nil {
		return 0, err
	}

	if _, ok := future.Take(); !ok {
		return 0, fmt.Errorf("command: frame was not ready to be read")
	}
	defer future.Release()

	wkc := handle.WorkingCounter()
	if expectWKC != nil && wkc != *expectWKC {
		return wkc, fmt.Errorf("%w: got %d, want %d", ErrWorkingCounter, wkc, *expectWKC)
	}

	if out != nil {
		payload := handle.Payload()
		if len(payload) < len(out) {
			return wkc, ErrShortResponse
		}
		copy(out, payload[:len(out)])
	}

	return wkc, nil
}
