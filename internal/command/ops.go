package command

import (
	"context"

	"ethercat-master/internal/ecat"
)

// BroadcastRead reads reg from every sub-device on the bus, returning
// the last responder's payload. out's length sets how many bytes are
// requested.
func (b *Bus) BroadcastRead(ctx context.Context, reg ecat.RegisterAddress, out []byte) (wkc uint16, err error) {
	cmd, addr := Brd(reg)
	return b.do(ctx, cmd, addr, make([]byte, len(out)), out, nil)
}

// BroadcastWrite writes data to reg on every sub-device and checks the
// working counter equals expectWKC (normally the sub-device count).
// Implements internal/dc's Bus interface.
func (b *Bus) BroadcastWrite(ctx context.Context, reg ecat.RegisterAddress, data []byte, expectWKC uint16) error {
	cmd, addr := Bwr(reg)
	_, err := b.do(ctx, cmd, addr, data, nil, &expectWKC)
	return err
}

// AutoIncrementRead reads reg from the sub-device autoIncrement hops
// from the main device in ring order, used during discovery before
// configured addresses are assigned.
func (b *Bus) AutoIncrementRead(ctx context.Context, autoIncrement uint16, reg ecat.RegisterAddress, out []byte) (wkc uint16, err error) {
	cmd, addr := Aprd(autoIncrement, reg)
	return b.do(ctx, cmd, addr, make([]byte, len(out)), out, nil)
}

// AutoIncrementWrite writes reg on the sub-device autoIncrement hops
// from the main device, checking the working counter equals 1. Used to
// assign each discovered sub-device its configured station address.
func (b *Bus) AutoIncrementWrite(ctx context.Context, autoIncrement uint16, reg ecat.RegisterAddress, data []byte) error {
	cmd, addr := Apwr(autoIncrement, reg)
	expect := uint16(1)
	_, err := b.do(ctx, cmd, addr, data, nil, &expect)
	return err
}

// Read performs a configured-address read, checking the working counter
// equals 1. Implements internal/dc's Bus interface.
func (b *Bus) Read(ctx context.Context, addr uint16, reg ecat.RegisterAddress, out []byte) (wkc uint16, err error) {
	cmd, a := Fprd(addr, reg)
	expect := uint16(1)
	return b.do(ctx, cmd, a, make([]byte, len(out)), out, &expect)
}

// ReadIgnoreWKC is Read without a working-counter check, for registers
// where compliant devices answer inconsistently (e.g. DcReceiveTime on
// devices still propagating their first frame). It still reports the
// working counter it saw, so a caller that wants to is free to check it
// after the fact. Implements internal/dc's Bus interface.
func (b *Bus) ReadIgnoreWKC(ctx context.Context, addr uint16, reg ecat.RegisterAddress, out []byte) (wkc uint16, err error) {
	cmd, a := Fprd(addr, reg)
	return b.do(ctx, cmd, a, make([]byte, len(out)), out, nil)
}

// WriteIgnoreWKC performs a configured-address write without checking
// the working counter. Implements internal/dc's Bus interface.
func (b *Bus) WriteIgnoreWKC(ctx context.Context, addr uint16, reg ecat.RegisterAddress, data []byte) error {
	cmd, a := Fpwr(addr, reg)
	_, err := b.do(ctx, cmd, a, data, nil, nil)
	return err
}

// ConfiguredWrite performs a configured-address write, checking the
// working counter equals 1.
func (b *Bus) ConfiguredWrite(ctx context.Context, addr uint16, reg ecat.RegisterAddress, data []byte) error {
	cmd, a := Fpwr(addr, reg)
	expect := uint16(1)
	_, err := b.do(ctx, cmd, a, data, nil, &expect)
	return err
}

// ReadMultipleWrite issues an FRMW at reg on addr: every sub-device
// along the ring adds its own register value into data and forwards it,
// so the working counter reports how many contributed. Implements
// internal/dc's Bus interface.
func (b *Bus) ReadMultipleWrite(ctx context.Context, addr uint16, reg ecat.RegisterAddress, data []byte) (wkc uint16, err error) {
	cmd, a := Frmw(addr, reg)
	return b.do(ctx, cmd, a, data, data, nil)
}
