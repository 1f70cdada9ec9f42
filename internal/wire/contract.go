package wire

// Sized describes a value with a compile-time-known packed length and a
// default zero buffer of that length. Every struct/enum produced by this
// package's layout machinery implements it.
type Sized interface {
	// PackedLen returns the number of bytes this value occupies on the wire.
	PackedLen() int
}

// Writer writes a value into a byte buffer of known length, producing the
// written slice. Implementations must not write outside buf[:PackedLen()].
type Writer interface {
	Sized
	MarshalWire(buf []byte) ([]byte, error)
}

// Reader reads a value from a byte slice, failing with one of this
// package's Error kinds if buf is too short or the bytes decode to
// something invalid.
type Reader interface {
	UnmarshalWire(buf []byte) error
}

// ZeroBuffer returns a fresh zeroed buffer of the given length, the
// "default zero buffer" every Sized value can be written into.
func ZeroBuffer(n int) []byte {
	return make([]byte, n)
}

// checkLen returns a WriteBufferTooShort/ReadBufferTooShort error if buf
// is shorter than n.
func checkLen(buf []byte, n int, writing bool) error {
	if len(buf) < n {
		if writing {
			return newErr(KindWriteBufferTooShort, "")
		}
		return newErr(KindReadBufferTooShort, "")
	}
	return nil
}
