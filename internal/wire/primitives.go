package wire

import "encoding/binary"

// Primitive field codecs. These back the byte-aligned, multi-byte fields
// of every derived struct; sub-byte fields are packed directly by the
// struct codec via the bit helpers in bits.go. All multi-byte fields are
// little-endian per the on-wire frame format.

func WriteUint8(buf []byte, v uint8) ([]byte, error) {
	if err := checkLen(buf, 1, true); err != nil {
		return nil, err
	}
	buf[0] = v
	return buf[:1], nil
}

func ReadUint8(buf []byte) (uint8, error) {
	if err := checkLen(buf, 1, false); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func WriteUint16(buf []byte, v uint16) ([]byte, error) {
	if err := checkLen(buf, 2, true); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint16(buf, v)
	return buf[:2], nil
}

func ReadUint16(buf []byte) (uint16, error) {
	if err := checkLen(buf, 2, false); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func WriteUint32(buf []byte, v uint32) ([]byte, error) {
	if err := checkLen(buf, 4, true); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint32(buf, v)
	return buf[:4], nil
}

func ReadUint32(buf []byte) (uint32, error) {
	if err := checkLen(buf, 4, false); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func WriteUint64(buf []byte, v uint64) ([]byte, error) {
	if err := checkLen(buf, 8, true); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint64(buf, v)
	return buf[:8], nil
}

func ReadUint64(buf []byte) (uint64, error) {
	if err := checkLen(buf, 8, false); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func WriteInt64(buf []byte, v int64) ([]byte, error) {
	return WriteUint64(buf, uint64(v))
}

func ReadInt64(buf []byte) (int64, error) {
	u, err := ReadUint64(buf)
	return int64(u), err
}

func WriteBool(buf []byte, v bool) ([]byte, error) {
	var b uint8
	if v {
		b = 1
	}
	return WriteUint8(buf, b)
}

func ReadBool(buf []byte) (bool, error) {
	b, err := ReadUint8(buf)
	if err != nil {
		return false, err
	}
	if b != 0 && b != 1 {
		return false, newErr(KindInvalidValue, "bool must be 0 or 1")
	}
	return b != 0, nil
}

// WriteBytes copies src into buf, failing if buf is shorter than src.
func WriteBytes(buf, src []byte) ([]byte, error) {
	if err := checkLen(buf, len(src), true); err != nil {
		return nil, err
	}
	n := copy(buf, src)
	return buf[:n], nil
}

// ReadBytes returns a copy of the first n bytes of buf.
func ReadBytes(buf []byte, n int) ([]byte, error) {
	if err := checkLen(buf, n, false); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}

// ReadArrayLen validates that buf has exactly n bytes remaining for a
// fixed-size array field, returning ArrayLength rather than a short-read
// error when the mismatch is a length mismatch rather than truncation.
func ReadArrayLen(buf []byte, n int) error {
	if len(buf) != n {
		return newErr(KindArrayLength, "")
	}
	return nil
}
