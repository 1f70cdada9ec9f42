package wire

import "fmt"

// FieldLayout describes one field of a StructLayout: its bit width
// within the struct, any padding around it, and whether it is skipped
// entirely (reserved/padding-only).
type FieldLayout struct {
	Name         string
	BitOffset    int // offset of the field's own bits within the struct, from bit 0
	BitWidth     int // width in bits; multi-byte fields are always byte-aligned
	PreSkipBits  int
	PostSkipBits int
	Skip         bool
}

// StructLayout is the declarative layout description attached to a wire
// struct: total width in bits plus a per-field list. Implementations
// build one of these for documentation and validate it in tests; the
// actual pack/unpack code is hand-written against the same offsets (Go
// has no attribute-driven derive macros), but must agree with the layout
// bit-for-bit -- StructLayout.Validate enforces the derive-time rules
// spec.md requires of any such metadata, catching the class of errors a
// derive macro would catch at compile time.
type StructLayout struct {
	Name      string
	TotalBits int
	Fields    []FieldLayout
}

// Validate checks the struct-layout rules:
//   - each non-skipped field has an explicit width
//   - fields >= 8 bits wide are byte-aligned at both ends
//   - fields < 8 bits wide do not straddle a byte boundary
//   - the sum of field widths (plus skips) equals the declared struct width
func (s StructLayout) Validate() error {
	offset := 0
	for _, f := range s.Fields {
		offset += f.PreSkipBits
		if f.Skip {
			offset += f.BitWidth + f.PostSkipBits
			continue
		}
		if f.BitWidth <= 0 {
			return fmt.Errorf("wire: struct %s field %s has no width", s.Name, f.Name)
		}
		if f.BitOffset != offset {
			return fmt.Errorf("wire: struct %s field %s expected at bit %d, laid out at %d", s.Name, f.Name, offset, f.BitOffset)
		}
		if f.BitWidth >= 8 {
			if f.BitWidth%8 != 0 {
				return fmt.Errorf("wire: struct %s field %s is %d bits, not a whole number of bytes", s.Name, f.Name, f.BitWidth)
			}
			if offset%8 != 0 {
				return fmt.Errorf("wire: struct %s field %s must start byte-aligned", s.Name, f.Name)
			}
		} else {
			startByte := offset / 8
			endByte := (offset + f.BitWidth - 1) / 8
			if startByte != endByte {
				return fmt.Errorf("wire: struct %s field %s straddles a byte boundary", s.Name, f.Name)
			}
		}
		offset += f.BitWidth + f.PostSkipBits
	}
	if offset != s.TotalBits {
		return fmt.Errorf("wire: struct %s fields sum to %d bits, declared width is %d", s.Name, offset, s.TotalBits)
	}
	return nil
}
