package ecat

import (
	"fmt"
	"net"
)

// ParseMAC parses a colon-separated hardware address such as
// "02:00:00:00:00:01" into a MAC, rejecting anything that isn't exactly
// 6 bytes long (IPoIB/FireWire's longer forms included).
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MAC{}, fmt.Errorf("ecat: parse mac %q: %w", s, err)
	}
	if len(hw) != 6 {
		return MAC{}, fmt.Errorf("ecat: mac %q is not 6 bytes", s)
	}
	var m MAC
	copy(m[:], hw)
	return m, nil
}
