package wire

import "fmt"

// Discriminant describes one named variant of an EnumLayout: either a
// fixed canonical value with optional alternative values that read back
// to the same variant, or the single catch-all variant that captures any
// unmatched value.
type Discriminant struct {
	Name         string
	Canonical    uint32
	Alternatives []uint32
	CatchAll     bool
}

// EnumLayout is the declarative layout for a wire enum: an integer repr
// width plus its discriminants. Writing emits a variant's canonical
// value; reading tries canonical values, then alternatives, then the
// catch-all if present.
type EnumLayout struct {
	Name         string
	ReprBits     int // 8, 16, or 32
	Discriminants []Discriminant
}

// Validate checks that at most one discriminant is a catch-all, that the
// catch-all (if any) is the last, and that canonical/alternative values
// are unique across the whole enum.
func (e EnumLayout) Validate() error {
	if e.ReprBits != 8 && e.ReprBits != 16 && e.ReprBits != 32 {
		return fmt.Errorf("wire: enum %s has unsupported repr width %d", e.Name, e.ReprBits)
	}
	seen := map[uint32]string{}
	catchAllSeen := false
	for i, d := range e.Discriminants {
		if d.CatchAll {
			if catchAllSeen {
				return fmt.Errorf("wire: enum %s has more than one catch_all variant", e.Name)
			}
			catchAllSeen = true
			if len(d.Alternatives) > 0 {
				return fmt.Errorf("wire: enum %s catch_all variant %s must not declare alternatives", e.Name, d.Name)
			}
			if i != len(e.Discriminants)-1 {
				return fmt.Errorf("wire: enum %s catch_all variant %s must be the last discriminant", e.Name, d.Name)
			}
			continue
		}
		values := append([]uint32{d.Canonical}, d.Alternatives...)
		for _, v := range values {
			if prev, ok := seen[v]; ok {
				return fmt.Errorf("wire: enum %s value %d used by both %s and %s", e.Name, v, prev, d.Name)
			}
			seen[v] = d.Name
		}
	}
	return nil
}

// Lookup resolves a raw wire value to the name of the matching
// discriminant (canonical or alternative), or to the catch-all
// discriminant's name with matchedCatchAll set to true, or fails with
// InvalidValue if nothing matches and there is no catch-all.
func (e EnumLayout) Lookup(raw uint32) (name string, matchedCatchAll bool, err error) {
	var catchAll *Discriminant
	for i := range e.Discriminants {
		d := &e.Discriminants[i]
		if d.CatchAll {
			catchAll = d
			continue
		}
		if d.Canonical == raw {
			return d.Name, false, nil
		}
		for _, alt := range d.Alternatives {
			if alt == raw {
				return d.Name, false, nil
			}
		}
	}
	if catchAll != nil {
		return catchAll.Name, true, nil
	}
	return "", false, newErr(KindInvalidValue, fmt.Sprintf("enum %s: no variant matches %d", e.Name, raw))
}

// Canonical returns the canonical wire value for the named discriminant.
// Writing an enum always emits this value -- alternatives are never
// written.
func (e EnumLayout) Canonical(name string) (uint32, error) {
	for _, d := range e.Discriminants {
		if d.Name == name {
			return d.Canonical, nil
		}
	}
	return 0, newErr(KindInvalidValue, fmt.Sprintf("enum %s: unknown variant %s", e.Name, name))
}
