package mode

import "math/bits"

// OverflowPolicy selects what a Tarval arithmetic operation does when the
// mathematical result does not fit the mode (§3, §7 ArithmeticOverflow).
type OverflowPolicy int

const (
	// Wrap reduces the result modulo 2^Bits (two's complement wraparound).
	// This is the default policy, grounded on the teacher's pkg/cpu/exec.go,
	// which never traps on overflow: arithmetic always wraps and sets flags.
	Wrap OverflowPolicy = iota
	// Saturate clamps the result to the mode's Min/Max.
	Saturate
	// Bad returns a non-nil error instead of a Tarval; callers
	// (constant folder, OSR) treat this as "cannot fold".
	Bad
)

// Tarval is an opaque compile-time constant tagged with a mode (§3).
type Tarval struct {
	Mode *Mode
	Bits uint64 // raw bit pattern; interpretation depends on Mode
}

// NewInt creates an integer Tarval, truncating v to the mode's width.
func NewInt(m *Mode, v int64) Tarval {
	return Tarval{Mode: m, Bits: truncate(m, uint64(v))}
}

func truncate(m *Mode, v uint64) uint64 {
	if m.Bits <= 0 || m.Bits >= 64 {
		return v
	}
	mask := uint64(1)<<uint(m.Bits) - 1
	return v & mask
}

// Int64 returns the Tarval's value sign-extended/zero-extended per mode.
func (t Tarval) Int64() int64 {
	if t.Mode.Bits <= 0 || t.Mode.Bits >= 64 {
		return int64(t.Bits)
	}
	if t.Mode.Signed {
		shift := 64 - uint(t.Mode.Bits)
		return int64(t.Bits<<shift) >> shift
	}
	return int64(t.Bits)
}

func (t Tarval) Equal(o Tarval) bool {
	return t.Mode == o.Mode && t.Bits == o.Bits
}

func (t Tarval) IsZero() bool { return t.Bits == 0 }
func (t Tarval) IsOne() bool  { return t.Int64() == 1 }

// arithError is the sentinel carried by ArithmeticOverflowError-triggering
// operations under the Bad policy.
type arithError struct{ reason string }

func (e arithError) Error() string { return e.reason }

func applyPolicy(m *Mode, result uint64, overflowed bool, policy OverflowPolicy) (Tarval, error) {
	switch policy {
	case Wrap:
		return Tarval{Mode: m, Bits: truncate(m, result)}, nil
	case Saturate:
		if !overflowed {
			return Tarval{Mode: m, Bits: truncate(m, result)}, nil
		}
		if m.Signed {
			if int64(result) < 0 {
				return NewInt(m, m.Min()), nil
			}
			return NewInt(m, m.Max()), nil
		}
		return NewInt(m, m.Max()), nil
	case Bad:
		if overflowed {
			return Tarval{}, arithError{"tarval operation overflowed under Bad policy"}
		}
		return Tarval{Mode: m, Bits: truncate(m, result)}, nil
	default:
		return Tarval{Mode: m, Bits: truncate(m, result)}, nil
	}
}

// Add computes a+b under m's arithmetic, honoring policy (§4.3, §7).
func Add(a, b Tarval, policy OverflowPolicy) (Tarval, error) {
	m := a.Mode
	sum, carry := bits.Add64(a.Bits, b.Bits, 0)
	overflowed := carry != 0 || (m.Bits > 0 && m.Bits < 64 && sum>>uint(m.Bits) != 0)
	if m.Signed {
		overflowed = signedOverflow(a.Bits, b.Bits, sum, m.Bits, false)
	}
	return applyPolicy(m, sum, overflowed, policy)
}

// Sub computes a-b under m's arithmetic, honoring policy.
func Sub(a, b Tarval, policy OverflowPolicy) (Tarval, error) {
	m := a.Mode
	diff, borrow := bits.Sub64(a.Bits, b.Bits, 0)
	overflowed := borrow != 0
	if m.Signed {
		overflowed = signedOverflow(a.Bits, b.Bits, diff, m.Bits, true)
	}
	return applyPolicy(m, diff, overflowed, policy)
}

// Mul computes a*b under m's arithmetic, honoring policy.
func Mul(a, b Tarval, policy OverflowPolicy) (Tarval, error) {
	m := a.Mode
	hi, lo := bits.Mul64(a.Bits, b.Bits)
	overflowed := hi != 0
	if m.Bits < 64 {
		mask := ^uint64(0) << uint(m.Bits)
		overflowed = (lo & mask) != 0
	}
	if m.Signed {
		x, y := a.Int64(), b.Int64()
		p := x * y
		overflowed = (x != 0 && p/x != y) || p < m.Min() || p > m.Max()
	}
	return applyPolicy(m, lo, overflowed, policy)
}

func signedOverflow(a, b, result uint64, width int, isSub bool) bool {
	if width <= 0 || width >= 64 {
		width = 64
	}
	signBit := uint64(1) << uint(width-1)
	as := a&signBit != 0
	bs := b&signBit != 0
	rs := result&signBit != 0
	if isSub {
		bs = !bs
	}
	return as == bs && rs != as
}

// And, Or, Eor, Not are exact (never overflow).
func And(a, b Tarval) Tarval  { return Tarval{Mode: a.Mode, Bits: truncate(a.Mode, a.Bits&b.Bits)} }
func Or(a, b Tarval) Tarval   { return Tarval{Mode: a.Mode, Bits: truncate(a.Mode, a.Bits|b.Bits)} }
func Eor(a, b Tarval) Tarval  { return Tarval{Mode: a.Mode, Bits: truncate(a.Mode, a.Bits^b.Bits)} }
func Not(a Tarval) Tarval     { return Tarval{Mode: a.Mode, Bits: truncate(a.Mode, ^a.Bits)} }
func Minus(a Tarval) Tarval   { return Tarval{Mode: a.Mode, Bits: truncate(a.Mode, -a.Bits)} }

// Shl, Shr (logical), Shrs (arithmetic) shift by b's low bits.
func Shl(a, b Tarval) Tarval {
	return Tarval{Mode: a.Mode, Bits: truncate(a.Mode, a.Bits<<uint(b.Bits%64))}
}

func Shr(a, b Tarval) Tarval {
	return Tarval{Mode: a.Mode, Bits: truncate(a.Mode, a.Bits>>uint(b.Bits%64))}
}

func Shrs(a, b Tarval) Tarval {
	v := a.Int64() >> uint(b.Bits%64)
	return NewInt(a.Mode, v)
}

// Cmp relation bits, combinable (e.g. Less|Equal for "<=").
type Relation uint8

const (
	Less Relation = 1 << iota
	Equal
	Greater
	Unordered
)

// Cmp computes the relation between a and b under a's mode arithmetic.
func Cmp(a, b Tarval) Relation {
	if a.Mode.Sort == SortFloat {
		// IEEE ordering is not modeled bit-for-bit here; equality and a
		// total order over the raw pattern are sufficient for the
		// constant-folding use sites this package serves.
	}
	if a.Mode.Signed {
		av, bv := a.Int64(), b.Int64()
		switch {
		case av < bv:
			return Less
		case av > bv:
			return Greater
		default:
			return Equal
		}
	}
	switch {
	case a.Bits < b.Bits:
		return Less
	case a.Bits > b.Bits:
		return Greater
	default:
		return Equal
	}
}

// Conv converts a Tarval to mode to, following §4.3's legality rule.
// Reference↔int conversions are pure renames at the IR level.
func Conv(a Tarval, to *Mode) Tarval {
	if !ConvLegal(a.Mode, to) {
		return Tarval{Mode: to, Bits: 0}
	}
	if to.Sort == SortReference || a.Mode.Sort == SortReference {
		return Tarval{Mode: to, Bits: truncate(to, a.Bits)}
	}
	return NewInt(to, a.Int64())
}
