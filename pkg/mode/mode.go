// Package mode implements the numeric-category system of §4.3: interned
// modes (sort, width, sign, arithmetic) and Tarval, a compile-time
// constant tagged with its mode.
//
// The shape here — a small fixed struct carrying a value plus precomputed
// arithmetic tables — is modeled on the teacher's pkg/cpu, which pairs a
// register-state value with precomputed flag tables (Sz53Table,
// ParityTable, ...); mode generalizes "one fixed 8/16-bit CPU register
// file" into "arbitrary interned bit widths and sorts".
package mode

import "fmt"

// Sort classifies what kind of quantity a mode represents.
type Sort int

const (
	SortInt Sort = iota
	SortFloat
	SortReference
	SortMemory
	SortControl
	SortTuple
	SortInternalBoolean
)

func (s Sort) String() string {
	switch s {
	case SortInt:
		return "int"
	case SortFloat:
		return "float"
	case SortReference:
		return "reference"
	case SortMemory:
		return "memory"
	case SortControl:
		return "control"
	case SortTuple:
		return "tuple"
	case SortInternalBoolean:
		return "bool"
	default:
		return "?"
	}
}

// Arithmetic names the arithmetic law family a mode's values obey.
type Arithmetic int

const (
	ArithNone Arithmetic = iota
	ArithTwosComplement
	ArithIEEE754
)

// Mode is an interned numeric category: sort, bit width, signedness, and
// arithmetic law. Modes are created once (process-wide) via Intern and
// compared by pointer identity thereafter, per §5 "global interned mode
// tables ... created once at startup".
type Mode struct {
	Name       string
	Sort       Sort
	Bits       int
	Signed     bool
	Arithmetic Arithmetic
}

func (m *Mode) String() string { return m.Name }

// Modulo returns 2^Bits for integer modes; used by Tarval arithmetic to
// implement the wrap overflow policy.
func (m *Mode) Modulo() uint64 {
	if m.Bits >= 64 {
		return 0 // 2^64, represented as wraparound of uint64 itself
	}
	return uint64(1) << uint(m.Bits)
}

// Min and Max return the mode's identity constants for signed/unsigned
// integer modes (§3 "identity constants (null, one, min, max)").
func (m *Mode) Min() int64 {
	if !m.Signed {
		return 0
	}
	if m.Bits >= 64 {
		return -1 << 63
	}
	return -(int64(1) << uint(m.Bits-1))
}

func (m *Mode) Max() int64 {
	if m.Bits >= 64 {
		return 1<<63 - 1
	}
	if m.Signed {
		return int64(1)<<uint(m.Bits-1) - 1
	}
	return int64(uint64(1)<<uint(m.Bits) - 1)
}

var interned = map[string]*Mode{}

// Intern returns the unique *Mode for the given attributes, creating it
// on first use. Safe to call repeatedly; not reentrant across goroutines
// per §5's single-threaded model.
func Intern(name string, sort Sort, bits int, signed bool, arith Arithmetic) *Mode {
	if existing, ok := interned[name]; ok {
		return existing
	}
	m := &Mode{Name: name, Sort: sort, Bits: bits, Signed: signed, Arithmetic: arith}
	interned[name] = m
	return m
}

// Predeclared modes, interned at package init the way the teacher
// precomputes its flag tables in pkg/cpu/flags.go's init().
var (
	Bu  = Intern("Bu", SortInt, 8, false, ArithTwosComplement)
	Bs  = Intern("Bs", SortInt, 8, true, ArithTwosComplement)
	Hu  = Intern("Hu", SortInt, 16, false, ArithTwosComplement)
	Hs  = Intern("Hs", SortInt, 16, true, ArithTwosComplement)
	Iu  = Intern("Iu", SortInt, 32, false, ArithTwosComplement)
	Is  = Intern("Is", SortInt, 32, true, ArithTwosComplement)
	Lu  = Intern("Lu", SortInt, 64, false, ArithTwosComplement)
	Ls  = Intern("Ls", SortInt, 64, true, ArithTwosComplement)
	F   = Intern("F", SortFloat, 32, true, ArithIEEE754)
	D   = Intern("D", SortFloat, 64, true, ArithIEEE754)
	E   = Intern("E", SortFloat, 80, true, ArithIEEE754)
	P   = Intern("P", SortReference, 64, false, ArithTwosComplement)
	M   = Intern("M", SortMemory, 0, false, ArithNone)
	X   = Intern("X", SortControl, 0, false, ArithNone)
	T   = Intern("T", SortTuple, 0, false, ArithNone)
	Bb  = Intern("b", SortInternalBoolean, 1, false, ArithNone)
	Ann = Intern("ANY", SortInt, 0, false, ArithNone) // fallback/placeholder mode
)

// ConvLegal implements the §4.3 Conv legality rule: a conversion must
// either narrow/widen within a sort, or cross int↔float or ref↔int of the
// same width.
func ConvLegal(from, to *Mode) bool {
	if from == to {
		return true
	}
	if from.Sort == to.Sort {
		return true
	}
	switch {
	case from.Sort == SortInt && to.Sort == SortFloat:
		return true
	case from.Sort == SortFloat && to.Sort == SortInt:
		return true
	case from.Sort == SortReference && to.Sort == SortInt && from.Bits == to.Bits:
		return true
	case from.Sort == SortInt && to.Sort == SortReference && from.Bits == to.Bits:
		return true
	default:
		return false
	}
}

func (m *Mode) GoString() string {
	return fmt.Sprintf("mode.%s", m.Name)
}
