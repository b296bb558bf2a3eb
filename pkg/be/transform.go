package be

import (
	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

// AddrMode describes a folded ia32-style memory operand: base + index *
// scale + offset, where base/index are IR handles (InvalidHandle if
// absent) and scale/offset are immediate. Grounded on
// original_source/ir/be/ia32/ia32_optimize.c's addressmode folding
// (IA32_AM_CAND_LEFT/RIGHT/BOTH candidate classification).
type AddrMode struct {
	Base, Index ir.Handle
	Scale       int64
	Offset      int64
}

// LEACandidate reports whether n is an Add whose shape matches
// base + index*scale + offset and can therefore be folded into a single
// LEA-style address computation instead of a chain of Add/Shl, the
// Go-graph analog of ia32_optimize.c's address-mode-candidate scan.
func LEACandidate(g *ir.Graph, n ir.Handle) (AddrMode, bool) {
	node := g.Arena.Get(n)
	if node.Op != ir.OpAdd {
		return AddrMode{}, false
	}
	lhs, rhs := node.Ins[1], node.Ins[2]

	am := AddrMode{Base: ir.InvalidHandle, Index: ir.InvalidHandle, Scale: 1}
	var rest []ir.Handle

	if c, ok := constOf(g, rhs); ok {
		am.Offset = c
		rest = []ir.Handle{lhs}
	} else if c, ok := constOf(g, lhs); ok {
		am.Offset = c
		rest = []ir.Handle{rhs}
	} else {
		rest = []ir.Handle{lhs, rhs}
	}

	var terms []ir.Handle
	for len(rest) > 0 {
		h := rest[0]
		rest = rest[1:]
		if hn := g.Arena.Get(h); hn.Op == ir.OpAdd {
			rest = append(rest, hn.Ins[1], hn.Ins[2])
			continue
		}
		terms = append(terms, h)
	}

	assignedIndex := false
	assignedBase := false
	for _, h := range terms {
		hn := g.Arena.Get(h)
		if hn.Op == ir.OpShl && !assignedIndex {
			if scale, ok := constOf(g, hn.Ins[2]); ok && scale >= 0 && scale <= 3 {
				am.Index = hn.Ins[1]
				am.Scale = int64(1) << uint(scale)
				assignedIndex = true
				continue
			}
		}
		if !assignedBase {
			am.Base = h
			assignedBase = true
		} else if !assignedIndex {
			am.Index = h
			am.Scale = 1
			assignedIndex = true
		} else {
			return AddrMode{}, false // three independent operands, not foldable
		}
	}
	if !assignedBase && !assignedIndex {
		return AddrMode{}, false
	}
	return am, true
}

func constOf(g *ir.Graph, h ir.Handle) (int64, bool) {
	n := g.Arena.Get(h)
	if n.Op != ir.OpConst {
		return 0, false
	}
	return n.Attrs.(*ir.ConstAttrs).Value.Int64(), true
}

// FoldLoadOperand reports whether load can be folded as the source
// addressing-mode operand of user (i.e. user is the load's only
// reader and both are in the same block), per ia32_optimize.c's
// single-use addressmode precondition; callers pass a use-count map
// since pkg/be has no standing out-edges cache.
func FoldLoadOperand(g *ir.Graph, load, user ir.Handle, useCount map[ir.Handle]int) bool {
	ln := g.Arena.Get(load)
	un := g.Arena.Get(user)
	return ln.Op == ir.OpLoad && ln.Block == un.Block && useCount[load] == 1
}

// EliminateRedundantConv drops a Conv whose operand is already of the
// target mode, or collapses Conv(Conv(x, m1), m2) into a single Conv
// when m1 is a strict widening of x's mode (no information lost by
// skipping the intermediate), per ia32_transform.c's Conv-elimination
// pass.
func EliminateRedundantConv(g *ir.Graph, n ir.Handle) (ir.Handle, bool) {
	node := g.Arena.Get(n)
	if node.Op != ir.OpConv {
		return ir.InvalidHandle, false
	}
	inner := node.Ins[1]
	innerNode := g.Arena.Get(inner)
	if innerNode.Mode == node.Mode {
		return inner, true
	}
	if innerNode.Op == ir.OpConv {
		innermost := innerNode.Ins[1]
		innermostMode := g.Arena.Get(innermost).Mode
		if widens(innermostMode, innerNode.Mode) && widens(innerNode.Mode, node.Mode) {
			return g.NewNode(ir.OpConv, node.Mode, node.Block, []ir.Handle{node.Ins[0], innermost}, nil), true
		}
	}
	return ir.InvalidHandle, false
}

func widens(from, to *mode.Mode) bool {
	return from.Sort == to.Sort && to.Bits > from.Bits && (to.Signed || !from.Signed)
}

// CallSlot assigns a Call argument to a register or a stack slot under a
// simple fastcall-style convention: the first argRegs arguments of GP sort
// go to registers in order, the rest (and all float/double args, which
// this convention always passes on the stack) go to the stack, per
// §4.10's "lower the calling convention" and grounded on the x87
// simulator's SimCall spilling every live FP value before a call
// boundary (the same boundary this convention must respect).
type CallSlot struct {
	Register int // -1 if on the stack
	StackOff int64
}

// FoldAddressModes scans every Load/Store in g and, where its address
// operand is an Add matching LEACandidate with no other user, records the
// folded AddrMode for the Emitter's %M token and marks the Add as
// subsumed (its own "add" instruction is no longer emitted, since the
// computation now happens inside the Load/Store's memory operand).
func FoldAddressModes(g *ir.Graph, useCount map[ir.Handle]int) (map[ir.Handle]AddrMode, map[ir.Handle]bool) {
	addrModes := make(map[ir.Handle]AddrMode)
	folded := make(map[ir.Handle]bool)
	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		if n.Op != ir.OpLoad && n.Op != ir.OpStore {
			continue
		}
		addr := n.Ins[2]
		if g.Arena.Get(addr).Op != ir.OpAdd || useCount[addr] != 1 {
			continue
		}
		am, ok := LEACandidate(g, addr)
		if !ok {
			continue
		}
		addrModes[h] = am
		folded[addr] = true
	}
	return addrModes, folded
}

// FoldLoadOperands scans every binary op for a Load operand eligible for
// FoldLoadOperand, marking the Load as subsumed so the Emitter renders
// the operand as a direct memory reference instead of materializing it
// into a register first.
func FoldLoadOperands(g *ir.Graph, useCount map[ir.Handle]int) map[ir.Handle]bool {
	folded := make(map[ir.Handle]bool)
	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		if ir.Catalog[n.Op].Format == "" || n.Op == ir.OpLoad || n.Op == ir.OpStore {
			continue
		}
		for _, in := range n.Ins {
			ln := g.Arena.Get(in)
			if ln.Op != ir.OpLoad {
				continue
			}
			if FoldLoadOperand(g, in, h, useCount) {
				folded[in] = true
			}
		}
	}
	return folded
}

func LowerCallArgs(g *ir.Graph, call ir.Handle, argRegs int, ptrSize int64) []CallSlot {
	node := g.Arena.Get(call)
	var slots []CallSlot
	reg := 0
	var stackOff int64
	for i := 2; i < len(node.Ins); i++ {
		argMode := g.Arena.Get(node.Ins[i]).Mode
		if argMode != nil && argMode.Sort == mode.SortInt && reg < argRegs {
			slots = append(slots, CallSlot{Register: reg})
			reg++
			continue
		}
		slots = append(slots, CallSlot{Register: -1, StackOff: stackOff})
		stackOff += ptrSize
	}
	return slots
}
