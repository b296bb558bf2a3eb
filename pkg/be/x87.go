package be

import (
	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

// X87State models the abstract x87 FPU stack as a bounded ring of
// register/value pairs, with st(0) as the top of stack, directly
// grounded on original_source/ir/be/ia32/ia32_x87.c's x87_state/st_entry
// shape (x87_get_entry/x87_set_st/x87_fxch/x87_push/x87_pop).
type X87State struct {
	stack []x87Entry // stack[0] is TOS
}

type x87Entry struct {
	regIdx int
	node   ir.Handle
}

const x87MaxDepth = 8

func NewX87State() *X87State {
	return &X87State{}
}

func (s *X87State) Depth() int { return len(s.stack) }

// OnStack returns the stack position of regIdx, or -1, per x87_on_stack.
func (s *X87State) OnStack(regIdx int) int {
	for i, e := range s.stack {
		if e.regIdx == regIdx {
			return i
		}
	}
	return -1
}

// Push places a new value at st(0), shifting the rest down, per
// x87_push_dbl; Push panics on overrun exactly as the original asserts,
// since a correct scheduler-produced sequence never overruns 8 slots.
func (s *X87State) Push(regIdx int, node ir.Handle) {
	if len(s.stack) >= x87MaxDepth {
		panic("be: x87 stack overrun")
	}
	s.stack = append([]x87Entry{{regIdx, node}}, s.stack...)
}

// Pop removes st(0), per x87_pop.
func (s *X87State) Pop() {
	if len(s.stack) == 0 {
		panic("be: x87 stack underrun")
	}
	s.stack = s.stack[1:]
}

// Fxch swaps st(0) with st(pos), per x87_fxch.
func (s *X87State) Fxch(pos int) {
	s.stack[0], s.stack[pos] = s.stack[pos], s.stack[0]
}

// SetTOS overwrites st(0)'s producer without moving the stack depth, per
// x87_set_tos.
func (s *X87State) SetTOS(regIdx int, node ir.Handle) {
	s.stack[0] = x87Entry{regIdx, node}
}

// Emms empties the stack, per x87_emms (used at a function's Return).
func (s *X87State) Emms() {
	s.stack = nil
}

// Clone copies the state for speculative simulation across a branch,
// the Go equivalent of the original's block-state table lookups that
// always operate on a private copy per predecessor.
func (s *X87State) Clone() *X87State {
	cp := make([]x87Entry, len(s.stack))
	copy(cp, s.stack)
	return &X87State{stack: cp}
}

// BinopVariant selects which x87 opcode form realizes a binop, per
// sim_binop's original variant table: commutative ops (fadd/fmul) only
// ever need Normal/NormalPop since operand order doesn't matter, while
// non-commutative ops (fsub/fdiv) also have Reverse/ReversePop forms so
// the right operand can sit at st(0) without an extra Fxch.
type BinopVariant int

const (
	BinopNormal BinopVariant = iota
	BinopReverse
	BinopNormalPop
	BinopReversePop
)

// SelectBinopVariant picks the cheapest variant for a binop given which
// operand (if either) is already at st(0) and which dies at this op. A
// non-commutative op whose right operand already sits at st(0) prefers
// Reverse over paying for an Fxch first.
func (s *X87State) SelectBinopVariant(leftReg, rightReg int, commutative, leftDies, rightDies bool) BinopVariant {
	reverse := !commutative && s.OnStack(rightReg) == 0 && s.OnStack(leftReg) != 0
	switch {
	case reverse && rightDies:
		return BinopReversePop
	case reverse:
		return BinopReverse
	case !reverse && leftDies:
		return BinopNormalPop
	default:
		return BinopNormal
	}
}

// SimBinop simulates a binary FP op under the variant SelectBinopVariant
// chose: the live operand is brought to st(0) via Fxch, and the result
// either replaces the dying operand in place (the Normal/Reverse-Pop
// variants) or is pushed as a fresh stack slot (fpush) when neither
// operand dies and both must remain live for a later use, per
// sim_binop's "exchange, compute, optionally pop" shape.
func (s *X87State) SimBinop(result ir.Handle, resultReg, leftReg, rightReg int, variant BinopVariant) (pushed bool) {
	leftPos := s.OnStack(leftReg)
	if leftPos > 0 {
		s.Fxch(leftPos)
	}
	switch variant {
	case BinopNormalPop, BinopReversePop:
		s.SetTOS(resultReg, result)
		if rightPos := s.OnStack(rightReg); rightPos > 0 {
			s.removeAt(rightPos)
		}
		return false
	default:
		s.Push(resultReg, result)
		return true
	}
}

func (s *X87State) removeAt(pos int) {
	s.stack = append(s.stack[:pos], s.stack[pos+1:]...)
}

// SimUnop simulates a unary FP op (fabs/fchs/fsqrt): the operand at
// st(0) is replaced in place by the result, per sim_unop.
func (s *X87State) SimUnop(result ir.Handle, resultReg int) {
	s.SetTOS(resultReg, result)
}

// SimLoad simulates an FP load from memory: pushes a fresh value, per
// sim_load.
func (s *X87State) SimLoad(result ir.Handle, resultReg int) {
	s.Push(resultReg, result)
}

// SimStore simulates an FP store to memory: the stored operand is
// brought to st(0) then, if this was its last use, popped, per
// sim_store.
func (s *X87State) SimStore(srcReg int, popAfter bool) {
	pos := s.OnStack(srcReg)
	if pos < 0 {
		return
	}
	if pos != 0 {
		s.Fxch(pos)
	}
	if popAfter {
		s.Pop()
	}
}

// SimFucom simulates a comparison: both operands are read but neither is
// popped unless the comparing variant pops (fucomp/fucompp), per
// sim_Fucom.
func (s *X87State) SimFucom(leftReg, rightReg int, pops int) {
	leftPos := s.OnStack(leftReg)
	if leftPos != 0 {
		s.Fxch(leftPos)
	}
	_ = rightReg
	for i := 0; i < pops; i++ {
		s.Pop()
	}
}

// SimCall simulates a Call: per sim_Call, the FPU stack must be entirely
// empty at a call boundary, so any live values are first spilled to
// temporaries (modeled here by simply recording which registers were
// live, leaving materialization to the caller) then the stack is
// emptied.
func (s *X87State) SimCall() []int {
	live := make([]int, len(s.stack))
	for i, e := range s.stack {
		live[i] = e.regIdx
	}
	s.Emms()
	return live
}

// SimReturn simulates a function Return carrying floatResults pending FP
// values: the x87 calling convention returns floating-point results on
// the stack itself (not in a register), so the live depth must exactly
// match what the function signature promises before the stack is
// emptied, per sim_Return.
func (s *X87State) SimReturn(floatResults int) {
	if len(s.stack) != floatResults {
		panic("be: x87 stack depth mismatch at Return")
	}
	s.Emms()
}

// SimPerm simulates an explicit Perm node: regs lists, in target order,
// the registers that must occupy stack positions 0..len(regs)-1, rotated
// into place via in-place Fxch swaps. This is distinct from Shuffle,
// which reconciles two independently-computed states at a block
// boundary; Perm realizes a permutation the register allocator already
// decided was necessary within a single block, per sim_Perm.
func (s *X87State) SimPerm(regs []int) []X87Op {
	var ops []X87Op
	for pos, reg := range regs {
		cur := s.OnStack(reg)
		if cur < 0 || cur == pos {
			continue
		}
		s.stack[cur], s.stack[pos] = s.stack[pos], s.stack[cur]
		ops = append(ops, X87Op{Kind: X87Fxch, Pos: cur})
	}
	return ops
}

// CopyKind tags how SimCopy realized a value duplication.
type CopyKind int

const (
	// CopyRename aliases the existing stack slot to the new register with
	// no code emitted, valid only when the source's last use is this copy.
	CopyRename CopyKind = iota
	// CopyPush duplicates the live value onto the stack with fld st(i).
	CopyPush
	// CopyRecreate regenerates a recognized constant (fld1/fldz) instead
	// of paying for a stack round trip.
	CopyRecreate
)

// SimCopy simulates copying srcReg's value into a new logical register
// dstReg, per sim_Copy. If srcReg is dead after this copy, renaming is
// free; if the value is the recognized constant 0.0 or 1.0, recreating
// it via fldz/fld1 is cheaper than round-tripping through the stack;
// otherwise the value is duplicated with fld st(i).
func (s *X87State) SimCopy(srcReg, dstReg int, node ir.Handle, lastUse, isConst bool, constVal float64) CopyKind {
	switch {
	case lastUse:
		if pos := s.OnStack(srcReg); pos >= 0 {
			s.stack[pos].regIdx = dstReg
		}
		return CopyRename
	case isConst && (constVal == 0.0 || constVal == 1.0):
		s.Push(dstReg, node)
		return CopyRecreate
	default:
		s.Push(dstReg, node)
		return CopyPush
	}
}

// StoreWidth selects the x87 store opcode's operand width: fstp/fst
// truncate to the memory type's width (32/64-bit), while an 80-bit
// (long double / mode.E) destination requires fstpt, the only store
// form that round-trips the full extended-precision value without
// rounding, per ia32_x87.c's distinct handling of mode_E stores.
func StoreWidth(m *mode.Mode) string {
	switch {
	case m == mode.E:
		return "fstpt"
	case m.Bits > 32:
		return "fstpl"
	default:
		return "fstps"
	}
}

// Shuffle reconciles this state with a target state expected at a
// successor block boundary, per x87_shuffle. The position permutation is
// decomposed into cycles: a cycle of length k costs exactly k-1 Fxch to
// rotate into place (a fixed point costs nothing), and every stack entry
// the target doesn't need past that costs one Pop — the "|cycle|±1"
// accounting the naive one-swap-per-position loop didn't do, since it
// could re-swap a position it had already settled.
func (s *X87State) Shuffle(target *X87State) []X87Op {
	var ops []X87Op
	cur := s.Clone()

	visited := make([]bool, len(target.stack))
	for start := range target.stack {
		if visited[start] {
			continue
		}
		pos := start
		for {
			if visited[pos] {
				break
			}
			visited[pos] = true
			want := target.stack[pos].regIdx
			curPos := cur.OnStack(want)
			if curPos < 0 || curPos == pos {
				break // repopulated by the predecessor, or already settled
			}
			cur.stack[curPos], cur.stack[pos] = cur.stack[pos], cur.stack[curPos]
			ops = append(ops, X87Op{Kind: X87Fxch, Pos: curPos})
			pos = curPos
		}
	}
	for len(cur.stack) > len(target.stack) {
		cur.Pop()
		ops = append(ops, X87Op{Kind: X87Pop})
	}
	return ops
}

// X87OpKind tags one emitted stack-shuffle micro-operation.
type X87OpKind int

const (
	X87Fxch X87OpKind = iota
	X87Pop
)

type X87Op struct {
	Kind X87OpKind
	Pos  int
}
