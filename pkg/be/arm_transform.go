package be

import "github.com/firmgo/firmc/pkg/ir"

// ShifterOp describes an ARM shifter-operand folding: a second operand
// of the form x << n / x >> n folded directly into the consuming
// instruction's second operand slot instead of materializing the shift
// as a separate instruction, per
// original_source/ir/be/arm/arm_transform.c's shifter-operand handling
// (thinner than ia32's full addressing-mode folding — ARM only folds a
// single shift, never base+index+scale).
type ShifterOp struct {
	Value     ir.Handle
	Kind      ir.Opcode // OpShl, OpShr, or OpShrs
	Amount    int64     // immediate shift amount; -1 if the shift amount is itself a register (Amount ignored)
	AmountReg ir.Handle
}

// ShifterCandidate reports whether operand is a Shl/Shr/Shrs by an
// immediate or register amount suitable for folding into a shifter
// operand, matching arm_transform.c's restriction to the three ARM
// barrel-shifter modes.
func ShifterCandidate(g *ir.Graph, operand ir.Handle) (ShifterOp, bool) {
	n := g.Arena.Get(operand)
	switch n.Op {
	case ir.OpShl, ir.OpShr, ir.OpShrs:
	default:
		return ShifterOp{}, false
	}
	value := n.Ins[1]
	amountNode := g.Arena.Get(n.Ins[2])
	if amountNode.Op == ir.OpConst {
		amt := amountNode.Attrs.(*ir.ConstAttrs).Value.Int64()
		if amt < 0 || amt > 31 {
			return ShifterOp{}, false
		}
		return ShifterOp{Value: value, Kind: n.Op, Amount: amt}, true
	}
	return ShifterOp{Value: value, Kind: n.Op, Amount: -1, AmountReg: n.Ins[2]}, true
}

// FoldShifterOperand reports whether the second operand of a binary op
// (Add/Sub/And/Or/Eor/Cmp) can be folded as a shifter operand, returning
// the ShifterOp that describes it. The graph is not modified.
func FoldShifterOperand(g *ir.Graph, binOp ir.Handle) (ShifterOp, bool) {
	n := g.Arena.Get(binOp)
	switch n.Op {
	case ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr, ir.OpEor, ir.OpCmp:
	default:
		return ShifterOp{}, false
	}
	if len(n.Ins) < 3 {
		return ShifterOp{}, false
	}
	return ShifterCandidate(g, n.Ins[2])
}
