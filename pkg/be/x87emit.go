package be

import (
	"fmt"

	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

func isX87Mode(m *mode.Mode) bool {
	return m == mode.F || m == mode.D || m == mode.E
}

// isX87Value reports whether h's assigned register is in the FP class.
// Load and Store carry mode.T on the node itself (§3's tuple convention
// for memory ops), not the loaded/stored value's mode, so unlike
// Const/Add/Sub/Mul they can't be gated on Node.Mode directly; the
// register allocator's class assignment is the one place that decision
// has already been made for every value, float or not.
func isX87Value(n *ir.Node, self Assignment) bool {
	if isX87Mode(n.Mode) {
		return true
	}
	return self.Class == ClassFP
}

// SimulateX87Block replays a block's floating-point-mode nodes through an
// X87State in schedule order, returning the Fxch/Push text lines that
// must precede each node's own line so the FPU stack actually holds what
// the node expects, per ia32_x87.c driving the simulator node-by-node
// over a scheduled block rather than leaving X87State exercised only in
// isolation.
func SimulateX87Block(g *ir.Graph, order []ir.Handle, reg map[ir.Handle]Assignment) map[ir.Handle][]string {
	state := NewX87State()
	pre := make(map[ir.Handle][]string)
	fxch := func(pos int) string { return fmt.Sprintf("fxch %%st(%d)", pos) }

	for _, h := range order {
		n := g.Arena.Get(h)
		if n.Op == ir.OpCmp && isX87Value(g.Arena.Get(n.Ins[1]), reg[n.Ins[1]]) {
			left, right := reg[n.Ins[1]].Register, reg[n.Ins[2]].Register
			if pos := state.OnStack(left); pos > 0 {
				pre[h] = append(pre[h], fxch(pos))
			}
			state.SimFucom(left, right, 0)
			continue
		}
		if n.Op == ir.OpStore {
			if val := g.Arena.Get(n.Ins[3]); isX87Value(val, reg[n.Ins[3]]) {
				src := reg[n.Ins[3]].Register
				if pos := state.OnStack(src); pos > 0 {
					pre[h] = append(pre[h], fxch(pos))
				}
				pre[h] = append(pre[h], fmt.Sprintf("# store width: %s", StoreWidth(val.Mode)))
				state.SimStore(src, true)
			}
			continue
		}
		if !isX87Value(n, reg[h]) {
			continue
		}
		self := reg[h].Register

		switch n.Op {
		case ir.OpLoad, ir.OpConst:
			state.SimLoad(h, self)
		case ir.OpAdd, ir.OpSub, ir.OpMul:
			left, right := reg[n.Ins[1]].Register, reg[n.Ins[2]].Register
			variant := state.SelectBinopVariant(left, right, n.Op != ir.OpSub, true, true)
			if pos := state.OnStack(left); pos > 0 {
				pre[h] = append(pre[h], fxch(pos))
			}
			if state.SimBinop(h, self, left, right, variant) {
				pre[h] = append(pre[h], fxch(0))
			}
		case ir.OpCall:
			state.SimCall()
		case ir.OpReturn:
			state.SimReturn(state.Depth())
		}
	}
	return pre
}
