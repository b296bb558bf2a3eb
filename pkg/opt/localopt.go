package opt

import (
	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

// Optimizer runs the two local-optimizer entry points of §4.7 on freshly
// constructed or mutated nodes: ComputedValue (constant folding) and
// EquivalentNode/TransformNode (structural simplification). Rule shape is
// grounded on the teacher's pkg/search/pruner.go ShouldPrune/isDeadWrite/
// areIndependent, generalized from "redundant instruction in a sequence"
// to "redundant IR node".
type Optimizer struct {
	Graph   *ir.Graph
	Values  *ValueTable
	Log     *Log
	Policy  mode.OverflowPolicy
}

func NewOptimizer(g *ir.Graph, vt *ValueTable, log *Log) *Optimizer {
	return &Optimizer{Graph: g, Values: vt, Log: log, Policy: mode.Wrap}
}

// ComputedValue returns a constant tarval if n is a compile-time constant
// under the current mode's arithmetic, and ok=true. §4.7.
func (o *Optimizer) ComputedValue(n ir.Handle) (mode.Tarval, bool) {
	node := o.Graph.Arena.Get(n)
	constOf := func(h ir.Handle) (mode.Tarval, bool) {
		cn := o.Graph.Arena.Get(h)
		if cn.Op != ir.OpConst {
			return mode.Tarval{}, false
		}
		return cn.Attrs.(*ir.ConstAttrs).Value, true
	}
	switch node.Op {
	case ir.OpConst:
		return node.Attrs.(*ir.ConstAttrs).Value, true
	case ir.OpAdd, ir.OpSub, ir.OpMul:
		a, aok := constOf(node.Ins[1])
		b, bok := constOf(node.Ins[2])
		if !aok || !bok {
			return mode.Tarval{}, false
		}
		var v mode.Tarval
		var err error
		switch node.Op {
		case ir.OpAdd:
			v, err = mode.Add(a, b, o.Policy)
		case ir.OpSub:
			v, err = mode.Sub(a, b, o.Policy)
		case ir.OpMul:
			v, err = mode.Mul(a, b, o.Policy)
		}
		if err != nil {
			return mode.Tarval{}, false
		}
		return v, true
	case ir.OpAnd, ir.OpOr, ir.OpEor:
		a, aok := constOf(node.Ins[1])
		b, bok := constOf(node.Ins[2])
		if !aok || !bok {
			return mode.Tarval{}, false
		}
		switch node.Op {
		case ir.OpAnd:
			return mode.And(a, b), true
		case ir.OpOr:
			return mode.Or(a, b), true
		case ir.OpEor:
			return mode.Eor(a, b), true
		}
	case ir.OpMinus:
		a, aok := constOf(node.Ins[1])
		if !aok {
			return mode.Tarval{}, false
		}
		return mode.Minus(a), true
	}
	return mode.Tarval{}, false
}

// EquivalentNode returns a structurally simpler node with identical
// semantics, or n itself when no rule fires (§4.7's representative
// rules). Data inputs are read at Ins[1]/Ins[2], past the implicit
// block/memory filler at Ins[0].
func (o *Optimizer) EquivalentNode(n ir.Handle) ir.Handle {
	node := o.Graph.Arena.Get(n)
	g := o.Graph

	isConstVal := func(h ir.Handle, v int64) bool {
		cn := g.Arena.Get(h)
		if cn.Op != ir.OpConst {
			return false
		}
		return cn.Attrs.(*ir.ConstAttrs).Value.Int64() == v
	}

	switch node.Op {
	case ir.OpAdd:
		x, y := node.Ins[1], node.Ins[2]
		if isConstVal(y, 0) {
			return x
		}
		if isConstVal(x, 0) {
			return y
		}
	case ir.OpSub:
		x, y := node.Ins[1], node.Ins[2]
		if x == y {
			return g.NewNode(ir.OpConst, node.Mode, node.Block, nil, &ir.ConstAttrs{Value: mode.NewInt(node.Mode, 0)})
		}
		if isConstVal(y, 0) {
			return x
		}
	case ir.OpAnd:
		x, y := node.Ins[1], node.Ins[2]
		if x == y {
			return x
		}
	case ir.OpOr:
		x, y := node.Ins[1], node.Ins[2]
		if x == y {
			return x
		}
	case ir.OpMul:
		x, y := node.Ins[1], node.Ins[2]
		if isConstVal(y, 1) {
			return x
		}
		if isConstVal(x, 1) {
			return y
		}
		if isConstVal(y, 0) {
			return y
		}
	case ir.OpConv:
		inner := g.Arena.Get(node.Ins[1])
		if inner.Op == ir.OpConv {
			// Conv(Conv(x)) collapses when the outer narrows within the
			// inner's range (§4.7).
			if node.Mode.Bits <= inner.Mode.Bits {
				return g.NewNode(ir.OpConv, node.Mode, node.Block, []ir.Handle{node.Ins[0], inner.Ins[1]}, nil)
			}
		}
	case ir.OpCmp:
		x, y := node.Ins[1], node.Ins[2]
		if x == y {
			return g.NewNode(ir.OpConst, mode.Bb, node.Block, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Bb, 1)})
		}
	case ir.OpPhi:
		// Phi with all inputs equal (or self) collapses to that value.
		var same ir.Handle = ir.InvalidHandle
		trivial := true
		for _, in := range node.Ins {
			if in == n || in == same {
				continue
			}
			if same != ir.InvalidHandle {
				trivial = false
				break
			}
			same = in
		}
		if trivial && same != ir.InvalidHandle {
			return same
		}
	}

	return n
}

// TransformNode applies commutative normalization (constant to the
// right) and strength-reducing peephole rewrites such as Mul(x, 2^k) ->
// Shl(x, k) (§4.7).
func (o *Optimizer) TransformNode(n ir.Handle) ir.Handle {
	g := o.Graph
	node := g.Arena.Get(n)

	if ir.Catalog[node.Op].Commutative && len(node.Ins) == 3 {
		x, y := node.Ins[1], node.Ins[2]
		if g.Arena.Get(x).Op == ir.OpConst && g.Arena.Get(y).Op != ir.OpConst {
			node.Ins[1], node.Ins[2] = y, x
			o.Log.Record(KindAlgebraic, n, n)
		}
	}

	if node.Op == ir.OpMul {
		y := node.Ins[2]
		if cn := g.Arena.Get(y); cn.Op == ir.OpConst {
			if k, ok := powerOfTwo(cn.Attrs.(*ir.ConstAttrs).Value.Int64()); ok {
				shiftAmt := g.NewNode(ir.OpConst, node.Mode, node.Block, nil, &ir.ConstAttrs{Value: mode.NewInt(node.Mode, int64(k))})
				shl := g.NewNode(ir.OpShl, node.Mode, node.Block, []ir.Handle{node.Ins[0], node.Ins[1], shiftAmt}, nil)
				o.Log.Record(KindAlgebraic, n, shl)
				return shl
			}
		}
	}

	return n
}

func powerOfTwo(v int64) (int, bool) {
	if v <= 0 {
		return 0, false
	}
	k := 0
	for v > 1 {
		if v%2 != 0 {
			return 0, false
		}
		v /= 2
		k++
	}
	return k, true
}

// Simplify runs ComputedValue, then EquivalentNode/TransformNode, then
// the value table, on one node, recording each rule that fires.
// This is the per-node driver that compile()'s local-optimization loop
// calls for every node.
func (o *Optimizer) Simplify(n ir.Handle) ir.Handle {
	if v, ok := o.ComputedValue(n); ok {
		node := o.Graph.Arena.Get(n)
		if node.Op != ir.OpConst {
			c := o.Graph.NewNode(ir.OpConst, node.Mode, node.Block, nil, &ir.ConstAttrs{Value: v})
			o.Log.Record(KindConstantEval, n, c)
			n = c
		}
	}

	if eq := o.EquivalentNode(n); eq != n {
		o.Log.Record(KindAlgebraic, n, eq)
		n = eq
	}

	n = o.TransformNode(n)

	if canonical, inserted := o.Values.Lookup(n); !inserted {
		o.Log.Record(KindCSE, n, canonical)
		return canonical
	}
	return n
}
