package opt

import (
	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

// InductionVariable classifies an SCC as a counter (§3's SCC type):
// init/increment tarvals, the update opcode, and the Phi/Add|Sub skeleton
// nodes. Op is ir.OpBad when the SCC is not a counter.
type InductionVariable struct {
	Header    ir.Handle // the Phi
	Step      ir.Handle // the Add/Sub feeding the Phi's back-edge
	Init      mode.Tarval
	Increment mode.Tarval
	Op        ir.Opcode // OpAdd or OpSub, or OpBad if not a counter
}

// FindSCCs computes strongly connected components of the node graph via
// Tarjan's algorithm. The DFS itself is recursive (one Go call frame per
// node on the current path); only the SCC component stack is an explicit
// slice.
func FindSCCs(g *ir.Graph) [][]ir.Handle {
	index := make(map[ir.Handle]int)
	low := make(map[ir.Handle]int)
	onStack := make(map[ir.Handle]bool)
	var stack []ir.Handle
	var sccs [][]ir.Handle
	next := 0

	var strongconnect func(v ir.Handle)
	strongconnect = func(v ir.Handle) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		n := g.Arena.Get(v)
		for _, w := range n.Ins {
			if w == ir.InvalidHandle {
				continue
			}
			if _, seen := index[w]; !seen {
				strongconnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] {
				if index[w] < low[v] {
					low[v] = index[w]
				}
			}
		}

		if low[v] == index[v] {
			var comp []ir.Handle
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, comp)
		}
	}

	for _, h := range g.Arena.All() {
		if _, seen := index[h]; !seen {
			strongconnect(h)
		}
	}
	return sccs
}

// classifyIV determines whether scc is an induction variable: exactly one
// Phi header and Add/Sub step nodes, whose non-cyclic predecessors are
// region-constants of the header's block (§4.9).
func classifyIV(g *ir.Graph, scc []ir.Handle, isRegionConstant func(ir.Handle, ir.Handle) bool) (InductionVariable, bool) {
	if len(scc) < 2 {
		return InductionVariable{}, false
	}
	inSCC := make(map[ir.Handle]bool, len(scc))
	for _, h := range scc {
		inSCC[h] = true
	}

	var header, step ir.Handle
	for _, h := range scc {
		n := g.Arena.Get(h)
		switch n.Op {
		case ir.OpPhi:
			if header != ir.InvalidHandle {
				return InductionVariable{}, false
			}
			header = h
		case ir.OpAdd, ir.OpSub:
			if step != ir.InvalidHandle {
				return InductionVariable{}, false
			}
			step = h
		default:
			return InductionVariable{}, false
		}
	}
	if header == ir.InvalidHandle || step == ir.InvalidHandle {
		return InductionVariable{}, false
	}

	headerNode := g.Arena.Get(header)
	var initTarval mode.Tarval
	foundInit := false
	for _, in := range headerNode.Ins {
		if inSCC[in] {
			continue
		}
		cn := g.Arena.Get(in)
		if cn.Op != ir.OpConst || !isRegionConstant(in, headerNode.Block) {
			return InductionVariable{}, false
		}
		initTarval = cn.Attrs.(*ir.ConstAttrs).Value
		foundInit = true
	}
	if !foundInit {
		return InductionVariable{}, false
	}

	stepNode := g.Arena.Get(step)
	var incTarval mode.Tarval
	foundInc := false
	for i, in := range stepNode.Ins {
		if i == 0 || in == header || inSCC[in] {
			continue
		}
		cn := g.Arena.Get(in)
		if cn.Op != ir.OpConst {
			return InductionVariable{}, false
		}
		incTarval = cn.Attrs.(*ir.ConstAttrs).Value
		foundInc = true
	}
	if !foundInc {
		return InductionVariable{}, false
	}

	return InductionVariable{Header: header, Step: step, Init: initTarval, Increment: incTarval, Op: stepNode.Op}, true
}

// LFTREdge records a linear-function-test-replacement opportunity (§3,
// GLOSSARY): the old IV, its reduced twin, the op/region-constant pair
// that relates them.
type LFTREdge struct {
	Old, New ir.Handle
	Op       ir.Opcode
	RC       ir.Handle
}

// StrengthReduction implements §4.9's OSR: for every use op(iv, rc) with
// op in {Add, Sub, Mul} and rc a region-constant of iv's header, produce
// a reduced IV by copying the header's Phi/Add skeleton and propagating
// rc, caching (op, iv, rc) to avoid duplicate work, and recording an LFTR
// edge. policy governs the overflow re-check of §4.9/§9.
func StrengthReduction(g *ir.Graph, log *Log, isRegionConstant func(ir.Handle, ir.Handle) bool, policy mode.OverflowPolicy) []LFTREdge {
	var edges []LFTREdge
	cache := make(map[string]ir.Handle)

	sccs := FindSCCs(g)
	for _, scc := range sccs {
		iv, ok := classifyIV(g, scc, isRegionConstant)
		if !ok {
			continue
		}
		for _, h := range g.Arena.All() {
			n := g.Arena.Get(h)
			if n.Op != ir.OpAdd && n.Op != ir.OpSub && n.Op != ir.OpMul {
				continue
			}
			ivOperand, rc, ok := findIVUse(g, n, iv.Header, isRegionConstant)
			if !ok || ivOperand != iv.Header {
				continue
			}
			key := n.Op.String() + ":" + itoa(int(iv.Header)) + ":" + itoa(int(rc))
			if reduced, ok := cache[key]; ok {
				log.Record(KindStrengthReduction, h, reduced)
				continue
			}
			reduced, edge, ok := buildReducedIV(g, iv, n.Op, rc, policy)
			if !ok {
				continue
			}
			cache[key] = reduced
			edges = append(edges, edge)
			log.Record(KindStrengthReduction, h, reduced)
		}
	}
	return edges
}

func findIVUse(g *ir.Graph, n *ir.Node, header ir.Handle, isRegionConstant func(ir.Handle, ir.Handle) bool) (iv, rc ir.Handle, ok bool) {
	if len(n.Ins) < 3 {
		return 0, 0, false
	}
	a, b := n.Ins[1], n.Ins[2]
	if a == header && isRegionConstant(b, g.Arena.Get(header).Block) {
		return a, b, true
	}
	if b == header && isRegionConstant(a, g.Arena.Get(header).Block) {
		return b, a, true
	}
	return 0, 0, false
}

// buildReducedIV copies the header's Phi/step skeleton, propagating rc
// through each node per §4.9, and checks the LFTR overflow gate by
// re-evaluating init/increment/end constants under policy before
// committing, per original_source/ir/opt/opt_osr.c's can_be_replaced.
func buildReducedIV(g *ir.Graph, iv InductionVariable, op ir.Opcode, rc ir.Handle, policy mode.OverflowPolicy) (ir.Handle, LFTREdge, bool) {
	rcNode := g.Arena.Get(rc)
	if rcNode.Op != ir.OpConst {
		return 0, LFTREdge{}, false
	}
	rcVal := rcNode.Attrs.(*ir.ConstAttrs).Value

	newInit, err := applyOp(op, iv.Init, rcVal, policy)
	if err != nil {
		return 0, LFTREdge{}, false
	}
	// iv op rc advances by the same increment as iv for Add/Sub.
	newInc := iv.Increment
	if op == ir.OpMul {
		// increment of a multiplied IV is increment*rc, recompute exactly.
		newInc, err = mode.Mul(iv.Increment, rcVal, policy)
		if err != nil {
			return 0, LFTREdge{}, false
		}
	}

	headerNode := g.Arena.Get(iv.Header)
	newHeader := g.NewNode(ir.OpPhi, headerNode.Mode, headerNode.Block, make([]ir.Handle, len(headerNode.Ins)), nil)
	initConst := g.NewNode(ir.OpConst, headerNode.Mode, headerNode.Block, nil, &ir.ConstAttrs{Value: newInit})
	incConst := g.NewNode(ir.OpConst, headerNode.Mode, headerNode.Block, nil, &ir.ConstAttrs{Value: newInc})
	stepNode := g.Arena.Get(iv.Step)
	newStep := g.NewNode(iv.Op, stepNode.Mode, stepNode.Block, []ir.Handle{stepNode.Ins[0], newHeader, incConst}, nil)

	for i, in := range headerNode.Ins {
		if in == iv.Step {
			g.SetInput(newHeader, i, newStep)
		} else {
			g.SetInput(newHeader, i, initConst)
		}
	}

	return newHeader, LFTREdge{Old: iv.Header, New: newHeader, Op: op, RC: rc}, true
}

func applyOp(op ir.Opcode, a, b mode.Tarval, policy mode.OverflowPolicy) (mode.Tarval, error) {
	switch op {
	case ir.OpAdd:
		return mode.Add(a, b, policy)
	case ir.OpSub:
		return mode.Sub(a, b, policy)
	case ir.OpMul:
		return mode.Mul(a, b, policy)
	default:
		return mode.Tarval{}, &ir.UnsupportedPatternError{Op: op}
	}
}

// PhiCycleRemoval finds SCCs of Phi nodes whose only external input is a
// single value v, replacing the entire SCC by v (§4.9).
func PhiCycleRemoval(g *ir.Graph, log *Log) bool {
	changed := false
	sccs := FindSCCs(g)
	for _, scc := range sccs {
		if len(scc) < 2 {
			continue
		}
		inSCC := make(map[ir.Handle]bool, len(scc))
		allPhi := true
		for _, h := range scc {
			inSCC[h] = true
			if g.Arena.Get(h).Op != ir.OpPhi {
				allPhi = false
			}
		}
		if !allPhi {
			continue
		}
		var external ir.Handle = ir.InvalidHandle
		ok := true
		for _, h := range scc {
			n := g.Arena.Get(h)
			for _, in := range n.Ins {
				if inSCC[in] {
					continue
				}
				if external != ir.InvalidHandle && external != in {
					ok = false
					break
				}
				external = in
			}
			if !ok {
				break
			}
		}
		if ok && external != ir.InvalidHandle {
			for _, h := range scc {
				log.Record(KindPhiCycle, h, external)
			}
			replaceAll(g, scc, external)
			changed = true
		}
	}
	return changed
}

func replaceAll(g *ir.Graph, olds []ir.Handle, replacement ir.Handle) {
	oldSet := make(map[ir.Handle]bool, len(olds))
	for _, h := range olds {
		oldSet[h] = true
	}
	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		for i, in := range n.Ins {
			if oldSet[in] {
				n.Ins[i] = replacement
			}
		}
	}
}
