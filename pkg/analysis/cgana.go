package analysis

import (
	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
	"github.com/firmgo/firmc/pkg/types"
)

// CallGraph is the result of CGANA (§4.8.2): for every Call node, the set
// of entities it may invoke, plus the "free" methods whose address
// escapes the compilation unit (entry points, externally visible
// entities, and anything reachable from a global initializer or a
// reference-mode value that flows into something other than a Call's own
// callee slot).
//
// Grounded on original_source/ir/ana/cgana.c's three phases
// (sel_methods_init, get_free_methods/free_ana_walker, callee_ana); the
// pset-based worklists are replaced by Go maps, and the irn_link MARK
// trick is replaced by a plain visited set local to each walk since §5
// reserves the Link resource per-graph, not across the whole call-graph
// sweep. Call's input layout here is [addr, mem, arg0, arg1, ...],
// matching OpcodeInfo.MemInput == 1 in the opcode catalog.
type CallGraph struct {
	Callees map[ir.Handle][]*types.Entity // Call node -> possible callees
	Free    map[*types.Entity]bool        // methods whose address is free
	Unknown map[ir.Handle]bool            // Call nodes with an unresolved callee set
}

// unknownCallee is the sentinel standing in for original_source's
// get_unknown_entity(): a Call whose address computation this analysis
// cannot fully resolve is conservatively marked Unknown rather than
// silently dropped, so later passes (inlining, CGANA-driven DCE of
// unreachable methods) never assume a closed-world call set they can't
// prove.
var unknownCallee = &types.Entity{Name: "<unknown>"}

// EntityResolver maps the opaque entity handles node.SymConstAttrs.Entity
// and node.SelAttrs.Entity carry (pkg/ir cannot import pkg/types) back to
// concrete *types.Entity values.
type EntityResolver func(ir.Handle) *types.Entity

// ComputeCallGraph runs CGANA over every graph owned by an entity in
// prog with a body. resolve turns the opaque entity handles embedded in
// SymConst/Sel attributes back into *types.Entity so overwriting
// implementations (Overwrites/OverwrittenBy) can be walked.
func ComputeCallGraph(prog *types.Program, resolve EntityResolver) *CallGraph {
	cg := &CallGraph{
		Callees: make(map[ir.Handle][]*types.Entity),
		Free:    make(map[*types.Entity]bool),
		Unknown: make(map[ir.Handle]bool),
	}

	for _, e := range prog.Entities {
		if e.Graph == nil {
			continue
		}
		if e.IsEntryPoint || e.ExternalVisibility {
			cg.Free[e] = true
		}
		markFreeMethods(e.Graph, cg, resolve)
	}

	for _, e := range prog.Entities {
		if e.Graph == nil {
			continue
		}
		analyzeCallees(e.Graph, cg, resolve)
	}
	return cg
}

// markFreeMethods walks g looking for nodes that make a method address
// observable to the outside world: a SymConst referencing a method
// reached through any non-Call use, or a Sel resolving to a method
// entity, per free_ana_walker/free_mark. Any reference-mode value
// flowing into a non-Call node's input is conservatively treated as a
// leak, matching the original's "traitor by default" arm.
func markFreeMethods(g *ir.Graph, cg *CallGraph, resolve EntityResolver) {
	seen := make(map[ir.Handle]bool)
	var mark func(ir.Handle)
	mark = func(h ir.Handle) {
		if h == ir.InvalidHandle || seen[h] {
			return
		}
		seen[h] = true
		n := g.Arena.Get(h)
		switch n.Op {
		case ir.OpSymConst:
			a := n.Attrs.(*ir.SymConstAttrs)
			if ent := resolve(a.Entity); ent != nil && ent.Graph != nil {
				cg.Free[ent] = true
			}
		case ir.OpSel:
			sa := n.Attrs.(*ir.SelAttrs)
			if ent := resolve(sa.Entity); ent != nil {
				for _, impl := range collectImpls(ent) {
					cg.Free[impl] = true
				}
			}
		case ir.OpPhi:
			for _, in := range n.Ins {
				mark(in)
			}
		case ir.OpProj:
			if len(n.Ins) > 0 {
				mark(n.Ins[0])
			}
		}
	}

	isReference := func(h ir.Handle) bool {
		n := g.Arena.Get(h)
		return h != ir.InvalidHandle && n.Mode != nil && n.Mode.Sort == mode.SortReference
	}

	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		if n.Op == ir.OpCall {
			// Ins[0] is the callee address, resolved separately by
			// analyzeCallees; every other reference-mode input can still
			// leak an address (e.g. passing a function pointer as an
			// argument).
			for i, in := range n.Ins {
				if i == 0 || !isReference(in) {
					continue
				}
				mark(in)
			}
			continue
		}
		for _, in := range n.Ins {
			if isReference(in) {
				mark(in)
			}
		}
	}
}

// collectImpls flattens ent's OverwrittenBy tree into every concrete
// implementation, the Go shape of cgana.c's collect_impls recursion.
func collectImpls(ent *types.Entity) []*types.Entity {
	var out []*types.Entity
	if ent.Graph != nil {
		out = append(out, ent)
	}
	for _, sub := range ent.OverwrittenBy {
		out = append(out, collectImpls(sub)...)
	}
	return out
}

// analyzeCallees resolves, for every Call node, the entities its address
// expression may name: a direct SymConst names exactly one; a Sel names
// every concrete implementation; a Phi/Mux merges its arms; anything
// else (arithmetic on the address, an unresolved Proj of a non-Tuple)
// is Unknown, per callee_ana_node.
func analyzeCallees(g *ir.Graph, cg *CallGraph, resolve EntityResolver) {
	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		if n.Op != ir.OpCall || len(n.Ins) < 1 {
			continue
		}
		addr := n.Ins[0]
		methods := make(map[*types.Entity]bool)
		resolveCallee(g, addr, methods, resolve, make(map[ir.Handle]bool))
		for m := range methods {
			if m == unknownCallee {
				cg.Unknown[h] = true
			}
			cg.Callees[h] = append(cg.Callees[h], m)
		}
	}
}

func resolveCallee(g *ir.Graph, h ir.Handle, methods map[*types.Entity]bool, resolve EntityResolver, visiting map[ir.Handle]bool) {
	if h == ir.InvalidHandle || visiting[h] {
		return
	}
	visiting[h] = true
	n := g.Arena.Get(h)
	switch n.Op {
	case ir.OpConst, ir.OpBad:
		methods[unknownCallee] = true
	case ir.OpSymConst:
		a := n.Attrs.(*ir.SymConstAttrs)
		if ent := resolve(a.Entity); ent != nil {
			methods[ent] = true
		} else {
			methods[unknownCallee] = true
		}
	case ir.OpSel:
		sa := n.Attrs.(*ir.SelAttrs)
		ent := resolve(sa.Entity)
		if ent == nil {
			methods[unknownCallee] = true
			break
		}
		impls := collectImpls(ent)
		if len(impls) == 0 {
			methods[unknownCallee] = true
		}
		for _, impl := range impls {
			methods[impl] = true
		}
	case ir.OpPhi, ir.OpMux:
		for _, in := range n.Ins {
			if in == h {
				continue
			}
			resolveCallee(g, in, methods, resolve, visiting)
		}
	case ir.OpProj:
		if len(n.Ins) > 0 {
			pred := g.Arena.Get(n.Ins[0])
			if pred.Op == ir.OpTuple {
				pa := n.Attrs.(*ir.ProjAttrs)
				if pa.Which < len(pred.Ins) {
					resolveCallee(g, pred.Ins[pa.Which], methods, resolve, visiting)
					break
				}
			}
			methods[unknownCallee] = true
		}
	default:
		methods[unknownCallee] = true
	}
}
