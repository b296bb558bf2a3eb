package opt

import "github.com/firmgo/firmc/pkg/ir"

// Dominance is the minimal interface placement needs from the dominator
// analysis (C8), kept as an interface here to avoid pkg/opt depending on
// pkg/analysis (which in turn may depend on pkg/opt's Log for recording
// passes); implemented by *analysis.DomTree.
type Dominance interface {
	Dominates(block, other ir.Handle) bool
	IDom(block ir.Handle) ir.Handle
	Depth(block ir.Handle) int
}

// EarlyPlacement assigns each floating (non-pinned) node to the deepest
// dominated block such that all its data inputs dominate it, ensuring
// legality (§4.9 "Code placement", pass 1).
func EarlyPlacement(g *ir.Graph, dom Dominance) {
	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		if ir.Catalog[n.Op].Pinned {
			continue
		}
		best := g.StartBlock
		for _, in := range n.Ins {
			inBlock := g.Arena.Get(in).Block
			if inBlock == ir.InvalidHandle {
				continue
			}
			if dom.Depth(inBlock) > dom.Depth(best) {
				best = inBlock
			}
		}
		n.Block = best
	}
}

// LatePlacement walks upward from every user's dominating block until
// leaving loops, picking the shallowest legal placement that minimizes
// loop depth (§4.9, pass 2). loopDepth reports a block's loop nesting
// depth; for a Phi, the effective use of an input is the corresponding
// predecessor block, modeled here by passing useBlock explicitly per use
// via the users map.
func LatePlacement(g *ir.Graph, dom Dominance, loopDepth func(ir.Handle) int, users map[ir.Handle][]useSite) {
	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		if ir.Catalog[n.Op].Pinned {
			continue
		}
		sites := users[h]
		if len(sites) == 0 {
			continue
		}
		lca := sites[0].block
		for _, s := range sites[1:] {
			lca = commonDominator(dom, lca, s.block)
		}

		best := lca
		cur := lca
		for cur != g.StartBlock && cur != n.Block {
			p := dom.IDom(cur)
			if p == ir.InvalidHandle {
				break
			}
			if loopDepth(p) <= loopDepth(best) {
				best = p
			}
			cur = p
		}
		n.Block = best
	}
}

// useSite names one use of a node: the user node and the effective block
// of that use (the predecessor block, for a Phi operand).
type useSite struct {
	user  ir.Handle
	block ir.Handle
}

func commonDominator(dom Dominance, a, b ir.Handle) ir.Handle {
	ad, bd := dom.Depth(a), dom.Depth(b)
	for ad > bd {
		a = dom.IDom(a)
		ad--
	}
	for bd > ad {
		b = dom.IDom(b)
		bd--
	}
	for a != b {
		a = dom.IDom(a)
		b = dom.IDom(b)
	}
	return a
}
