package analysis

import "github.com/firmgo/firmc/pkg/ir"

// Loop is one entry of the loop tree (§4.8): its header block, member
// blocks, back-edges into the header, and nesting depth.
type Loop struct {
	Header   ir.Handle
	Blocks   map[ir.Handle]bool
	BackEdge []ir.Handle // blocks with an edge back to Header
	Depth    int
	Parent   *Loop
}

// LoopTree maps every reachable block to its innermost containing loop
// (nil if the block is not in any loop).
type LoopTree struct {
	innermost map[ir.Handle]*Loop
	loops     []*Loop
}

// ComputeLoopTree builds the natural-loop nesting of §4.8: a back-edge is
// any CFG edge b -> h where dom.Dominates(h, b); the natural loop of that
// edge is h plus every block that reaches b without going through h.
// Overlapping natural loops sharing a header are merged (irreducible
// multi-entry loops are treated as one loop at the header with the
// largest body, a conservative approximation).
func ComputeLoopTree(g *ir.Graph, dom *DomTree, cfPreds func(ir.Handle) []ir.Handle) *LoopTree {
	lt := &LoopTree{innermost: make(map[ir.Handle]*Loop)}
	byHeader := make(map[ir.Handle]*Loop)

	blocks := allBlocks(g)
	for _, b := range blocks {
		if !dom.Reachable(b) {
			continue
		}
		for _, p := range cfPreds(b) {
			if !dom.Reachable(p) {
				continue
			}
			if dom.Dominates(b, p) {
				// back-edge p -> b, header b
				members := naturalLoopBody(b, p, cfPreds, dom)
				l, ok := byHeader[b]
				if !ok {
					l = &Loop{Header: b, Blocks: members}
					byHeader[b] = l
					lt.loops = append(lt.loops, l)
				} else {
					for m := range members {
						l.Blocks[m] = true
					}
				}
				l.BackEdge = append(l.BackEdge, p)
			}
		}
	}

	// Nest loops: a loop A is nested inside B if A's header is in B's body
	// and A != B; pick the smallest enclosing loop as parent.
	for _, l := range lt.loops {
		var parent *Loop
		for _, other := range lt.loops {
			if other == l {
				continue
			}
			if other.Blocks[l.Header] && (parent == nil || len(other.Blocks) < len(parent.Blocks)) {
				parent = other
			}
		}
		l.Parent = parent
	}
	for _, l := range lt.loops {
		d := 1
		for p := l.Parent; p != nil; p = p.Parent {
			d++
		}
		l.Depth = d
	}

	for _, b := range blocks {
		var best *Loop
		for _, l := range lt.loops {
			if l.Blocks[b] && (best == nil || l.Depth > best.Depth) {
				best = l
			}
		}
		lt.innermost[b] = best
	}
	return lt
}

// naturalLoopBody walks backward from tail (the back-edge source) through
// predecessors, stopping at header, collecting every block reached.
func naturalLoopBody(header, tail ir.Handle, cfPreds func(ir.Handle) []ir.Handle, dom *DomTree) map[ir.Handle]bool {
	body := map[ir.Handle]bool{header: true, tail: true}
	stack := []ir.Handle{tail}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range cfPreds(b) {
			if body[p] {
				continue
			}
			body[p] = true
			stack = append(stack, p)
		}
	}
	return body
}

func allBlocks(g *ir.Graph) []ir.Handle {
	var blocks []ir.Handle
	for _, h := range g.Arena.All() {
		if g.Arena.Get(h).Op == ir.OpBlock {
			blocks = append(blocks, h)
		}
	}
	return blocks
}

// Depth returns the loop nesting depth of a block (0 if not in any loop),
// the signature pkg/opt.LatePlacement's loopDepth parameter expects.
func (lt *LoopTree) Depth(b ir.Handle) int {
	if l := lt.innermost[b]; l != nil {
		return l.Depth
	}
	return 0
}

// LoopOf returns the innermost loop containing b, or nil.
func (lt *LoopTree) LoopOf(b ir.Handle) *Loop {
	return lt.innermost[b]
}

// IsRegionConstant reports whether value's defining block strictly
// dominates header, i.e. value is invariant with respect to any loop headed at
// header — the isRegionConstant predicate pkg/opt's OSR pass needs.
func IsRegionConstant(g *ir.Graph, dom *DomTree, value, header ir.Handle) bool {
	n := g.Arena.Get(value)
	if n.Op == ir.OpConst || n.Op == ir.OpSymConst {
		return true
	}
	if n.Block == ir.InvalidHandle {
		return false
	}
	return dom.Dominates(n.Block, header) && n.Block != header
}
