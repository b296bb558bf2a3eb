package analysis

import "github.com/firmgo/firmc/pkg/ir"

// Heights gives every node's longest dependency chain within its own
// block (§4.8 "Heights"), used by the scheduler (C13) to break ties
// between otherwise-ready instructions by preferring the one on the
// critical path.
type Heights struct {
	height map[ir.Handle]int
}

// ComputeHeights walks each node's data inputs that share its block,
// memoizing via a plain map since the arena has no topological guarantee
// beyond "inputs allocated no later than users" for acyclic data (Phi
// back-edges are cut at the Phi itself, per §4.8's "phi node terminates
// descent").
func ComputeHeights(g *ir.Graph) *Heights {
	h := &Heights{height: make(map[ir.Handle]int)}
	visiting := make(map[ir.Handle]bool)

	var height func(ir.Handle) int
	height = func(n ir.Handle) int {
		if v, ok := h.height[n]; ok {
			return v
		}
		if visiting[n] {
			return 0 // cycle guard, should not occur outside Phi
		}
		visiting[n] = true
		defer delete(visiting, n)

		node := g.Arena.Get(n)
		if node.Op == ir.OpPhi {
			h.height[n] = 0
			return 0
		}
		best := 0
		for i, in := range node.Ins {
			if in == ir.InvalidHandle || (i == 0 && ir.IsPure(node.Op)) {
				continue // Ins[0] of a pure op is the block/memory filler
			}
			inNode := g.Arena.Get(in)
			if inNode.Block != node.Block {
				continue
			}
			if c := height(in) + 1; c > best {
				best = c
			}
		}
		h.height[n] = best
		return best
	}

	for _, n := range g.Arena.All() {
		height(n)
	}
	return h
}

func (h *Heights) Height(n ir.Handle) int {
	return h.height[n]
}
