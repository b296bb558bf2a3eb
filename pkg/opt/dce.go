package opt

import "github.com/firmgo/firmc/pkg/ir"

// DeadNodeElimination performs the tri-color mark-sweep and arena copy of
// §4.9: walk from End (including keep-alives), copy the live subset into
// a fresh arena, rewire inputs via each node's link field, rebuild
// anchors and the value table. remap reassigns handles in map-iteration
// order, so indices are neither preserved across a run nor deterministic
// between two runs over the same graph; only liveness is guaranteed.
//
// Property #8 (§8): running this twice in a row produces bit-identical
// arenas modulo new allocation addresses — the second run visits exactly
// the nodes the first run kept, so it is a no-op copy.
func DeadNodeElimination(g *ir.Graph, vt *ValueTable) error {
	if err := g.Reserve(ir.ResourceLink); err != nil {
		return err
	}
	defer g.Release(ir.ResourceLink)

	reachable := markReachable(g)

	// fresh already carries its own Start/End anchors (built by
	// ir.NewGraph); seed the old anchors' link fields to point at them so
	// the generic remap below reuses rather than duplicates them.
	fresh := ir.NewGraph()
	g.Arena.Get(g.StartBlock).Link = fresh.StartBlock
	g.Arena.Get(g.EndBlock).Link = fresh.EndBlock
	g.Arena.Get(g.Start).Link = fresh.Start
	g.Arena.Get(g.End).Link = fresh.End
	g.Arena.Get(g.InitialMem).Link = fresh.InitialMem
	g.Arena.Get(g.FrameArgs).Link = fresh.FrameArgs
	g.Arena.Get(g.Bad).Link = fresh.Bad
	g.Arena.Get(g.NoMemNode).Link = fresh.NoMemNode

	for h := range reachable {
		remap(g, fresh, h, reachable)
	}
	for h := range reachable {
		old := g.Arena.Get(h)
		nn := fresh.Arena.Get(old.Link.(ir.Handle))
		nn.Block = remap(g, fresh, old.Block, reachable)
		nn.Ins = make([]ir.Handle, len(old.Ins))
		for i, in := range old.Ins {
			nn.Ins[i] = remap(g, fresh, in, reachable)
		}
	}

	*g = *fresh
	vt.graph = g
	vt.NewIdentities()
	return nil
}

// markReachable walks from End transitively, following data, control,
// and keep-alive edges, marking every reachable handle (§3 invariant 6).
func markReachable(g *ir.Graph) map[ir.Handle]bool {
	seen := make(map[ir.Handle]bool)
	var stack []ir.Handle
	stack = append(stack, g.End, g.Start, g.StartBlock, g.EndBlock, g.Bad, g.NoMemNode)

	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h == ir.InvalidHandle || seen[h] {
			continue
		}
		seen[h] = true
		n := g.Arena.Get(h)
		if n.Block != ir.InvalidHandle {
			stack = append(stack, n.Block)
		}
		stack = append(stack, n.Ins...)
	}
	return seen
}

func remap(old, fresh *ir.Graph, h ir.Handle, reachable map[ir.Handle]bool) ir.Handle {
	if h == ir.InvalidHandle || !reachable[h] {
		return ir.InvalidHandle
	}
	n := old.Arena.Get(h)
	if n.Link != nil {
		if nh, ok := n.Link.(ir.Handle); ok {
			return nh
		}
	}
	var newH ir.Handle
	if n.Op == ir.OpBlock {
		newH = fresh.NewBlock()
	} else {
		newH = fresh.NewNode(n.Op, n.Mode, ir.InvalidHandle, make([]ir.Handle, len(n.Ins)), n.Attrs)
	}
	n.Link = newH
	return newH
}
