// Package analysis implements the on-demand analyses of §4.8: dominator
// tree, loop tree, liveness, node heights, and the call-graph analysis
// (CGANA).
package analysis

import "github.com/firmgo/firmc/pkg/ir"

// DomTree is the dominator-tree analysis result (§4.8): idom, dom_depth,
// and pre_num per Block. Unreachable blocks get IDom = InvalidHandle and
// Depth = -1.
type DomTree struct {
	graph *ir.Graph
	idom  map[ir.Handle]ir.Handle
	depth map[ir.Handle]int
	preNum map[ir.Handle]int
}

// ComputeDominators builds the dominator tree via the standard iterative
// reverse-postorder fixed-point algorithm (Cooper/Harvey/Kennedy), which
// converges to the same tree Lengauer-Tarjan computes but with simpler
// bookkeeping; cfPreds supplies a block's control-flow predecessor
// blocks.
func ComputeDominators(g *ir.Graph, cfPreds func(ir.Handle) []ir.Handle) *DomTree {
	order, index := reversePostorder(g, g.StartBlock, cfPreds)

	dt := &DomTree{graph: g, idom: make(map[ir.Handle]ir.Handle), depth: make(map[ir.Handle]int), preNum: make(map[ir.Handle]int)}
	for i, b := range order {
		dt.preNum[b] = i
	}
	dt.idom[g.StartBlock] = g.StartBlock

	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == g.StartBlock {
				continue
			}
			var newIdom ir.Handle = ir.InvalidHandle
			for _, p := range cfPreds(b) {
				if _, ok := dt.idom[p]; !ok {
					continue
				}
				if newIdom == ir.InvalidHandle {
					newIdom = p
					continue
				}
				newIdom = intersect(dt, index, newIdom, p)
			}
			if newIdom != ir.InvalidHandle && dt.idom[b] != newIdom {
				dt.idom[b] = newIdom
				changed = true
			}
		}
	}

	for _, b := range order {
		dt.depth[b] = depthOf(dt, b, g.StartBlock)
	}
	return dt
}

func depthOf(dt *DomTree, b, start ir.Handle) int {
	d := 0
	cur := b
	for cur != start {
		p, ok := dt.idom[cur]
		if !ok || p == cur {
			break
		}
		cur = p
		d++
	}
	return d
}

func intersect(dt *DomTree, index map[ir.Handle]int, a, b ir.Handle) ir.Handle {
	for a != b {
		for index[a] > index[b] {
			a = dt.idom[a]
		}
		for index[b] > index[a] {
			b = dt.idom[b]
		}
	}
	return a
}

func reversePostorder(g *ir.Graph, start ir.Handle, preds func(ir.Handle) []ir.Handle) ([]ir.Handle, map[ir.Handle]int) {
	visited := make(map[ir.Handle]bool)
	var post []ir.Handle

	var succsOf func(ir.Handle) []ir.Handle
	succCache := buildSuccessors(g, start, preds)
	succsOf = func(b ir.Handle) []ir.Handle { return succCache[b] }

	var dfs func(ir.Handle)
	dfs = func(b ir.Handle) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range succsOf(b) {
			dfs(s)
		}
		post = append(post, b)
	}
	dfs(start)

	order := make([]ir.Handle, len(post))
	for i, b := range post {
		order[len(post)-1-i] = b
	}
	index := make(map[ir.Handle]int, len(order))
	for i, b := range order {
		index[b] = i
	}
	return order, index
}

// buildSuccessors inverts the predecessor function over every block in
// the graph, since the dominator walk needs forward edges; unreachable
// blocks simply end up with no predecessors recorded against them.
func buildSuccessors(g *ir.Graph, start ir.Handle, preds func(ir.Handle) []ir.Handle) map[ir.Handle][]ir.Handle {
	succs := make(map[ir.Handle][]ir.Handle)
	allBlocks := map[ir.Handle]bool{}
	// We only have predecessor edges to work from; discover every block in
	// the arena directly, then invert pred->succ.
	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		if n.Op == ir.OpBlock {
			allBlocks[h] = true
		}
	}
	for b := range allBlocks {
		for _, p := range preds(b) {
			succs[p] = append(succs[p], b)
		}
	}
	return succs
}

// Dominates reports whether block strictly-or-reflexively dominates other.
func (dt *DomTree) Dominates(block, other ir.Handle) bool {
	cur := other
	for {
		if cur == block {
			return true
		}
		p, ok := dt.idom[cur]
		if !ok || p == cur {
			return cur == block
		}
		cur = p
	}
}

func (dt *DomTree) IDom(b ir.Handle) ir.Handle {
	if p, ok := dt.idom[b]; ok {
		return p
	}
	return ir.InvalidHandle
}

func (dt *DomTree) Depth(b ir.Handle) int {
	if d, ok := dt.depth[b]; ok {
		return d
	}
	return -1
}

// Reachable reports whether b has a computed idom (i.e. is reachable from
// Start).
func (dt *DomTree) Reachable(b ir.Handle) bool {
	_, ok := dt.idom[b]
	return ok
}
