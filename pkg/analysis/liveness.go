package analysis

import "github.com/firmgo/firmc/pkg/ir"

// Liveness is the per-block live-in/live-out value sets of §4.8, computed
// by the classic backward worklist dataflow over def/use sets. Register
// class is not modeled here — the register allocator (C11) partitions
// LiveOut/LiveIn further by mode.Sort itself, since CGANA and placement
// need liveness before any allocation-specific class assignment exists.
type Liveness struct {
	LiveIn  map[ir.Handle]map[ir.Handle]bool
	LiveOut map[ir.Handle]map[ir.Handle]bool
}

// ComputeLiveness runs the backward fixpoint over blocks in arena order,
// taking live-out from cfSuccs, until no LiveIn set changes, per §4.8.
// cfPreds is not consulted.
func ComputeLiveness(g *ir.Graph, cfPreds, cfSuccs func(ir.Handle) []ir.Handle) *Liveness {
	blocks := allBlocks(g)
	def := make(map[ir.Handle]map[ir.Handle]bool, len(blocks))
	use := make(map[ir.Handle]map[ir.Handle]bool, len(blocks))

	for _, b := range blocks {
		def[b] = make(map[ir.Handle]bool)
		use[b] = make(map[ir.Handle]bool)
	}
	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		if n.Block == ir.InvalidHandle || n.Op == ir.OpBlock {
			continue
		}
		for _, in := range n.Ins {
			if in == ir.InvalidHandle {
				continue
			}
			inNode := g.Arena.Get(in)
			if inNode.Block != n.Block && !def[n.Block][in] {
				use[n.Block][in] = true
			}
		}
		def[n.Block][h] = true
	}

	lv := &Liveness{LiveIn: make(map[ir.Handle]map[ir.Handle]bool), LiveOut: make(map[ir.Handle]map[ir.Handle]bool)}
	for _, b := range blocks {
		lv.LiveIn[b] = make(map[ir.Handle]bool)
		lv.LiveOut[b] = make(map[ir.Handle]bool)
	}

	changed := true
	for changed {
		changed = false
		for _, b := range blocks {
			out := make(map[ir.Handle]bool)
			for _, s := range cfSuccs(b) {
				for v := range lv.LiveIn[s] {
					out[v] = true
				}
			}
			in := make(map[ir.Handle]bool)
			for v := range use[b] {
				in[v] = true
			}
			for v := range out {
				if !def[b][v] {
					in[v] = true
				}
			}
			if !setEqual(in, lv.LiveIn[b]) || !setEqual(out, lv.LiveOut[b]) {
				lv.LiveIn[b] = in
				lv.LiveOut[b] = out
				changed = true
			}
		}
	}
	return lv
}

func setEqual(a, b map[ir.Handle]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// IsLiveAt reports whether v is live anywhere on entry to, or exit from,
// block b — the query the spiller and the coalescer use to decide
// interference.
func (lv *Liveness) IsLiveAt(v, b ir.Handle) bool {
	return lv.LiveIn[b][v] || lv.LiveOut[b][v]
}
