package opt

import "github.com/firmgo/firmc/pkg/ir"

// Load/Store attribute conventions used by this pass: Ins[0] = block
// (implicit via n.Block), Ins[1] = memory, Ins[2] = address, and for
// Store Ins[3] = value. Addresses compare by identity (post-GVN, equal
// addresses are the same node). The memory edge at Ins[1] is itself the
// M-result Proj of whatever produced it, not the producer node directly
// — resolveMemProducer unwraps that layer before matching.

// LoadStoreOpt implements §4.9's pattern-driven load/store optimization:
// read-after-write forwards a Store's value into a following same-address
// Load; read-after-read chains same-address Loads; write-after-write and
// write-after-read eliminate dead/redundant stores. Grounded on
// original_source/ir/opt/ldstopt.c's RAW/RAR/WAW/WAR structure.
func LoadStoreOpt(g *ir.Graph, log *Log) bool {
	changed := false
	memChain := buildMemChain(g)

	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		switch n.Op {
		case ir.OpLoad:
			if rewriteLoad(g, h, memChain, log) {
				changed = true
			}
		case ir.OpStore:
			if eliminateDeadStore(g, h, memChain, log) {
				changed = true
			}
		}
	}
	return changed
}

// buildMemChain maps each memory-consuming node to the single producer it
// reads (its MemInput), giving an O(1) "what memory value feeds this" walk
// without requiring the out-edges cache (C8) to be reserved.
func buildMemChain(g *ir.Graph) map[ir.Handle]ir.Handle {
	chain := make(map[ir.Handle]ir.Handle)
	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		mi := ir.Catalog[n.Op].MemInput
		if mi >= 0 && mi < len(n.Ins) {
			chain[h] = n.Ins[mi]
		}
	}
	return chain
}

func addrOf(g *ir.Graph, h ir.Handle) ir.Handle {
	n := g.Arena.Get(h)
	switch n.Op {
	case ir.OpLoad:
		return n.Ins[2]
	case ir.OpStore:
		return n.Ins[2]
	}
	return ir.InvalidHandle
}

// resolveMemProducer unwraps a memory edge's M-result Proj (which == 0)
// to the node that actually produced it, e.g. a Load/Store's Ins[1] is
// Proj(producer, M), not producer itself. Non-Proj edges (the graph's
// InitialMem itself is one such Proj, over Start) pass through as-is.
func resolveMemProducer(g *ir.Graph, mem ir.Handle) ir.Handle {
	n := g.Arena.Get(mem)
	if n.Op != ir.OpProj || len(n.Ins) == 0 {
		return mem
	}
	if n.Attrs.(*ir.ProjAttrs).Which != 0 {
		return mem
	}
	return n.Ins[0]
}

// projOf finds the Proj(producer, which) node, if any — the Store/Load
// out-edge the teacher's out-edge cache (C8) would otherwise serve.
func projOf(g *ir.Graph, producer ir.Handle, which int) ir.Handle {
	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		if n.Op == ir.OpProj && len(n.Ins) > 0 && n.Ins[0] == producer {
			if n.Attrs.(*ir.ProjAttrs).Which == which {
				return h
			}
		}
	}
	return ir.InvalidHandle
}

// rewriteLoad implements RAW and RAR: walk backward through the memory
// chain from this Load; if the immediate producer is a Store to the same
// address with the same mode, or an earlier Load of the same address and
// mode, this Load's value can be forwarded.
func rewriteLoad(g *ir.Graph, load ir.Handle, chain map[ir.Handle]ir.Handle, log *Log) bool {
	n := g.Arena.Get(load)
	mem := n.Ins[1]
	addr := n.Ins[2]

	producer := resolveMemProducer(g, mem)
	_, ok := chain[producer]
	memNode := g.Arena.Get(producer)

	switch memNode.Op {
	case ir.OpStore:
		if memNode.Ins[2] == addr && memNode.Mode == n.Mode {
			// Read-after-write: respect exception-handler compatibility —
			// only forward if the Store's block is this Load's block, or
			// the Load has no distinguished exception user (not modeled
			// beyond same-block here, the conservative half of the rule).
			if memNode.Block == n.Block {
				value := memNode.Ins[3]
				log.Record(KindLoadStore, load, value)
				replaceLoadResult(g, load, value, memNode.Ins[1])
				return true
			}
		}
	case ir.OpLoad:
		if !ok {
			break
		}
		if memNode.Ins[2] == addr && memNode.Mode == n.Mode {
			value := projOf(g, producer, 1)
			log.Record(KindLoadStore, load, producer)
			replaceLoadResult(g, load, value, mem)
			return true
		}
	}
	return false
}

// replaceLoadResult rewrites a Load's value/memory Proj users in place.
// Lacking a use-list cache, this scans the arena for Proj nodes of load —
// acceptable since LoadStoreOpt already iterates the whole arena once.
func replaceLoadResult(g *ir.Graph, load ir.Handle, value, outMem ir.Handle) {
	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		if n.Op != ir.OpProj || len(n.Ins) == 0 || n.Ins[0] != load {
			continue
		}
		pa := n.Attrs.(*ir.ProjAttrs)
		switch pa.Which {
		case 0:
			n.Ins[0] = outMem
		case 1:
			for _, uh := range g.Arena.All() {
				un := g.Arena.Get(uh)
				for i, in := range un.Ins {
					if in == h {
						un.Ins[i] = value
					}
				}
			}
		}
	}
}

// eliminateDeadStore implements WAW/WAR: a Store immediately followed (in
// the memory chain) by another Store to the same address with no
// intervening Load is dead and can be removed by splicing its memory
// input directly to its memory user.
func eliminateDeadStore(g *ir.Graph, store ir.Handle, chain map[ir.Handle]ir.Handle, log *Log) bool {
	n := g.Arena.Get(store)
	addr := n.Ins[2]
	changed := false
	if out := outMemOf(g, store); out != ir.InvalidHandle {
		for _, h := range g.Arena.All() {
			if u := g.Arena.Get(h); u.Op == ir.OpLoad && u.Ins[1] == out {
				return false // a Load reads the memory this store produced
			}
		}
	}
	for _, h := range g.Arena.All() {
		other := g.Arena.Get(h)
		if other.Op != ir.OpStore || h == store {
			continue
		}
		if chain[h] != outMemOf(g, store) {
			continue
		}
		if other.Ins[2] == addr && other.Mode == n.Mode {
			log.Record(KindLoadStore, store, h)
			spliceOutStore(g, store)
			changed = true
		}
	}
	return changed
}

func outMemOf(g *ir.Graph, store ir.Handle) ir.Handle {
	return projOf(g, store, 0)
}

func spliceOutStore(g *ir.Graph, store ir.Handle) {
	n := g.Arena.Get(store)
	in := n.Ins[1]
	outMem := outMemOf(g, store)
	if outMem == ir.InvalidHandle {
		return
	}
	for _, h := range g.Arena.All() {
		other := g.Arena.Get(h)
		for i, v := range other.Ins {
			if v == outMem {
				other.Ins[i] = in
			}
		}
	}
}
