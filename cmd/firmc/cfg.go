package main

import "github.com/firmgo/firmc/pkg/ir"

// blockPreds/blockSuccs give the analyses package the control-flow view
// it needs: a Block's Ins are its control predecessor nodes (Jmp/Proj),
// and the predecessor block is that node's own Block field.
func blockPreds(g *ir.Graph) func(ir.Handle) []ir.Handle {
	return func(b ir.Handle) []ir.Handle {
		ins := g.Arena.Get(b).Ins
		out := make([]ir.Handle, len(ins))
		for i, p := range ins {
			out[i] = g.Arena.Get(p).Block
		}
		return out
	}
}

func blockSuccs(g *ir.Graph, preds func(ir.Handle) []ir.Handle) func(ir.Handle) []ir.Handle {
	succs := make(map[ir.Handle][]ir.Handle)
	for _, h := range g.Arena.All() {
		if g.Arena.Get(h).Op != ir.OpBlock {
			continue
		}
		for _, p := range preds(h) {
			succs[p] = append(succs[p], h)
		}
	}
	return func(b ir.Handle) []ir.Handle { return succs[b] }
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
