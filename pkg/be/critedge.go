package be

import (
	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

// SplitCriticalEdges inserts an empty trampoline block on every critical
// edge — a predecessor with more than one successor feeding a successor
// with more than one predecessor — so the x87 simulator's Shuffle always
// has a block of its own to hold a successor's reconciliation code
// instead of duplicating it across every predecessor that shares the
// successor, per original_source/ir/be/ia32/ia32_x87.c's reliance on
// critical-edge splitting running before the stack simulation pass.
// blocks is a fixed snapshot taken before splitting; inserted trampolines
// are returned but not revisited.
func SplitCriticalEdges(g *ir.Graph, succs func(ir.Handle) []ir.Handle, blocks []ir.Handle) []ir.Handle {
	var inserted []ir.Handle
	for _, succ := range blocks {
		succNode := g.Arena.Get(succ)
		if len(succNode.Ins) < 2 {
			continue
		}
		for i, ctrl := range append([]ir.Handle(nil), succNode.Ins...) {
			ctrlNode := g.Arena.Get(ctrl)
			pred := ctrlNode.Block
			if len(succs(pred)) < 2 {
				continue
			}
			mid := g.NewBlock()
			midNode := g.Arena.Get(mid)
			midNode.Ins = []ir.Handle{ctrl}
			midNode.Attrs.(*ir.BlockAttrs).Matured = true
			if ctrlNode.Op == ir.OpJmp {
				ctrlNode.Ins[0] = mid
			}
			midJmp := g.NewNode(ir.OpJmp, mode.X, mid, []ir.Handle{succ}, nil)
			succNode.Ins[i] = midJmp
			inserted = append(inserted, mid)
		}
	}
	return inserted
}
