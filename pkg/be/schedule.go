package be

import (
	"sort"

	"github.com/firmgo/firmc/pkg/analysis"
	"github.com/firmgo/firmc/pkg/ir"
)

// Schedule is the final per-block instruction order of §4.13.
type Schedule struct {
	Order map[ir.Handle][]ir.Handle // block -> ordered node list
}

// ListSchedule performs a ready-list topological schedule per block:
// a node is ready once every data/memory input in the same block has
// already been scheduled; among ready nodes, the one with the greatest
// height (C8's Heights: the longest dependency chain leading to it from
// the block start) is picked first, and equal heights go to the lower
// handle.
func ListSchedule(g *ir.Graph, heights *analysis.Heights, blocks []ir.Handle) *Schedule {
	sched := &Schedule{Order: make(map[ir.Handle][]ir.Handle)}

	for _, block := range blocks {
		var members []ir.Handle
		for _, h := range g.Arena.All() {
			if g.Arena.Get(h).Block == block {
				members = append(members, h)
			}
		}

		scheduled := make(map[ir.Handle]bool)
		var order []ir.Handle
		for len(order) < len(members) {
			var ready []ir.Handle
			for _, h := range members {
				if scheduled[h] {
					continue
				}
				if isReady(g, h, block, scheduled) {
					ready = append(ready, h)
				}
			}
			if len(ready) == 0 {
				// no progress possible: break any remaining (cyclic via Phi,
				// which is pinned anyway and excluded from height ordering)
				for _, h := range members {
					if !scheduled[h] {
						ready = append(ready, h)
					}
				}
			}
			sort.Slice(ready, func(i, j int) bool {
				hi, hj := heights.Height(ready[i]), heights.Height(ready[j])
				if hi != hj {
					return hi > hj
				}
				return ready[i] < ready[j]
			})
			pick := ready[0]
			order = append(order, pick)
			scheduled[pick] = true
		}
		sched.Order[block] = order
	}
	return sched
}

func isReady(g *ir.Graph, h, block ir.Handle, scheduled map[ir.Handle]bool) bool {
	n := g.Arena.Get(h)
	for _, in := range n.Ins {
		if in == ir.InvalidHandle {
			continue
		}
		inNode := g.Arena.Get(in)
		if inNode.Block == block && !scheduled[in] {
			return false
		}
	}
	return true
}

// HasDelaySlot reports whether op's emitted instruction leaves an
// architectural delay slot that must be filled (SPARC's call/branch
// delay slot), per sparc_emitter.c's has_delay_slot.
func HasDelaySlot(op ir.Opcode) bool {
	switch op {
	case ir.OpJmp, ir.OpCond, ir.OpReturn, ir.OpCall:
		return true
	default:
		return false
	}
}

// FillDelaySlot finds, within the already-scheduled order, an
// instruction that can be moved into node's delay slot: the nearest
// earlier one whose result node does not read and that is neither a
// delay-slot op itself, fragile, nor a Phi, per sparc_emitter.c's
// pick_delay_slot_for / can_move_up_into_delayslot. If none qualifies, a
// nop must be emitted instead (signaled by returning ir.InvalidHandle).
func FillDelaySlot(g *ir.Graph, order []ir.Handle, nodeIdx int) ir.Handle {
	node := order[nodeIdx]
	for i := nodeIdx - 1; i >= 0; i-- {
		cand := order[i]
		if !isLegalDelaySlotFiller(g, cand) {
			continue
		}
		if usesResultOf(g, node, cand) {
			continue
		}
		return cand
	}
	return ir.InvalidHandle
}

func isLegalDelaySlotFiller(g *ir.Graph, h ir.Handle) bool {
	n := g.Arena.Get(h)
	if HasDelaySlot(n.Op) {
		return false
	}
	info := ir.Catalog[n.Op]
	return !info.Fragile && n.Op != ir.OpPhi
}

func usesResultOf(g *ir.Graph, user, def ir.Handle) bool {
	n := g.Arena.Get(user)
	for _, in := range n.Ins {
		if in == def {
			return true
		}
	}
	return false
}
