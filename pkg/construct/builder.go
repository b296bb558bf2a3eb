// Package construct implements the SSA-on-the-fly graph builder of §4.5:
// the classic get_value/mature_block protocol that produces SSA directly
// from a frontend without a separate SSA pass. Grounded on
// original_source/ir/ir/ircons.c.
package construct

import (
	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

// Builder drives construction of one Graph. The frontend maps each
// source variable to an integer slot and calls SetValue/GetValue while
// moving a construction cursor across blocks.
type Builder struct {
	Graph  *ir.Graph
	cursor ir.Handle // current block
}

func NewBuilder(g *ir.Graph) *Builder {
	return &Builder{Graph: g, cursor: g.StartBlock}
}

// SetCursor moves the construction cursor to block b.
func (bld *Builder) SetCursor(b ir.Handle) { bld.cursor = b }

// Cursor returns the current construction-cursor block.
func (bld *Builder) Cursor() ir.Handle { return bld.cursor }

// SetValue records that slot now holds value v in the cursor block.
func (bld *Builder) SetValue(slot int, v ir.Handle) {
	bld.Graph.BlockInfo(bld.cursor).ValueDict[slot] = v
}

// GetValue resolves slot's current value starting from block b, per the
// four cases of §4.5.
func (bld *Builder) GetValue(b ir.Handle, slot int, m *mode.Mode) ir.Handle {
	ba := bld.Graph.BlockInfo(b)

	if v, ok := ba.ValueDict[slot]; ok {
		return v
	}

	preds := bld.Graph.Arena.Get(b).Ins

	if ba.Matured && len(preds) == 1 {
		v := bld.GetValue(bld.blockOf(preds[0]), slot, m)
		ba.ValueDict[slot] = v
		return v
	}

	if !ba.Matured {
		phi := bld.Graph.NewNode(ir.OpPhi, m, b, nil, nil)
		ba.ValueDict[slot] = phi
		ba.DeferredPhi = append(ba.DeferredPhi, phi)
		return phi
	}

	// Matured, multiple predecessors: allocate a real Phi with one input
	// per predecessor, inserting into the dictionary before recursing to
	// tie loops, per §4.5 step 4.
	ins := make([]ir.Handle, len(preds))
	phi := bld.Graph.NewNode(ir.OpPhi, m, b, ins, nil)
	ba.ValueDict[slot] = phi
	for i, predCtrl := range preds {
		pb := bld.blockOf(predCtrl)
		v := bld.GetValue(pb, slot, m)
		bld.Graph.SetInput(phi, i, v)
	}
	return bld.tryRemoveTrivialPhi(phi, slot, b)
}

// blockOf returns the block that a control-edge handle belongs to: either
// the handle itself (if it is a Block) or the block of the node the edge
// represents flow through (Jmp/Cond-proj), walking up via the Block field.
func (bld *Builder) blockOf(ctrl ir.Handle) ir.Handle {
	n := bld.Graph.Arena.Get(ctrl)
	if n.Op == ir.OpBlock {
		return ctrl
	}
	return n.Block
}

// MatureBlock fixes b's predecessor arity, then completes every Phi on
// its deferred list by resolving each predecessor's value (§4.5).
func (bld *Builder) MatureBlock(b ir.Handle) error {
	ba := bld.Graph.BlockInfo(b)
	deferred := append([]ir.Handle(nil), ba.DeferredPhi...)
	if err := bld.Graph.MatureBlock(b); err != nil {
		return err
	}
	preds := bld.Graph.Arena.Get(b).Ins
	for _, phi := range deferred {
		phiNode := bld.Graph.Arena.Get(phi)
		slot := bld.slotForPhi(b, phi)
		ins := make([]ir.Handle, len(preds))
		phiNode.Ins = ins
		for i, predCtrl := range preds {
			pb := bld.blockOf(predCtrl)
			v := bld.GetValue(pb, slot, phiNode.Mode)
			bld.Graph.SetInput(phi, i, v)
		}
		bld.tryRemoveTrivialPhi(phi, slot, b)
	}
	return nil
}

func (bld *Builder) slotForPhi(b, phi ir.Handle) int {
	ba := bld.Graph.BlockInfo(b)
	for slot, v := range ba.ValueDict {
		if v == phi {
			return slot
		}
	}
	return -1
}

// tryRemoveTrivialPhi implements §4.5's closing step: if every
// predecessor input of phi is either phi itself or a single distinct
// value v, replace phi by v. Phis that used phi are not re-checked, so
// one that becomes trivial through this replacement stays in place.
// Returns the surviving value (phi or its replacement).
func (bld *Builder) tryRemoveTrivialPhi(phi ir.Handle, slot int, block ir.Handle) ir.Handle {
	node := bld.Graph.Arena.Get(phi)
	var same ir.Handle = ir.InvalidHandle
	trivial := true
	for _, in := range node.Ins {
		if in == phi || in == same {
			continue
		}
		if same != ir.InvalidHandle {
			trivial = false
			break
		}
		same = in
	}
	if !trivial || same == ir.InvalidHandle {
		return phi
	}

	bld.replaceUses(phi, same)
	ba := bld.Graph.BlockInfo(block)
	if ba.ValueDict[slot] == phi {
		ba.ValueDict[slot] = same
	}
	return same
}

// replaceUses rewrites every input edge pointing at old to point at
// replacement. A full implementation would walk a use-list (C8 out-edges
// when reserved); lacking that cache here, it scans the arena, which is
// correct but O(graph) per replacement — acceptable during construction
// since trivial-Phi removal is rare relative to node count.
func (bld *Builder) replaceUses(old, replacement ir.Handle) {
	for _, h := range bld.Graph.Arena.All() {
		n := bld.Graph.Arena.Get(h)
		for i, in := range n.Ins {
			if in == old {
				n.Ins[i] = replacement
			}
		}
	}
}
