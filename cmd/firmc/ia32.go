package main

import (
	"github.com/firmgo/firmc/pkg/be"
	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/opt"
)

// ia32ArgRegs names the registers LowerCallArgs's first slots assign to,
// fastcall-style, per §4.10's calling-convention lowering.
var ia32ArgRegs = []string{"ecx", "edx"}

// wireIA32Transforms drives C10's address-mode folding, memory-operand
// folding, Conv elimination, and call-argument lowering over g and
// installs the results into emitter, so compile()'s end-to-end path
// actually exercises pkg/be/transform.go instead of leaving it unit-
// tested only. Grounded on original_source/ir/be/ia32/ia32_transform.c
// running these passes just before emission.
func wireIA32Transforms(g *ir.Graph, emitter *be.Emitter, log *opt.Log) {
	eliminateRedundantConvs(g, log)

	useCount := computeUseCount(g)
	addrModes, foldedAdds := be.FoldAddressModes(g, useCount)
	for h := range addrModes {
		log.Record(opt.KindAddressFold, h, ir.InvalidHandle)
	}
	emitter.SetAddressFolding(addrModes, foldedAdds)

	foldedLoads := be.FoldLoadOperands(g, useCount)
	for h := range foldedLoads {
		log.Record(opt.KindAddressFold, h, ir.InvalidHandle)
	}
	emitter.SetLoadFolding(foldedLoads)

	callSlots := make(map[ir.Handle][]be.CallSlot)
	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		if n.Op != ir.OpCall {
			continue
		}
		slots := be.LowerCallArgs(g, h, len(ia32ArgRegs), 4)
		callSlots[h] = slots
		log.Record(opt.KindCallLowering, h, ir.InvalidHandle)
	}
	emitter.SetCallLowering(callSlots, ia32ArgRegs)
}

// eliminateRedundantConvs repeatedly applies EliminateRedundantConv to a
// fixpoint, splicing each match's replacement into every user of the
// original Conv.
func eliminateRedundantConvs(g *ir.Graph, log *opt.Log) {
	for {
		changed := false
		uses := computeUseCount(g)
		for _, h := range g.Arena.All() {
			n := g.Arena.Get(h)
			if n.Op != ir.OpConv || uses[h] == 0 {
				continue
			}
			repl, ok := be.EliminateRedundantConv(g, h)
			if !ok {
				continue
			}
			replaceUses(g, h, repl)
			log.Record(opt.KindCombo, h, repl)
			changed = true
		}
		if !changed {
			return
		}
	}
}

// replaceUses rewrites every node's Ins referencing old to new, the same
// whole-arena scan replaceLoadResult (pkg/opt/ldstopt.go) uses in the
// absence of an out-edges cache.
func replaceUses(g *ir.Graph, old, new ir.Handle) {
	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		for i, in := range n.Ins {
			if in == old {
				n.Ins[i] = new
			}
		}
	}
}

// computeUseCount counts, for every handle, how many node inputs
// reference it — the ad hoc use-count map pkg/be/transform.go's doc
// comments call for in place of a standing out-edges cache.
func computeUseCount(g *ir.Graph) map[ir.Handle]int {
	counts := make(map[ir.Handle]int)
	for _, h := range g.Arena.All() {
		for _, in := range g.Arena.Get(h).Ins {
			counts[in]++
		}
	}
	return counts
}
