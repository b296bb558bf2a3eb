package analysis

import (
	"testing"

	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

func TestComputeLivenessCrossBlock(t *testing.T) {
	g := ir.NewGraph()
	entry := g.StartBlock
	next := g.NewBlock()
	g.AddPred(next, entry)
	g.MatureBlock(next)

	v := g.NewNode(ir.OpConst, mode.Is, entry, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 7)})
	use := g.NewNode(ir.OpAdd, mode.Is, next, []ir.Handle{g.InitialMem, v, v}, nil)
	_ = use

	preds := map[ir.Handle][]ir.Handle{next: {entry}}
	succs := map[ir.Handle][]ir.Handle{entry: {next}}
	cfPreds := func(b ir.Handle) []ir.Handle { return preds[b] }
	cfSuccs := func(b ir.Handle) []ir.Handle { return succs[b] }

	lv := ComputeLiveness(g, cfPreds, cfSuccs)

	if !lv.LiveOut[entry][v] {
		t.Error("v should be live-out of entry (used in next)")
	}
	if !lv.LiveIn[next][v] {
		t.Error("v should be live-in to next")
	}
}
