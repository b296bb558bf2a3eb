package analysis

import (
	"testing"

	"github.com/firmgo/firmc/pkg/ir"
)

// diamond builds Start -> {left, right} -> join, returning the four
// block handles and a cfPreds function over them.
func diamond(g *ir.Graph) (start, left, right, join ir.Handle, preds func(ir.Handle) []ir.Handle) {
	start = g.StartBlock
	left = g.NewBlock()
	right = g.NewBlock()
	join = g.NewBlock()

	g.AddPred(left, start)
	g.AddPred(right, start)
	g.AddPred(join, left)
	g.AddPred(join, right)
	g.MatureBlock(left)
	g.MatureBlock(right)
	g.MatureBlock(join)

	predMap := map[ir.Handle][]ir.Handle{
		left:  {start},
		right: {start},
		join:  {left, right},
	}
	return start, left, right, join, func(b ir.Handle) []ir.Handle { return predMap[b] }
}

func TestComputeDominatorsDiamond(t *testing.T) {
	g := ir.NewGraph()
	start, left, right, join, preds := diamond(g)

	dt := ComputeDominators(g, preds)

	if dt.IDom(left) != start {
		t.Errorf("IDom(left) = %d, want start %d", dt.IDom(left), start)
	}
	if dt.IDom(right) != start {
		t.Errorf("IDom(right) = %d, want start %d", dt.IDom(right), start)
	}
	if dt.IDom(join) != start {
		t.Errorf("IDom(join) = %d, want start %d (join point, not dominated by either arm)", dt.IDom(join), start)
	}
	if !dt.Dominates(start, join) {
		t.Error("start should dominate join")
	}
	if dt.Dominates(left, right) {
		t.Error("left should not dominate right")
	}
	if dt.Depth(start) != 0 {
		t.Errorf("Depth(start) = %d, want 0", dt.Depth(start))
	}
	if dt.Depth(join) != 1 {
		t.Errorf("Depth(join) = %d, want 1", dt.Depth(join))
	}
}

func TestDominatesReflexive(t *testing.T) {
	g := ir.NewGraph()
	_, left, _, _, preds := diamond(g)
	dt := ComputeDominators(g, preds)
	if !dt.Dominates(left, left) {
		t.Error("a block should dominate itself")
	}
}
