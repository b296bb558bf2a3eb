package opt

import (
	"testing"

	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

func TestDeadNodeEliminationDropsUnreachableNode(t *testing.T) {
	g := ir.NewGraph()
	a := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 1)})
	ret := g.NewNode(ir.OpReturn, mode.X, g.StartBlock, []ir.Handle{g.InitialMem, g.InitialMem, a}, nil)
	g.AddPred(g.EndBlock, ret)
	g.MatureBlock(g.EndBlock)

	// dead: never reachable from End/Return.
	b := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 2)})
	g.NewNode(ir.OpAdd, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, b, b}, nil)

	before := g.Arena.Len()
	vt := NewValueTable(g)
	if err := DeadNodeElimination(g, vt); err != nil {
		t.Fatalf("DeadNodeElimination: %v", err)
	}
	after := g.Arena.Len()
	if after >= before {
		t.Errorf("arena size after DCE (%d) should be smaller than before (%d)", after, before)
	}

	// the live chain must still be walkable: StartBlock/EndBlock/End and
	// the rewired Return-reachable const all resolve without panicking.
	for _, h := range []ir.Handle{g.StartBlock, g.EndBlock, g.End, g.Start} {
		_ = g.Arena.Get(h)
	}
}

func TestDeadNodeEliminationIsIdempotent(t *testing.T) {
	g := ir.NewGraph()
	a := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 1)})
	ret := g.NewNode(ir.OpReturn, mode.X, g.StartBlock, []ir.Handle{g.InitialMem, g.InitialMem, a}, nil)
	g.AddPred(g.EndBlock, ret)
	g.MatureBlock(g.EndBlock)

	vt := NewValueTable(g)
	if err := DeadNodeElimination(g, vt); err != nil {
		t.Fatalf("first DeadNodeElimination: %v", err)
	}
	firstLen := g.Arena.Len()
	if err := DeadNodeElimination(g, vt); err != nil {
		t.Fatalf("second DeadNodeElimination: %v", err)
	}
	if g.Arena.Len() != firstLen {
		t.Errorf("re-running DCE on an already-live graph changed arena size: %d -> %d", firstLen, g.Arena.Len())
	}
}
