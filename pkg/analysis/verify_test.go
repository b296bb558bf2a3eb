package analysis

import (
	"testing"

	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

func TestVerifyGraphRejectsArityMismatch(t *testing.T) {
	g := ir.NewGraph()
	// Add needs 3 inputs per the opcode catalog; give it 1.
	bad := g.NewNode(ir.OpAdd, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem}, nil)
	_ = bad

	if err := VerifyGraph(g); err == nil {
		t.Error("expected a verifier error for an under-arity Add node")
	}
}

func TestVerifyGraphAcceptsWellFormedGraph(t *testing.T) {
	g := ir.NewGraph()
	a := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 1)})
	b := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 2)})
	g.NewNode(ir.OpAdd, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, a, b}, nil)

	if err := VerifyGraph(g); err != nil {
		t.Errorf("unexpected verifier error: %v", err)
	}
}

func TestEquivalenceCheckDetectsMismatch(t *testing.T) {
	before := func(a, b mode.Tarval) (mode.Tarval, error) { return mode.Add(a, b, mode.Wrap) }
	wrong := func(a, b mode.Tarval) (mode.Tarval, error) { return mode.Sub(a, b, mode.Wrap) }

	if err := EquivalenceCheck(ir.OpAdd, mode.Is, before, wrong); err == nil {
		t.Error("expected a mismatch between Add and Sub")
	}
	if err := EquivalenceCheck(ir.OpAdd, mode.Is, before, before); err != nil {
		t.Errorf("identical functions should agree: %v", err)
	}
}
