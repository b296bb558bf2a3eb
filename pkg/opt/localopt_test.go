package opt

import (
	"testing"

	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

func newOptimizer(g *ir.Graph) *Optimizer {
	return NewOptimizer(g, NewValueTable(g), NewLog())
}

func TestComputedValueFoldsAddOfConstants(t *testing.T) {
	g := ir.NewGraph()
	o := newOptimizer(g)
	a := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 3)})
	b := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 4)})
	add := g.NewNode(ir.OpAdd, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, a, b}, nil)

	v, ok := o.ComputedValue(add)
	if !ok {
		t.Fatal("ComputedValue should fold Add of two Consts")
	}
	if v.Int64() != 7 {
		t.Errorf("folded value = %d, want 7", v.Int64())
	}
}

func TestComputedValueRejectsNonConstantOperand(t *testing.T) {
	g := ir.NewGraph()
	o := newOptimizer(g)
	a := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 3)})
	phi := g.NewNode(ir.OpPhi, mode.Is, g.StartBlock, nil, nil)
	add := g.NewNode(ir.OpAdd, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, a, phi}, nil)

	if _, ok := o.ComputedValue(add); ok {
		t.Error("ComputedValue should not fold an Add with a non-constant operand")
	}
}

func TestEquivalentNodeAddIdentity(t *testing.T) {
	g := ir.NewGraph()
	o := newOptimizer(g)
	x := g.NewNode(ir.OpPhi, mode.Is, g.StartBlock, nil, nil)
	zero := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 0)})
	add := g.NewNode(ir.OpAdd, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, x, zero}, nil)

	if got := o.EquivalentNode(add); got != x {
		t.Errorf("EquivalentNode(x+0) = %d, want %d (x itself)", got, x)
	}
}

func TestEquivalentNodeSubSelfIsZero(t *testing.T) {
	g := ir.NewGraph()
	o := newOptimizer(g)
	x := g.NewNode(ir.OpPhi, mode.Is, g.StartBlock, nil, nil)
	sub := g.NewNode(ir.OpSub, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, x, x}, nil)

	got := o.EquivalentNode(sub)
	n := g.Arena.Get(got)
	if n.Op != ir.OpConst || n.Attrs.(*ir.ConstAttrs).Value.Int64() != 0 {
		t.Errorf("EquivalentNode(x-x) should yield Const 0, got %s", n.Op)
	}
}

func TestEquivalentNodePhiTrivialCollapse(t *testing.T) {
	g := ir.NewGraph()
	o := newOptimizer(g)
	v := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 9)})
	phi := g.NewNode(ir.OpPhi, mode.Is, g.StartBlock, nil, nil)
	g.Arena.Get(phi).Ins = []ir.Handle{v, phi} // self-loop plus v: trivial

	if got := o.EquivalentNode(phi); got != v {
		t.Errorf("EquivalentNode(trivial phi) = %d, want %d", got, v)
	}
}

func TestTransformNodeCanonicalizesCommutativeConstToRight(t *testing.T) {
	g := ir.NewGraph()
	o := newOptimizer(g)
	x := g.NewNode(ir.OpPhi, mode.Is, g.StartBlock, nil, nil)
	c := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 5)})
	add := g.NewNode(ir.OpAdd, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, c, x}, nil)

	o.TransformNode(add)
	n := g.Arena.Get(add)
	if n.Ins[1] != x || n.Ins[2] != c {
		t.Errorf("TransformNode should move the constant to the right operand, got Ins=%v", n.Ins)
	}
}

func TestTransformNodeMulByPowerOfTwoBecomesShl(t *testing.T) {
	g := ir.NewGraph()
	o := newOptimizer(g)
	x := g.NewNode(ir.OpPhi, mode.Is, g.StartBlock, nil, nil)
	eight := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 8)})
	mul := g.NewNode(ir.OpMul, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, x, eight}, nil)

	got := o.TransformNode(mul)
	n := g.Arena.Get(got)
	if n.Op != ir.OpShl {
		t.Fatalf("TransformNode(x*8) should produce a Shl, got %s", n.Op)
	}
	amt := g.Arena.Get(n.Ins[2])
	if amt.Attrs.(*ir.ConstAttrs).Value.Int64() != 3 {
		t.Errorf("shift amount = %d, want 3 (log2(8))", amt.Attrs.(*ir.ConstAttrs).Value.Int64())
	}
}

func TestSimplifyFoldsAndDeduplicates(t *testing.T) {
	g := ir.NewGraph()
	o := newOptimizer(g)
	a := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 2)})
	b := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 3)})
	add1 := g.NewNode(ir.OpAdd, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, a, b}, nil)
	add2 := g.NewNode(ir.OpAdd, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, a, b}, nil)

	s1 := o.Simplify(add1)
	s2 := o.Simplify(add2)
	if s1 != s2 {
		t.Errorf("Simplify should fold both Adds to the same canonical Const, got %d and %d", s1, s2)
	}
	n := g.Arena.Get(s1)
	if n.Op != ir.OpConst || n.Attrs.(*ir.ConstAttrs).Value.Int64() != 5 {
		t.Errorf("Simplify(2+3) = %s, want Const 5", n.Op)
	}
	if o.Log.Len() == 0 {
		t.Error("Simplify should have recorded at least one OptEvent")
	}
}
