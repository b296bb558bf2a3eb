package be

import (
	"strings"
	"testing"

	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

func TestSimulateX87BlockLoadsThenAdds(t *testing.T) {
	g := ir.NewGraph()
	c1 := g.NewNode(ir.OpConst, mode.F, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.Tarval{Mode: mode.F}})
	c2 := g.NewNode(ir.OpConst, mode.F, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.Tarval{Mode: mode.F}})
	add := g.NewNode(ir.OpAdd, mode.F, g.StartBlock, []ir.Handle{g.InitialMem, c1, c2}, nil)

	reg := map[ir.Handle]Assignment{
		c1:  {Value: c1, Register: 0, Class: ClassFP},
		c2:  {Value: c2, Register: 1, Class: ClassFP},
		add: {Value: add, Register: 2, Class: ClassFP},
	}
	order := []ir.Handle{c1, c2, add}

	// Two loads followed by a binop must not panic the stack simulator;
	// the Add may or may not need a leading Fxch depending on which
	// operand SelectBinopVariant finds already at st(0).
	SimulateX87Block(g, order, reg)
}

func TestSimulateX87BlockStoreEmitsWidthComment(t *testing.T) {
	g := ir.NewGraph()
	addr := g.NewNode(ir.OpSymConst, mode.P, g.StartBlock, nil, &ir.SymConstAttrs{Kind: ir.SymConstEntity})
	c := g.NewNode(ir.OpConst, mode.D, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.Tarval{Mode: mode.D}})
	store := g.NewNode(ir.OpStore, mode.T, g.StartBlock, []ir.Handle{g.InitialMem, g.InitialMem, addr, c}, nil)

	reg := map[ir.Handle]Assignment{
		addr:  {Value: addr, Register: 3, Class: ClassGP},
		c:     {Value: c, Register: 0, Class: ClassFP},
		store: {Value: store, Register: -1, Spilled: true},
	}
	order := []ir.Handle{c, store}

	pre := SimulateX87Block(g, order, reg)
	lines := pre[store]
	found := false
	for _, l := range lines {
		if strings.Contains(l, "fstpl") {
			found = true
		}
	}
	if !found {
		t.Errorf("Store pre-lines = %v, want a 64-bit width comment (fstpl)", lines)
	}
}

func TestSimulateX87BlockReturnEmptiesStack(t *testing.T) {
	g := ir.NewGraph()
	c := g.NewNode(ir.OpConst, mode.F, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.Tarval{Mode: mode.F}})
	ret := g.NewNode(ir.OpReturn, mode.X, g.StartBlock, []ir.Handle{g.InitialMem, g.InitialMem, c}, nil)

	reg := map[ir.Handle]Assignment{
		c: {Value: c, Register: 0, Class: ClassFP},
	}
	order := []ir.Handle{c, ret}

	// SimulateX87Block must not panic: the one live float (c) exactly
	// matches the one pending stack entry SimReturn expects.
	SimulateX87Block(g, order, reg)
}

func TestSimulateX87BlockSkipsIntegerNodes(t *testing.T) {
	g := ir.NewGraph()
	a := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 1)})
	b := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 2)})
	add := g.NewNode(ir.OpAdd, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, a, b}, nil)

	reg := map[ir.Handle]Assignment{
		a:   {Value: a, Register: 0, Class: ClassGP},
		b:   {Value: b, Register: 1, Class: ClassGP},
		add: {Value: add, Register: 2, Class: ClassGP},
	}
	order := []ir.Handle{a, b, add}

	pre := SimulateX87Block(g, order, reg)
	if len(pre) != 0 {
		t.Errorf("SimulateX87Block on pure-integer nodes produced %v, want no pre-lines", pre)
	}
}
