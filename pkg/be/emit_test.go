package be

import (
	"testing"

	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

func namer(a Assignment) string {
	if a.Spilled {
		return "[spill]"
	}
	return []string{"eax", "ecx", "edx", "ebx"}[a.Register]
}

func TestEmitNodeAddFormatsThreeOperands(t *testing.T) {
	g := ir.NewGraph()
	a := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 1)})
	b := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 2)})
	add := g.NewNode(ir.OpAdd, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, a, b}, nil)

	assign := map[ir.Handle]Assignment{
		add: {Value: add, Register: 0},
		a:   {Value: a, Register: 1},
		b:   {Value: b, Register: 2},
	}
	e := NewEmitter(assign, namer, nil, nil)
	got, err := e.EmitNode(g, add)
	if err != nil {
		t.Fatalf("EmitNode: %v", err)
	}
	if want := "add eax, ecx, edx"; got != want {
		t.Errorf("EmitNode(add) = %q, want %q", got, want)
	}
}

func TestEmitNodeConstFormatsImmediate(t *testing.T) {
	g := ir.NewGraph()
	c := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 42)})

	assign := map[ir.Handle]Assignment{c: {Value: c, Register: 0}}
	e := NewEmitter(assign, namer, nil, nil)
	got, err := e.EmitNode(g, c)
	if err != nil {
		t.Fatalf("EmitNode: %v", err)
	}
	if want := "mov eax, 42"; got != want {
		t.Errorf("EmitNode(const) = %q, want %q", got, want)
	}
}

func TestEmitNodeLoadReadsAddressNotMemory(t *testing.T) {
	g := ir.NewGraph()
	addr := g.NewNode(ir.OpSymConst, mode.P, g.StartBlock, nil, &ir.SymConstAttrs{Kind: ir.SymConstEntity})
	load := g.NewNode(ir.OpLoad, mode.T, g.StartBlock, []ir.Handle{g.InitialMem, g.InitialMem, addr}, nil)

	assign := map[ir.Handle]Assignment{
		load: {Value: load, Register: 0},
		addr: {Value: addr, Register: 3},
	}
	e := NewEmitter(assign, namer, nil, nil)
	got, err := e.EmitNode(g, load)
	if err != nil {
		t.Fatalf("EmitNode: %v", err)
	}
	if want := "mov eax, [ebx]"; got != want {
		t.Errorf("EmitNode(load) = %q, want %q", got, want)
	}
}

func TestEmitNodeStoreReadsValueFromThirdInput(t *testing.T) {
	g := ir.NewGraph()
	addr := g.NewNode(ir.OpSymConst, mode.P, g.StartBlock, nil, &ir.SymConstAttrs{Kind: ir.SymConstEntity})
	val := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 1)})
	store := g.NewNode(ir.OpStore, mode.T, g.StartBlock, []ir.Handle{g.InitialMem, g.InitialMem, addr, val}, nil)

	assign := map[ir.Handle]Assignment{
		addr: {Value: addr, Register: 1},
		val:  {Value: val, Register: 2},
	}
	e := NewEmitter(assign, namer, nil, nil)
	got, err := e.EmitNode(g, store)
	if err != nil {
		t.Fatalf("EmitNode: %v", err)
	}
	if want := "mov [ecx], edx"; got != want {
		t.Errorf("EmitNode(store) = %q, want %q", got, want)
	}
}

func TestEmitNodeNoFormatEmitsNothing(t *testing.T) {
	g := ir.NewGraph()
	nop := g.NewNode(ir.OpNoMem, mode.M, g.StartBlock, nil, nil)
	e := NewEmitter(nil, namer, nil, nil)
	got, err := e.EmitNode(g, nop)
	if err != nil {
		t.Fatalf("EmitNode: %v", err)
	}
	if got != "" {
		t.Errorf("EmitNode(NoMem) = %q, want empty string", got)
	}
}

func TestEmitBlockLabelsAndSkipsBlankLines(t *testing.T) {
	g := ir.NewGraph()
	a := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 1)})

	assign := map[ir.Handle]Assignment{a: {Value: a, Register: 0}}
	label := func(ir.Handle) string { return "L0" }
	e := NewEmitter(assign, namer, label, nil)

	lines, err := e.EmitBlock(g, g.StartBlock, []ir.Handle{a, g.NoMemNode})
	if err != nil {
		t.Fatalf("EmitBlock: %v", err)
	}
	if len(lines) != 2 || lines[0] != "L0:" {
		t.Fatalf("EmitBlock lines = %v, want a label followed by one instruction", lines)
	}
}
