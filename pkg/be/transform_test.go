package be

import (
	"testing"

	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

func TestLEACandidateBaseIndexScale(t *testing.T) {
	g := ir.NewGraph()
	base := g.NewNode(ir.OpConst, mode.P, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.P, 0x1000)})
	index := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 3)})
	two := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 2)})
	shl := g.NewNode(ir.OpShl, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, index, two}, nil)
	offset := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 8)})

	inner := g.NewNode(ir.OpAdd, mode.P, g.StartBlock, []ir.Handle{g.InitialMem, base, shl}, nil)
	add := g.NewNode(ir.OpAdd, mode.P, g.StartBlock, []ir.Handle{g.InitialMem, inner, offset}, nil)

	am, ok := LEACandidate(g, add)
	if !ok {
		t.Fatal("LEACandidate: expected match")
	}
	if am.Offset != 8 {
		t.Errorf("Offset = %d, want 8", am.Offset)
	}
	if am.Base != base {
		t.Errorf("Base = %d, want %d", am.Base, base)
	}
	if am.Index != index || am.Scale != 4 {
		t.Errorf("Index/Scale = %d/%d, want %d/4", am.Index, am.Scale, index)
	}
}

func TestLEACandidateRejectsNonAdd(t *testing.T) {
	g := ir.NewGraph()
	c := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 1)})
	if _, ok := LEACandidate(g, c); ok {
		t.Error("LEACandidate matched a non-Add node")
	}
}

func TestFoldLoadOperandRequiresSingleUseSameBlock(t *testing.T) {
	g := ir.NewGraph()
	addr := g.NewNode(ir.OpSymConst, mode.P, g.StartBlock, nil, &ir.SymConstAttrs{Kind: ir.SymConstEntity})
	load := g.NewNode(ir.OpLoad, mode.T, g.StartBlock, []ir.Handle{g.InitialMem, g.InitialMem, addr}, nil)
	user := g.NewNode(ir.OpAdd, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, load, load}, nil)

	if !FoldLoadOperand(g, load, user, map[ir.Handle]int{load: 1}) {
		t.Error("FoldLoadOperand: expected fold with single use")
	}
	if FoldLoadOperand(g, load, user, map[ir.Handle]int{load: 2}) {
		t.Error("FoldLoadOperand: should reject multi-use load")
	}
}

func TestEliminateRedundantConvSameMode(t *testing.T) {
	g := ir.NewGraph()
	c := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 1)})
	conv := g.NewNode(ir.OpConv, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, c}, nil)

	replacement, ok := EliminateRedundantConv(g, conv)
	if !ok {
		t.Fatal("EliminateRedundantConv: expected elision of same-mode Conv")
	}
	if replacement != c {
		t.Errorf("replacement = %d, want %d", replacement, c)
	}
}

func TestEliminateRedundantConvCollapsesWidening(t *testing.T) {
	g := ir.NewGraph()
	c := g.NewNode(ir.OpConst, mode.Bu, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Bu, 1)})
	inner := g.NewNode(ir.OpConv, mode.Hu, g.StartBlock, []ir.Handle{g.InitialMem, c}, nil)
	outer := g.NewNode(ir.OpConv, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, inner}, nil)

	replacement, ok := EliminateRedundantConv(g, outer)
	if !ok {
		t.Fatal("EliminateRedundantConv: expected collapse of widening Conv chain")
	}
	n := g.Arena.Get(replacement)
	if n.Op != ir.OpConv || n.Ins[1] != c {
		t.Errorf("collapsed Conv does not read the innermost operand directly")
	}
}

func TestLowerCallArgsSplitsRegsAndStack(t *testing.T) {
	g := ir.NewGraph()
	addr := g.NewNode(ir.OpSymConst, mode.P, g.StartBlock, nil, &ir.SymConstAttrs{Kind: ir.SymConstEntity})
	a0 := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 1)})
	a1 := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 2)})
	a2 := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 3)})
	call := g.NewNode(ir.OpCall, mode.T, g.StartBlock, []ir.Handle{addr, g.InitialMem, a0, a1, a2}, &ir.CallAttrs{})

	slots := LowerCallArgs(g, call, 2, 4)
	if len(slots) != 3 {
		t.Fatalf("len(slots) = %d, want 3", len(slots))
	}
	if slots[0].Register != 0 || slots[1].Register != 1 {
		t.Errorf("first two args should be in registers 0,1, got %+v %+v", slots[0], slots[1])
	}
	if slots[2].Register != -1 || slots[2].StackOff != 0 {
		t.Errorf("third arg should spill to the stack at offset 0, got %+v", slots[2])
	}
}

func TestFoldAddressModesFoldsSingleUseAdd(t *testing.T) {
	g := ir.NewGraph()
	base := g.NewNode(ir.OpConst, mode.P, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.P, 0x1000)})
	offset := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 4)})
	addr := g.NewNode(ir.OpAdd, mode.P, g.StartBlock, []ir.Handle{g.InitialMem, base, offset}, nil)
	load := g.NewNode(ir.OpLoad, mode.T, g.StartBlock, []ir.Handle{g.InitialMem, g.InitialMem, addr}, nil)

	useCount := map[ir.Handle]int{addr: 1}
	addrModes, folded := FoldAddressModes(g, useCount)

	am, ok := addrModes[load]
	if !ok {
		t.Fatal("FoldAddressModes: expected an AddrMode recorded for the Load")
	}
	if am.Base != base || am.Offset != 4 {
		t.Errorf("AddrMode = %+v, want Base=%d Offset=4", am, base)
	}
	if !folded[addr] {
		t.Error("FoldAddressModes: expected the Add to be marked folded/subsumed")
	}
}

func TestFoldAddressModesSkipsMultiUseAdd(t *testing.T) {
	g := ir.NewGraph()
	base := g.NewNode(ir.OpConst, mode.P, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.P, 0x1000)})
	offset := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 4)})
	addr := g.NewNode(ir.OpAdd, mode.P, g.StartBlock, []ir.Handle{g.InitialMem, base, offset}, nil)
	load := g.NewNode(ir.OpLoad, mode.T, g.StartBlock, []ir.Handle{g.InitialMem, g.InitialMem, addr}, nil)

	useCount := map[ir.Handle]int{addr: 2} // addr also used elsewhere
	addrModes, folded := FoldAddressModes(g, useCount)

	if _, ok := addrModes[load]; ok {
		t.Error("FoldAddressModes: should not fold an Add with more than one use")
	}
	if folded[addr] {
		t.Error("FoldAddressModes: should not mark a multi-use Add as folded")
	}
}

func TestFoldLoadOperandsFoldsEligibleLoad(t *testing.T) {
	g := ir.NewGraph()
	addr := g.NewNode(ir.OpSymConst, mode.P, g.StartBlock, nil, &ir.SymConstAttrs{Kind: ir.SymConstEntity})
	load := g.NewNode(ir.OpLoad, mode.T, g.StartBlock, []ir.Handle{g.InitialMem, g.InitialMem, addr}, nil)
	other := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 1)})
	g.NewNode(ir.OpAdd, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, load, other}, nil)

	folded := FoldLoadOperands(g, map[ir.Handle]int{load: 1})
	if !folded[load] {
		t.Error("FoldLoadOperands: expected the single-use, same-block Load to be folded")
	}
}

func TestFoldLoadOperandsSkipsMultiUseLoad(t *testing.T) {
	g := ir.NewGraph()
	addr := g.NewNode(ir.OpSymConst, mode.P, g.StartBlock, nil, &ir.SymConstAttrs{Kind: ir.SymConstEntity})
	load := g.NewNode(ir.OpLoad, mode.T, g.StartBlock, []ir.Handle{g.InitialMem, g.InitialMem, addr}, nil)
	g.NewNode(ir.OpAdd, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, load, load}, nil)

	folded := FoldLoadOperands(g, map[ir.Handle]int{load: 2})
	if folded[load] {
		t.Error("FoldLoadOperands: should not fold a Load used twice")
	}
}
