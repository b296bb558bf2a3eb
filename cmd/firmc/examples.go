package main

import (
	"github.com/firmgo/firmc/pkg/construct"
	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

// buildExample constructs one of the reference frontend's built-in
// compilation units, standing in for the textual-source frontend that
// §6 describes: since the construction API (pkg/construct) IS the
// frontend surface, the CLI exercises it directly against a fixed menu
// of units, the same way the teacher's enumerate command drives
// pkg/search against a fixed instruction catalog rather than parsing an
// external program.
func buildExample(name string) (*ir.Graph, error) {
	switch name {
	case "add-chain":
		return buildAddChain(), nil
	case "load-store":
		return buildLoadStore(), nil
	case "iv-mul":
		return buildIVMul(), nil
	default:
		return nil, &ir.ConstructionError{Op: "buildExample", Reason: "unknown example: " + name}
	}
}

// buildAddChain matches §8 scenario S1: Phi(Const 3, Const 3) feeding a
// diamond, left to the local optimizer to fold to a single Const 3.
func buildAddChain() *ir.Graph {
	g := ir.NewGraph()
	bld := construct.NewBuilder(g)

	thenBlock := g.NewBlock()
	elseBlock := g.NewBlock()
	joinBlock := g.NewBlock()

	selector := g.NewNode(ir.OpConst, mode.Bb, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Bb, 1)})
	cond := g.NewNode(ir.OpCond, mode.T, g.StartBlock, []ir.Handle{g.InitialMem, selector}, nil)
	thenProj := g.Proj(cond, mode.X, 0)
	elseProj := g.Proj(cond, mode.X, 1)
	g.AddPred(thenBlock, thenProj)
	g.AddPred(elseBlock, elseProj)
	g.MatureBlock(thenBlock)
	g.MatureBlock(elseBlock)

	three1 := g.NewNode(ir.OpConst, mode.Is, thenBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 3)})
	three2 := g.NewNode(ir.OpConst, mode.Is, elseBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 3)})

	thenJmp := g.NewNode(ir.OpJmp, mode.X, thenBlock, []ir.Handle{joinBlock}, nil)
	elseJmp := g.NewNode(ir.OpJmp, mode.X, elseBlock, []ir.Handle{joinBlock}, nil)
	g.AddPred(joinBlock, thenJmp)
	g.AddPred(joinBlock, elseJmp)
	g.MatureBlock(joinBlock)

	bld.SetCursor(joinBlock)
	const slot = 0
	g.BlockInfo(thenBlock).ValueDict[slot] = three1
	g.BlockInfo(elseBlock).ValueDict[slot] = three2
	result := bld.GetValue(joinBlock, slot, mode.Is)

	ret := g.NewNode(ir.OpReturn, mode.X, joinBlock, []ir.Handle{g.InitialMem, g.InitialMem, result}, nil)
	g.AddPred(g.EndBlock, ret)
	g.MatureBlock(g.EndBlock)
	g.FinalizeConstruction()
	return g
}

// buildLoadStore matches §8 scenario S2: a Store immediately followed by
// a Load of the same address, expected to forward the stored value.
func buildLoadStore() *ir.Graph {
	g := ir.NewGraph()
	addr := g.NewNode(ir.OpSymConst, mode.P, g.StartBlock, nil, &ir.SymConstAttrs{Kind: ir.SymConstEntity})
	val := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 42)})

	store := g.NewNode(ir.OpStore, mode.T, g.StartBlock, []ir.Handle{g.InitialMem, g.InitialMem, addr, val}, nil)
	storeMem := g.Proj(store, mode.M, 0)

	load := g.NewNode(ir.OpLoad, mode.T, g.StartBlock, []ir.Handle{storeMem, storeMem, addr}, nil)
	loadMem := g.Proj(load, mode.M, 0)
	loadVal := g.Proj(load, mode.Is, 1)

	ret := g.NewNode(ir.OpReturn, mode.X, g.StartBlock, []ir.Handle{loadMem, loadMem, loadVal}, nil)
	g.AddPred(g.EndBlock, ret)
	g.MatureBlock(g.EndBlock)
	g.FinalizeConstruction()
	return g
}

// buildIVMul matches §8 scenario S3: a counting induction variable
// Phi(Const 0, Add(Phi, Const 1)) multiplied by a loop-invariant
// constant 5, ripe for strength reduction + LFTR.
func buildIVMul() *ir.Graph {
	g := ir.NewGraph()

	header := g.NewBlock()
	body := g.NewBlock()
	exit := g.NewBlock()

	entryJmp := g.NewNode(ir.OpJmp, mode.X, g.StartBlock, []ir.Handle{header}, nil)
	g.AddPred(header, entryJmp)

	phi := g.NewNode(ir.OpPhi, mode.Is, header, nil, nil)
	zero := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 0)})

	bound := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 10)})
	selector := g.NewNode(ir.OpCmp, mode.Bb, header, []ir.Handle{g.InitialMem, phi, bound}, nil)
	cond := g.NewNode(ir.OpCond, mode.T, header, []ir.Handle{g.InitialMem, selector}, nil)
	bodyProj := g.Proj(cond, mode.X, 0)
	exitProj := g.Proj(cond, mode.X, 1)
	g.AddPred(body, bodyProj)
	g.AddPred(exit, exitProj)
	g.MatureBlock(body)
	g.MatureBlock(exit)

	one := g.NewNode(ir.OpConst, mode.Is, body, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 1)})
	step := g.NewNode(ir.OpAdd, mode.Is, body, []ir.Handle{g.InitialMem, phi, one}, nil)
	bodyJmp := g.NewNode(ir.OpJmp, mode.X, body, []ir.Handle{header}, nil)
	g.AddPred(header, bodyJmp)
	g.MatureBlock(header)

	phiNode := g.Arena.Get(phi)
	phiNode.Ins = []ir.Handle{zero, step}

	five := g.NewNode(ir.OpConst, mode.Is, header, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 5)})
	mul := g.NewNode(ir.OpMul, mode.Is, header, []ir.Handle{g.InitialMem, phi, five}, nil)

	ret := g.NewNode(ir.OpReturn, mode.X, exit, []ir.Handle{g.InitialMem, g.InitialMem, mul}, nil)
	g.AddPred(g.EndBlock, ret)
	g.MatureBlock(g.EndBlock)
	g.FinalizeConstruction()
	return g
}
