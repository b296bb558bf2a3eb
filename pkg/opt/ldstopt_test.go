package opt

import (
	"testing"

	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

func TestLoadStoreOptForwardsStoredValue(t *testing.T) {
	g := ir.NewGraph()
	addr := g.NewNode(ir.OpSymConst, mode.P, g.StartBlock, nil, &ir.SymConstAttrs{Kind: ir.SymConstEntity})
	val := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 42)})

	store := g.NewNode(ir.OpStore, mode.T, g.StartBlock, []ir.Handle{g.InitialMem, g.InitialMem, addr, val}, nil)
	storeMem := g.Proj(store, mode.M, 0)

	load := g.NewNode(ir.OpLoad, mode.T, g.StartBlock, []ir.Handle{storeMem, storeMem, addr}, nil)
	loadMem := g.Proj(load, mode.M, 0)
	loadVal := g.Proj(load, mode.Is, 1)
	user := g.NewNode(ir.OpAdd, mode.Is, g.StartBlock, []ir.Handle{g.InitialMem, loadVal, loadVal}, nil)

	log := NewLog()
	changed := LoadStoreOpt(g, log)
	if !changed {
		t.Fatal("LoadStoreOpt should report a change (RAW forwarding)")
	}
	if log.Len() == 0 {
		t.Error("LoadStoreOpt should have recorded a KindLoadStore event")
	}

	userNode := g.Arena.Get(user)
	if userNode.Ins[1] != val || userNode.Ins[2] != val {
		t.Errorf("user of the Load's value should now read the stored Const directly, got Ins=%v, want both operands = %d", userNode.Ins, val)
	}
	_ = loadMem
}

func TestLoadStoreOptRejectsDifferentAddress(t *testing.T) {
	g := ir.NewGraph()
	addr1 := g.NewNode(ir.OpSymConst, mode.P, g.StartBlock, nil, &ir.SymConstAttrs{Kind: ir.SymConstEntity, Name: "a"})
	addr2 := g.NewNode(ir.OpSymConst, mode.P, g.StartBlock, nil, &ir.SymConstAttrs{Kind: ir.SymConstEntity, Name: "b"})
	val := g.NewNode(ir.OpConst, mode.Is, g.StartBlock, nil, &ir.ConstAttrs{Value: mode.NewInt(mode.Is, 1)})

	store := g.NewNode(ir.OpStore, mode.T, g.StartBlock, []ir.Handle{g.InitialMem, g.InitialMem, addr1, val}, nil)
	storeMem := g.Proj(store, mode.M, 0)
	load := g.NewNode(ir.OpLoad, mode.T, g.StartBlock, []ir.Handle{storeMem, storeMem, addr2}, nil)

	log := NewLog()
	LoadStoreOpt(g, log)

	n := g.Arena.Get(load)
	if n.Ins[2] != addr2 {
		t.Error("a Load of a different address must not be rewritten")
	}
}
