package ir

import "github.com/firmgo/firmc/pkg/mode"

// AnalysisState tracks the validity of a cached analysis (§4.8): a
// mutation that does not maintain an analysis must set it Inconsistent so
// the next consumer recomputes it.
type AnalysisState int

const (
	StateNone AnalysisState = iota
	StateConsistent
	StateInconsistent
)

// Graph represents one procedure (§3): an arena, the anchors (start/end
// block, start/end, initial memory, frame pointer, args tuple, Bad,
// NoMem), and cached analysis state flags. The value table (C6) is held
// by pkg/opt, not here, to keep pkg/ir free of a dependency on pkg/opt.
type Graph struct {
	Arena     *Arena
	resources resourceSet
	visitedGen uint32

	StartBlock Handle
	EndBlock   Handle
	Start      Handle
	End        Handle
	InitialMem Handle
	FrameArgs  Handle
	Bad        Handle
	NoMemNode  Handle

	DomState AnalysisState
	OutsState AnalysisState
	LoopState AnalysisState

	building bool
}

// NewGraph allocates a fresh graph with its anchors, matching §3's "owns
// ... a set of blocks, anchor nodes".
func NewGraph() *Graph {
	g := &Graph{Arena: newArena(), building: true}
	g.Bad = g.alloc(OpBad, mode.X, InvalidHandle, nil, nil)
	g.NoMemNode = g.alloc(OpNoMem, mode.M, InvalidHandle, nil, nil)
	g.StartBlock = g.NewBlock()
	g.MatureBlock(g.StartBlock) // Start block has zero predecessors
	g.Start = g.alloc(OpStart, mode.T, g.StartBlock, nil, nil)
	g.InitialMem = g.Proj(g.Start, mode.M, 0)
	g.FrameArgs = g.Proj(g.Start, mode.T, 1)
	g.EndBlock = g.NewBlock()
	g.End = g.alloc(OpEnd, mode.X, g.EndBlock, nil, nil)
	return g
}

func (g *Graph) alloc(op Opcode, m *mode.Mode, block Handle, ins []Handle, attrs any) Handle {
	n := &Node{Op: op, Mode: m, Block: block, Ins: append([]Handle(nil), ins...), Attrs: attrs}
	return g.Arena.Alloc(n)
}

// NewBlock creates an immature Block with no predecessors yet.
func (g *Graph) NewBlock() Handle {
	n := &Node{Op: OpBlock, Mode: mode.X, Block: InvalidHandle, Attrs: newBlockAttrs()}
	return g.Arena.Alloc(n)
}

// AddPred appends a control predecessor to an immature block.
func (g *Graph) AddPred(block, predCtrl Handle) error {
	n := g.Arena.Get(block)
	ba, ok := n.Attrs.(*BlockAttrs)
	if !ok {
		return &ConstructionError{Op: "AddPred", Reason: "not a block"}
	}
	if ba.Matured {
		return &ConstructionError{Op: "AddPred", Reason: "block already matured"}
	}
	n.Ins = append(n.Ins, predCtrl)
	return nil
}

// BlockInfo returns the BlockAttrs of a Block node, for use by the graph
// builder (pkg/construct), which owns the get_value/mature_block protocol
// that manipulates a block's value dictionary and deferred-phi list.
func (g *Graph) BlockInfo(block Handle) *BlockAttrs {
	n := g.Arena.Get(block)
	ba, ok := n.Attrs.(*BlockAttrs)
	if !ok {
		panic("ir: BlockInfo on a non-block node")
	}
	return ba
}

// MatureBlock marks a block's predecessor count as fixed (§3 invariant 2).
// It does not complete deferred Phis itself — pkg/construct's MatureBlock
// does that, since only it knows how to recursively resolve get_value on
// predecessors.
func (g *Graph) MatureBlock(block Handle) error {
	ba := g.BlockInfo(block)
	if ba.Matured {
		return &ConstructionError{Op: "MatureBlock", Reason: "block already matured"}
	}
	ba.Matured = true
	return nil
}

// NewNode allocates a data/memory node with the given block, mode, and
// inputs (input 0 is conventionally the block itself is implicit via the
// Block field, not Ins, per §3: "input 0 for non-blocks is the containing
// block" is modeled here as the separate Block field for clarity).
func (g *Graph) NewNode(op Opcode, m *mode.Mode, block Handle, ins []Handle, attrs any) Handle {
	return g.alloc(op, m, block, ins, attrs)
}

// Proj creates a Proj node extracting result `which` of a tuple-valued
// predecessor.
func (g *Graph) Proj(tuple Handle, m *mode.Mode, which int) Handle {
	block := g.Arena.Get(tuple).Block
	return g.alloc(OpProj, m, block, []Handle{tuple}, &ProjAttrs{Which: which})
}

// SetInput replaces input i of n (§3: "setting an input" is a controlled
// mutation).
func (g *Graph) SetInput(n Handle, i int, v Handle) {
	node := g.Arena.Get(n)
	for len(node.Ins) <= i {
		node.Ins = append(node.Ins, g.Bad)
	}
	node.Ins[i] = v
}

// NextVisited returns a fresh generation marker, rewriting to zero on
// wraparound is the caller's responsibility per §9.
func (g *Graph) NextVisited() uint32 {
	g.visitedGen++
	return g.visitedGen
}

// FinalizeConstruction ends the "building" lifecycle stage (§3 invariant
// 1): thereafter no new Phi/Block creation without explicit passes.
func (g *Graph) FinalizeConstruction() {
	g.building = false
}

// Building reports whether the graph still accepts builder-protocol
// mutations.
func (g *Graph) Building() bool { return g.building }
