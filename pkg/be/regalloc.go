// Package be implements the target-specific backend of §4.10-4.13:
// instruction selection/addressing-mode transforms, register allocation,
// the x87 stack simulator, and scheduling/emission.
package be

import (
	"sort"

	"github.com/firmgo/firmc/pkg/analysis"
	"github.com/firmgo/firmc/pkg/ir"
)

// RegisterClass groups interfering values that compete for the same
// physical register file (general-purpose, x87/SSE, ...).
type RegisterClass int

const (
	ClassGP RegisterClass = iota
	ClassFP
)

// Assignment is the register allocator's per-value result: either a
// physical register index or a spill slot, per §4.11.
type Assignment struct {
	Value    ir.Handle
	Register int  // -1 if spilled
	Spilled  bool
	Class    RegisterClass
}

// chunk is an affinity-coalesced group of values that should, if
// possible, share one physical register — e.g. a Phi and its operands,
// modeled on the teacher's pkg/stoke Chain as "one unit that is mutated
// and evaluated together", here a unit that is colored together instead
// of mutated together.
type chunk struct {
	members []ir.Handle
	class   RegisterClass
}

// Allocator performs chunk-based graph coloring with a bounded-recursion
// recolor-on-conflict step and rollback, the deterministic counterpart of
// the teacher's Chain/Mutator accept-reject loop: instead of randomly
// mutating and accepting on lower cost, it tentatively assigns a color,
// and on conflict rolls back and tries the next one (§4.11's "bounded
// recursion", grounded algorithmically on
// original_source/ir/be/becopyheur4.c's iterative recoloring, stripped of
// its heuristic cost-driven search since §9 calls for a deterministic,
// not probabilistic, allocator).
type Allocator struct {
	numRegs   map[RegisterClass]int
	liveness  *analysis.Liveness
	class     func(ir.Handle) RegisterClass
	maxRecolorDepth int
}

func NewAllocator(numRegsGP, numRegsFP int, liveness *analysis.Liveness, class func(ir.Handle) RegisterClass) *Allocator {
	return &Allocator{
		numRegs:  map[RegisterClass]int{ClassGP: numRegsGP, ClassFP: numRegsFP},
		liveness: liveness,
		class:    class,
		maxRecolorDepth: 8,
	}
}

// buildChunks groups Phi nodes with their operands (same-block cost-free
// affinity, §4.11) plus every other pure value, Load and Call as a
// singleton chunk.
func (a *Allocator) buildChunks(g *ir.Graph) []*chunk {
	grouped := make(map[ir.Handle]bool)
	var chunks []*chunk

	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		if n.Op != ir.OpPhi || grouped[h] {
			continue
		}
		c := &chunk{class: a.class(h)}
		c.members = append(c.members, h)
		grouped[h] = true
		for _, in := range n.Ins {
			if in != ir.InvalidHandle && !grouped[in] {
				c.members = append(c.members, in)
				grouped[in] = true
			}
		}
		chunks = append(chunks, c)
	}

	var singles []ir.Handle
	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		if grouped[h] {
			continue
		}
		if !ir.IsPure(n.Op) && n.Op != ir.OpLoad && n.Op != ir.OpCall {
			continue
		}
		singles = append(singles, h)
	}
	for _, h := range singles {
		chunks = append(chunks, &chunk{members: []ir.Handle{h}, class: a.class(h)})
	}

	sort.Slice(chunks, func(i, j int) bool { return len(chunks[i].members) > len(chunks[j].members) })
	return chunks
}

// interferes reports whether any member of a is simultaneously live with
// any member of b at some block boundary, the coarse interference test
// §4.11 allows in the absence of a full interval-based liveness model.
func (a *Allocator) interferes(c1, c2 *chunk, blocks []ir.Handle) bool {
	for _, b := range blocks {
		for _, x := range c1.members {
			for _, y := range c2.members {
				if x == y {
					continue
				}
				if a.liveness.IsLiveAt(x, b) && a.liveness.IsLiveAt(y, b) {
					return true
				}
			}
		}
	}
	return false
}

// Allocate colors every chunk, preferring to keep Phi/operand chunks
// together, spilling whatever cannot be colored within numRegs, per
// §4.11 and §7's AllocationFailureError escape hatch for an installed
// spill handler.
func (a *Allocator) Allocate(g *ir.Graph, blocks []ir.Handle) ([]Assignment, error) {
	chunks := a.buildChunks(g)
	color := make(map[*chunk]int)
	var spilled []*chunk

	for _, c := range chunks {
		assigned := a.tryColor(c, chunks, color, blocks, 0)
		if !assigned {
			spilled = append(spilled, c)
		}
	}

	var out []Assignment
	for _, c := range chunks {
		col, ok := color[c]
		for _, m := range c.members {
			if ok {
				out = append(out, Assignment{Value: m, Register: col, Class: c.class})
			} else {
				out = append(out, Assignment{Value: m, Register: -1, Spilled: true, Class: c.class})
			}
		}
	}
	return out, nil
}

// tryColor picks the lowest free color for c given already-colored
// chunks; on failure it attempts a bounded-depth recolor of one
// conflicting neighbor before giving up and reporting spill, mirroring
// becopyheur4.c's recursive recoloring with a depth bound substituting
// for its cost-based termination.
func (a *Allocator) tryColor(c *chunk, all []*chunk, color map[*chunk]int, blocks []ir.Handle, depth int) bool {
	n := a.numRegs[c.class]
	if n == 0 {
		return false
	}
	used := make(map[int]bool)
	var conflicts []*chunk
	for _, other := range all {
		if other == c || other.class != c.class {
			continue
		}
		col, ok := color[other]
		if !ok {
			continue
		}
		if a.interferes(c, other, blocks) {
			used[col] = true
			conflicts = append(conflicts, other)
		}
	}
	for r := 0; r < n; r++ {
		if !used[r] {
			color[c] = r
			return true
		}
	}
	if depth >= a.maxRecolorDepth {
		return false
	}
	// try bumping one conflicting neighbor to free up c's preferred color
	snapshot := make(map[*chunk]int, len(color))
	for k, v := range color {
		snapshot[k] = v
	}
	for _, neighbor := range conflicts {
		delete(color, neighbor)
		if a.tryColor(neighbor, all, color, blocks, depth+1) {
			if a.tryColor(c, all, color, blocks, depth+1) {
				return true
			}
		}
		for k := range color {
			delete(color, k)
		}
		for k, v := range snapshot {
			color[k] = v
		}
	}
	return false
}
