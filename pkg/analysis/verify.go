package analysis

import (
	"fmt"

	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

// VectorInputs are fixed small operand pairs used to spot-check that a
// rewritten node still computes the same function as its pre-rewrite
// form, the Go-graph analog of the teacher's pkg/search/verifier.go
// TestVectors/QuickCheck idea: cheap, not exhaustive, rejects the vast
// majority of unsound rewrites before anything more expensive runs.
var VectorInputs = []int64{0, 1, -1, 2, -2, 127, -128, 1 << 30, -(1 << 30)}

// EquivalenceCheck re-evaluates a binary opcode on VectorInputs under m
// and reports whether before/after agree on every vector, per §8
// Property #9 ("strength-reduction equivalence via small-input
// enumeration"). It is a necessary, not sufficient, soundness check —
// exactly the role QuickCheck plays for the teacher's superoptimizer.
func EquivalenceCheck(op ir.Opcode, m *mode.Mode, before, after func(a, b mode.Tarval) (mode.Tarval, error)) error {
	for _, a := range VectorInputs {
		for _, b := range VectorInputs {
			av := mode.NewInt(m, a)
			bv := mode.NewInt(m, b)
			wantV, wantErr := before(av, bv)
			gotV, gotErr := after(av, bv)
			if (wantErr == nil) != (gotErr == nil) {
				return fmt.Errorf("verify: %s(%d,%d): error mismatch: before=%v after=%v", op, a, b, wantErr, gotErr)
			}
			if wantErr == nil && !wantV.Equal(gotV) {
				return fmt.Errorf("verify: %s(%d,%d): %v != %v", op, a, b, wantV, gotV)
			}
		}
	}
	return nil
}

// VerifyGraph checks the structural invariants of §3/§8 that a corrupt
// transform could violate: every node's arity matches its opcode's
// schema, every input handle is live, every Block a data node points at
// is itself a Block node, and Phi arity matches its block's predecessor
// count.
func VerifyGraph(g *ir.Graph) error {
	for _, h := range g.Arena.All() {
		n := g.Arena.Get(h)
		info := ir.Catalog[n.Op]
		if info.MaxArity != ir.VariadicArity && len(n.Ins) > info.MaxArity {
			return &ir.VerifierError{Node: h, Reason: fmt.Sprintf("arity %d exceeds max %d for %s", len(n.Ins), info.MaxArity, n.Op)}
		}
		if len(n.Ins) < info.MinArity {
			return &ir.VerifierError{Node: h, Reason: fmt.Sprintf("arity %d below min %d for %s", len(n.Ins), info.MinArity, n.Op)}
		}
		for _, in := range n.Ins {
			if in == ir.InvalidHandle {
				continue
			}
			if int(in) < 0 || int(in) >= g.Arena.Len() {
				return &ir.VerifierError{Node: h, Reason: "input handle out of range"}
			}
		}
		if n.Op != ir.OpBlock && n.Block != ir.InvalidHandle {
			if g.Arena.Get(n.Block).Op != ir.OpBlock {
				return &ir.VerifierError{Node: h, Reason: "Block field does not reference a Block node"}
			}
		}
		if n.Op == ir.OpPhi {
			block := g.Arena.Get(n.Block)
			preds := block.Ins
			if len(n.Ins) != len(preds) {
				return &ir.VerifierError{Node: h, Reason: fmt.Sprintf("phi arity %d does not match block predecessor count %d", len(n.Ins), len(preds))}
			}
		}
	}
	return nil
}
