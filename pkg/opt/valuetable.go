// Package opt implements the value table (C6), local optimizer (C7), and
// global passes (C9) of §4.6-§4.9.
package opt

import (
	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
)

// fingerprintKey is the structural hash-consing key of §4.6: (opcode,
// mode, input tuple, attribute fingerprint). Grounded on the teacher's
// pkg/search/fingerprint.go, which keys a FingerprintMap by a fixed-width
// byte array computed from behavioral test vectors; here the key is
// computed from a node's defining structural fields instead.
type fingerprintKey struct {
	op    ir.Opcode
	mode  *mode.Mode
	ins   [4]ir.Handle // first four inputs inline; Call/Sync fall back below
	extra string       // attribute fingerprint for nodes needing more
}

// ValueTable is the GVN hash-consing set over pure nodes (§4.6).
type ValueTable struct {
	graph *ir.Graph
	table map[fingerprintKey]ir.Handle
}

func NewValueTable(g *ir.Graph) *ValueTable {
	return &ValueTable{graph: g, table: make(map[fingerprintKey]ir.Handle)}
}

func keyOf(g *ir.Graph, h ir.Handle) fingerprintKey {
	n := g.Arena.Get(h)
	k := fingerprintKey{op: n.Op, mode: n.Mode}
	for i := 0; i < len(n.Ins) && i < 4; i++ {
		k.ins[i] = n.Ins[i]
	}
	if len(n.Ins) > 4 {
		k.extra = "overflow"
	}
	switch a := n.Attrs.(type) {
	case *ir.ConstAttrs:
		k.extra = "const:" + modeBitsString(a.Value)
	case *ir.ProjAttrs:
		k.extra = "proj:" + itoa(a.Which)
	case *ir.SymConstAttrs:
		k.extra = "sym:" + a.Name
	}
	return k
}

func modeBitsString(t mode.Tarval) string {
	return itoa(int(t.Bits))
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Lookup inserts h if no structural twin exists, returning (h, true).
// Otherwise it returns the canonical twin and false; the caller is
// expected to discard h (it becomes unreferenced and is reclaimed by the
// next dead-node elimination). Impure opcodes are never inserted (§4.6).
func (vt *ValueTable) Lookup(h ir.Handle) (ir.Handle, bool) {
	n := vt.graph.Arena.Get(h)
	if !eligibleForGVN(vt.graph, n) {
		return h, true
	}
	key := keyOf(vt.graph, h)
	if twin, ok := vt.table[key]; ok {
		return twin, false
	}
	vt.table[key] = h
	return h, true
}

// eligibleForGVN excludes impure opcodes: Load, Store, Call, Phi, Block,
// and a Proj of a side-effecting predecessor (§4.6).
func eligibleForGVN(g *ir.Graph, n *ir.Node) bool {
	if !ir.IsPure(n.Op) {
		if n.Op == ir.OpProj {
			if len(n.Ins) == 0 {
				return false
			}
			pred := g.Arena.Get(n.Ins[0])
			return ir.IsPure(pred.Op)
		}
		return false
	}
	return true
}

// NewIdentities rebuilds the table from scratch, used by dead-node
// elimination after bulk mutation (§4.6).
func (vt *ValueTable) NewIdentities() {
	vt.table = make(map[fingerprintKey]ir.Handle)
	for _, h := range vt.graph.Arena.All() {
		n := vt.graph.Arena.Get(h)
		if eligibleForGVN(vt.graph, n) {
			key := keyOf(vt.graph, h)
			if _, ok := vt.table[key]; !ok {
				vt.table[key] = h
			}
		}
	}
}
