package ir

import "github.com/firmgo/firmc/pkg/mode"

// Handle is a stable index into a Graph's arena (§9: "model as an arena of
// node records with indices as internal handles"). The zero Handle is
// never valid; graphs reserve index 0 as a sentinel.
type Handle int

// InvalidHandle is returned where no node applies.
const InvalidHandle Handle = 0

// ConstAttrs is the attribute payload of a Const node.
type ConstAttrs struct {
	Value mode.Tarval
}

// SymConstKind distinguishes what a SymConst tags.
type SymConstKind int

const (
	SymConstEntity SymConstKind = iota
	SymConstTypeTag
	SymConstTypeSize
)

// SymConstAttrs is the attribute payload of a SymConst node.
type SymConstAttrs struct {
	Kind   SymConstKind
	Entity Handle // into the program's entity table; opaque here
	Name   string
}

// ProjAttrs is the attribute payload of a Proj node: which result of a
// tuple-valued predecessor this extracts.
type ProjAttrs struct {
	Which int
}

// CondAttrs is the attribute payload of a Cond node.
type CondAttrs struct {
	// no extra fields; the two successors are reached via Proj 0/1 of the
	// Cond's tuple result, mirroring libFirm's true/false projections.
}

// SelAttrs is the attribute payload of a Sel node (address of an
// aggregate member).
type SelAttrs struct {
	Entity Handle
	Offset int64
}

// CallAttrs is the attribute payload of a Call node.
type CallAttrs struct {
	MethodType Handle // types.Type handle, opaque here
	Callees    []Handle
}

// Node is every IR value of §3: opcode, mode, owning block, explicit
// inputs, an opcode-specific attribute payload, a visited generation
// marker, and a user link field (both reserved as scoped resources, see
// Resource in arena.go).
type Node struct {
	Op      Opcode
	Mode    *mode.Mode
	Block   Handle // InvalidHandle for Block nodes themselves
	Ins     []Handle
	Attrs   any
	Visited uint32
	Link    any
	Index   int // stable index, assigned by dead-node elimination
}

// BlockAttrs is the attribute payload of a Block node: construction-time
// maturity and its value dictionary (§3, §4.5).
type BlockAttrs struct {
	Matured     bool
	ValueDict   map[int]Handle // slot -> defining node in this block
	DeferredPhi []Handle       // Phis awaiting maturation
}

func newBlockAttrs() *BlockAttrs {
	return &BlockAttrs{ValueDict: make(map[int]Handle)}
}
