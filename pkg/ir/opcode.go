package ir

// Opcode identifies the kind of operation a Node performs. The set below
// is the essential opcode list of §3: control, pure data, memory, and
// call opcodes. Backend-only opcodes live in per-target packages and are
// registered into their own descriptor tables (see pkg/be).
type Opcode uint16

const (
	OpBad Opcode = iota
	OpUnknown
	OpNoMem

	// control
	OpBlock
	OpStart
	OpEnd
	OpJmp
	OpCond
	OpProj
	OpTuple
	OpReturn
	OpRaise
	OpPhi
	OpAnchor

	// data pure
	OpConst
	OpSymConst
	OpConv
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpEor
	OpNot
	OpShl
	OpShr
	OpShrs
	OpRot
	OpMinus
	OpAbs
	OpCmp
	OpMux

	// memory
	OpLoad
	OpStore
	OpAlloc
	OpFree
	OpSel
	OpCopyB
	OpSync

	// calls
	OpCall

	OpCount
)

var opcodeNames = [OpCount]string{
	OpBad: "Bad", OpUnknown: "Unknown", OpNoMem: "NoMem",
	OpBlock: "Block", OpStart: "Start", OpEnd: "End", OpJmp: "Jmp",
	OpCond: "Cond", OpProj: "Proj", OpTuple: "Tuple", OpReturn: "Return",
	OpRaise: "Raise", OpPhi: "Phi", OpAnchor: "Anchor",
	OpConst: "Const", OpSymConst: "SymConst", OpConv: "Conv",
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMod: "Mod",
	OpAnd: "And", OpOr: "Or", OpEor: "Eor", OpNot: "Not",
	OpShl: "Shl", OpShr: "Shr", OpShrs: "Shrs", OpRot: "Rot",
	OpMinus: "Minus", OpAbs: "Abs", OpCmp: "Cmp", OpMux: "Mux",
	OpLoad: "Load", OpStore: "Store", OpAlloc: "Alloc", OpFree: "Free",
	OpSel: "Sel", OpCopyB: "CopyB", OpSync: "Sync", OpCall: "Call",
}

func (op Opcode) String() string {
	if op < OpCount {
		return opcodeNames[op]
	}
	return "Opcode(?)"
}

// NoMemInput marks an OpcodeInfo.MemInput value meaning "this opcode has
// no memory edge".
const NoMemInput = -1

// VariadicArity marks an OpcodeInfo.MaxArity value meaning "this opcode
// accepts any number of inputs ≥ MinArity" (Block, End, Sync, Phi, Call).
const VariadicArity = -1

// OpcodeInfo is the small per-opcode descriptor of §4.4: arity schema,
// pinned/floats, fragile (may raise), the memory-input index if any, and
// commutativity for normalization.
type OpcodeInfo struct {
	Name        string
	MinArity    int
	MaxArity    int // VariadicArity for unbounded
	Pinned      bool
	Fragile     bool
	MemInput    int // index into Ins, or NoMemInput
	Commutative bool
	Format      string // emitter format string, see pkg/be/emit.go
}

// Catalog is the opcode descriptor table, directly modeled on the
// teacher's Catalog [OpCodeCount]Info array.
var Catalog [OpCount]OpcodeInfo

func init() {
	set := func(op Opcode, info OpcodeInfo) { Catalog[op] = info }

	set(OpBad, OpcodeInfo{Name: "Bad", MinArity: 0, MaxArity: 0, Pinned: true, MemInput: NoMemInput})
	set(OpUnknown, OpcodeInfo{Name: "Unknown", MinArity: 0, MaxArity: 0, Pinned: false, MemInput: NoMemInput})
	set(OpNoMem, OpcodeInfo{Name: "NoMem", MinArity: 0, MaxArity: 0, Pinned: true, MemInput: NoMemInput})

	set(OpBlock, OpcodeInfo{Name: "Block", MinArity: 0, MaxArity: VariadicArity, Pinned: true, MemInput: NoMemInput})
	set(OpStart, OpcodeInfo{Name: "Start", MinArity: 0, MaxArity: 1, Pinned: true, MemInput: NoMemInput})
	set(OpEnd, OpcodeInfo{Name: "End", MinArity: 0, MaxArity: VariadicArity, Pinned: true, MemInput: NoMemInput})
	set(OpJmp, OpcodeInfo{Name: "Jmp", MinArity: 1, MaxArity: 1, Pinned: true, MemInput: NoMemInput, Format: "jmp %L"})
	set(OpCond, OpcodeInfo{Name: "Cond", MinArity: 2, MaxArity: 2, Pinned: true, MemInput: NoMemInput, Format: "cond %S0"})
	set(OpProj, OpcodeInfo{Name: "Proj", MinArity: 1, MaxArity: 1, Pinned: false, MemInput: NoMemInput})
	set(OpTuple, OpcodeInfo{Name: "Tuple", MinArity: 0, MaxArity: VariadicArity, Pinned: false, MemInput: NoMemInput})
	set(OpReturn, OpcodeInfo{Name: "Return", MinArity: 2, MaxArity: VariadicArity, Pinned: true, MemInput: 1})
	set(OpRaise, OpcodeInfo{Name: "Raise", MinArity: 2, MaxArity: 2, Pinned: true, MemInput: 1})
	set(OpPhi, OpcodeInfo{Name: "Phi", MinArity: 1, MaxArity: VariadicArity, Pinned: true, MemInput: NoMemInput})
	set(OpAnchor, OpcodeInfo{Name: "Anchor", MinArity: 0, MaxArity: VariadicArity, Pinned: true, MemInput: NoMemInput})

	set(OpConst, OpcodeInfo{Name: "Const", MinArity: 0, MaxArity: 0, Pinned: false, MemInput: NoMemInput, Format: "mov %D0, %I"})
	set(OpSymConst, OpcodeInfo{Name: "SymConst", MinArity: 0, MaxArity: 0, Pinned: false, MemInput: NoMemInput})
	set(OpConv, OpcodeInfo{Name: "Conv", MinArity: 2, MaxArity: 2, Pinned: false, Fragile: true, MemInput: NoMemInput})
	set(OpAdd, OpcodeInfo{Name: "Add", MinArity: 3, MaxArity: 3, Pinned: false, Commutative: true, MemInput: NoMemInput, Format: "add %D0, %S0, %S1"})
	set(OpSub, OpcodeInfo{Name: "Sub", MinArity: 3, MaxArity: 3, Pinned: false, MemInput: NoMemInput, Format: "sub %D0, %S0, %S1"})
	set(OpMul, OpcodeInfo{Name: "Mul", MinArity: 3, MaxArity: 3, Pinned: false, Commutative: true, MemInput: NoMemInput, Format: "imul %D0, %S0, %S1"})
	set(OpDiv, OpcodeInfo{Name: "Div", MinArity: 3, MaxArity: 3, Pinned: true, Fragile: true, MemInput: 1})
	set(OpMod, OpcodeInfo{Name: "Mod", MinArity: 3, MaxArity: 3, Pinned: true, Fragile: true, MemInput: 1})
	set(OpAnd, OpcodeInfo{Name: "And", MinArity: 3, MaxArity: 3, Pinned: false, Commutative: true, MemInput: NoMemInput})
	set(OpOr, OpcodeInfo{Name: "Or", MinArity: 3, MaxArity: 3, Pinned: false, Commutative: true, MemInput: NoMemInput})
	set(OpEor, OpcodeInfo{Name: "Eor", MinArity: 3, MaxArity: 3, Pinned: false, Commutative: true, MemInput: NoMemInput})
	set(OpNot, OpcodeInfo{Name: "Not", MinArity: 2, MaxArity: 2, Pinned: false, MemInput: NoMemInput})
	set(OpShl, OpcodeInfo{Name: "Shl", MinArity: 3, MaxArity: 3, Pinned: false, MemInput: NoMemInput})
	set(OpShr, OpcodeInfo{Name: "Shr", MinArity: 3, MaxArity: 3, Pinned: false, MemInput: NoMemInput})
	set(OpShrs, OpcodeInfo{Name: "Shrs", MinArity: 3, MaxArity: 3, Pinned: false, MemInput: NoMemInput})
	set(OpRot, OpcodeInfo{Name: "Rot", MinArity: 3, MaxArity: 3, Pinned: false, MemInput: NoMemInput})
	set(OpMinus, OpcodeInfo{Name: "Minus", MinArity: 2, MaxArity: 2, Pinned: false, MemInput: NoMemInput})
	set(OpAbs, OpcodeInfo{Name: "Abs", MinArity: 2, MaxArity: 2, Pinned: false, MemInput: NoMemInput})
	set(OpCmp, OpcodeInfo{Name: "Cmp", MinArity: 3, MaxArity: 3, Pinned: false, MemInput: NoMemInput, Format: "cmp %S0, %S1"})
	set(OpMux, OpcodeInfo{Name: "Mux", MinArity: 4, MaxArity: 4, Pinned: false, MemInput: NoMemInput})

	set(OpLoad, OpcodeInfo{Name: "Load", MinArity: 3, MaxArity: 3, Pinned: true, Fragile: true, MemInput: 1, Format: "mov %D0, %M"})
	set(OpStore, OpcodeInfo{Name: "Store", MinArity: 4, MaxArity: 4, Pinned: true, Fragile: true, MemInput: 1, Format: "mov %M, %S1"})
	set(OpAlloc, OpcodeInfo{Name: "Alloc", MinArity: 3, MaxArity: 3, Pinned: true, Fragile: true, MemInput: 1})
	set(OpFree, OpcodeInfo{Name: "Free", MinArity: 3, MaxArity: 3, Pinned: true, MemInput: 1})
	set(OpSel, OpcodeInfo{Name: "Sel", MinArity: 2, MaxArity: VariadicArity, Pinned: false, MemInput: NoMemInput})
	set(OpCopyB, OpcodeInfo{Name: "CopyB", MinArity: 4, MaxArity: 4, Pinned: true, Fragile: true, MemInput: 1})
	set(OpSync, OpcodeInfo{Name: "Sync", MinArity: 1, MaxArity: VariadicArity, Pinned: false, MemInput: NoMemInput})

	set(OpCall, OpcodeInfo{Name: "Call", MinArity: 3, MaxArity: VariadicArity, Pinned: true, Fragile: true, MemInput: 1, Format: "call %A"})
}

// IsControl reports whether op is a control-flow opcode (block/jump/
// branch/terminator shaped).
func IsControl(op Opcode) bool {
	switch op {
	case OpBlock, OpStart, OpEnd, OpJmp, OpCond, OpReturn, OpRaise, OpAnchor:
		return true
	default:
		return false
	}
}

// IsPure reports whether op has no side effects and is eligible for the
// value table (C6). Impure opcodes (Load, Store, Call, Phi, Block, and
// Proj of a side-effecting predecessor) are excluded by the caller.
func IsPure(op Opcode) bool {
	switch op {
	case OpConst, OpSymConst, OpConv, OpAdd, OpSub, OpMul, OpDiv, OpMod,
		OpAnd, OpOr, OpEor, OpNot, OpShl, OpShr, OpShrs, OpRot,
		OpMinus, OpAbs, OpCmp, OpMux:
		return true
	default:
		return false
	}
}
