package be

import (
	"fmt"
	"strings"

	"github.com/firmgo/firmc/pkg/ir"
)

// RegisterNamer maps an Assignment to the target's assembly register
// name (e.g. "eax", "r3"); BlockLabeler maps a Block handle to a symbol.
type RegisterNamer func(Assignment) string
type BlockLabeler func(ir.Handle) string

// Emitter renders a scheduled, allocated graph as GNU-assembler text,
// interpreting each node's ir.OpcodeInfo.Format string the way the
// teacher's parseSingleInstruction interprets a Catalog[op].Mnemonic
// pattern — reversed here from "parse text into an opcode" into "render
// an opcode into text" — grounded on cmd/z80opt/main.go's mnemonic-table
// idiom.
//
// Format placeholders: %D0 (destination register of this node's own
// assignment), %S0/%S1 (source registers of Ins[1]/Ins[2]), %M (memory
// operand, rendered via addr if an AddrMode is supplied), %I (immediate
// value of a Const), %L (label of a Jmp/Cond target block), %A (callee
// symbol of a Call).
type Emitter struct {
	assign    map[ir.Handle]Assignment
	reg       RegisterNamer
	label     BlockLabeler
	calleeSym func(ir.Handle) string

	// ia32 transform wiring (C10): set via SetAddressFolding/
	// SetLoadFolding/SetCallLowering when the target benefits from
	// address-mode and calling-convention lowering; nil otherwise.
	addrModes   map[ir.Handle]AddrMode
	foldedAdds  map[ir.Handle]bool
	foldedLoads map[ir.Handle]bool
	callSlots   map[ir.Handle][]CallSlot
	argRegNames []string
	x87Pre      map[ir.Handle][]string

	delayFillers    map[ir.Handle]ir.Handle
	delaySuppressed map[ir.Handle]bool
}

func NewEmitter(assign map[ir.Handle]Assignment, reg RegisterNamer, label BlockLabeler, calleeSym func(ir.Handle) string) *Emitter {
	return &Emitter{assign: assign, reg: reg, label: label, calleeSym: calleeSym}
}

// SetAddressFolding wires FoldAddressModes' output into %M rendering: a
// Load/Store with a recorded AddrMode renders base+index*scale+offset
// instead of a bare register, and a folded Add emits no instruction of
// its own.
func (e *Emitter) SetAddressFolding(addrModes map[ir.Handle]AddrMode, foldedAdds map[ir.Handle]bool) {
	e.addrModes, e.foldedAdds = addrModes, foldedAdds
}

// SetLoadFolding wires FoldLoadOperands' output: a folded Load renders no
// "mov" of its own, and its consumer's %S0/%S1 operand reads memory
// directly.
func (e *Emitter) SetLoadFolding(foldedLoads map[ir.Handle]bool) {
	e.foldedLoads = foldedLoads
}

// SetCallLowering wires LowerCallArgs' output: argSetupLines, called from
// EmitBlock just before a Call's own line, materializes each CallSlot as
// a "mov"/"push" per the fastcall-style convention of §4.10.
func (e *Emitter) SetCallLowering(callSlots map[ir.Handle][]CallSlot, argRegNames []string) {
	e.callSlots, e.argRegNames = callSlots, argRegNames
}

// SetX87Simulation wires SimulateX87Block's output: the Fxch lines
// recorded for a node are emitted immediately before that node's own
// line, reflecting the FPU stack state the simulator computed.
func (e *Emitter) SetX87Simulation(pre map[ir.Handle][]string) {
	e.x87Pre = pre
}

// SetDelaySlotFilling wires FillDelaySlot's decisions: fillers maps a
// delay-slot-having node to the instruction moved into its slot;
// suppressed marks the filler's original schedule position so it is not
// emitted twice.
func (e *Emitter) SetDelaySlotFilling(fillers map[ir.Handle]ir.Handle, suppressed map[ir.Handle]bool) {
	e.delayFillers, e.delaySuppressed = fillers, suppressed
}

// EmitNode renders one node per its opcode's Format string.
func (e *Emitter) EmitNode(g *ir.Graph, h ir.Handle) (string, error) {
	n := g.Arena.Get(h)
	if e.foldedAdds[h] || e.foldedLoads[h] {
		return "", nil // subsumed into a folded address mode or memory operand
	}
	format := ir.Catalog[n.Op].Format
	if format == "" {
		return "", nil // pure control/bookkeeping opcodes emit nothing
	}

	var b strings.Builder
	i := 0
	for i < len(format) {
		if format[i] != '%' {
			b.WriteByte(format[i])
			i++
			continue
		}
		i++
		if i >= len(format) {
			return "", &ir.UnsupportedPatternError{Node: h, Op: n.Op}
		}
		tok, rest := consumeToken(format[i:])
		i += rest
		piece, err := e.renderToken(g, h, n, tok)
		if err != nil {
			return "", err
		}
		b.WriteString(piece)
	}
	return b.String(), nil
}

func consumeToken(s string) (string, int) {
	j := 0
	for j < len(s) && (s[j] >= 'A' && s[j] <= 'Z' || s[j] >= '0' && s[j] <= '9') {
		j++
	}
	return s[:j], j
}

// addrIdx and valueIdx locate the address/value operand of a Load or
// Store, per ldstopt.go's established convention (Ins[1] = memory,
// Ins[2] = address, Store's Ins[3] = value) — distinct from the
// ordinary binary-op layout (Ins[1] = S0, Ins[2] = S1) that every other
// opcode with a Format string uses.
func addrIdx(op ir.Opcode) int {
	switch op {
	case ir.OpLoad, ir.OpStore:
		return 2
	default:
		return 1
	}
}

func (e *Emitter) renderToken(g *ir.Graph, h ir.Handle, n *ir.Node, tok string) (string, error) {
	switch {
	case tok == "D0":
		return e.reg(e.assign[h]), nil
	case tok == "S0":
		return e.operandReg(g, n, 1)
	case tok == "S1":
		if n.Op == ir.OpStore {
			return e.operandReg(g, n, 3)
		}
		return e.operandReg(g, n, 2)
	case tok == "M":
		if am, ok := e.addrModes[h]; ok {
			return "[" + e.renderAddrMode(am) + "]", nil
		}
		return "[" + e.operandRegOrSelf(n, addrIdx(n.Op)) + "]", nil
	case tok == "I":
		if n.Op == ir.OpConst {
			return fmt.Sprintf("%d", n.Attrs.(*ir.ConstAttrs).Value.Int64()), nil
		}
		return "", &ir.UnsupportedPatternError{Node: h, Op: n.Op}
	case tok == "L":
		if len(n.Ins) == 0 {
			return "", &ir.UnsupportedPatternError{Node: h, Op: n.Op}
		}
		return e.label(n.Ins[0]), nil
	case tok == "A":
		return e.calleeSym(h), nil
	default:
		return "", &ir.UnsupportedPatternError{Node: h, Op: n.Op}
	}
}

func (e *Emitter) operandReg(g *ir.Graph, n *ir.Node, idx int) (string, error) {
	if idx >= len(n.Ins) {
		return "", fmt.Errorf("be: operand %d out of range for %s", idx, n.Op)
	}
	in := n.Ins[idx]
	if e.foldedLoads[in] {
		ln := g.Arena.Get(in)
		return "[" + e.operandRegOrSelf(ln, addrIdx(ln.Op)) + "]", nil
	}
	return e.reg(e.assign[in]), nil
}

// renderAddrMode formats a folded base+index*scale+offset operand,
// omitting whichever components LEACandidate left unset.
func (e *Emitter) renderAddrMode(am AddrMode) string {
	var b strings.Builder
	if am.Base != ir.InvalidHandle {
		b.WriteString(e.reg(e.assign[am.Base]))
	}
	if am.Index != ir.InvalidHandle {
		if b.Len() > 0 {
			b.WriteByte('+')
		}
		fmt.Fprintf(&b, "%s*%d", e.reg(e.assign[am.Index]), am.Scale)
	}
	if am.Offset != 0 {
		if b.Len() > 0 && am.Offset > 0 {
			b.WriteByte('+')
		}
		fmt.Fprintf(&b, "%d", am.Offset)
	}
	return b.String()
}

func (e *Emitter) operandRegOrSelf(n *ir.Node, idx int) string {
	if idx >= len(n.Ins) {
		return ""
	}
	return e.reg(e.assign[n.Ins[idx]])
}

// EmitBlock renders a block's label followed by every scheduled
// instruction in order, skipping nodes whose Format is empty.
func (e *Emitter) EmitBlock(g *ir.Graph, block ir.Handle, order []ir.Handle) ([]string, error) {
	lines := []string{e.label(block) + ":"}
	for _, h := range order {
		if e.delaySuppressed[h] {
			continue // emitted inline in its consumer's delay slot instead
		}
		if g.Arena.Get(h).Op == ir.OpCall {
			lines = append(lines, e.argSetupLines(g, h)...)
		}
		for _, pre := range e.x87Pre[h] {
			lines = append(lines, "\t"+pre)
		}
		line, err := e.EmitNode(g, h)
		if err != nil {
			return nil, fmt.Errorf("be: emit node %d: %w", h, err)
		}
		if line != "" {
			lines = append(lines, "\t"+line)
		}
		if filler, ok := e.delayFillers[h]; ok {
			fillerLine, err := e.EmitNode(g, filler)
			if err != nil {
				return nil, fmt.Errorf("be: emit delay-slot filler %d: %w", filler, err)
			}
			if fillerLine != "" {
				lines = append(lines, "\t"+fillerLine)
			}
		}
	}
	return lines, nil
}

// argSetupLines materializes a Call's lowered CallSlots (LowerCallArgs)
// as register movs and stack pushes, emitted just before the call's own
// "call %A" line per §4.10's calling-convention lowering.
func (e *Emitter) argSetupLines(g *ir.Graph, call ir.Handle) []string {
	slots, ok := e.callSlots[call]
	if !ok {
		return nil
	}
	n := g.Arena.Get(call)
	var lines []string
	for i, slot := range slots {
		arg := e.reg(e.assign[n.Ins[2+i]])
		if slot.Register >= 0 && slot.Register < len(e.argRegNames) {
			lines = append(lines, fmt.Sprintf("\tmov %s, %s", e.argRegNames[slot.Register], arg))
		} else {
			lines = append(lines, fmt.Sprintf("\tpush %s", arg))
		}
	}
	return lines
}
