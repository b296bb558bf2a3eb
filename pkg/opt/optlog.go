package opt

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/firmgo/firmc/pkg/ir"
)

// Kind tags why a node was rewritten (§4.7: "every replacement records an
// optimization-kind tag ... passed to the debug-info merger").
type Kind int

const (
	KindCSE Kind = iota
	KindAlgebraic
	KindConstantEval
	KindStraightening
	KindIfSimplification
	KindDeadCode
	KindGVNPRE
	KindCombo
	KindLoadStore
	KindStrengthReduction
	KindPhiCycle
	KindAddressFold
	KindCallLowering
)

func (k Kind) String() string {
	names := [...]string{
		"cse", "algebraic", "constant-eval", "straightening",
		"if-simplification", "dead-code", "gvn-pre", "combo",
		"load-store", "strength-reduction", "phi-cycle",
		"address-fold", "call-lowering",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "kind(?)"
}

// OptEvent records one applied optimization, generalized from the
// teacher's pkg/result/table.go Rule (Source/Replacement/BytesSaved/
// CyclesSaved) into "a node was rewritten for this reason".
type OptEvent struct {
	Kind        Kind
	Node        ir.Handle
	Replacement ir.Handle
}

// Log accumulates OptEvents for a compilation, mirroring the teacher's
// result.Table (sorted rule accumulator). Single-threaded per §5, so no
// mutex is needed where the teacher used one.
type Log struct {
	events []OptEvent
}

func NewLog() *Log { return &Log{} }

func (l *Log) Record(kind Kind, node, replacement ir.Handle) {
	l.events = append(l.events, OptEvent{Kind: kind, Node: node, Replacement: replacement})
}

func (l *Log) Events() []OptEvent { return l.events }

func (l *Log) Len() int { return len(l.events) }

func init() {
	gob.Register(OptEvent{})
}

// WriteDump persists the log via gob, the optional "debug dump" surface
// of §6 ("Persisted state: None by default. Optional debug dumps").
// Adapted from the teacher's pkg/result/checkpoint.go gob
// SaveCheckpoint/LoadCheckpoint, repurposed from search-progress
// checkpointing to an optimization-event dump.
func (l *Log) WriteDump(w io.Writer) error {
	enc := gob.NewEncoder(w)
	if err := enc.Encode(l.events); err != nil {
		return fmt.Errorf("opt: write dump: %w", err)
	}
	return nil
}

// ReadDump loads a previously written dump.
func ReadDump(r io.Reader) (*Log, error) {
	dec := gob.NewDecoder(r)
	var events []OptEvent
	if err := dec.Decode(&events); err != nil {
		return nil, fmt.Errorf("opt: read dump: %w", err)
	}
	return &Log{events: events}, nil
}
