// Command firmc is the reference frontend CLI of §6: it translates one
// compilation unit (selected from a fixed menu, since pkg/construct's
// get_value/mature_block API *is* the frontend surface — there is no
// separate source language to parse) to target assembly, and exposes
// the optimizer's debug-dump surface for inspection.
//
// Modeled file-for-file on the teacher's cmd/z80opt/main.go: a cobra
// root command, one subcommand per cobra.Command with RunE, flags bound
// via Flags().*Var, and fmt.Errorf("...: %w", err) wrapping throughout.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/firmgo/firmc/pkg/analysis"
	"github.com/firmgo/firmc/pkg/be"
	"github.com/firmgo/firmc/pkg/ir"
	"github.com/firmgo/firmc/pkg/mode"
	"github.com/firmgo/firmc/pkg/opt"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run())
}

// run recovers from internal panics into exit code 2, per §6 ("0 success,
// 1 compile error, 2 internal error (panic)").
func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "firmc: internal error: %v\n", r)
			code = 2
		}
	}()

	rootCmd := &cobra.Command{
		Use:   "firmc",
		Short: "firmc — retargetable compiler middle-end/backend reference driver",
	}

	rootCmd.AddCommand(buildCmd(), checkCmd(), dumpRulesCmd(), verifyRulesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "firmc: %v\n", err)
		return 1
	}
	return 0
}

// buildFlags are shared between build and check, mirroring §6's CLI
// surface ("Flags select target, optimization level, and toggles").
type buildFlags struct {
	example          string
	target           string
	optLevel         int
	mcpu             string
	softFloat        bool
	unsafeFloatConv  bool
	output           string
	dumpLog          string
	verbose          bool
}

func bindBuildFlags(cmd *cobra.Command, f *buildFlags) {
	cmd.Flags().StringVar(&f.example, "example", "add-chain", "Built-in compilation unit: add-chain, load-store, iv-mul")
	cmd.Flags().StringVar(&f.target, "target", "ia32", "Target architecture: ia32, arm, sparc")
	cmd.Flags().IntVar(&f.optLevel, "opt-level", 1, "Optimization level (0 = none, 1 = local+load/store, 2 = +OSR/LFTR)")
	cmd.Flags().StringVar(&f.mcpu, "mcpu", "", "SPARC CPU variant: leon, hypersparc, ... (sparc target only)")
	cmd.Flags().BoolVar(&f.softFloat, "msoft-float", false, "Lower floating point to soft-float calls (sparc target only)")
	cmd.Flags().BoolVar(&f.unsafeFloatConv, "use-unsafe-floatconv", false, "Allow unsafe float/int conversions (ia32 target only)")
	cmd.Flags().StringVar(&f.output, "output", "", "Output file path (default stdout)")
	cmd.Flags().StringVar(&f.dumpLog, "dump-log", "", "Optional gob dump path for applied optimization events")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Verbose progress output")
}

func buildCmd() *cobra.Command {
	f := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Translate a compilation unit to target assembly",
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, log, err := compile(f)
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}

			out := os.Stdout
			if f.output != "" {
				file, err := os.Create(f.output)
				if err != nil {
					return fmt.Errorf("build: %w", err)
				}
				defer file.Close()
				out = file
			}
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}

			if f.dumpLog != "" {
				dumpFile, err := os.Create(f.dumpLog)
				if err != nil {
					return fmt.Errorf("build: %w", err)
				}
				defer dumpFile.Close()
				if err := log.WriteDump(dumpFile); err != nil {
					return fmt.Errorf("build: %w", err)
				}
			}
			return nil
		},
	}
	bindBuildFlags(cmd, f)
	return cmd
}

func checkCmd() *cobra.Command {
	f := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Construct and verify a compilation unit without emitting assembly",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := buildExample(f.example)
			if err != nil {
				return fmt.Errorf("check: %w", err)
			}
			if err := analysis.VerifyGraph(g); err != nil {
				return fmt.Errorf("check: %w", err)
			}
			fmt.Fprintf(os.Stdout, "check: %s: ok\n", f.example)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.example, "example", "add-chain", "Built-in compilation unit: add-chain, load-store, iv-mul")
	return cmd
}

func dumpRulesCmd() *cobra.Command {
	f := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "dump-rules",
		Short: "Run the optimizer and print the applied rewrites as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := compile(f)
			if err != nil {
				return fmt.Errorf("dump-rules: %w", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(log.Events()); err != nil {
				return fmt.Errorf("dump-rules: %w", err)
			}
			return nil
		},
	}
	bindBuildFlags(cmd, f)
	return cmd
}

func verifyRulesCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "verify-rules [path]",
		Short: "Decode a gob optimization-event dump and report its rule count",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path = args[0]
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("verify-rules: %w", err)
			}
			defer file.Close()
			log, err := opt.ReadDump(file)
			if err != nil {
				return fmt.Errorf("verify-rules: %w", err)
			}
			fmt.Fprintf(os.Stdout, "verify-rules: %s: %d event(s), decodes cleanly\n", path, log.Len())
			return nil
		},
	}
	return cmd
}

// compile drives the full pipeline of §4.7-§4.13 over a built-in
// compilation unit: local optimization, load/store opt, optionally
// OSR/LFTR and Phi-cycle removal, analysis (dominators/loops/heights/
// liveness), backend addressing-mode folding, register allocation,
// scheduling, and emission — mirroring the teacher's enumerate command's
// "search.Run then format the winning rules" shape, generalized from a
// superoptimizer loop to a compiler pipeline.
func compile(f *buildFlags) ([]string, *opt.Log, error) {
	g, err := buildExample(f.example)
	if err != nil {
		return nil, nil, err
	}

	if f.target == "sparc" && f.softFloat && f.verbose {
		fmt.Fprintf(os.Stderr, "firmc: lowering float ops to soft-float calls (-msoft-float, mcpu=%s)\n", f.mcpu)
	}
	if f.target == "ia32" && f.unsafeFloatConv && f.verbose {
		fmt.Fprintf(os.Stderr, "firmc: allowing unsafe float/int conversions (-use-unsafe-floatconv)\n")
	}

	log := opt.NewLog()
	vt := opt.NewValueTable(g)

	if f.optLevel >= 1 {
		optimizer := opt.NewOptimizer(g, vt, log)
		for _, h := range g.Arena.All() {
			if v, ok := optimizer.ComputedValue(h); ok {
				if f.verbose {
					fmt.Fprintf(os.Stderr, "firmc: %d folds to %v\n", h, v)
				}
			}
			_ = optimizer.Simplify(h)
		}
		opt.LoadStoreOpt(g, log)
	}

	preds := blockPreds(g)
	dom := analysis.ComputeDominators(g, preds)

	if f.optLevel >= 2 {
		isRC := func(value, header ir.Handle) bool {
			return analysis.IsRegionConstant(g, dom, value, header)
		}
		opt.StrengthReduction(g, log, isRC, mode.Wrap)
		opt.PhiCycleRemoval(g, log)
	}

	if err := analysis.VerifyGraph(g); err != nil {
		return nil, nil, err
	}

	if f.target == "ia32" {
		be.SplitCriticalEdges(g, blockSuccs(g, preds), allBlocks(g))
	}

	succs := blockSuccs(g, preds)
	heights := analysis.ComputeHeights(g)
	liveness := analysis.ComputeLiveness(g, preds, succs)
	_ = analysis.ComputeLoopTree(g, dom, preds)

	blocks := allBlocks(g)
	sched := be.ListSchedule(g, heights, blocks)

	class := func(h ir.Handle) be.RegisterClass {
		if m := g.Arena.Get(h).Mode; m == mode.F || m == mode.D || m == mode.E {
			return be.ClassFP
		}
		return be.ClassGP
	}
	allocator := be.NewAllocator(targetNumRegs(f.target), 8, liveness, class)
	assignments, err := allocator.Allocate(g, blocks)
	if err != nil {
		return nil, nil, err
	}
	assignMap := make(map[ir.Handle]be.Assignment, len(assignments))
	for _, a := range assignments {
		assignMap[a.Value] = a
	}

	reg := func(a be.Assignment) string { return targetRegName(f.target, a) }
	label := func(b ir.Handle) string { return fmt.Sprintf(".L%d", b) }
	calleeSym := func(ir.Handle) string { return "unknown" }
	emitter := be.NewEmitter(assignMap, reg, label, calleeSym)

	if f.target == "ia32" {
		wireIA32Transforms(g, emitter, log)

		x87Pre := make(map[ir.Handle][]string)
		for _, block := range blocks {
			for h, lines := range be.SimulateX87Block(g, sched.Order[block], assignMap) {
				x87Pre[h] = lines
			}
		}
		emitter.SetX87Simulation(x87Pre)
	}

	if f.target == "sparc" {
		fillers := make(map[ir.Handle]ir.Handle)
		suppressed := make(map[ir.Handle]bool)
		for _, block := range blocks {
			order := sched.Order[block]
			for i, h := range order {
				if !be.HasDelaySlot(g.Arena.Get(h).Op) {
					continue
				}
				filler := be.FillDelaySlot(g, order, i)
				if filler != ir.InvalidHandle && !suppressed[filler] {
					fillers[h] = filler
					suppressed[filler] = true
				}
			}
		}
		emitter.SetDelaySlotFilling(fillers, suppressed)
	}

	var lines []string
	for _, block := range blocks {
		blockLines, err := emitter.EmitBlock(g, block, sched.Order[block])
		if err != nil {
			return nil, nil, err
		}
		lines = append(lines, blockLines...)
	}
	return lines, log, nil
}

func targetNumRegs(target string) int {
	switch target {
	case "arm":
		return 13
	case "sparc":
		return 6
	default: // ia32
		return 5
	}
}

func targetRegName(target string, a be.Assignment) string {
	if a.Spilled {
		return "[spill]"
	}
	if a.Class == be.ClassFP {
		return fmt.Sprintf("%%st(%d)", a.Register)
	}
	switch target {
	case "arm":
		return fmt.Sprintf("r%d", a.Register)
	case "sparc":
		return fmt.Sprintf("%%l%d", a.Register)
	default: // ia32
		names := [...]string{"eax", "ecx", "edx", "ebx", "esi"}
		if a.Register >= 0 && a.Register < len(names) {
			return names[a.Register]
		}
		return fmt.Sprintf("r%d", a.Register)
	}
}
