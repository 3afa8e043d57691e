// Package driver wires the whole compile pipeline together: read the
// input file, parse it into an astin.Program, lower to ir.Module, run
// the mid-level optimization pipeline to a fixed point, select machine
// instructions, allocate registers, run late peepholes to a fixed
// point, and emit assembly. It is also where spec.md §5's "no
// exceptions escape the pass driver" is enforced: a *ir.Fatal panic
// raised anywhere in the pipeline is recovered here and turned into a
// clean, non-zero process exit instead of an unwound Go panic.
package driver

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"aotc/internal/emit"
	"aotc/internal/frontend"
	"aotc/internal/ir"
	"aotc/internal/latepass"
	"aotc/internal/lower"
	"aotc/internal/mach"
	"aotc/internal/mach/arm64"
	"aotc/internal/mach/riscv64"
	"aotc/internal/options"
	"aotc/internal/passes"
	"aotc/internal/regalloc"
	"aotc/internal/stats"
)

// maxLatePassIterations bounds internal/latepass's fixed-point loop
// the same way passes.maxPipelineIterations bounds the mid-level one.
const maxLatePassIterations = 16

// Run executes one full compile from opt.Input to opt.Output, returning
// the process exit code spec.md §6 specifies: 0 on success, 1 on a
// front-end or I/O error. A recovered internal invariant failure is
// also reported as exit 1, after printing its diagnostic (and, when
// opt.Verbose is set, its stack).
func Run(opt *options.Options, stderr io.Writer) (code int) {
	buildID := uuid.New().String()
	if opt.Verbose {
		fmt.Fprintf(stderr, "aotc build %s: %s -> %s (%s, -O%d)\n",
			buildID, opt.Input, opt.Output, opt.Target, opt.OptLevel)
	}

	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*ir.Fatal)
			if !ok {
				panic(r) // not one of ours; let it crash loudly
			}
			fmt.Fprintf(stderr, "aotc: %s\n", f.Error())
			if trace := ir.StackTrace(f); trace != "" && opt.Verbose {
				fmt.Fprintln(stderr, trace)
			}
			code = 1
		}
	}()

	src, err := os.ReadFile(opt.Input)
	if err != nil {
		fmt.Fprintf(stderr, "aotc: reading %s: %v\n", opt.Input, err)
		return 1
	}

	prog, err := frontend.Parse(string(src))
	if err != nil {
		fmt.Fprintf(stderr, "aotc: %s: %v\n", opt.Input, err)
		return 1
	}

	module, err := lower.Lower(prog)
	if err != nil {
		fmt.Fprintf(stderr, "aotc: %s: %v\n", opt.Input, err)
		return 1
	}

	sel, err := selectorFor(opt.Target)
	if err != nil {
		fmt.Fprintf(stderr, "aotc: %v\n", err)
		return 1
	}

	collector := stats.NewCollector()
	passes.Run(module, passes.Pipeline(opt.OptLevel), collector)

	for _, fn := range module.Functions {
		if err := sel.Select(fn); err != nil {
			fmt.Fprintf(stderr, "aotc: selecting %s: %v\n", fn.Name, err)
			return 1
		}
		if err := regalloc.Run(fn, sel); err != nil {
			fmt.Fprintf(stderr, "aotc: allocating %s: %v\n", fn.Name, err)
			return 1
		}
		for i := 0; i < maxLatePassIterations && latepass.Run(fn); i++ {
		}
	}

	if opt.DumpPasses {
		fmt.Fprint(stderr, collector.Report())
	}

	out, err := openOutput(opt.Output)
	if err != nil {
		fmt.Fprintf(stderr, "aotc: %v\n", err)
		return 1
	}
	defer out.Close()

	if err := emit.Module(out, module); err != nil {
		fmt.Fprintf(stderr, "aotc: writing %s: %v\n", opt.Output, err)
		return 1
	}
	return 0
}

func selectorFor(target options.Target) (mach.Selector, error) {
	switch target {
	case options.TargetARM64:
		return arm64.New(), nil
	case options.TargetRISCV64:
		return riscv64.New(), nil
	default:
		return nil, fmt.Errorf("unrecognized target %q", target)
	}
}

func openOutput(path string) (*os.File, error) {
	if path == "-" || path == "" {
		return os.Stdout, nil
	}
	return os.Create(path)
}
