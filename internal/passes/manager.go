package passes

import (
	"time"

	"aotc/internal/ir"
	"aotc/internal/stats"
)

// FunctionPass is a transformation over a single function's IR,
// reporting whether it changed anything.
type FunctionPass struct {
	Name string
	Run  func(*ir.Function) bool
}

// ModulePass is a transformation that needs whole-module information
// (the call graph, globals) rather than one function in isolation.
type ModulePass struct {
	Name string
	Run  func(*ir.Module) bool
}

// Pipeline is the mid-level optimization pipeline's full pass order,
// per spec.md §4: structured lowering and SSA construction first
// (followed only by SimplifyCFG at -O0), then the -O1 group, then at
// -O2 the late group. Run repeats the whole list, lowering and SSA
// construction included, until a full round changes nothing.
func Pipeline(optLevel int) []any {
	pipeline := []any{
		FunctionPass{"FlattenCFG", FlattenCFG},
		FunctionPass{"Mem2Reg", Mem2Reg},
	}
	if optLevel == 0 {
		pipeline = append(pipeline, FunctionPass{"SimplifyCFG", SimplifyCFG})
		return pipeline
	}
	pipeline = append(pipeline,
		ModulePass{"Purity", Purity},
		FunctionPass{"GVN", GVN},
		FunctionPass{"Alias", Alias},
		FunctionPass{"DSE", DSE},
		FunctionPass{"DLE", DLE},
		FunctionPass{"LICM", LICM},
		FunctionPass{"LoopRotate", LoopRotate},
		FunctionPass{"SCEVExpand", SCEVExpand},
		FunctionPass{"DCE", DCE},
		FunctionPass{"SimplifyCFG", SimplifyCFG},
	)
	if optLevel >= 2 {
		pipeline = append(pipeline,
			FunctionPass{"ConstLoopUnroll", ConstLoopUnroll},
			FunctionPass{"StrengthReduce", StrengthReduce},
			FunctionPass{"TCO", TCO},
			ModulePass{"DAE", DAE},
			ModulePass{"Globalize", Globalize},
			FunctionPass{"DCE", DCE},
			FunctionPass{"SimplifyCFG", SimplifyCFG},
		)
	}
	return pipeline
}

// maxPipelineIterations bounds the fixed-point loop so a pass bug that
// never converges fails loudly instead of hanging the driver.
const maxPipelineIterations = 32

// Run executes pipeline against every function in m (module passes run
// once per round across the whole module), repeating the whole sequence
// until a full round makes no change or the iteration cap is hit,
// recording each pass's timing/change count into collector.
func Run(m *ir.Module, pipeline []any, collector *stats.Collector) {
	for iter := 0; iter < maxPipelineIterations; iter++ {
		roundChanged := false
		for _, p := range pipeline {
			switch pass := p.(type) {
			case FunctionPass:
				for _, fn := range m.Functions {
					start := time.Now()
					changed := pass.Run(fn)
					collector.Record(pass.Name, changed, time.Since(start))
					roundChanged = roundChanged || changed
				}
			case ModulePass:
				start := time.Now()
				changed := pass.Run(m)
				collector.Record(pass.Name, changed, time.Since(start))
				roundChanged = roundChanged || changed
			}
		}
		if !roundChanged {
			return
		}
	}
}
