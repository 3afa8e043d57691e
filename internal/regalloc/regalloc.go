// Package regalloc implements spec.md §4.9's register allocator and SSA
// destruction: pre-colouring call sites and argument registers,
// building an interference graph from a per-block liveness sweep,
// priority-ordered graph colouring with spill fallback, lowering
// operand-carrying machine ops into register/spill attributes,
// resolving φ-nodes into scheduled parallel moves, and inserting the
// function's prologue/epilogue.
package regalloc

import (
	"aotc/internal/ir"
	"aotc/internal/mach"
)

// Run allocates registers for fn, whose ops must already have been
// through sel.Select (mid-level opcodes lowered into sel's machine
// vocabulary). fn is mutated in place; by the time Run returns every
// remaining op either reads/writes a named register via RegAttr or
// has had explicit spill code materialized around it.
func Run(fn *ir.Function, sel mach.Selector) error {
	fn.Renumber()
	fn.UpdatePreds()

	fixed := precolour(fn, sel)

	fn.Renumber()
	fn.UpdatePreds()
	live := fn.UpdateLiveness()

	g := buildInterference(fn, live)
	leaf := !hasCall(fn, sel)
	c := colour(fn, g, fixed, leaf, sel.CallerSaved(), sel.CalleeSaved())

	destructSSA(fn, c, sel)
	lowerAndSpill(fn, c, sel)
	insertPrologueEpilogue(fn, c, sel)

	fn.Renumber()
	fn.UpdatePreds()
	return nil
}

func hasCall(fn *ir.Function, sel mach.Selector) bool {
	for _, op := range fn.AllOps() {
		if mach.IsMachineOp(op, opPrefixOf(sel)) && isCallOp(op) {
			return true
		}
	}
	return false
}
