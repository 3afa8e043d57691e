package regalloc

import (
	"strconv"

	"aotc/internal/ir"
	"aotc/internal/mach"
)

// movePair is one parallel-copy edge: value currently at src must end
// up at dst, with both executed "simultaneously" relative to every
// other pair sharing the same edge block.
type movePair struct {
	dst, src assignment
}

func locKey(a assignment) string {
	if a.spill {
		return "m" + strconv.Itoa(a.offset)
	}
	return "r" + a.reg
}

// destructSSA implements spec.md §4.9 step 6: every block whose
// successor carries a φ gets one parallel move per incoming φ operand
// scheduled into that edge, splitting the edge into a trampoline block
// first whenever the predecessor has more than one successor (a
// critical edge, where inserting moves directly into the predecessor
// could run them on a path that should not take them).
func destructSSA(fn *ir.Function, c *colouring, sel mach.Selector) {
	scratch := sel.ScratchRegisters()
	var scratchReg string
	if len(scratch) > 0 {
		scratchReg = scratch[0]
	}

	for _, bb := range fn.Blocks() {
		phis := bb.Phis()
		if len(phis) == 0 {
			continue
		}
		for _, pred := range bb.Preds().Items() {
			edge := pred
			if pred.Succs().Len() > 1 {
				edge = splitCriticalEdge(pred, bb)
			}

			var pairs []movePair
			for _, phi := range phis {
				froms := ir.GetAttrs[ir.FromAttr](phi)
				for i, operand := range phi.Operands {
					if i >= len(froms) || froms[i].Block != pred || operand == nil {
						continue
					}
					dst, src := c.of[phi], c.of[operand]
					if locKey(dst) != locKey(src) {
						pairs = append(pairs, movePair{dst: dst, src: src})
					}
				}
			}
			scheduleMoves(edge, pairs, scratchReg)
		}

		for _, phi := range phis {
			phi.Erase()
		}
	}
}

// splitCriticalEdge inserts a trampoline block between pred and succ,
// jumping straight to succ, and retargets pred's terminator to it.
func splitCriticalEdge(pred, succ *ir.BasicBlock) *ir.BasicBlock {
	trampoline := pred.Region().InsertAfter(pred)
	term := pred.Terminator()
	for i, a := range term.Attrs {
		if t, ok := a.(ir.TargetAttr); ok && t.Block == succ {
			term.Attrs[i] = ir.TargetAttr{Block: trampoline}
		}
		if e, ok := a.(ir.ElseAttr); ok && e.Block == succ {
			term.Attrs[i] = ir.ElseAttr{Block: trampoline}
		}
	}
	ir.NewBuilder().SetToBlockEnd(trampoline).Jump(succ)
	return trampoline
}

// scheduleMoves sequences pairs into real move/spill ops at the start
// of edge, using the classic ready-list algorithm: a pair is safe to
// emit once no other pending pair still needs its destination's
// current value as a source; a leftover cycle is broken by copying its
// head's value into scratch first (spec.md §4.9 step 6: "tmp←head,
// head←next, …, last←tmp").
func scheduleMoves(edge *ir.BasicBlock, pairs []movePair, scratchReg string) {
	if len(pairs) == 0 {
		return
	}
	b := ir.NewBuilder().SetToBlockStart(edge)

	pending := append([]movePair(nil), pairs...)
	for len(pending) > 0 {
		progressed := false
		for i := 0; i < len(pending); i++ {
			p := pending[i]
			if neededAsSrc(pending, p.dst, i) {
				continue
			}
			emitMove(b, p.dst, p.src, scratchReg)
			pending = append(pending[:i], pending[i+1:]...)
			progressed = true
			break
		}
		if progressed {
			continue
		}
		// Every remaining pair is part of a cycle; break the first one.
		head := pending[0]
		scratchAssign := assignment{reg: scratchReg}
		emitMove(b, scratchAssign, head.dst, scratchReg)
		for i := range pending {
			if locKey(pending[i].src) == locKey(head.dst) {
				pending[i].src = scratchAssign
			}
		}
	}
}

// neededAsSrc reports whether any pending pair other than skip still
// reads from loc.
func neededAsSrc(pending []movePair, loc assignment, skip int) bool {
	for i, p := range pending {
		if i == skip {
			continue
		}
		if locKey(p.src) == locKey(loc) {
			return true
		}
	}
	return false
}

// emitMove materializes one dst<-src copy, routing through a memory
// access on whichever side is spilled.
func emitMove(b *ir.Builder, dst, src assignment, scratchReg string) {
	switch {
	case !dst.spill && !src.spill:
		b.Create(ir.OpMove, ir.I64, nil,
			ir.RegAttr{Role: ir.RoleRd, Reg: dst.reg},
			ir.RegAttr{Role: ir.RoleRs, Reg: src.reg})
	case !dst.spill && src.spill:
		b.Create(ir.OpSpillLoad, ir.I64, nil,
			ir.RegAttr{Role: ir.RoleRd, Reg: dst.reg},
			ir.SpilledAttr{Role: ir.RoleRs, Offset: src.offset})
	case dst.spill && !src.spill:
		b.Create(ir.OpSpillStore, ir.Void, nil,
			ir.RegAttr{Role: ir.RoleRs, Reg: src.reg},
			ir.SpilledAttr{Role: ir.RoleRd, Offset: dst.offset})
	default:
		b.Create(ir.OpSpillLoad, ir.I64, nil,
			ir.RegAttr{Role: ir.RoleRd, Reg: scratchReg},
			ir.SpilledAttr{Role: ir.RoleRs, Offset: src.offset})
		b.Create(ir.OpSpillStore, ir.Void, nil,
			ir.RegAttr{Role: ir.RoleRs, Reg: scratchReg},
			ir.SpilledAttr{Role: ir.RoleRd, Offset: dst.offset})
	}
}
