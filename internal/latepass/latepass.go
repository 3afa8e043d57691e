// Package latepass runs the peephole cleanups spec.md §4.9 step 9
// describes, operating on already-coloured machine IR: self-moves and
// redundant spill round-trips are folded away, and a conditional
// branch whose not-taken edge is not the next physical block gets an
// explicit trailing jump so the fallthrough emission assumes actually
// holds.
package latepass

import "aotc/internal/ir"

// Run applies every late peephole to fn, returning whether anything
// changed.
func Run(fn *ir.Function) bool {
	changed := false
	for _, bb := range fn.Blocks() {
		changed = foldSpillRoundTrip(bb) || changed
		changed = eliminateSelfMoves(bb) || changed
	}
	changed = fixupFallthrough(fn) || changed
	return changed
}

// eliminateSelfMoves drops a Move whose destination and source name
// the same register.
func eliminateSelfMoves(bb *ir.BasicBlock) bool {
	changed := false
	for _, op := range bb.Ops() {
		if op.Opcode != ir.OpMove {
			continue
		}
		regs := ir.GetAttrs[ir.RegAttr](op)
		if len(regs) == 2 && regs[0].Reg == regs[1].Reg {
			op.Erase()
			changed = true
		}
	}
	return changed
}

// foldSpillRoundTrip collapses a SpillStore immediately followed by a
// SpillLoad of the same offset into a plain register Move, the
// machine-op analogue of spec.md §4.9 step 9's "collapse store+load to
// same address/size to store+mv".
func foldSpillRoundTrip(bb *ir.BasicBlock) bool {
	changed := false
	ops := bb.Ops()
	for i := 0; i < len(ops)-1; i++ {
		store := ops[i]
		load := ops[i+1]
		if store.Opcode != ir.OpSpillStore || load.Opcode != ir.OpSpillLoad {
			continue
		}
		sOff, ok1 := ir.GetAttr[ir.SpilledAttr](store)
		lOff, ok2 := ir.GetAttr[ir.SpilledAttr](load)
		if !ok1 || !ok2 || sOff.Offset != lOff.Offset {
			continue
		}
		storedReg, ok := ir.GetAttr[ir.RegAttr](store)
		if !ok {
			continue
		}
		loadedReg, ok := ir.GetAttr[ir.RegAttr](load)
		if !ok {
			continue
		}
		if storedReg.Reg == loadedReg.Reg {
			load.Erase()
		} else {
			b := ir.NewBuilder().SetBeforeOp(load)
			b.Create(ir.OpMove, ir.I64, nil,
				ir.RegAttr{Role: ir.RoleRd, Reg: loadedReg.Reg},
				ir.RegAttr{Role: ir.RoleRs, Reg: storedReg.Reg})
			load.Erase()
		}
		changed = true
	}
	return changed
}

// fixupFallthrough appends an explicit jump to a branch's not-taken
// target whenever that target is not the physically next block.
func fixupFallthrough(fn *ir.Function) bool {
	changed := false
	blocks := fn.Blocks()
	for i, bb := range blocks {
		term := bb.Terminator()
		if term == nil {
			continue
		}
		els, ok := ir.GetAttr[ir.ElseAttr](term)
		if !ok {
			continue
		}
		var next *ir.BasicBlock
		if i+1 < len(blocks) {
			next = blocks[i+1]
		}
		if els.Block == next {
			continue
		}
		ir.NewBuilder().SetToBlockEnd(bb).Jump(els.Block)
		changed = true
	}
	return changed
}
