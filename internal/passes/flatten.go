// Package passes implements the mid-level optimization pipeline:
// structured-to-flat CFG lowering, Mem2Reg, GVN, loop analyses and
// transforms, the DCE/DSE/DLE/DAE family, SimplifyCFG, TCO, and
// StrengthReduce, plus the purity/alias analyses several of them share.
package passes

import "aotc/internal/ir"

// FlattenCFG lowers every structured if/while op in fn into a flat CFG
// of basic blocks ending in Jump/Branch/Return terminators, per
// spec.md §4.3. It is idempotent: run on already-flat IR it performs no
// structural change (spec.md §8's round-trip property).
func FlattenCFG(fn *ir.Function) bool {
	changed := false
	for {
		op := findStructuredOp(fn)
		if op == nil {
			break
		}
		switch op.Opcode {
		case ir.OpIf:
			flattenIf(fn, op)
		case ir.OpWhile:
			flattenWhile(fn, op)
		}
		changed = true
	}
	changed = fillImplicitTerminators(fn) || changed
	changed = collapseTrivialJumpBlocks(fn) || changed
	fn.UpdatePreds()
	return changed
}

// findStructuredOp returns the first If/While op still present anywhere
// in fn's block tree, or nil if the CFG is already flat.
func findStructuredOp(fn *ir.Function) *ir.Op {
	var found *ir.Op
	var walk func(r *ir.Region)
	walk = func(r *ir.Region) {
		if found != nil {
			return
		}
		for _, bb := range r.Blocks() {
			for _, op := range bb.Ops() {
				if op.Opcode == ir.OpIf || op.Opcode == ir.OpWhile {
					found = op
					return
				}
				for _, nested := range op.Regions {
					walk(nested)
					if found != nil {
						return
					}
				}
			}
		}
	}
	walk(fn.Body)
	return found
}

func flattenIf(fn *ir.Function, op *ir.Op) {
	bb := op.Block()
	region := bb.Region()
	b := ir.NewBuilder()

	cond := op.Operands[0]
	thenRegion := op.Regions[0]
	var elseRegion *ir.Region
	if len(op.Regions) > 1 {
		elseRegion = op.Regions[1]
	}

	joinBB := region.InsertAfter(bb)
	bb.SplitOpsAfter(op, joinBB)
	op.Erase()

	thenBlocks := thenRegion.Blocks()
	region.InsertBlocksBefore(joinBB, thenBlocks)
	thenFirst, thenLast := thenBlocks[0], thenBlocks[len(thenBlocks)-1]

	elseTarget := joinBB
	if elseRegion != nil {
		elseBlocks := elseRegion.Blocks()
		if len(elseBlocks) > 0 {
			region.InsertBlocksBefore(joinBB, elseBlocks)
			elseTarget = elseBlocks[0]
			elseLast := elseBlocks[len(elseBlocks)-1]
			if elseLast.Terminator() == nil {
				b.SetToBlockEnd(elseLast).Jump(joinBB)
			}
		}
	}

	b.SetToBlockEnd(bb).Branch(cond, thenFirst, elseTarget)
	if thenLast.Terminator() == nil {
		b.SetToBlockEnd(thenLast).Jump(joinBB)
	}
	_ = fn
}

func flattenWhile(fn *ir.Function, op *ir.Op) {
	bb := op.Block()
	region := bb.Region()
	b := ir.NewBuilder()

	beforeRegion := op.Regions[0]
	afterRegion := op.Regions[1]

	joinBB := region.InsertAfter(bb)
	bb.SplitOpsAfter(op, joinBB)
	op.Erase()

	beforeBlocks := beforeRegion.Blocks()
	region.InsertBlocksBefore(joinBB, beforeBlocks)
	afterBlocks := afterRegion.Blocks()
	region.InsertBlocksBefore(joinBB, afterBlocks)

	beforeFirst := beforeBlocks[0]
	beforeLast := beforeBlocks[len(beforeBlocks)-1]
	afterFirst := afterBlocks[0]
	afterLast := afterBlocks[len(afterBlocks)-1]

	b.SetToBlockEnd(bb).Jump(beforeFirst)

	proceedOp := beforeLast.LastOp()
	if proceedOp == nil || proceedOp.Opcode != ir.OpProceed {
		ir.Abort(ir.KindIRInvariant, proceedOp, "while's before-region must end in a proceed op")
	}
	cond := proceedOp.Operands[0]
	b.Replace(proceedOp, ir.OpBranch, ir.Void, []*ir.Op{cond},
		ir.TargetAttr{Block: afterFirst}, ir.ElseAttr{Block: joinBB})

	if term := afterLast.Terminator(); term == nil {
		b.SetToBlockEnd(afterLast).Jump(beforeFirst)
	} else if term.Opcode == ir.OpContinue {
		b.Replace(term, ir.OpJump, ir.Void, nil, ir.TargetAttr{Block: beforeFirst})
	}
	_ = fn
}

// fillImplicitTerminators gives every terminator-less block an explicit
// one: a Jump to the next block in list order if one follows, otherwise
// a bare Return.
func fillImplicitTerminators(fn *ir.Function) bool {
	changed := false
	blocks := fn.Blocks()
	b := ir.NewBuilder()
	for i, bb := range blocks {
		if bb.Terminator() != nil {
			continue
		}
		if i+1 < len(blocks) {
			b.SetToBlockEnd(bb).Jump(blocks[i+1])
		} else {
			b.SetToBlockEnd(bb).Return(nil)
		}
		changed = true
	}
	return changed
}

// collapseTrivialJumpBlocks chases away blocks whose entire body is a
// single unconditional Jump, redirecting every predecessor straight to
// the final target, to a fixed point. A trivial-jump block that is
// itself the target of any φ's From attribute is left alone: bypassing
// it would require renaming that φ's incoming edge, which belongs to
// SimplifyCFG's more careful inlining, not this shape-only cleanup.
func collapseTrivialJumpBlocks(fn *ir.Function) bool {
	changed := false
	for {
		progressed := false
		for _, bb := range fn.Blocks() {
			if bb.Len() != 1 {
				continue
			}
			term := bb.FirstOp()
			if term.Opcode != ir.OpJump {
				continue
			}
			target, ok := ir.GetAttr[ir.TargetAttr](term)
			if !ok || target.Block == bb {
				continue
			}
			if blockIsPhiTarget(fn, bb) {
				continue
			}
			if retargetPredecessors(fn, bb, target.Block) {
				progressed = true
				changed = true
			}
		}
		if !progressed {
			break
		}
	}
	return changed
}

func blockIsPhiTarget(fn *ir.Function, bb *ir.BasicBlock) bool {
	for _, other := range fn.Blocks() {
		for _, phi := range other.Phis() {
			for _, f := range ir.GetAttrs[ir.FromAttr](phi) {
				if f.Block == bb {
					return true
				}
			}
		}
	}
	return false
}

func retargetPredecessors(fn *ir.Function, from, to *ir.BasicBlock) bool {
	changed := false
	for _, bb := range fn.Blocks() {
		if bb == from {
			continue
		}
		term := bb.Terminator()
		if term == nil {
			continue
		}
		for i, a := range term.Attrs {
			if t, ok := a.(ir.TargetAttr); ok && t.Block == from {
				term.Attrs[i] = ir.TargetAttr{Block: to}
				changed = true
			}
			if e, ok := a.(ir.ElseAttr); ok && e.Block == from {
				term.Attrs[i] = ir.ElseAttr{Block: to}
				changed = true
			}
		}
	}
	return changed
}
