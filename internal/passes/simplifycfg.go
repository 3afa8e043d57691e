package passes

import "aotc/internal/ir"

// SimplifyCFG folds control-flow shapes that FlattenCFG's own
// trivial-jump collapsing leaves behind once other passes have run:
// branches with identical targets, branches on a known-constant
// condition, and a block whose single predecessor ends in an
// unconditional jump to it (block merging), per spec.md §4.6.
func SimplifyCFG(fn *ir.Function) bool {
	fn.UpdatePreds()
	changed := false
	for {
		progressed := false
		progressed = foldConstantBranches(fn) || progressed
		progressed = foldSameTargetBranches(fn) || progressed
		progressed = mergeSinglePredBlocks(fn) || progressed
		if !progressed {
			break
		}
		fn.UpdatePreds()
		changed = true
	}
	return changed
}

// foldConstantBranches rewrites `branch %c, then, else` to an
// unconditional Jump when %c is an IntConst.
func foldConstantBranches(fn *ir.Function) bool {
	changed := false
	b := ir.NewBuilder()
	for _, bb := range fn.Blocks() {
		term := bb.Terminator()
		if term == nil || term.Opcode != ir.OpBranch {
			continue
		}
		cond := term.Operands[0]
		if cond == nil || cond.Opcode != ir.OpIntConst {
			continue
		}
		iv, _ := ir.GetAttr[ir.IntAttr](cond)
		target, _ := ir.GetAttr[ir.TargetAttr](term)
		els, _ := ir.GetAttr[ir.ElseAttr](term)
		dest := els.Block
		if iv.Value != 0 {
			dest = target.Block
		}
		b.Replace(term, ir.OpJump, ir.Void, nil, ir.TargetAttr{Block: dest})
		changed = true
	}
	return changed
}

// foldSameTargetBranches rewrites `branch %c, X, X` to `jump X`.
func foldSameTargetBranches(fn *ir.Function) bool {
	changed := false
	b := ir.NewBuilder()
	for _, bb := range fn.Blocks() {
		term := bb.Terminator()
		if term == nil || term.Opcode != ir.OpBranch {
			continue
		}
		target, _ := ir.GetAttr[ir.TargetAttr](term)
		els, _ := ir.GetAttr[ir.ElseAttr](term)
		if target.Block != els.Block {
			continue
		}
		b.Replace(term, ir.OpJump, ir.Void, nil, ir.TargetAttr{Block: target.Block})
		changed = true
	}
	return changed
}

// mergeSinglePredBlocks splices a block's ops into its sole predecessor
// when that predecessor ends in a plain Jump to it and no φ in the
// successor depends on a distinguishable incoming edge (i.e. the
// successor has at most one predecessor, so any φ it carries is
// trivially single-operand and Mem2Reg/GVN's trivial-φ cleanup already
// retires it, meaning none remain by the time this rule fires).
func mergeSinglePredBlocks(fn *ir.Function) bool {
	changed := false
	for _, bb := range fn.Blocks() {
		preds := bb.Preds().Items()
		if len(preds) != 1 {
			continue
		}
		pred := preds[0]
		if pred == bb {
			continue
		}
		predTerm := pred.Terminator()
		if predTerm == nil || predTerm.Opcode != ir.OpJump {
			continue
		}
		if len(bb.Phis()) != 0 {
			continue
		}
		if pred.Succs().Len() != 1 {
			continue
		}
		predTerm.Erase()
		retargetPhiFromEdges(fn, bb, pred)
		bb.SplitOpsAfter(nil, pred)
		bb.Region().RemoveBlock(bb)
		changed = true
	}
	return changed
}

// retargetPhiFromEdges rewrites every φ's FromAttr naming from as the
// incoming predecessor to name to instead, used when from's ops are
// being folded into to by mergeSinglePredBlocks.
func retargetPhiFromEdges(fn *ir.Function, from, to *ir.BasicBlock) {
	for _, bb := range fn.Blocks() {
		for _, phi := range bb.Phis() {
			for i, a := range phi.Attrs {
				if f, ok := a.(ir.FromAttr); ok && f.Block == from {
					phi.Attrs[i] = ir.FromAttr{Block: to}
				}
			}
		}
	}
}
