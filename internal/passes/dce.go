package passes

import "aotc/internal/ir"

// sideEffectOpcodes never get deleted for being unused: they matter for
// what they do, not what they produce. A Call is the exception that
// mustKeep decides on its own.
var sideEffectOpcodes = map[ir.Opcode]bool{
	ir.OpStore: true, ir.OpCall: true,
	ir.OpJump: true, ir.OpBranch: true, ir.OpReturn: true,
	ir.OpProceed: true, ir.OpContinue: true,
}

// DCE repeatedly erases ops with no uses and no side effects, to a fixed
// point, per spec.md §4.6. A Call with no uses is kept only when Purity
// has tagged it ImpureAttr; an untagged Call is removed like any other
// unused op.
func DCE(fn *ir.Function) bool {
	changed := false
	for {
		progressed := false
		for _, op := range fn.AllOps() {
			if op.HasUses() {
				continue
			}
			if mustKeep(op) {
				continue
			}
			op.Erase()
			progressed = true
		}
		if !progressed {
			break
		}
		changed = true
	}
	changed = RemoveUnreachableBlocks(fn) || changed
	return changed
}

// mustKeep reports whether op must survive even with zero uses: every
// terminator and store always, and a call whenever Purity has tagged it
// ImpureAttr (spec.md §4.7) — an untagged call is treated as pure and
// becomes eligible for removal, so DCE should run after Purity has had
// a chance to annotate call sites.
func mustKeep(op *ir.Op) bool {
	if op.Opcode == ir.OpCall {
		return ir.HasAttr[ir.ImpureAttr](op)
	}
	return sideEffectOpcodes[op.Opcode]
}

// RemoveUnreachableBlocks deletes every block in fn's flat CFG not
// reachable from the entry block by walking Jump/Branch targets, and
// strips any φ operand that named a removed block as its incoming
// predecessor.
func RemoveUnreachableBlocks(fn *ir.Function) bool {
	blocks := fn.Blocks()
	if len(blocks) == 0 {
		return false
	}
	entry := blocks[0]
	reachable := ir.NewSet[*ir.BasicBlock]()
	var walk func(bb *ir.BasicBlock)
	walk = func(bb *ir.BasicBlock) {
		if reachable.Has(bb) {
			return
		}
		reachable.Add(bb)
		term := bb.Terminator()
		if term == nil {
			return
		}
		if t, ok := ir.GetAttr[ir.TargetAttr](term); ok {
			walk(t.Block)
		}
		if e, ok := ir.GetAttr[ir.ElseAttr](term); ok {
			walk(e.Block)
		}
	}
	walk(entry)

	changed := false
	for _, bb := range blocks {
		if reachable.Has(bb) {
			continue
		}
		stripDeadPhiEdges(fn, bb)
		ops := bb.Ops()
		for i := len(ops) - 1; i >= 0; i-- {
			ops[i].Erase()
		}
		bb.Region().RemoveBlock(bb)
		changed = true
	}
	if changed {
		fn.UpdatePreds()
	}
	return changed
}

// stripDeadPhiEdges removes every φ operand/FromAttr pair in fn whose
// predecessor is the about-to-be-deleted block dead.
func stripDeadPhiEdges(fn *ir.Function, dead *ir.BasicBlock) {
	for _, bb := range fn.Blocks() {
		for _, phi := range bb.Phis() {
			froms := ir.GetAttrs[ir.FromAttr](phi)
			for i := len(phi.Operands) - 1; i >= 0; i-- {
				if i < len(froms) && froms[i].Block == dead {
					phi.RemoveOperandAt(i)
					phi.Attrs = append(phi.Attrs[:i], phi.Attrs[i+1:]...)
				}
			}
		}
	}
}
