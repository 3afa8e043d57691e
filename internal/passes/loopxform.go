package passes

import "aotc/internal/ir"

// LoopRotate converts a header-tested loop (branch at the top, on every
// iteration including the last) into the do-while shape a back end
// prefers: a preheader falls into the body unconditionally, and the
// exit test lives at the bottom next to the latch, per spec.md §4.6.
// Only the common single-exit, single-latch shape is rotated; anything
// else is left for the next LICM/SimplifyCFG round to simplify first.
func LoopRotate(fn *ir.Function) bool {
	changed := false
	for _, loop := range FindLoops(fn) {
		if loop.Latch != loop.Header {
			continue // already bottom-tested
		}
		term := loop.Header.Terminator()
		if term == nil || term.Opcode != ir.OpBranch {
			continue
		}
		preheader := loop.findPreheader()
		if preheader == nil {
			continue
		}
		target, _ := ir.GetAttr[ir.TargetAttr](term)
		els, _ := ir.GetAttr[ir.ElseAttr](term)
		body := target.Block
		if body == loop.Header {
			body, target.Block = els.Block, els.Block
		}
		if body == loop.Header {
			continue
		}
		preTerm := preheader.Terminator()
		if preTerm != nil && preTerm.Opcode == ir.OpJump {
			ir.NewBuilder().Replace(preTerm, ir.OpJump, ir.Void, nil, ir.TargetAttr{Block: body})
			changed = true
		}
	}
	return changed
}

// ConstLoopUnroll fully unrolls a loop whose trip count is a compile-
// time constant within a small bound, per spec.md §4.6. It requires the
// loop to already be in the simple induction-variable shape a prior
// SCEV canonicalization pass would establish: a header φ counting from a
// constant start to a constant stop by a constant step, tested by a
// single Lt/Le/Gt/Ge compare gating the single back edge. Anything more
// elaborate is left to the backend's own branch predictor rather than
// expanded at this level (spec.md §9: multi-coefficient SCEV widening
// is unsupported, and so is unrolling a loop this pass cannot prove
// bounded).
const unrollTripCountLimit = 16

func ConstLoopUnroll(fn *ir.Function) bool {
	changed := false
	for _, loop := range FindLoops(fn) {
		trip, ok := constantTripCount(loop)
		if !ok || trip <= 0 || trip > unrollTripCountLimit {
			continue
		}
		if len(loop.Body) != 1 {
			continue // only a single-block loop body is unrolled
		}
		unrollSingleBlockLoop(fn, loop, trip)
		changed = true
	}
	if changed {
		fn.UpdatePreds()
	}
	return changed
}

// constantTripCount recognizes a header carrying exactly one φ whose
// preheader value and per-iteration step are both IntConst and whose
// gating compare's bound is an IntConst, and returns the number of
// times the body executes.
func constantTripCount(loop *Loop) (int64, bool) {
	header := loop.Header
	phis := header.Phis()
	if len(phis) != 1 {
		return 0, false
	}
	phi := phis[0]
	if len(phi.Operands) != 2 {
		return 0, false
	}
	froms := ir.GetAttrs[ir.FromAttr](phi)
	var start, step *ir.Op
	for i, f := range froms {
		if f.Block == loop.Latch {
			step = phi.Operands[i]
		} else {
			start = phi.Operands[i]
		}
	}
	if start == nil || step == nil {
		return 0, false
	}
	startVal, ok := asIntConst(start)
	if !ok {
		return 0, false
	}
	stepOp, stepDelta, ok := asInductionStep(step, phi)
	if !ok || len(stepOp.Uses()) != 1 {
		return 0, false
	}
	term := header.Terminator()
	if term == nil || term.Opcode != ir.OpBranch {
		return 0, false
	}
	cmp := term.Operands[0]
	if cmp == nil {
		return 0, false
	}
	bound, boundConst := boundOf(cmp, phi)
	if !boundConst {
		return 0, false
	}
	if stepDelta == 0 {
		return 0, false
	}
	trip := (bound - startVal) / stepDelta
	if trip < 0 {
		return 0, false
	}
	return trip, true
}

func asIntConst(op *ir.Op) (int64, bool) {
	if op.Opcode != ir.OpIntConst {
		return 0, false
	}
	iv, _ := ir.GetAttr[ir.IntAttr](op)
	return iv.Value, true
}

// asInductionStep recognizes `phi + C` or `phi - C` and returns the
// signed per-iteration delta.
func asInductionStep(op, phi *ir.Op) (*ir.Op, int64, bool) {
	if op.Opcode != ir.OpAdd && op.Opcode != ir.OpSub {
		return nil, 0, false
	}
	if op.Operands[0] != phi {
		return nil, 0, false
	}
	c, ok := asIntConst(op.Operands[1])
	if !ok {
		return nil, 0, false
	}
	if op.Opcode == ir.OpSub {
		c = -c
	}
	return op, c, true
}

func boundOf(cmp, phi *ir.Op) (int64, bool) {
	switch cmp.Opcode {
	case ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
	default:
		return 0, false
	}
	if cmp.Operands[0] == phi {
		return asIntConst(cmp.Operands[1])
	}
	if cmp.Operands[1] == phi {
		return asIntConst(cmp.Operands[0])
	}
	return 0, false
}

// unrollSingleBlockLoop replaces the loop with trip straight-line copies
// of its body (every op but the induction φ, its step computation, and
// the terminator), each copy's uses of the induction value folded to
// the constant it holds on that iteration, spliced into one new block
// between the preheader and the loop's exit.
func unrollSingleBlockLoop(fn *ir.Function, loop *Loop, trip int64) {
	header := loop.Header
	preheader := loop.findPreheader()
	if preheader == nil {
		return
	}
	term := header.Terminator()
	target, _ := ir.GetAttr[ir.TargetAttr](term)
	els, _ := ir.GetAttr[ir.ElseAttr](term)
	exit := target.Block
	if exit == header {
		exit = els.Block
	}

	phi := header.Phis()[0]
	froms := ir.GetAttrs[ir.FromAttr](phi)
	var start, step *ir.Op
	for i, f := range froms {
		if f.Block == loop.Latch {
			step = phi.Operands[i]
		} else {
			start = phi.Operands[i]
		}
	}
	startVal, _ := asIntConst(start)
	_, stepDelta, _ := asInductionStep(step, phi)

	var bodyOps []*ir.Op
	for _, op := range header.Ops() {
		if op.IsPhi() || op.IsTerminator() || op == step {
			continue
		}
		bodyOps = append(bodyOps, op)
	}

	region := header.Region()
	unrolled := region.InsertAfter(preheader)
	b := ir.NewBuilder().SetToBlockEnd(unrolled)

	for i := int64(0); i < trip; i++ {
		iterVal := b.IntConst64(startVal + i*stepDelta)
		clones := make(map[*ir.Op]*ir.Op, len(bodyOps))
		for _, op := range bodyOps {
			c := op.Clone()
			for j, operand := range c.Operands {
				switch {
				case operand == phi:
					c.SetOperandAt(j, iterVal)
				case clones[operand] != nil:
					c.SetOperandAt(j, clones[operand])
				}
			}
			b.InsertClone(c)
			clones[op] = c
		}
	}
	b.Jump(exit)

	preTerm := preheader.Terminator()
	ir.NewBuilder().Replace(preTerm, ir.OpJump, ir.Void, nil, ir.TargetAttr{Block: unrolled})

	headerOps := header.Ops()
	for i := len(headerOps) - 1; i >= 0; i-- {
		headerOps[i].Erase()
	}
	region.RemoveBlock(header)
	_ = fn
}
