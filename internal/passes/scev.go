package passes

import "aotc/internal/ir"

// SCEVExpand implements the base (single-coefficient) case of spec.md
// §4.6's "SCEV-like expansion", grounded on
// `_examples/original_source/src/opt/SCEV.cpp`'s `rewrite`/`runImpl`:
//
//  1. Starting from a loop's induction φ (`phi = phi + C` around the
//     latch), walk the operand chain of any value used as a Load/Store
//     address to see whether it increases by a constant per-iteration
//     amount (`iv + k`, `iv * k`, or a chain of those). Such an
//     address, which would otherwise recompute from the narrow
//     induction value on every iteration, is widened into its own
//     64-bit accumulator φ that increments directly, avoiding the
//     overflow the recomputation risks for 64-bit address arithmetic.
//  2. A φ whose latch value is `(phi + C) mod D`, used nowhere else in
//     the loop but its own increment, is corrected at the loop's exit:
//     the modulus is dropped from the per-iteration increment (an
//     unreduced accumulator is carried instead) and applied exactly
//     once where the loop is exited.
//
// Only a single additive/multiplicative coefficient is tracked per
// value, per spec.md §9's documented limit: a value whose increase
// would need to merge two already-increasing operands (the original's
// "Case 2", e.g. `iv1 + iv2`) is left unrewritten, matching the
// existing SCEV Open Question in DESIGN.md.
func SCEVExpand(fn *ir.Function) bool {
	changed := false
	for _, loop := range FindLoops(fn) {
		if widenInductiveAddresses(loop) {
			changed = true
		}
		if correctModShapeExit(loop) {
			changed = true
		}
	}
	return changed
}

// findInductionPhi returns the loop's induction variable — a header φ
// whose latch-incoming value is `phi + C` — its per-iteration delta,
// and its preheader-incoming starting value.
func findInductionPhi(loop *Loop) (phi *ir.Op, delta int64, start *ir.Op, ok bool) {
	for _, p := range loop.Header.Phis() {
		froms := ir.GetAttrs[ir.FromAttr](p)
		var s, step *ir.Op
		for i, f := range froms {
			if f.Block == loop.Latch {
				step = p.Operands[i]
			} else {
				s = p.Operands[i]
			}
		}
		if s == nil || step == nil {
			continue
		}
		if _, d, ok := asInductionStep(step, p); ok {
			return p, d, s, true
		}
	}
	return nil, 0, nil, false
}

// deltaOf reports op's per-iteration increase, if op is the induction
// φ itself or a chain of `x + <invariant>`/`x - <invariant>`/
// `x * <const>` rooted at it.
func deltaOf(op, phi *ir.Op, phiDelta int64, loop *Loop) (int64, bool) {
	if op == phi {
		return phiDelta, true
	}
	if len(op.Operands) != 2 {
		return 0, false
	}
	x, y := op.Operands[0], op.Operands[1]
	switch op.Opcode {
	case ir.OpAdd, ir.OpSub:
		if d, ok := deltaOf(x, phi, phiDelta, loop); ok && loopInvariantValue(y, loop) {
			return d, true
		}
		if op.Opcode == ir.OpAdd {
			if d, ok := deltaOf(y, phi, phiDelta, loop); ok && loopInvariantValue(x, loop) {
				return d, true
			}
		}
	case ir.OpMul:
		if d, ok := deltaOf(x, phi, phiDelta, loop); ok && y != nil && y.Opcode == ir.OpIntConst {
			iv, _ := ir.GetAttr[ir.IntAttr](y)
			return d * iv.Value, true
		}
		if d, ok := deltaOf(y, phi, phiDelta, loop); ok && x != nil && x.Opcode == ir.OpIntConst {
			iv, _ := ir.GetAttr[ir.IntAttr](x)
			return d * iv.Value, true
		}
	}
	return 0, false
}

// buildStartClone mirrors deltaOf's recognized shape, but constructs
// (in the preheader, via b) the expression that computes op's value on
// the loop's first iteration: phi's own preheader-incoming value at
// the root, and a clone of every intermediate op with its inductive
// operand replaced by the already-built start value.
func buildStartClone(b *ir.Builder, op, phi, phiStart *ir.Op, loop *Loop) (*ir.Op, bool) {
	if op == phi {
		return phiStart, true
	}
	if len(op.Operands) != 2 {
		return nil, false
	}
	x, y := op.Operands[0], op.Operands[1]
	switch op.Opcode {
	case ir.OpAdd, ir.OpSub:
		if loopInvariantValue(y, loop) {
			if sx, ok := buildStartClone(b, x, phi, phiStart, loop); ok {
				c := op.Clone()
				c.SetOperandAt(0, sx)
				return b.InsertClone(c), true
			}
		}
		if op.Opcode == ir.OpAdd && loopInvariantValue(x, loop) {
			if sy, ok := buildStartClone(b, y, phi, phiStart, loop); ok {
				c := op.Clone()
				c.SetOperandAt(1, sy)
				return b.InsertClone(c), true
			}
		}
	case ir.OpMul:
		if y != nil && y.Opcode == ir.OpIntConst {
			if sx, ok := buildStartClone(b, x, phi, phiStart, loop); ok {
				c := op.Clone()
				c.SetOperandAt(0, sx)
				return b.InsertClone(c), true
			}
		}
		if x != nil && x.Opcode == ir.OpIntConst {
			if sy, ok := buildStartClone(b, y, phi, phiStart, loop); ok {
				c := op.Clone()
				c.SetOperandAt(1, sy)
				return b.InsertClone(c), true
			}
		}
	}
	return nil, false
}

// loopInvariantValue reports whether op is defined outside loop's body
// entirely, so it dominates the preheader and can be referenced
// directly by a clone constructed there.
func loopInvariantValue(op *ir.Op, loop *Loop) bool {
	if op == nil {
		return false
	}
	return !loop.contains(op.Block())
}

// widenInductiveAddresses rewrites every distinct Load/Store address
// inside loop that provably increases by a constant amount from the
// induction variable into its own widened accumulator φ.
func widenInductiveAddresses(loop *Loop) bool {
	preheader := loop.findPreheader()
	if preheader == nil {
		return false
	}
	phi, phiDelta, phiStart, ok := findInductionPhi(loop)
	if !ok {
		return false
	}

	changed := false
	seen := ir.NewSet[*ir.Op]()
	for _, bb := range loop.Body {
		for _, memOp := range bb.Ops() {
			if memOp.Opcode != ir.OpLoad && memOp.Opcode != ir.OpStore {
				continue
			}
			addr := memOp.Operands[0]
			if addr == nil || addr == phi || seen.Has(addr) {
				continue
			}
			delta, ok := deltaOf(addr, phi, phiDelta, loop)
			if !ok {
				continue
			}
			seen.Add(addr)

			b := ir.NewBuilder()
			b.SetBeforeOp(preheader.Terminator())
			startClone, ok := buildStartClone(b, addr, phi, phiStart, loop)
			if !ok {
				continue
			}
			widenInductiveValue(addr, loop, preheader, delta, startClone)
			changed = true
		}
	}
	return changed
}

// widenInductiveValue replaces every use of op — a value proven to
// increase by delta each iteration, whose value on the first iteration
// is startClone — with a new header φ that starts at startClone and
// increments by delta directly in the latch.
func widenInductiveValue(op *ir.Op, loop *Loop, preheader *ir.BasicBlock, delta int64, startClone *ir.Op) {
	b := ir.NewBuilder()
	b.SetToBlockStart(loop.Header)
	phi := b.Create(ir.OpPhi, op.Result, []*ir.Op{startClone}, ir.FromAttr{Block: preheader})

	b.SetBeforeOp(loop.Latch.Terminator())
	next := b.Create(ir.OpAdd, op.Result, []*ir.Op{phi, b.IntConst(delta)})
	phi.AddOperand(next)
	phi.AddAttr(ir.FromAttr{Block: loop.Latch})

	op.ReplaceAllUsesWith(phi)
	op.Erase()
}

// correctModShapeExit finds a header φ whose latch value is
// `(phi + C) mod D` and which has no other use inside the loop, and
// rewrites it to accumulate the unreduced sum — avoiding a mod every
// iteration — applying the modulus exactly once at the loop's unique
// exit.
func correctModShapeExit(loop *Loop) bool {
	exit := loop.findExit()
	if exit == nil {
		return false
	}
	for _, phi := range loop.Header.Phis() {
		froms := ir.GetAttrs[ir.FromAttr](phi)
		var latchVal *ir.Op
		for i, f := range froms {
			if f.Block == loop.Latch {
				latchVal = phi.Operands[i]
			}
		}
		if latchVal == nil || latchVal.Opcode != ir.OpMod || len(latchVal.Operands) != 2 {
			continue
		}
		add, modConst := latchVal.Operands[0], latchVal.Operands[1]
		if add == nil || add.Opcode != ir.OpAdd || modConst == nil || modConst.Opcode != ir.OpIntConst {
			continue
		}
		if add.Operands[0] != phi || add.Operands[1] == nil || add.Operands[1].Opcode != ir.OpIntConst {
			continue
		}
		if !singleUseWithinLoop(phi, loop, latchVal) {
			continue
		}
		rewriteModShape(phi, add, latchVal, modConst, loop, exit)
		return true
	}
	return false
}

// singleUseWithinLoop reports whether phi's only use inside the loop
// is except (the modulus increment itself) — any other in-loop use
// means dropping the per-iteration mod would change an observed value,
// which would be unsound.
func singleUseWithinLoop(phi *ir.Op, loop *Loop, except *ir.Op) bool {
	for _, use := range phi.Uses() {
		if use == except {
			continue
		}
		if loop.contains(use.Block()) {
			return false
		}
	}
	return true
}

// rewriteModShape replaces the in-loop phi/add/mod triple with an
// unreduced accumulator, and inserts the dropped modulus at exit's
// start so every value the φ fed outside the loop still observes the
// reduced result.
func rewriteModShape(phi, add, mod, modConst *ir.Op, loop *Loop, exit *ir.BasicBlock) {
	b := ir.NewBuilder()
	b.SetBeforeOp(add)
	unreducedAdd := b.Create(ir.OpAdd, phi.Result, []*ir.Op{phi, add.Operands[1]})
	mod.ReplaceAllUsesWith(unreducedAdd)
	mod.Erase()
	add.ReplaceAllUsesWith(unreducedAdd)
	add.Erase()

	b.SetToBlockStart(exit)
	reduced := b.Create(ir.OpMod, phi.Result, []*ir.Op{phi, modConst})
	for _, use := range append([]*ir.Op(nil), phi.Uses()...) {
		if use == unreducedAdd || use == reduced || loop.contains(use.Block()) {
			continue
		}
		for i, operand := range use.Operands {
			if operand == phi {
				use.SetOperandAt(i, reduced)
			}
		}
	}
}

// findExit returns l's unique exit block: the latch's one successor
// outside the loop body, if there is exactly one.
func (l *Loop) findExit() *ir.BasicBlock {
	var out *ir.BasicBlock
	n := 0
	for _, s := range l.Latch.Succs().Items() {
		if l.contains(s) {
			continue
		}
		out = s
		n++
	}
	if n != 1 {
		return nil
	}
	return out
}
