package passes

import "aotc/internal/ir"

// Loop describes one natural loop: a header block dominating every
// block in the loop body, and the back-edge block that jumps back to
// the header.
type Loop struct {
	Header *ir.BasicBlock
	Latch  *ir.BasicBlock
	Body   []*ir.BasicBlock
}

// FindLoops detects every natural loop in fn's flat CFG: for each back
// edge (a CFG edge whose target dominates its source), the loop body is
// every block that can reach the latch without passing back through the
// header, per the standard dominator-based definition spec.md §4.6's
// loop pass family assumes.
func FindLoops(fn *ir.Function) []*Loop {
	fn.UpdatePreds()
	fn.UpdateDoms()
	var loops []*Loop
	for _, latch := range fn.Blocks() {
		for _, header := range latch.Succs().Items() {
			if !header.Dominates(latch) {
				continue
			}
			loops = append(loops, &Loop{Header: header, Latch: latch, Body: collectLoopBody(header, latch)})
		}
	}
	return loops
}

func collectLoopBody(header, latch *ir.BasicBlock) []*ir.BasicBlock {
	body := ir.NewSet[*ir.BasicBlock]()
	body.Add(header)
	worklist := []*ir.BasicBlock{latch}
	for len(worklist) > 0 {
		bb := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if body.Has(bb) {
			continue
		}
		body.Add(bb)
		for _, p := range bb.Preds().Items() {
			worklist = append(worklist, p)
		}
	}
	return body.Items()
}

// findPreheader returns l's preheader block: the header's unique
// non-latch predecessor, if there is exactly one; otherwise nil, and
// the loop passes that need a preheader leave such a loop alone.
func (l *Loop) findPreheader() *ir.BasicBlock {
	var out *ir.BasicBlock
	n := 0
	for _, p := range l.Header.Preds().Items() {
		if p == l.Latch {
			continue
		}
		out = p
		n++
	}
	if n != 1 {
		return nil
	}
	return out
}

func (l *Loop) contains(bb *ir.BasicBlock) bool {
	for _, b := range l.Body {
		if b == bb {
			return true
		}
	}
	return false
}

// LICM hoists a loop-invariant op (one whose operands are all either
// defined outside the loop or invariant themselves) out of the loop
// body into the preheader, per spec.md §4.6. It only hoists pure ops
// (the same opcode set GVN numbers); a Store or Call is left in place
// regardless of operand invariance, since moving it could change how
// many times — or whether — it executes. A Load is hoisted only when
// loopHasAliasingStore finds no store in the loop that may alias it.
func LICM(fn *ir.Function) bool {
	changed := false
	for _, loop := range FindLoops(fn) {
		preheader := loop.findPreheader()
		if preheader == nil {
			continue
		}
		invariant := ir.NewSet[*ir.Op]()
		for {
			progressed := false
			for _, bb := range loop.Body {
				if bb == loop.Header {
					continue
				}
				for _, op := range bb.Ops() {
					if op.IsTerminator() || op.IsPhi() || invariant.Has(op) {
						continue
					}
					if !pureOpcodes[op.Opcode] || !callIsPureIfCall(op) {
						continue
					}
					if isLoopInvariant(op, loop, invariant) {
						invariant.Add(op)
						progressed = true
					}
				}
			}
			if !progressed {
				break
			}
		}
		preheaderEnd := preheader.Terminator()
		for _, bb := range loop.Body {
			for _, op := range bb.Ops() {
				if invariant.Has(op) {
					op.MoveBefore(preheaderEnd)
					changed = true
				}
			}
		}
	}
	return changed
}

func isLoopInvariant(op *ir.Op, loop *Loop, invariant *ir.Set[*ir.Op]) bool {
	for _, operand := range op.Operands {
		if operand == nil {
			continue
		}
		if loop.contains(operand.Block()) && !invariant.Has(operand) {
			return false
		}
	}
	if op.Opcode == ir.OpLoad && loopHasAliasingStore(op, loop) {
		return false
	}
	return true
}

// loopHasAliasingStore reports whether any Store inside loop's body may
// alias load's address, per spec.md §4.6: a load whose address operand
// is loop-invariant is still variant if a store anywhere in the loop
// could be writing through the same location on some iteration.
func loopHasAliasingStore(load *ir.Op, loop *Loop) bool {
	for _, bb := range loop.Body {
		for _, op := range bb.Ops() {
			if op.Opcode == ir.OpStore && MayAlias(load, op) {
				return true
			}
		}
	}
	return false
}

