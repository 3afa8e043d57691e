package passes

import "aotc/internal/ir"

// DLE (dead load elimination) forwards a load's value from an earlier
// store or load to the same address, eliding the load entirely. Per
// spec.md §4.6/§4.7 and
// `_examples/original_source/src/opt/DLE.cpp`, this is two passes:
//
//  1. A simple, context-insensitive single-block scan (load-after-store
//     in straight-line code, the common case).
//  2. A cross-block forward dataflow over the *intersection* of live
//     loads at a join — unlike liveness's union, a load is only
//     forwardable past a merge if it is available on every incoming
//     path — killing a live load whenever a store downstream may alias
//     it.
func DLE(fn *ir.Function) bool {
	changed := false
	for _, bb := range fn.Blocks() {
		ops := bb.Ops()
		for i, op := range ops {
			if op.Opcode != ir.OpLoad {
				continue
			}
			if val, ok := forwardableValue(op, ops[:i]); ok {
				op.ReplaceAllUsesWith(val)
				op.Erase()
				changed = true
			}
		}
	}
	changed = dleCrossBlock(fn) || changed
	return changed
}

// forwardableValue is DLE's phase 1: a backward same-block scan
// forwarding a load from the nearest preceding same-address store or
// load, stopping at the first op that could have written through an
// aliasing address.
func forwardableValue(load *ir.Op, before []*ir.Op) (*ir.Op, bool) {
	addr := load.Operands[0]
	for i := len(before) - 1; i >= 0; i-- {
		op := before[i]
		switch op.Opcode {
		case ir.OpStore:
			if op.Operands[0] == addr {
				return op.Operands[1], true
			}
			if MayAlias(load, op) {
				return nil, false
			}
		case ir.OpLoad:
			if op.Operands[0] == addr {
				return op, true
			}
			if MayAlias(load, op) {
				return nil, false
			}
		case ir.OpCall:
			return nil, false
		}
	}
	return nil, false
}

// dleCrossBlock is DLE's phase 2: a forward dataflow propagating the
// set of still-live (not yet killed by an aliasing store) loads,
// intersected at merge points, per
// `_examples/original_source/src/opt/DLE.cpp`'s `runImpl` second half.
func dleCrossBlock(fn *ir.Function) bool {
	fn.UpdatePreds()
	liveIn := make(map[*ir.BasicBlock]map[*ir.Op]bool)
	liveOut := make(map[*ir.BasicBlock]map[*ir.Op]bool)

	blocks := fn.Blocks()
	worklist := append([]*ir.BasicBlock(nil), blocks...)
	changed := false

	for len(worklist) > 0 {
		bb := worklist[0]
		worklist = worklist[1:]

		var newIn map[*ir.Op]bool
		preds := bb.Preds().Items()
		for i, pred := range preds {
			if i == 0 {
				newIn = copyOpSet(liveOut[pred])
				continue
			}
			for op := range newIn {
				if !liveOut[pred][op] {
					delete(newIn, op)
				}
			}
		}
		liveIn[bb] = newIn
		live := copyOpSet(newIn)

		ops := bb.Ops()
		for i := 0; i < len(ops); i++ {
			op := ops[i]
			switch op.Opcode {
			case ir.OpStore:
				for load := range live {
					if MayAlias(load, op) {
						delete(live, load)
					}
				}
			case ir.OpLoad:
				replaced := false
				for load := range live {
					if load.Operands[0] == op.Operands[0] || MustAlias(load, op) {
						op.ReplaceAllUsesWith(load)
						op.Erase()
						changed = true
						replaced = true
						break
					}
				}
				if !replaced {
					live[op] = true
				}
			}
		}

		if !sameOpSet(live, liveOut[bb]) {
			liveOut[bb] = live
			worklist = append(worklist, bb.Succs().Items()...)
		}
	}
	return changed
}

func copyOpSet(m map[*ir.Op]bool) map[*ir.Op]bool {
	out := make(map[*ir.Op]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
