package passes

import "aotc/internal/ir"

// DSE (dead store elimination) finds every store whose value is never
// observed by any later load on any path through fn, and erases it.
// Per spec.md §4.6/§4.7 this is a forward dataflow over per-block sets
// of "live" (not yet proven dead) stores, unioned at join points —
// not a single-block scan — so a store in a loop preheader that is
// unconditionally overwritten by a store in the loop header, or any
// other cross-block must-kill, is caught. Grounded on
// `_examples/original_source/src/opt/DSE.cpp`'s `runImpl`: a forward
// worklist propagating `out[bb]` to every successor until it stops
// changing, followed by a single sweep erasing every store that never
// got marked used and whose address is provably local to fn.
func DSE(fn *ir.Function) bool {
	fn.UpdatePreds()
	out := make(map[*ir.BasicBlock]map[*ir.Op]bool)
	used := make(map[*ir.Op]bool)

	blocks := fn.Blocks()
	worklist := append([]*ir.BasicBlock(nil), blocks...)
	for len(worklist) > 0 {
		bb := worklist[0]
		worklist = worklist[1:]

		live := make(map[*ir.Op]bool)
		for _, pred := range bb.Preds().Items() {
			for store := range out[pred] {
				live[store] = true
			}
		}

		for _, op := range bb.Ops() {
			switch op.Opcode {
			case ir.OpLoad:
				for store := range live {
					if MayAlias(store, op) {
						used[store] = true
					}
				}
			case ir.OpStore:
				for store := range live {
					if MustAlias(store, op) {
						delete(live, store)
					}
				}
				live[op] = true
			case ir.OpCall:
				for store := range live {
					used[store] = true
				}
			}
		}

		if !sameOpSet(live, out[bb]) {
			out[bb] = live
			worklist = append(worklist, bb.Succs().Items()...)
		}
	}

	changed := false
	for _, op := range fn.AllOps() {
		if op.Opcode != ir.OpStore || used[op] {
			continue
		}
		if !addressIsLocalToFunc(op) {
			continue
		}
		op.Erase()
		changed = true
	}
	return changed
}

// addressIsLocalToFunc reports whether every base location a store's
// address might refer to is a local alloca of fn, never a global or an
// unresolved ("unknown") address — the same restriction the original
// source's `canElim` check applies, since removing a store through an
// escaped pointer or a global could be observed from outside fn.
func addressIsLocalToFunc(store *ir.Op) bool {
	attr, ok := ir.GetAttr[ir.AliasAttr](store)
	if !ok || len(attr.Locations) == 0 {
		return false
	}
	for base := range attr.Locations {
		if len(base) < 7 || base[:7] != "alloca:" {
			return false
		}
	}
	return true
}

func sameOpSet(a, b map[*ir.Op]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for op := range a {
		if !b[op] {
			return false
		}
	}
	return true
}
