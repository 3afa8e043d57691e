package passes

import (
	"fmt"

	"aotc/internal/ir"
)

// Alias computes a conservative points-to summary for every address-
// producing op in fn (Alloca, GlobalAddr, and address arithmetic
// derived from them) and records it as an AliasAttr, per spec.md §4.7:
// for each possible base, the set of possible byte offsets from that
// base, with -1 standing in for "unknown offset" whenever a
// non-constant index reaches an Add feeding a Load/Store address.
func Alias(fn *ir.Function) bool {
	changed := false
	cache := make(map[*ir.Op]map[string]map[int]bool)
	var resolve func(op *ir.Op) map[string]map[int]bool
	resolve = func(op *ir.Op) map[string]map[int]bool {
		if op == nil {
			return map[string]map[int]bool{}
		}
		if v, ok := cache[op]; ok {
			return v
		}
		var locs map[string]map[int]bool
		switch op.Opcode {
		case ir.OpAlloca:
			locs = map[string]map[int]bool{allocaKey(op): {0: true}}
		case ir.OpGlobalAddr:
			name, _ := ir.GetAttr[ir.NameAttr](op)
			locs = map[string]map[int]bool{"global:" + name.Name: {0: true}}
		case ir.OpAdd:
			base := resolve(op.Operands[0])
			offset, known := constOffset(op.Operands[1])
			locs = map[string]map[int]bool{}
			for k, offs := range base {
				locs[k] = map[int]bool{}
				for o := range offs {
					if known && o != -1 {
						locs[k][o+offset] = true
					} else {
						locs[k][-1] = true
					}
				}
			}
		default:
			locs = map[string]map[int]bool{"unknown": {-1: true}}
		}
		cache[op] = locs
		return locs
	}

	for _, op := range fn.AllOps() {
		if op.Opcode != ir.OpLoad && op.Opcode != ir.OpStore {
			continue
		}
		locs := resolve(op.Operands[0])
		if !sameAliasAttr(op, locs) {
			ir.SetAttr(op, ir.AliasAttr{Locations: locs})
			changed = true
		}
	}
	return changed
}

// allocaKey gives each alloca a distinct base name (its printed handle)
// so two different local variables never collide in the location map.
func allocaKey(op *ir.Op) string {
	return fmt.Sprintf("alloca:%p", op)
}

func constOffset(op *ir.Op) (int, bool) {
	if op == nil {
		return 0, false
	}
	if iv, ok := ir.GetAttr[ir.IntAttr](op); ok && op.Opcode == ir.OpIntConst {
		return int(iv.Value), true
	}
	return 0, false
}

func sameAliasAttr(op *ir.Op, locs map[string]map[int]bool) bool {
	existing, ok := ir.GetAttr[ir.AliasAttr](op)
	if !ok {
		return false
	}
	if len(existing.Locations) != len(locs) {
		return false
	}
	for k, offs := range locs {
		eOffs, ok := existing.Locations[k]
		if !ok || len(eOffs) != len(offs) {
			return false
		}
		for o := range offs {
			if !eOffs[o] {
				return false
			}
		}
	}
	return true
}

// MayAlias reports whether two Load/Store address operands could refer
// to overlapping storage, consulting their AliasAttr summaries computed
// by Alias. Two ops with no AliasAttr (Alias has not run) are assumed to
// may-alias.
func MayAlias(a, b *ir.Op) bool {
	aAttr, aOK := ir.GetAttr[ir.AliasAttr](a)
	bAttr, bOK := ir.GetAttr[ir.AliasAttr](b)
	if !aOK || !bOK {
		return true
	}
	for base, aOffs := range aAttr.Locations {
		bOffs, ok := bAttr.Locations[base]
		if !ok {
			continue
		}
		if aOffs[-1] || bOffs[-1] {
			return true
		}
		for o := range aOffs {
			if bOffs[o] {
				return true
			}
		}
	}
	return false
}

// MustAlias reports whether two Load/Store address operands are
// guaranteed to refer to exactly the same storage: both resolve to a
// single, common base with a single, common, known offset. Used by DSE
// and DLE to kill/forward across an exact overwrite, as opposed to
// MayAlias's conservative overlap test.
func MustAlias(a, b *ir.Op) bool {
	aAttr, aOK := ir.GetAttr[ir.AliasAttr](a)
	bAttr, bOK := ir.GetAttr[ir.AliasAttr](b)
	if !aOK || !bOK {
		return false
	}
	if len(aAttr.Locations) != 1 || len(bAttr.Locations) != 1 {
		return false
	}
	for base, aOffs := range aAttr.Locations {
		bOffs, ok := bAttr.Locations[base]
		if !ok || len(aOffs) != 1 || len(bOffs) != 1 {
			return false
		}
		for o := range aOffs {
			if o == -1 || !bOffs[o] {
				return false
			}
		}
		return true
	}
	return false
}
