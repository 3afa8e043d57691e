package passes

import "aotc/internal/ir"

// DAE (dead argument elimination) drops a function parameter when
// GetArg(i) has no uses in the function body and every call site in the
// module is rewritten to stop passing that argument — legal only for a
// function tagged AtMostOnceAttr (spec.md §4.7/§9): with more than one
// call site, disagreement between a call's actual argument list and the
// callee's declared arity is exactly the hazard the single-call-site
// restriction exists to avoid.
func DAE(m *ir.Module) bool {
	changed := false
	for _, fn := range m.Functions {
		if !fn.IsAtMostOnce() {
			continue
		}
		dead := deadArgIndices(fn)
		if len(dead) == 0 {
			continue
		}
		removeArgs(m, fn, dead)
		changed = true
	}
	return changed
}

func deadArgIndices(fn *ir.Function) []int {
	used := make([]bool, fn.NumArgs)
	for _, op := range fn.AllOps() {
		if op.Opcode != ir.OpGetArg {
			continue
		}
		idx, _ := ir.GetAttr[ir.IntAttr](op)
		if op.HasUses() {
			used[int(idx.Value)] = true
		}
	}
	var dead []int
	for i, u := range used {
		if !u {
			dead = append(dead, i)
		}
	}
	return dead
}

func removeArgs(m *ir.Module, fn *ir.Function, dead []int) {
	isDead := make(map[int]bool, len(dead))
	for _, i := range dead {
		isDead[i] = true
	}

	for _, op := range fn.AllOps() {
		if op.Opcode == ir.OpGetArg {
			idx, _ := ir.GetAttr[ir.IntAttr](op)
			if isDead[int(idx.Value)] {
				op.Erase()
				continue
			}
			shift := 0
			for _, d := range dead {
				if d < int(idx.Value) {
					shift++
				}
			}
			if shift > 0 {
				ir.SetAttr(op, ir.IntAttr{Value: idx.Value - int64(shift)})
			}
		}
	}
	fn.NumArgs -= len(dead)

	for _, caller := range m.Functions {
		for _, op := range caller.AllOps() {
			if op.Opcode != ir.OpCall {
				continue
			}
			name, _ := ir.GetAttr[ir.NameAttr](op)
			if name.Name != fn.Name {
				continue
			}
			for i := len(op.Operands) - 1; i >= 0; i-- {
				if isDead[i] {
					op.RemoveOperandAt(i)
				}
			}
		}
	}
}
