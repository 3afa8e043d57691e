package passes

import "aotc/internal/ir"

// Purity computes, for every function in m, whether it has visible
// effects (a Store to any location reachable from outside its own
// allocas, or a call to an impure/unknown function), per spec.md §4.7.
// It is a whole-module fixpoint over the call graph: a function calling
// an impure function is itself impure, so functions must be revisited
// until no function's purity tag changes. Every CallOp in the module is
// then tagged ImpureAttr to match its callee's resolved purity, which
// is what DCE and GVN read instead of re-walking the call graph.
func Purity(m *ir.Module) bool {
	changed := false
	for {
		progressed := false
		for _, fn := range m.Functions {
			wasImpure := fn.IsPure() == false
			isImpure := computeImpure(m, fn)
			if isImpure != wasImpure {
				if isImpure {
					fn.SetAttr(ir.ImpureAttr{})
				} else {
					removeImpureAttr(fn)
				}
				progressed = true
			}
		}
		if !progressed {
			break
		}
		changed = true
	}
	for _, fn := range m.Functions {
		for _, op := range fn.AllOps() {
			if op.Opcode != ir.OpCall {
				continue
			}
			name, _ := ir.GetAttr[ir.NameAttr](op)
			callee := m.FindFunction(name.Name)
			impure := callee == nil || !callee.IsPure()
			has := ir.HasAttr[ir.ImpureAttr](op)
			if impure && !has {
				op.AddAttr(ir.ImpureAttr{})
				changed = true
			}
		}
	}
	return changed
}

func computeImpure(m *ir.Module, fn *ir.Function) bool {
	for _, op := range fn.AllOps() {
		switch op.Opcode {
		case ir.OpStore:
			if !storesOnlyToOwnAlloca(op) {
				return true
			}
		case ir.OpCall:
			name, _ := ir.GetAttr[ir.NameAttr](op)
			callee := m.FindFunction(name.Name)
			if callee == nil || !callee.IsPure() {
				return true
			}
		}
	}
	return false
}

// storesOnlyToOwnAlloca reports whether a store's address operand
// traces back to an Alloca within the same function (as opposed to a
// GlobalAddr or a pointer that escaped through a parameter), since only
// the latter are externally visible.
func storesOnlyToOwnAlloca(op *ir.Op) bool {
	addr := op.Operands[0]
	return addr != nil && addr.Opcode == ir.OpAlloca
}

func removeImpureAttr(fn *ir.Function) {
	kept := fn.Attrs[:0]
	for _, a := range fn.Attrs {
		if _, ok := a.(ir.ImpureAttr); ok {
			continue
		}
		kept = append(kept, a)
	}
	fn.Attrs = kept
}
