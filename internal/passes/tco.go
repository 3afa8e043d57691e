package passes

import "aotc/internal/ir"

// TCO rewrites self-recursion in tail position — `return call(f,
// args...)` where f is the enclosing function — into a loop, per
// spec.md §4.6. The entry block is split into a preheader (still
// holding any ops before the first GetArg-consuming use path needs) and
// a header carrying one φ per argument, merging the function's actual
// incoming arguments with each tail call's actual arguments; every tail
// call site becomes a jump to the header instead of a call+return. Only
// direct self-recursion is handled; mutual recursion is out of scope.
func TCO(fn *ir.Function) bool {
	entry := fn.Blocks()[0]
	tailCalls := findSelfTailCalls(fn)
	if len(tailCalls) == 0 {
		return false
	}

	args := entryGetArgs(fn, entry)
	b := ir.NewBuilder()
	header := entry.Region().InsertAfter(entry)
	entry.SplitOpsAfter(nil, header)

	phis := make([]*ir.Op, len(args))
	b.SetToBlockStart(header)
	for i, arg := range args {
		if arg == nil {
			continue
		}
		phi := b.Phi(arg.Result, []*ir.Op{nil}, []*ir.BasicBlock{entry})
		arg.ReplaceAllUsesWith(phi)
		phi.SetOperandAt(0, arg)
		phis[i] = phi
	}
	b.SetToBlockEnd(entry).Jump(header)

	for _, ret := range tailCalls {
		call := ret.Operands[0]
		actuals := append([]*ir.Op(nil), call.Operands...)
		retBlock := ret.Block()
		b.SetBeforeOp(ret)
		b.Jump(header)
		for i, phi := range phis {
			if phi == nil {
				continue
			}
			var val *ir.Op
			if i < len(actuals) {
				val = actuals[i]
			}
			phi.AddOperand(val)
			phi.AddAttr(ir.FromAttr{Block: retBlock})
		}
		ret.Erase()
		call.Erase()
	}

	fn.UpdatePreds()
	return true
}

// findSelfTailCalls returns every Return op whose sole operand is a
// Call to fn itself, with no other observers of that call's result.
func findSelfTailCalls(fn *ir.Function) []*ir.Op {
	var out []*ir.Op
	for _, bb := range fn.Blocks() {
		ret := bb.Terminator()
		if ret == nil || ret.Opcode != ir.OpReturn || len(ret.Operands) == 0 {
			continue
		}
		call := ret.Operands[0]
		if call == nil || call.Opcode != ir.OpCall {
			continue
		}
		name, _ := ir.GetAttr[ir.NameAttr](call)
		if name.Name != fn.Name {
			continue
		}
		if !onlyUsedBy(call, ret) {
			continue
		}
		out = append(out, ret)
	}
	return out
}

func entryGetArgs(fn *ir.Function, entry *ir.BasicBlock) []*ir.Op {
	out := make([]*ir.Op, fn.NumArgs)
	for _, op := range entry.Ops() {
		if op.Opcode == ir.OpGetArg {
			idx, _ := ir.GetAttr[ir.IntAttr](op)
			if int(idx.Value) < len(out) {
				out[idx.Value] = op
			}
		}
	}
	return out
}

func onlyUsedBy(op, user *ir.Op) bool {
	for _, u := range op.Uses() {
		if u != user {
			return false
		}
	}
	return true
}
