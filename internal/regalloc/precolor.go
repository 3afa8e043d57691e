package regalloc

import (
	"aotc/internal/ir"
	"aotc/internal/mach"
)

// precolour implements spec.md §4.9 step 1: a PlaceHolder op pinned to
// a caller-saved register is inserted immediately before every call so
// the interference sweep treats the call as clobbering it, and each of
// the first len(ArgRegisters) GetArg ops is rewritten into a ReadReg
// pinned to its calling-convention register. It returns every op whose
// colour is fixed rather than chosen by step 4.
func precolour(fn *ir.Function, sel mach.Selector) map[*ir.Op]assignment {
	fixed := make(map[*ir.Op]assignment)
	b := ir.NewBuilder()

	argRegsForCall := sel.ArgRegisters()
	for _, bb := range fn.Blocks() {
		for _, op := range bb.Ops() {
			if !mach.IsMachineOp(op, opPrefixOf(sel)) || !isCallOp(op) {
				continue
			}

			b.SetBeforeOp(op)
			for _, reg := range sel.CallerSaved() {
				ph := b.Create(ir.OpPlaceHolder, ir.I64, nil)
				fixed[ph] = assignment{reg: reg}
			}

			// Calling convention: each argument is written into its
			// fixed argument register ahead of the call (arguments
			// past len(ArgRegisters) are out of scope, matching
			// spec.md §4.9's own "first 8 int" framing), and the call's
			// result is read back from the same register the first
			// argument uses (true on both AArch64 and RV64: x0/a0
			// double as argument-0 and the return value).
			args := append([]*ir.Op(nil), op.Operands...)
			for i, arg := range args {
				if i >= len(argRegsForCall) || arg == nil {
					continue
				}
				b.SetBeforeOp(op)
				b.Create(ir.OpWriteReg, ir.Void, []*ir.Op{arg}, ir.RegAttr{Role: ir.RoleRd, Reg: argRegsForCall[i]})
			}
			for i := len(op.Operands) - 1; i >= 0; i-- {
				op.RemoveOperandAt(i)
			}

			if op.Result != ir.Void {
				b.SetAfterOp(op)
				rr := b.Create(ir.OpReadReg, op.Result, nil, ir.RegAttr{Role: ir.RoleRs, Reg: argRegsForCall[0]})
				op.ReplaceAllUsesWith(rr)
				fixed[rr] = assignment{reg: argRegsForCall[0]}
			}
		}
	}

	entry := fn.Blocks()[0]
	argRegs := sel.ArgRegisters()
	for _, op := range entry.Ops() {
		if !mach.IsMachineOp(op, opPrefixOf(sel)) || !isArgSlotOp(op) {
			continue
		}
		idx, ok := ir.GetAttr[ir.IntAttr](op)
		if !ok || int(idx.Value) >= len(argRegs) {
			continue
		}
		b.SetBeforeOp(op)
		rr := b.Create(ir.OpReadReg, op.Result, nil, ir.RegAttr{Role: ir.RoleRs, Reg: argRegs[idx.Value]})
		op.ReplaceAllUsesWith(rr)
		op.Erase()
		fixed[rr] = assignment{reg: argRegs[idx.Value]}
	}

	return fixed
}

func opPrefixOf(sel mach.Selector) string { return sel.Name() + "." }

func isCallOp(op *ir.Op) bool {
	s := string(op.Opcode)
	return len(s) > 4 && (s[len(s)-4:] == "call" || s[len(s)-2:] == "bl")
}

func isArgSlotOp(op *ir.Op) bool {
	s := string(op.Opcode)
	return len(s) >= 7 && s[len(s)-7:] == "argslot"
}
