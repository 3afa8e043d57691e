package regalloc

import (
	"aotc/internal/ir"
	"aotc/internal/mach"
)

// insertPrologueEpilogue implements spec.md §4.9 step 8: the callee-
// saved registers actually coloured in are saved at entry and restored
// in a single shared epilogue block every return is redirected to,
// and the frame is rounded up to a 16-byte boundary (the stack-
// alignment both ARM64 and RV64 ABIs require).
func insertPrologueEpilogue(fn *ir.Function, c *colouring, sel mach.Selector) {
	used := usedCalleeSaved(fn, sel.CalleeSaved())
	frame := c.frameSize + 8*len(used)
	if rem := frame % 16; rem != 0 {
		frame += 16 - rem
	}
	if frame == 0 && len(used) == 0 {
		retargetReturns(fn, nil, sel)
		return
	}

	entry := fn.Blocks()[0]
	b := ir.NewBuilder().SetToBlockStart(entry)
	b.Create(ir.OpSubSp, ir.Void, nil, ir.IntAttr{Value: int64(frame)})
	for i, reg := range used {
		b.Create(ir.OpSpillStore, ir.Void, nil,
			ir.RegAttr{Role: ir.RoleRs, Reg: reg},
			ir.SpilledAttr{Role: ir.RoleRd, Offset: c.frameSize + 8*i})
	}

	epilogue := fn.Body.AppendBlock()
	eb := ir.NewBuilder().SetToBlockEnd(epilogue)
	for i, reg := range used {
		eb.Create(ir.OpSpillLoad, ir.I64, nil,
			ir.RegAttr{Role: ir.RoleRd, Reg: reg},
			ir.SpilledAttr{Role: ir.RoleRs, Offset: c.frameSize + 8*i})
	}
	eb.Create(ir.OpSubSp, ir.Void, nil, ir.IntAttr{Value: -int64(frame)})

	retargetReturns(fn, epilogue, sel)
	fn.SetAttr(ir.StackOffsetAttr{Offset: frame})
}

// usedCalleeSaved returns the subset of candidates that appear as some
// op's destination register attribute anywhere in fn.
func usedCalleeSaved(fn *ir.Function, candidates []string) []string {
	want := make(map[string]bool, len(candidates))
	for _, r := range candidates {
		want[r] = true
	}
	seen := make(map[string]bool)
	var out []string
	for _, op := range fn.AllOps() {
		for _, a := range ir.GetAttrs[ir.RegAttr](op) {
			if want[a.Reg] && !seen[a.Reg] {
				seen[a.Reg] = true
				out = append(out, a.Reg)
			}
		}
	}
	return out
}

// retargetReturns rewrites every original return terminator into a
// jump to the shared epilogue (moving its value into the ABI return
// register first, the same register AArch64/RV64 also use for the
// first integer argument), and gives the epilogue its own ret
// terminator carrying that original opcode.
func retargetReturns(fn *ir.Function, epilogue *ir.BasicBlock, sel mach.Selector) {
	returnReg := sel.ArgRegisters()[0]
	var retOpcode ir.Opcode

	for _, bb := range fn.Blocks() {
		if bb == epilogue {
			continue
		}
		term := bb.Terminator()
		if term == nil || !isReturnOp(term) {
			continue
		}
		retOpcode = term.Opcode
		b := ir.NewBuilder().SetBeforeOp(term)
		if regs := ir.GetAttrs[ir.RegAttr](term); len(regs) > 0 {
			b.Create(ir.OpMove, ir.I64, nil,
				ir.RegAttr{Role: ir.RoleRd, Reg: returnReg},
				ir.RegAttr{Role: ir.RoleRs, Reg: regs[0].Reg})
		}
		if epilogue != nil {
			b.Jump(epilogue)
		} else {
			b.Create(term.Opcode, ir.Void, nil)
		}
		term.Erase()
	}

	if epilogue != nil && retOpcode != "" {
		ir.NewBuilder().SetToBlockEnd(epilogue).Create(retOpcode, ir.Void, nil)
	}
	fn.UpdatePreds()
}

func isReturnOp(op *ir.Op) bool {
	s := string(op.Opcode)
	return len(s) >= 3 && s[len(s)-3:] == "ret"
}
