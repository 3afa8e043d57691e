package regalloc

import (
	"aotc/internal/ir"
	"aotc/internal/mach"
)

// roleOf returns the RegRole a positional operand slot carries: the
// first three machine operands are "source" roles, matching the
// Rs/Rs2/Rs3 naming spec.md §4.9 step 5 uses.
func roleOf(i int) ir.RegRole {
	switch i {
	case 0:
		return ir.RoleRs
	case 1:
		return ir.RoleRs2
	default:
		return ir.RoleRs3
	}
}

// scratchFor returns the scratch register reserved for a given role,
// cycling through the target's (small, synthetic) scratch list since
// this repo's mach.Selector targets reserve two scratch registers
// rather than one dedicated register per Rs/Rs2/Rs3/Rd slot.
func scratchFor(scratch []string, role ir.RegRole) string {
	if len(scratch) == 0 {
		return ""
	}
	return scratch[int(role)%len(scratch)]
}

// lowerAndSpill implements spec.md §4.9 steps 5 and 7 together: every
// remaining (post-SSA-destruction) op's SSA operands are replaced by
// RegAttr/SpilledAttr attributes recording each slot's colour, the
// operand list is cleared, and a spilled slot's attribute names the
// scratch register a freshly inserted SpillLoad/SpillStore materializes
// it through.
func lowerAndSpill(fn *ir.Function, c *colouring, sel mach.Selector) {
	scratch := sel.ScratchRegisters()
	b := ir.NewBuilder()

	for _, bb := range fn.Blocks() {
		for _, op := range bb.Ops() {
			if op.IsPhi() || op.Opcode == ir.OpPlaceHolder {
				continue
			}
			if op.Opcode == ir.OpReadReg || isCallOp(op) {
				continue // already carries its fixed RegAttr from precolour
			}

			for i, operand := range op.Operands {
				if operand == nil {
					continue
				}
				role := roleOf(i)
				a, ok := c.of[operand]
				if !ok {
					continue
				}
				if !a.spill {
					op.AddAttr(ir.RegAttr{Role: role, Reg: a.reg})
					continue
				}
				reg := scratchFor(scratch, role)
				b.SetBeforeOp(op)
				b.Create(ir.OpSpillLoad, ir.I64, nil,
					ir.RegAttr{Role: ir.RoleRd, Reg: reg},
					ir.SpilledAttr{Role: role, Offset: a.offset})
				op.AddAttr(ir.RegAttr{Role: role, Reg: reg})
			}
			op.Operands = nil

			if op.Result == ir.Void {
				continue
			}
			a, ok := c.of[op]
			if !ok {
				continue
			}
			if !a.spill {
				op.AddAttr(ir.RegAttr{Role: ir.RoleRd, Reg: a.reg})
				continue
			}
			reg := scratchFor(scratch, ir.RoleRd)
			op.AddAttr(ir.RegAttr{Role: ir.RoleRd, Reg: reg})
			b.SetAfterOp(op)
			b.Create(ir.OpSpillStore, ir.Void, nil,
				ir.RegAttr{Role: ir.RoleRs, Reg: reg},
				ir.SpilledAttr{Role: ir.RoleRd, Offset: a.offset})
		}
	}

	for op := range c.fixed {
		if op.Opcode == ir.OpPlaceHolder {
			op.Erase()
		}
	}
}
