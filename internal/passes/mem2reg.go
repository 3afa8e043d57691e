package passes

import "aotc/internal/ir"

// Mem2Reg promotes every alloca whose only uses are loads and stores
// into SSA values with φ-nodes at the iterated dominance frontier of
// its store blocks, per spec.md §4.4.
func Mem2Reg(fn *ir.Function) bool {
	fn.UpdatePreds()
	fn.UpdateDoms()

	allocas := promotableAllocas(fn)
	if len(allocas) == 0 {
		return false
	}
	domChildren := buildDomChildren(fn)

	opToAlloca := make(map[*ir.Op]*ir.Op)
	blockPhis := make(map[*ir.BasicBlock]map[*ir.Op]*ir.Op) // block -> alloca -> phi
	b := ir.NewBuilder()

	for _, alloca := range allocas {
		ty := allocaValueType(alloca)
		storeBlocks := storeBlocksOf(alloca)
		phiBlocks := ir.IteratedDominanceFrontier(storeBlocks)
		for _, bb := range phiBlocks.Items() {
			phi := b.SetToBlockStart(bb).Create(ir.OpPhi, ty, nil)
			opToAlloca[phi] = alloca
			if blockPhis[bb] == nil {
				blockPhis[bb] = make(map[*ir.Op]*ir.Op)
			}
			blockPhis[bb][alloca] = phi
		}
	}

	entry := fn.Blocks()[0]
	renameMem2Reg(entry, map[*ir.Op]*ir.Op{}, domChildren, opToAlloca, blockPhis, fn)

	for _, alloca := range allocas {
		if !alloca.HasUses() {
			alloca.Erase()
		}
	}
	return true
}

func promotableAllocas(fn *ir.Function) []*ir.Op {
	var out []*ir.Op
	for _, op := range fn.AllOps() {
		if op.Opcode != ir.OpAlloca {
			continue
		}
		ok := true
		for _, u := range op.Uses() {
			switch {
			case u.Opcode == ir.OpLoad && u.Operands[0] == op:
			case u.Opcode == ir.OpStore && u.Operands[0] == op:
			default:
				ok = false
			}
			if !ok {
				break
			}
		}
		if ok {
			out = append(out, op)
		}
	}
	return out
}

func allocaValueType(alloca *ir.Op) ir.Type {
	for _, u := range alloca.Uses() {
		if u.Opcode == ir.OpStore {
			return u.Operands[1].Result
		}
	}
	for _, u := range alloca.Uses() {
		if u.Opcode == ir.OpLoad {
			return u.Result
		}
	}
	return ir.I32
}

func storeBlocksOf(alloca *ir.Op) []*ir.BasicBlock {
	seen := ir.NewSet[*ir.BasicBlock]()
	var out []*ir.BasicBlock
	for _, u := range alloca.Uses() {
		if u.Opcode == ir.OpStore && !seen.Has(u.Block()) {
			seen.Add(u.Block())
			out = append(out, u.Block())
		}
	}
	return out
}

// buildDomChildren groups every block by its idom, giving the
// dominator tree's children lists used by Mem2Reg's and GVN's
// dominator-tree walks.
func buildDomChildren(fn *ir.Function) map[*ir.BasicBlock][]*ir.BasicBlock {
	children := make(map[*ir.BasicBlock][]*ir.BasicBlock)
	for _, bb := range fn.Blocks() {
		if bb.Idom() != nil {
			children[bb.Idom()] = append(children[bb.Idom()], bb)
		}
	}
	return children
}

func renameMem2Reg(
	bb *ir.BasicBlock,
	current map[*ir.Op]*ir.Op,
	domChildren map[*ir.BasicBlock][]*ir.BasicBlock,
	opToAlloca map[*ir.Op]*ir.Op,
	blockPhis map[*ir.BasicBlock]map[*ir.Op]*ir.Op,
	fn *ir.Function,
) {
	local := make(map[*ir.Op]*ir.Op, len(current))
	for k, v := range current {
		local[k] = v
	}

	for _, op := range bb.Ops() {
		if alloca, ok := opToAlloca[op]; ok {
			local[alloca] = op
			continue
		}
		if op.Opcode == ir.OpLoad {
			if alloca, ok := isAllocaLoad(op); ok {
				val, has := local[alloca]
				if !has {
					val = zeroValueFor(allocaValueType(alloca), op)
				}
				op.ReplaceAllUsesWith(val)
				op.Erase()
			}
			continue
		}
		if op.Opcode == ir.OpStore {
			if alloca, ok := isAllocaStore(op); ok {
				local[alloca] = op.Operands[1]
				op.Erase()
			}
			continue
		}
	}

	for _, s := range bb.Succs().Items() {
		phis := blockPhis[s]
		for alloca, phi := range phis {
			val, has := local[alloca]
			if !has {
				val = zeroValueFor(allocaValueType(alloca), phi)
			}
			phi.AddOperand(val)
			phi.AddAttr(ir.FromAttr{Block: bb})
		}
	}

	for _, child := range domChildren[bb] {
		renameMem2Reg(child, local, domChildren, opToAlloca, blockPhis, fn)
	}
}

func isAllocaLoad(op *ir.Op) (*ir.Op, bool) {
	if op.Opcode != ir.OpLoad {
		return nil, false
	}
	addr := op.Operands[0]
	if addr != nil && addr.Opcode == ir.OpAlloca {
		return addr, true
	}
	return nil, false
}

func isAllocaStore(op *ir.Op) (*ir.Op, bool) {
	if op.Opcode != ir.OpStore {
		return nil, false
	}
	addr := op.Operands[0]
	if addr != nil && addr.Opcode == ir.OpAlloca {
		return addr, true
	}
	return nil, false
}

// zeroValueFor materializes a zero constant of type t, used when a
// load or a φ's incoming value has no preceding store on that path
// (the variable is read before any write).
func zeroValueFor(t ir.Type, near *ir.Op) *ir.Op {
	b := ir.NewBuilder()
	b.SetBeforeOp(near)
	if t == ir.F32 {
		return b.FloatConst(0)
	}
	return b.IntConst(0)
}
