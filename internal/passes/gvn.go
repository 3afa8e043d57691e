package passes

import (
	"fmt"
	"strings"

	"aotc/internal/ir"
)

// pureOpcodes are the mid-level ops GVN is allowed to number: immediates,
// arithmetic/compare, and loads (loads participate only because DLE has
// already ensured a load's observable value is stable along any one
// path reaching it — GVN still treats two loads of different blocks as
// distinct keys unless their operand value-numbers agree, which is
// exactly the aliasing-free case DLE resolves first in the pipeline).
var pureOpcodes = map[ir.Opcode]bool{
	ir.OpIntConst: true, ir.OpFloatConst: true,
	ir.OpAdd: true, ir.OpSub: true, ir.OpMul: true, ir.OpDiv: true, ir.OpMod: true,
	ir.OpNeg: true, ir.OpAnd: true, ir.OpOr: true, ir.OpNot: true,
	ir.OpShl: true, ir.OpShr: true,
	ir.OpEq: true, ir.OpNe: true, ir.OpLt: true, ir.OpLe: true, ir.OpGt: true, ir.OpGe: true,
	ir.OpLoad: true,
}

var commutative = map[ir.Opcode]bool{
	ir.OpAdd: true, ir.OpMul: true, ir.OpAnd: true, ir.OpOr: true,
	ir.OpEq: true, ir.OpNe: true,
}

// GVN performs dominator-tree value numbering: a single pre-order walk
// of the dominator tree with a scoped value-number table, per spec.md
// §4.5. Running it twice in succession reaches a fixed point after the
// first call (spec.md §8's round-trip property): the second call finds
// every op already numbered and rewrites nothing.
func GVN(fn *ir.Function) bool {
	fn.UpdatePreds()
	fn.UpdateDoms()
	domChildren := buildDomChildren(fn)

	changed := false
	entry := fn.Blocks()[0]
	ords := make(map[*ir.Op]int)
	var walk func(bb *ir.BasicBlock, table map[string]*ir.Op)
	walk = func(bb *ir.BasicBlock, table map[string]*ir.Op) {
		local := make(map[string]*ir.Op, len(table))
		for k, v := range table {
			local[k] = v
		}
		for _, op := range bb.Ops() {
			if op.IsPhi() {
				if rep, ok := trivialPhiValue(op); ok {
					op.ReplaceAllUsesWith(rep)
					op.Erase()
					changed = true
				}
				continue
			}
			if !pureOpcodes[op.Opcode] || !callIsPureIfCall(op) {
				continue
			}
			key, ok := valueKey(local, ords, op)
			if !ok {
				continue
			}
			if rep, ok := local[key]; ok {
				op.ReplaceAllUsesWith(rep)
				op.Erase()
				changed = true
				continue
			}
			local[key] = op
		}
		for _, child := range domChildren[bb] {
			walk(child, local)
		}
	}
	walk(entry, map[string]*ir.Op{})
	return changed
}

// callIsPureIfCall rejects impure calls from participating (everything
// else in pureOpcodes is unconditionally side-effect free).
func callIsPureIfCall(op *ir.Op) bool {
	if op.Opcode != ir.OpCall {
		return true
	}
	return !ir.HasAttr[ir.ImpureAttr](op)
}

// trivialPhiValue reports whether every operand of a φ carries the same
// value number (all equal op pointers, after prior GVN numbering has
// already unified equivalent defs) — such a φ contributes no new
// information and collapses to that shared value.
func trivialPhiValue(phi *ir.Op) (*ir.Op, bool) {
	if len(phi.Operands) == 0 {
		return nil, false
	}
	first := phi.Operands[0]
	if first == nil {
		return nil, false
	}
	for _, operand := range phi.Operands[1:] {
		if operand != first {
			return nil, false
		}
	}
	if first == phi {
		return nil, false
	}
	return first, true
}

// valueKey builds (opcode, numbered-operands, int-attr, float-attr,
// name-attr) as spec.md §4.5 describes, canonicalizing commutative
// operand order. numberOf gives an operand not yet seen in ords a fresh
// number, so every operand is numbered and every op reaching valueKey
// gets a key.
func valueKey(table map[string]*ir.Op, ords map[*ir.Op]int, op *ir.Op) (string, bool) {
	var sb strings.Builder
	sb.WriteString(string(op.Opcode))
	nums := make([]int, len(op.Operands))
	for i, operand := range op.Operands {
		n, ok := numberOf(ords, operand)
		if !ok {
			return "", false
		}
		nums[i] = n
	}
	if commutative[op.Opcode] && len(nums) == 2 && nums[0] > nums[1] {
		nums[0], nums[1] = nums[1], nums[0]
	}
	for _, n := range nums {
		fmt.Fprintf(&sb, "|%d", n)
	}
	if iv, ok := ir.GetAttr[ir.IntAttr](op); ok {
		fmt.Fprintf(&sb, "|i%d", iv.Value)
	}
	if fv, ok := ir.GetAttr[ir.FloatAttr](op); ok {
		fmt.Fprintf(&sb, "|f%g", fv.Value)
	}
	if nv, ok := ir.GetAttr[ir.NameAttr](op); ok {
		fmt.Fprintf(&sb, "|n%s", nv.Name)
	}
	return sb.String(), true
}

// numberOf assigns each distinct Op pointer seen during this GVN run a
// stable small int in first-sight order, scoped to a single call so the
// textual key never depends on pointer values across runs.
func numberOf(ords map[*ir.Op]int, op *ir.Op) (int, bool) {
	if op == nil {
		return -1, true
	}
	if n, ok := ords[op]; ok {
		return n, true
	}
	n := len(ords)
	ords[op] = n
	return n, true
}
