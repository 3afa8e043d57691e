// Package riscv64 implements instruction selection for the RV64GC
// target: lowering mid-level ops into "riscv64."-prefixed machine ops
// via the same pattern.RuleSet engine internal/pattern provides for the
// mid-level pipeline's own peephole rewrites (spec.md §4.2, §4.8).
package riscv64

import (
	"aotc/internal/ir"
	"aotc/internal/pattern"
)

const opPrefix = "riscv64."

// generalRegisters lists RV64's allocatable integer registers in the
// priority order internal/regalloc should color with: caller-saved
// temporaries (t0-t4; t5 and t6 are the spill scratch registers) first,
// the callee-saved s-registers last.
var generalRegisters = []string{
	"t0", "t1", "t2", "t3", "t4",
	"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
}

var argRegisters = []string{"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7"}

var scratchRegisters = []string{"t5", "t6"}

// Target is the riscv64 mach.Selector.
type Target struct {
	rules pattern.RuleSet
}

// New builds the riscv64 Target with its instruction-selection rule set.
func New() *Target {
	return &Target{rules: buildRules()}
}

// callerSaved/calleeSaved split generalRegisters along the priority
// order it is already written in (spec.md §4.9: "leaf functions prefer
// caller-saved first").
var callerSaved = generalRegisters[:5]  // t0-t4
var calleeSaved = generalRegisters[5:]  // s1-s11

func (*Target) Name() string              { return "riscv64" }
func (*Target) ArgRegisters() []string     { return argRegisters }
func (*Target) ReturnRegister() bool       { return true }
func (*Target) GeneralRegisters() []string { return generalRegisters }
func (*Target) ScratchRegisters() []string { return scratchRegisters }
func (*Target) CallerSaved() []string      { return callerSaved }
func (*Target) CalleeSaved() []string      { return calleeSaved }
func (*Target) StackPointer() string       { return "sp" }

// Select walks fn in block order, rewriting every mid-level op the rule
// set matches into its riscv64 machine-op form, falling back to a plain
// opcode rename for everything the rule set's immediate-fusing patterns
// don't specifically combine.
func (t *Target) Select(fn *ir.Function) error {
	for _, bb := range fn.Blocks() {
		for _, op := range bb.Ops() {
			if op.IsPhi() || op.IsTerminator() {
				renameTerminator(op)
				continue
			}
			if t.rules.Rewrite(ir.NewBuilder(), op) {
				continue
			}
			renamePlain(op)
		}
	}
	return nil
}

var plainRename = map[ir.Opcode]ir.Opcode{
	ir.OpAdd: "riscv64.add", ir.OpSub: "riscv64.sub", ir.OpMul: "riscv64.mul",
	ir.OpDiv: "riscv64.div", ir.OpMod: "riscv64.rem", ir.OpNeg: "riscv64.neg",
	ir.OpAnd: "riscv64.and", ir.OpOr: "riscv64.or", ir.OpNot: "riscv64.xori",
	ir.OpShl: "riscv64.sll", ir.OpShr: "riscv64.srl",
	ir.OpEq: "riscv64.seqz", ir.OpNe: "riscv64.snez",
	ir.OpLt: "riscv64.slt", ir.OpLe: "riscv64.sle",
	ir.OpGt: "riscv64.sgt", ir.OpGe: "riscv64.sge",
	ir.OpLoad: "riscv64.ld", ir.OpStore: "riscv64.sd",
	ir.OpAlloca: "riscv64.frameslot", ir.OpGlobalAddr: "riscv64.lla",
	ir.OpGetArg: "riscv64.argslot", ir.OpCall: "riscv64.call",
	ir.OpIntConst: "riscv64.li", ir.OpFloatConst: "riscv64.fli",
}

func renamePlain(op *ir.Op) {
	if to, ok := plainRename[op.Opcode]; ok {
		op.Opcode = to
	}
}

var terminatorRename = map[ir.Opcode]ir.Opcode{
	ir.OpJump: "riscv64.j", ir.OpBranch: "riscv64.bnez", ir.OpReturn: "riscv64.ret",
}

func renameTerminator(op *ir.Op) {
	if to, ok := terminatorRename[op.Opcode]; ok {
		op.Opcode = to
	}
}

// Selection renames every mid-level terminator opcode; register the
// renamed forms so BasicBlock.Terminator/IsTerminator still recognize
// them afterward (ir.Terminators is keyed by exact opcode, and a
// "riscv64.bnez" is no longer the "branch" it started as).
func init() {
	for _, to := range terminatorRename {
		ir.Terminators[to] = true
	}
}
