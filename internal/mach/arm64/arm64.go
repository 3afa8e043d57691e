// Package arm64 implements instruction selection for the ARM64 target:
// lowering mid-level ops into "arm64."-prefixed machine ops via the
// same pattern.RuleSet engine internal/pattern provides for the
// mid-level pipeline's own peephole rewrites (spec.md §4.2, §4.8).
package arm64

import (
	"aotc/internal/ir"
	"aotc/internal/pattern"
)

const opPrefix = "arm64."

// generalRegisters lists ARM64's allocatable integer GPRs in the
// priority order internal/regalloc should color with: caller-saved
// x9-x15 first (cheapest to use, no save/restore needed across a call
// the colored value doesn't live across), callee-saved x19-x28 last.
var generalRegisters = []string{
	"x9", "x10", "x11", "x12", "x13", "x14", "x15",
	"x19", "x20", "x21", "x22", "x23", "x24", "x25", "x26", "x27", "x28",
}

var argRegisters = []string{"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7"}

var scratchRegisters = []string{"x16", "x17"}

// Target is the arm64 mach.Selector.
type Target struct {
	rules pattern.RuleSet
}

// New builds the arm64 Target with its instruction-selection rule set.
func New() *Target {
	return &Target{rules: buildRules()}
}

// callerSaved/calleeSaved split generalRegisters along the priority
// order it is already written in (spec.md §4.9: "leaf functions prefer
// caller-saved first").
var callerSaved = generalRegisters[:7]  // x9-x15
var calleeSaved = generalRegisters[7:]  // x19-x28

func (*Target) Name() string              { return "arm64" }
func (*Target) ArgRegisters() []string     { return argRegisters }
func (*Target) ReturnRegister() bool       { return true }
func (*Target) GeneralRegisters() []string { return generalRegisters }
func (*Target) ScratchRegisters() []string { return scratchRegisters }
func (*Target) CallerSaved() []string      { return callerSaved }
func (*Target) CalleeSaved() []string      { return calleeSaved }
func (*Target) StackPointer() string       { return "sp" }

// Select walks fn in block order, rewriting every mid-level op the rule
// set matches into its arm64 machine-op form. A plain opcode rename
// (add->arm64.add, and so on) covers everything the rule set's patterns
// don't specifically combine (e.g. an add-immediate fusing a constant
// operand directly into the instruction, matching ARM64's addi
// encoding instead of materializing the constant into a register
// first).
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
	ir.OpAdd: "arm64.add", ir.OpSub: "arm64.sub", ir.OpMul: "arm64.mul",
	ir.OpDiv: "arm64.sdiv", ir.OpMod: "arm64.msub", ir.OpNeg: "arm64.neg",
	ir.OpAnd: "arm64.and", ir.OpOr: "arm64.orr", ir.OpNot: "arm64.mvn",
	ir.OpShl: "arm64.lsl", ir.OpShr: "arm64.lsr",
	ir.OpEq: "arm64.cseteq", ir.OpNe: "arm64.csetne",
	ir.OpLt: "arm64.csetlt", ir.OpLe: "arm64.csetle",
	ir.OpGt: "arm64.csetgt", ir.OpGe: "arm64.csetge",
	ir.OpLoad: "arm64.ldr", ir.OpStore: "arm64.str",
	ir.OpAlloca: "arm64.frameslot", ir.OpGlobalAddr: "arm64.adrp",
	ir.OpGetArg: "arm64.argslot", ir.OpCall: "arm64.bl",
	ir.OpIntConst: "arm64.movz", ir.OpFloatConst: "arm64.fmov",
}

func renamePlain(op *ir.Op) {
	if to, ok := plainRename[op.Opcode]; ok {
		op.Opcode = to
	}
}

var terminatorRename = map[ir.Opcode]ir.Opcode{
	ir.OpJump: "arm64.b", ir.OpBranch: "arm64.cbnz", ir.OpReturn: "arm64.ret",
}

func renameTerminator(op *ir.Op) {
	if to, ok := terminatorRename[op.Opcode]; ok {
		op.Opcode = to
	}
}

// Selection renames every mid-level terminator opcode; register the
// renamed forms so BasicBlock.Terminator/IsTerminator still recognize
// them afterward (ir.Terminators is keyed by exact opcode, and a
// "arm64.cbnz" is no longer the "branch" it started as).
func init() {
	for _, to := range terminatorRename {
		ir.Terminators[to] = true
	}
}
