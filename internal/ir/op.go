package ir

import "container/list"

// Opcode identifies an op's kind. Mid-level opcodes are the small fixed
// set spec.md §3–§4 names; machine opcodes are target-mnemonic strings
// registered by internal/mach/arm64 and internal/mach/riscv64 (e.g.
// "arm64.addi", "riscv64.addi"). A string opcode keeps the pattern
// engine's matcher (internal/pattern), which dispatches on the same
// textual atoms the DSL uses, free of a translation table between DSL
// tokens and a numeric enum.
type Opcode string

// Mid-level opcodes.
const (
	OpIntConst   Opcode = "int"
	OpFloatConst Opcode = "float"
	OpAdd        Opcode = "add"
	OpSub        Opcode = "sub"
	OpMul        Opcode = "mul"
	OpDiv        Opcode = "div"
	OpMod        Opcode = "mod"
	OpNeg        Opcode = "minus"
	OpAnd        Opcode = "and"
	OpOr         Opcode = "or"
	OpNot        Opcode = "not"
	OpShl        Opcode = "shl"
	OpShr        Opcode = "shr"
	OpEq         Opcode = "eq"
	OpNe         Opcode = "ne"
	OpLt         Opcode = "lt"
	OpLe         Opcode = "le"
	OpGt         Opcode = "gt"
	OpGe         Opcode = "ge"
	OpAlloca     Opcode = "alloca"
	OpLoad       Opcode = "load"
	OpStore      Opcode = "store"
	OpGlobalAddr Opcode = "globaladdr"
	OpGetArg     Opcode = "getarg"
	OpCall       Opcode = "call"
	OpPhi        Opcode = "phi"
	OpJump       Opcode = "jump"
	OpBranch     Opcode = "branch"
	OpReturn     Opcode = "return"
	OpIf         Opcode = "if"
	OpWhile      Opcode = "while"
	OpProceed    Opcode = "proceed"
	OpContinue   Opcode = "continue"
	OpPlaceHolder Opcode = "placeholder"
)

// Register-allocator pseudo-opcodes (spec.md §4.9). These are
// target-agnostic: internal/regalloc inserts and consumes them during
// pre-colouring, SSA destruction, and spill materialization, before a
// target's mach.Selector has even run, so they carry no "<target>."
// prefix the way arm64/riscv64 machine ops do.
const (
	// ReadReg reads a fixed physical register's current value into an
	// SSA value, used to pick up an incoming argument register or the
	// result side of a call.
	OpReadReg Opcode = "readreg"
	// WriteReg writes an SSA value into a fixed physical register,
	// used to prepare an outgoing argument or a call's pre-coloured
	// clobber set.
	OpWriteReg Opcode = "writereg"
	// Move is a register-to-register (or spill-slot) copy emitted by
	// SSA destruction's parallel-copy scheduling.
	OpMove Opcode = "move"
	// SpillStore writes a coloured value to its assigned stack slot.
	OpSpillStore Opcode = "spillstore"
	// SpillLoad reads a coloured value back from its assigned stack
	// slot into the scratch register a spilled operand slot uses.
	OpSpillLoad Opcode = "spillload"
	// SubSp adjusts the stack pointer by a constant byte count,
	// tracked by spill-offset bookkeeping across pre-call argument
	// frames and materialized by prologue/epilogue insertion.
	OpSubSp Opcode = "subsp"
)

// Terminators is the set of opcodes legal as a flattened block's final
// op (spec.md §8 invariant 3).
var Terminators = map[Opcode]bool{
	OpJump:   true,
	OpBranch: true,
	OpReturn: true,
}

// Op is the atomic IR node: a stable opcode, one typed result, ordered
// operands, ordered attributes, zero or more owned nested regions, and
// a def-use "uses" list. Its identity is the pointer itself: Value is
// an alias for *Op.
type Op struct {
	id       int
	Opcode   Opcode
	Result   Type
	Operands []*Op
	Attrs    []Attr
	Regions  []*Region

	uses  []*Op
	block *BasicBlock
	pos   *list.Element
}

// Value is an SSA value: the result produced by an Op. Referencing an
// Op as an operand references its result.
type Value = *Op

// ID returns a stable, per-function-unique small integer used as a
// liveness/interference-graph bitset index and for deterministic
// printing.
func (o *Op) ID() int { return o.id }

// Block returns the BasicBlock that owns this op, or nil if detached.
func (o *Op) Block() *BasicBlock { return o.block }

// Uses returns every op that references this op's result as an
// operand. Mutating the returned slice has no effect; use AddOperand/
// RemoveOperand/ReplaceAllUsesWith.
func (o *Op) Uses() []*Op { return o.uses }

// HasUses reports whether any op references this op's result.
func (o *Op) HasUses() bool { return len(o.uses) > 0 }

// IsTerminator reports whether this op ends a basic block.
func (o *Op) IsTerminator() bool { return Terminators[o.Opcode] }

// IsPhi reports whether this op is a φ-node.
func (o *Op) IsPhi() bool { return o.Opcode == OpPhi }

// AddOperand appends v to o's operand list, registering o as one of
// v's users. Used by passes that grow an op's operand list after
// construction (Mem2Reg/FlattenCFG appending φ operands edge by edge).
func (o *Op) AddOperand(v *Op) { o.addOperand(v) }

// AddAttr appends a to o's attribute list.
func (o *Op) AddAttr(a Attr) { o.Attrs = append(o.Attrs, a) }

// RemoveOperandAt deletes the operand at index i, unregistering o from
// that operand's uses list. Used by DAE to drop a dead argument from a
// call site's operand list without leaving a stale entry in the
// argument's def-use chain.
func (o *Op) RemoveOperandAt(i int) {
	old := o.Operands[i]
	if old != nil {
		old.removeUser(o)
	}
	o.Operands = append(o.Operands[:i], o.Operands[i+1:]...)
}

// SetOperandAt overwrites operand index i with v, maintaining def-use
// lists on both the old and new def. Used by TCO to back-patch a φ's
// placeholder preheader operand once it has been built, after the
// argument's other uses have already been redirected to the φ itself.
func (o *Op) SetOperandAt(i int, v *Op) { o.setOperand(i, v) }

// MoveBefore detaches o from its current block and reinserts it
// immediately before mark, in mark's block, leaving its operand/use
// bookkeeping untouched. Used by LICM to relocate a loop-invariant op
// into the loop's preheader.
func (o *Op) MoveBefore(mark *Op) {
	if o.block != nil {
		o.block.remove(o)
	}
	mark.block.insertBefore(o, mark)
}

// addOperand appends v to o's operand list and registers o as one of
// v's users. v may be nil only for machine ops whose operand slots have
// already been lowered to register attributes (step 5 of spec.md
// §4.9 removes SSA operands after colouring).
func (o *Op) addOperand(v *Op) {
	o.Operands = append(o.Operands, v)
	if v != nil {
		v.uses = append(v.uses, o)
	}
}

// setOperand overwrites operand index i, maintaining def-use lists on
// both the old and new def.
func (o *Op) setOperand(i int, v *Op) {
	old := o.Operands[i]
	if old == v {
		return
	}
	if old != nil {
		old.removeUser(o)
	}
	o.Operands[i] = v
	if v != nil {
		v.uses = append(v.uses, o)
	}
}

// removeUser deletes one occurrence of user from o's uses list.
func (o *Op) removeUser(user *Op) {
	for i, u := range o.uses {
		if u == user {
			o.uses = append(o.uses[:i], o.uses[i+1:]...)
			return
		}
	}
}

// ReplaceAllUsesWith rewrites every user's matching operand entries to
// point at other instead of o, and leaves o with no users (safe to
// erase afterward). Per spec.md §3, this is the sole sanctioned way to
// retire a value still referenced elsewhere.
func (o *Op) ReplaceAllUsesWith(other *Op) {
	if o == other {
		return
	}
	users := append([]*Op(nil), o.uses...)
	for _, u := range users {
		for i, operand := range u.Operands {
			if operand == o {
				u.setOperand(i, other)
			}
		}
	}
	o.uses = nil
}

// Erase detaches o from its block, removes it from every operand's
// uses list, and drops its own uses list. Callers must ensure o has no
// remaining users (typically via ReplaceAllUsesWith) or that the users
// are themselves being erased in the same sweep.
func (o *Op) Erase() {
	for _, operand := range o.Operands {
		if operand != nil {
			operand.removeUser(o)
		}
	}
	o.Operands = nil
	if o.block != nil {
		o.block.remove(o)
	}
	o.block = nil
	o.pos = nil
}

// Clone returns a detached copy of o (same opcode, result type,
// attributes, and operand list) that is not yet inserted into any
// block and has no uses. Used by ConstLoopUnroll and inlining.
func (o *Op) Clone() *Op {
	n := &Op{
		Opcode:   o.Opcode,
		Result:   o.Result,
		Operands: append([]*Op(nil), o.Operands...),
		Attrs:    append([]Attr(nil), o.Attrs...),
	}
	for _, operand := range n.Operands {
		if operand != nil {
			operand.uses = append(operand.uses, n)
		}
	}
	return n
}
