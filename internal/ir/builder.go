package ir

// insertMode selects where a Builder's next Create splices a new op.
type insertMode int

const (
	modeBlockEnd insertMode = iota
	modeBlockStart
	modeBeforeOp
	modeAfterOp
)

// Builder holds a (block, position) insertion point and constructs ops
// at it. Region-restructuring helpers live on Region/BasicBlock
// directly; Builder is purely about op creation and placement.
type Builder struct {
	block *BasicBlock
	mark  *Op
	mode  insertMode
}

// NewBuilder returns a Builder with no insertion point set; call one of
// the SetTo* methods before Create.
func NewBuilder() *Builder { return &Builder{} }

// SetToBlockEnd points the builder at the end of bb.
func (b *Builder) SetToBlockEnd(bb *BasicBlock) *Builder {
	b.block, b.mode = bb, modeBlockEnd
	return b
}

// SetToBlockStart points the builder at the start of bb (before any
// existing op, including φ-nodes — callers inserting a non-φ op must
// ensure φ-node-before-non-φ ordering themselves, e.g. via
// SetAfterOp(lastPhi)).
func (b *Builder) SetToBlockStart(bb *BasicBlock) *Builder {
	b.block, b.mode = bb, modeBlockStart
	return b
}

// SetToRegionStart/End point the builder at the start/end of r's first
// or last block.
func (b *Builder) SetToRegionStart(r *Region) *Builder {
	return b.SetToBlockStart(r.First())
}
func (b *Builder) SetToRegionEnd(r *Region) *Builder {
	return b.SetToBlockEnd(r.Last())
}

// SetBeforeOp points the builder to insert immediately before op.
func (b *Builder) SetBeforeOp(op *Op) *Builder {
	b.block, b.mark, b.mode = op.Block(), op, modeBeforeOp
	return b
}

// SetAfterOp points the builder to insert immediately after op.
func (b *Builder) SetAfterOp(op *Op) *Builder {
	b.block, b.mark, b.mode = op.Block(), op, modeAfterOp
	return b
}

// InsertionBlock returns the builder's current block.
func (b *Builder) InsertionBlock() *BasicBlock { return b.block }

// Guard is a scoped insertion-point snapshot. Restore puts the builder
// back where it was when the guard was taken, on every exit path
// (deferred), matching spec.md §4.1's scoped-guard contract.
type Guard struct {
	b     *Builder
	block *BasicBlock
	mark  *Op
	mode  insertMode
}

// Save returns a Guard capturing b's current insertion point.
func (b *Builder) Save() *Guard {
	return &Guard{b: b, block: b.block, mark: b.mark, mode: b.mode}
}

// Restore puts the builder back at the saved insertion point.
func (g *Guard) Restore() {
	g.b.block, g.b.mark, g.b.mode = g.block, g.mark, g.mode
}

// splice places op according to the builder's current mode, and
// afterward repositions the builder immediately after op, so a
// sequence of Create calls appends in program order.
func (b *Builder) splice(op *Op) {
	switch b.mode {
	case modeBlockStart:
		b.block.pushFront(op)
	case modeBlockEnd:
		b.block.pushBack(op)
	case modeBeforeOp:
		b.block.insertBefore(op, b.mark)
	case modeAfterOp:
		b.block.insertAfter(op, b.mark)
	default:
		b.block.pushBack(op)
	}
	b.mode = modeAfterOp
	b.mark = op
}

// Create constructs a new Op with the given opcode/result type/operands
// /attrs, links it into every operand's uses list, and splices it at
// the builder's insertion point.
func (b *Builder) Create(opcode Opcode, result Type, operands []*Op, attrs ...Attr) *Op {
	op := &Op{Opcode: opcode, Result: result, Attrs: attrs}
	for _, v := range operands {
		op.addOperand(v)
	}
	b.splice(op)
	return op
}

// CreateRegions is Create for a structured op (If/While) that owns
// nested Regions; each region is constructed with one empty block and
// owned by op.
func (b *Builder) CreateRegions(opcode Opcode, result Type, operands []*Op, numRegions int, attrs ...Attr) *Op {
	op := b.Create(opcode, result, operands, attrs...)
	for i := 0; i < numRegions; i++ {
		r := &Region{owner: op}
		r.AppendBlock()
		op.Regions = append(op.Regions, r)
	}
	return op
}

// InsertClone splices a detached op (typically produced by Op.Clone) at
// the builder's current insertion point, as Create does for a freshly
// constructed op. Used by ConstLoopUnroll to place cloned body ops.
func (b *Builder) InsertClone(op *Op) *Op {
	b.splice(op)
	return op
}

// Replace constructs a new op at old's position (immediately before
// old, via the builder's own insertion point saved/restored around the
// call), rewrites old's users to the new op, and erases old. Returns
// the new op.
func (b *Builder) Replace(old *Op, opcode Opcode, result Type, operands []*Op, attrs ...Attr) *Op {
	saved := b.Save()
	b.SetBeforeOp(old)
	n := b.Create(opcode, result, operands, attrs...)
	old.ReplaceAllUsesWith(n)
	old.Erase()
	saved.Restore()
	return n
}

// --- convenience constructors for the common mid-level op families ---

func (b *Builder) IntConst(v int64) *Op {
	return b.Create(OpIntConst, I32, nil, IntAttr{Value: v})
}
func (b *Builder) IntConst64(v int64) *Op {
	return b.Create(OpIntConst, I64, nil, IntAttr{Value: v})
}
func (b *Builder) FloatConst(v float32) *Op {
	return b.Create(OpFloatConst, F32, nil, FloatAttr{Value: v})
}

func (b *Builder) BinOp(opcode Opcode, x, y *Op) *Op {
	result := x.Result
	switch opcode {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		result = I32
	}
	return b.Create(opcode, result, []*Op{x, y})
}

func (b *Builder) Neg(x *Op) *Op {
	return b.Create(OpNeg, x.Result, []*Op{x})
}

func (b *Builder) Alloca(size int) *Op {
	return b.Create(OpAlloca, I64, nil, SizeAttr{Bytes: size})
}

func (b *Builder) Load(addr *Op, result Type) *Op {
	return b.Create(OpLoad, result, []*Op{addr})
}

func (b *Builder) Store(addr, value *Op) *Op {
	return b.Create(OpStore, Void, []*Op{addr, value})
}

func (b *Builder) GlobalAddr(name string) *Op {
	return b.Create(OpGlobalAddr, I64, nil, NameAttr{Name: name})
}

func (b *Builder) GetArg(i int, t Type) *Op {
	return b.Create(OpGetArg, t, nil, IntAttr{Value: int64(i)})
}

func (b *Builder) Call(name string, args []*Op, result Type) *Op {
	return b.Create(OpCall, result, args, NameAttr{Name: name})
}

func (b *Builder) Phi(result Type, incoming []*Op, from []*BasicBlock) *Op {
	attrs := make([]Attr, len(from))
	for i, bb := range from {
		attrs[i] = FromAttr{Block: bb}
	}
	return b.Create(OpPhi, result, incoming, attrs...)
}

func (b *Builder) Jump(target *BasicBlock) *Op {
	return b.Create(OpJump, Void, nil, TargetAttr{Block: target})
}

func (b *Builder) Branch(cond *Op, then, els *BasicBlock) *Op {
	return b.Create(OpBranch, Void, []*Op{cond}, TargetAttr{Block: then}, ElseAttr{Block: els})
}

func (b *Builder) Return(value *Op) *Op {
	if value == nil {
		return b.Create(OpReturn, Void, nil)
	}
	return b.Create(OpReturn, Void, []*Op{value})
}
