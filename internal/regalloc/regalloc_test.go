package regalloc

import (
	"testing"

	"aotc/internal/ir"
	"aotc/internal/mach/arm64"
)

// buildAddFunction builds "f(a, b) { return a + b*2; }" already through
// arm64 instruction selection, the precondition regalloc.Run documents.
func buildAddFunction(t *testing.T) (*ir.Function, *arm64.Target) {
	t.Helper()
	m := ir.NewModule()
	fn := m.NewFunction("f", 2, ir.I64)
	bb := fn.Body.First()
	b := ir.NewBuilder().SetToBlockEnd(bb)

	a := b.GetArg(0, ir.I64)
	bArg := b.GetArg(1, ir.I64)
	two := b.IntConst(2)
	mul := b.BinOp(ir.OpMul, bArg, two)
	sum := b.BinOp(ir.OpAdd, a, mul)
	b.Return(sum)

	sel := arm64.New()
	if err := sel.Select(fn); err != nil {
		t.Fatalf("Select: %v", err)
	}
	return fn, sel
}

func TestRunProducesOnlyRegOrSpillAttrs(t *testing.T) {
	fn, sel := buildAddFunction(t)
	if err := Run(fn, sel); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, op := range fn.AllOps() {
		if op.Opcode == ir.OpPhi || op.Opcode == ir.OpPlaceHolder {
			t.Fatalf("leftover %s op after Run", op.Opcode)
		}
		if len(op.Operands) != 0 {
			t.Fatalf("op %s still carries SSA operands after lowering: %v", op.Opcode, op.Operands)
		}
	}
}

func TestRunInsertsPrologueEpilogue(t *testing.T) {
	fn, sel := buildAddFunction(t)
	if err := Run(fn, sel); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entry := fn.Blocks()[0]
	first := entry.Ops()[0]
	if first.Opcode != ir.OpSubSp {
		t.Fatalf("entry block's first op = %s, want subsp", first.Opcode)
	}

	foundRet := false
	for _, bb := range fn.Blocks() {
		for _, op := range bb.Ops() {
			if op.Opcode == "arm64.ret" {
				foundRet = true
			}
		}
	}
	if !foundRet {
		t.Fatal("no arm64.ret survived prologue/epilogue insertion")
	}
}

func TestCallArgumentsPrecoloured(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("caller", 1, ir.I64)
	bb := fn.Body.First()
	b := ir.NewBuilder().SetToBlockEnd(bb)
	x := b.GetArg(0, ir.I64)
	result := b.Call("callee", []*ir.Op{x}, ir.I64)
	b.Return(result)

	sel := arm64.New()
	if err := sel.Select(fn); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := Run(fn, sel); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var sawWriteToArg0 bool
	for _, op := range fn.AllOps() {
		if op.Opcode != ir.OpWriteReg {
			continue
		}
		if reg, ok := ir.GetAttr[ir.RegAttr](op); ok && reg.Reg == sel.ArgRegisters()[0] {
			sawWriteToArg0 = true
		}
	}
	if !sawWriteToArg0 {
		t.Fatal("expected a WriteReg into the first argument register before the call")
	}
}
